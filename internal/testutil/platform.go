package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform captures the current test execution environment.
type Platform struct {
	IsUnix    bool
	IsWindows bool
	IsRoot    bool
	UID       int
}

// DetectPlatform inspects the current runtime environment.
func DetectPlatform(t testing.TB) Platform {
	uid := os.Geteuid()
	platform := Platform{
		IsUnix:    runtime.GOOS != "windows",
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    uid == 0,
		UID:       uid,
	}
	t.Logf("Platform detection: OS=%s, UID=%d, IsRoot=%v", runtime.GOOS, uid, platform.IsRoot)
	return platform
}

// SkipIfWindows marks the test as skipped on Windows, where symlinks and
// Unix permissions behave differently.
func SkipIfWindows(t testing.TB, platform Platform, reason string) {
	if platform.IsWindows {
		t.Skipf("Skipping test - %s (Windows platform detected)", reason)
	}
}
