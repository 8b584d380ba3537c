package testutil

import (
	"runtime"
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	platform := DetectPlatform(t)

	if platform.IsWindows == platform.IsUnix {
		t.Fatalf("exactly one of IsUnix and IsWindows must be set: %+v", platform)
	}
	if platform.IsWindows != (runtime.GOOS == "windows") {
		t.Errorf("IsWindows=%v on %s", platform.IsWindows, runtime.GOOS)
	}
	if platform.IsRoot != (platform.UID == 0) {
		t.Errorf("IsRoot=%v with UID %d", platform.IsRoot, platform.UID)
	}
}

func TestSkipIfWindows(t *testing.T) {
	ran := false
	t.Run("unix", func(t *testing.T) {
		SkipIfWindows(t, Platform{IsUnix: true}, "never skipped")
		ran = true
	})
	if !ran {
		t.Fatal("SkipIfWindows skipped on a unix platform")
	}
	t.Run("windows", func(t *testing.T) {
		SkipIfWindows(t, Platform{IsWindows: true}, "always skipped")
		t.Fatal("SkipIfWindows did not skip")
	})
}
