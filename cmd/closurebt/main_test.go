package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/closure-bt/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRun_TickLimit(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log.level warn\n[monster]\ncount 5\nbogus 1\n")
	ctx, cancel := testutil.WithTimeoutContext(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"-config", path, "-agents", "2", "-interval", "1ms", "-ticks", "3"}, &stdout, &stderr)
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "stopped by the tick limit")

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "player ("), lines[0])

	re := regexp.MustCompile(`^monster-(\d) pos=\(.*\) action=\w* attacks=\d+ status=\w+/\w+ frames=(\d+) nodes=10 values=\d+$`)
	for i, line := range lines[1:] {
		m := re.FindStringSubmatch(line)
		require.NotNil(t, m, line)
		require.Equal(t, strconv.Itoa(i+1), m[1])
		frames, err := strconv.Atoi(m[2])
		require.NoError(t, err)
		require.GreaterOrEqual(t, frames, 3)
	}

	require.Contains(t, stderr.String(), "config warning")
	require.Contains(t, stderr.String(), `\"bogus\"`)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log.level error\ntick.interval-ms 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(ctx, []string{"-config", path, "-agents", "1"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "monster-1 ")
}

func TestRun_DumpLog(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log.level info\n")
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", path, "-agents", "1", "-interval", "1ms", "-ticks", "2", "-dump-log", "100"}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	idx := strings.Index(out, "log:\n")
	require.GreaterOrEqual(t, idx, 0, out)
	require.Contains(t, out[idx:], "closurebt starting")
	require.Contains(t, stderr.String(), "closurebt starting", "records still reach the primary handler")
}

func TestRun_ConfigSchema(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config-schema"}, &stdout, &stderr))
	require.Contains(t, stdout.String(), "[monster] Options:")
	require.Contains(t, stdout.String(), "tick.interval-ms")
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		config string
		args   []string
		want   string
	}{
		{"unknown flag", "", []string{"-nope"}, "flag provided but not defined"},
		{"extra args", "", []string{"x"}, "unexpected arguments"},
		{"bad level", "log.level loud\n", nil, `unknown level "loud"`},
		{"bad format", "log.format xml\n", nil, `unknown format "xml"`},
		{"bad interval", "tick.interval-ms 0\n", nil, "must be positive"},
		{"no monsters", "[monster]\ncount 0\n", nil, "no monsters"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			args := append([]string{"-config", writeConfig(t, tc.config)}, tc.args...)
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), args, &stdout, &stderr)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Usage: closurebt")
}
