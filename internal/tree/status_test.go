package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		value fmt.Stringer
		want  string
	}{
		{StatusNone, "none"},
		{StatusFailure, "failure"},
		{Status(9), "status(9)"},
		{SubDisabling, "disabling"},
		{SubDone, "done"},
		{SubStatus(42), "substatus(42)"},
		{KindYield, "yield"},
	} {
		require.Equal(t, tc.want, tc.value.String())
	}
	require.True(t, StatusSuccess.Terminal())
	require.False(t, StatusRunning.Terminal())
	require.True(t, SubFailing.abandonable())
	require.False(t, SubExiting.abandonable())
}
