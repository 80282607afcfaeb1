package procident

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAliveReportsCurrentProcess(t *testing.T) {
	require.True(t, Alive(os.Getpid()))
}

func TestAliveReportsDeadPidFalse(t *testing.T) {
	require.False(t, Alive(0))
	require.False(t, Alive(-1))
}

func TestCmdlineContainsAllForCurrentProcess(t *testing.T) {
	raw, err := os.ReadFile(procPath(os.Getpid()) + "/cmdline")
	if err != nil {
		t.Skip("cmdline not readable in this sandbox")
	}
	require.NotEmpty(t, raw)
	require.False(t, CmdlineContainsAll(os.Getpid(), []string{"definitely-not-present-xyz"}))
}

func TestCmdlineContainsAllRequiresAllSubstrings(t *testing.T) {
	require.False(t, CmdlineContainsAll(os.Getpid(), nil))
}
