package daemon

import (
	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/wake"
)

// statusResponse assembles a runtime snapshot covering the state machine,
// execution queue, and wakeword toggle for status and wakeword-status
// requests alike.
func (d *Daemon) statusResponse() ipc.Response {
	snap := d.queue.Snapshot()
	st, err := wake.ReadState(d.wakeStatePath)
	if err != nil {
		st = wake.State{Enabled: false}
	}

	return ipc.Response{
		RC: 0,
		Status: &ipc.Status{
			State:          string(d.machine.State()),
			Pending:        snap.Pending,
			RunningJob:     snap.RunningJobName,
			RunningAgeMS:   snap.RunningAgeMS,
			WakewordOn:     st.Enabled,
			WorkerAlive:    snap.WorkerAlive,
			WorkerRestarts: snap.WorkerRestarts,
		},
	}
}
