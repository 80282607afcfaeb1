package daemon

import (
	"time"

	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/wake"
)

// setWakeword persists the wakeword enabled toggle, read by the separate
// wake-word listener process that issues wake-start requests.
func (d *Daemon) setWakeword(enabled bool) ipc.Response {
	st, err := wake.ReadState(d.wakeStatePath)
	if err != nil {
		d.logger.Error("wakeword state read failed", "error", err.Error())
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
	}
	st.Enabled = enabled
	if err := wake.WriteState(d.wakeStatePath, st, time.Now().Unix()); err != nil {
		d.logger.Error("wakeword state write failed", "error", err.Error())
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
	}
	return d.statusResponse()
}

// toggleWakeword flips the persisted enabled toggle and returns the new
// status snapshot.
func (d *Daemon) toggleWakeword() ipc.Response {
	if _, err := wake.Toggle(d.wakeStatePath, time.Now().Unix()); err != nil {
		d.logger.Error("wakeword toggle failed", "error", err.Error())
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
	}
	return d.statusResponse()
}
