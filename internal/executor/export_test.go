package executor

import "time"

func (e *SimulatorExecutor) SetClock(now func() time.Time) {
	e.now = now
}
