package aider

import (
	"github.com/shirou/gopsutil/v4/process"
)

// Stats is a point-in-time snapshot of the subprocess.
type Stats struct {
	State      State
	PID        int
	RSSBytes   uint64
	CPUPercent float64
	Queued     int
}

// Stats reports the subprocess's resource usage. A stopped service
// returns its state with zero counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	out := Stats{State: s.state, Queued: len(s.queue)}
	if s.inflight != nil {
		out.Queued++
	}
	r := s.run
	s.mu.Unlock()

	if r == nil || r.cmd.Process == nil {
		return out
	}
	out.PID = r.cmd.Process.Pid

	proc, err := process.NewProcess(int32(out.PID))
	if err != nil {
		return out
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		out.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		out.CPUPercent = cpu
	}
	return out
}
