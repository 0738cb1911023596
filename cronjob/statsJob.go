package cronjob

import (
	"time"

	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/service"
)

type UsageSampler interface {
	GetProcessUsage(pid int) *service.ProcessUsage
}

// StatsJob writes the backend's resource usage to the panel log.
type StatsJob struct {
	supervisor Supervisor
	usage      UsageSampler
}

func NewStatsJob(supervisor Supervisor, usage UsageSampler) *StatsJob {
	return &StatsJob{
		supervisor: supervisor,
		usage:      usage,
	}
}

func (s *StatsJob) Run() {
	st := s.supervisor.Status()
	if st.PID == 0 {
		return
	}
	u := s.usage.GetProcessUsage(st.PID)
	if u == nil {
		logger.Debug("backend pid ", st.PID, " usage unavailable")
		return
	}
	logger.Debugf("backend pid %d: state %s, uptime %s, cpu %.1f%%, rss %d bytes",
		st.PID, st.State, st.Uptime.Round(time.Second), u.CPUPercent, u.MemoryRSS)
}
