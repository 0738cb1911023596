package service

import (
	"runtime"
	"time"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/logger"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

type HostStatus struct {
	Version    string  `json:"version"`
	GoVersion  string  `json:"goVersion"`
	Uptime     uint64  `json:"uptime"`
	CPUCores   int     `json:"cpuCores"`
	CPUPercent float64 `json:"cpuPercent"`
	MemTotal   uint64  `json:"memTotal"`
	MemUsed    uint64  `json:"memUsed"`
	Goroutines int     `json:"goroutines"`
}

type ProcessUsage struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemoryRSS  uint64  `json:"memoryRss"`
}

// ServerService reports host and process resource usage.
type ServerService struct{}

func (s *ServerService) GetHostStatus() *HostStatus {
	status := &HostStatus{
		Version:    config.GetVersion(),
		GoVersion:  runtime.Version(),
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err != nil {
		logger.Warning("get cpu percent failed:", err)
	} else if len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err != nil {
		logger.Warning("get virtual memory failed:", err)
	} else {
		status.MemTotal = vm.Total
		status.MemUsed = vm.Used
	}
	if up, err := host.Uptime(); err != nil {
		logger.Warning("get host uptime failed:", err)
	} else {
		status.Uptime = up
	}
	return status
}

// GetProcessUsage samples the resource usage of pid. It returns nil when the
// process is gone or cannot be inspected.
func (s *ServerService) GetProcessUsage(pid int) *ProcessUsage {
	if pid <= 0 {
		return nil
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	usage := &ProcessUsage{}
	if pct, err := p.CPUPercent(); err == nil {
		usage.CPUPercent = pct
	}
	if info, err := p.MemoryInfo(); err == nil && info != nil {
		usage.MemoryRSS = info.RSS
	}
	return usage
}
