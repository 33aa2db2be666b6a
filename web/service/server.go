package service

import (
	"runtime"
	"time"

	"github.com/Retroinn/MotoCrew/config"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/store"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Status is the admin status snapshot.
type Status struct {
	T          time.Time `json:"-"`
	Cpu        float64   `json:"cpu"`
	CpuCores   int       `json:"cpuCores"`
	LogicalPro int       `json:"logicalPro"`
	Uptime     uint64    `json:"uptime"`
	Loads      []float64 `json:"loads"`
	Mem        struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"mem"`
	Disk struct {
		Current uint64 `json:"current"`
		Total   uint64 `json:"total"`
	} `json:"disk"`
	AppStats struct {
		Threads uint32 `json:"threads"`
		Mem     uint64 `json:"mem"`
		Uptime  uint64 `json:"uptime"`
	} `json:"appStats"`
	Backend string `json:"backend"`
	Version string `json:"version"`
}

type ServerService struct {
	startedAt time.Time
}

func NewServerService() *ServerService {
	return &ServerService{startedAt: time.Now()}
}

func (s *ServerService) GetStatus() *Status {
	now := time.Now()
	status := &Status{
		T:       now,
		Version: config.GetVersion(),
		Backend: "local",
	}
	if store.IsRemoteConfigured() {
		status.Backend = "remote"
	}

	if percents, err := cpu.Percent(0, false); err != nil {
		logger.Warning("get cpu percent failed:", err)
	} else if len(percents) > 0 {
		status.Cpu = percents[0]
	}

	var err error
	status.CpuCores, err = cpu.Counts(false)
	if err != nil {
		logger.Warning("get cpu cores count failed:", err)
	}
	status.LogicalPro = runtime.NumCPU()

	if upTime, err := host.Uptime(); err != nil {
		logger.Warning("get uptime failed:", err)
	} else {
		status.Uptime = upTime
	}

	if avgState, err := load.Avg(); err != nil {
		logger.Warning("get load avg failed:", err)
	} else {
		status.Loads = []float64{avgState.Load1, avgState.Load5, avgState.Load15}
	}

	if memInfo, err := mem.VirtualMemory(); err != nil {
		logger.Warning("get virtual memory failed:", err)
	} else {
		status.Mem.Current = memInfo.Used
		status.Mem.Total = memInfo.Total
	}

	if diskInfo, err := disk.Usage("/"); err != nil {
		logger.Warning("get disk usage failed:", err)
	} else {
		status.Disk.Current = diskInfo.Used
		status.Disk.Total = diskInfo.Total
	}

	var rtm runtime.MemStats
	runtime.ReadMemStats(&rtm)
	status.AppStats.Mem = rtm.Sys
	status.AppStats.Threads = uint32(runtime.NumGoroutine())
	status.AppStats.Uptime = uint64(now.Sub(s.startedAt).Seconds())

	return status
}

// GetLogs returns the newest count entries from the in-memory log buffer,
// filtered to the given level and below.
func (s *ServerService) GetLogs(count int, level string) []string {
	return logger.GetLogs(count, level)
}
