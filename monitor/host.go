package monitor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

const cpuSampleWindow = time.Second

// CPUSampler reports host-wide CPU utilisation in percent.
type CPUSampler interface {
	CPUPercent(ctx context.Context) (float64, error)
}

// HostStats is a point-in-time view of the host.
type HostStats struct {
	CPUCount    int     `json:"cpu_count"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemTotal    uint64  `json:"mem_total"`
	MemUsed     uint64  `json:"mem_used"`
	MemPercent  float64 `json:"mem_percent"`
	DiskTotal   uint64  `json:"disk_total"`
	DiskUsed    uint64  `json:"disk_used"`
	DiskPercent float64 `json:"disk_percent"`
}

// Host samples the local machine with gopsutil. Disk usage is reported for
// the filesystem holding DiskPath.
type Host struct {
	DiskPath string
	Window   time.Duration
}

// NewHost returns a Host sampler for diskPath.
func NewHost(diskPath string) *Host {
	return &Host{DiskPath: diskPath, Window: cpuSampleWindow}
}

// CPUPercent implements CPUSampler. It blocks for the sample window.
func (h *Host) CPUPercent(ctx context.Context) (float64, error) {
	v, err := cpu.PercentWithContext(ctx, h.Window, false)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, nil
	}
	return v[0], nil
}

// Stats samples CPU, memory and disk.
func (h *Host) Stats(ctx context.Context) (HostStats, error) {
	var s HostStats
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return s, err
	}
	s.CPUCount = n
	if s.CPUPercent, err = h.CPUPercent(ctx); err != nil {
		return s, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, err
	}
	s.MemTotal, s.MemUsed, s.MemPercent = vm.Total, vm.Used, vm.UsedPercent
	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return s, err
	}
	s.DiskTotal, s.DiskUsed, s.DiskPercent = du.Total, du.Used, du.UsedPercent
	return s, nil
}
