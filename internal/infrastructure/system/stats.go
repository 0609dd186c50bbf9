package system

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats снимок ресурсов процесса и хоста для /health и стартового лога.
type Stats struct {
	NumCPU          int     `json:"num_cpu"`
	Goroutines      int     `json:"goroutines"`
	ProcessRSSBytes uint64  `json:"process_rss_bytes"`
	HostMemoryTotal uint64  `json:"host_memory_total"`
	HostMemoryUsed  float64 `json:"host_memory_used_percent"`
}

// Collect собирает статистику. Ошибки gopsutil не фатальны: недоступные поля остаются нулевыми.
func Collect(ctx context.Context) (Stats, error) {
	stats := Stats{
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	var firstErr error

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.HostMemoryTotal = vm.Total
		stats.HostMemoryUsed = vm.UsedPercent
	} else {
		firstErr = fmt.Errorf("host memory: %w", err)
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSSBytes = info.RSS
		} else if firstErr == nil {
			firstErr = fmt.Errorf("process memory: %w", err)
		}
	} else if firstErr == nil {
		firstErr = fmt.Errorf("process: %w", err)
	}

	return stats, firstErr
}
