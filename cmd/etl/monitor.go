package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/farxc/accurate-sales-etl/internal/logger"
)

// RunStats is the resource high-water mark of one ETL run.
type RunStats struct {
	PeakGoroutines int
	PeakHeapMB     uint64
	Samples        int
}

// ResourceMonitor samples heap and goroutine counts while a run is active.
// Extraction holds a whole window in memory, so the peak is worth logging.
type ResourceMonitor struct {
	mu    sync.Mutex
	stats RunStats
	stop  chan struct{}
	done  chan struct{}
}

func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *ResourceMonitor) Start(interval time.Duration, appLogger *logger.Logger) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.sample(appLogger)
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *ResourceMonitor) sample(appLogger *logger.Logger) {
	const component = "Monitor"

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	goroutines := runtime.NumGoroutine()
	heapMB := memStats.HeapAlloc / 1024 / 1024

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Samples++
	m.stats.PeakGoroutines = max(m.stats.PeakGoroutines, goroutines)
	m.stats.PeakHeapMB = max(m.stats.PeakHeapMB, heapMB)

	appLogger.Debug(component, "goroutines=%d heapMB=%d peakGoroutines=%d peakHeapMB=%d", goroutines, heapMB, m.stats.PeakGoroutines, m.stats.PeakHeapMB)
}

// Stop ends sampling and returns the peaks seen.
func (m *ResourceMonitor) Stop() RunStats {
	close(m.stop)
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
