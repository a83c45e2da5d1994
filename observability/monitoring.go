package observability

import (
	"chat-pulse/runtime"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats aggregates the numbers exposed on the debug endpoint.
type MonitoringStats struct {
	// --- LIVE STATE ---
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`

	// --- GATEWAY ---
	FramesReceived uint64 `json:"frames_received"`
	FramesRejected uint64 `json:"frames_rejected"`

	// --- SUPERVISION ---
	WorkerRestarts map[string]int `json:"worker_restarts,omitempty"`
	WorkerPanics   int            `json:"worker_panics"`

	// --- PROCESS ---
	CPUPercent float64 `json:"cpu_percent"`
	RSSMb      uint64  `json:"rss_mb"`
	RAMPercent float32 `json:"ram_percent"`
	Goroutines int     `json:"goroutines"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`

	SampledAt time.Time `json:"sampled_at"`
}

// LiveSource reports the current connection and room counts.
type LiveSource interface {
	Stats() runtime.Stats
}

type MonitoringManager struct {
	log    *slog.Logger
	source LiveSource

	mu          sync.RWMutex
	latestStats MonitoringStats
	restarts    map[string]int
	panics      int

	framesReceived atomic.Uint64
	framesRejected atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger, source LiveSource) *MonitoringManager {
	return &MonitoringManager{log: log, source: source}
}

func (mm *MonitoringManager) IncrFramesReceived() {
	mm.framesReceived.Add(1)
}

func (mm *MonitoringManager) IncrFramesRejected() {
	mm.framesRejected.Add(1)
}

// RecordProcess stores the last process sample taken by the health worker.
func (mm *MonitoringManager) RecordProcess(cpuPercent float64, rssBytes uint64, ramPercent float32) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.CPUPercent = cpuPercent
	mm.latestStats.RSSMb = rssBytes / 1024 / 1024
	mm.latestStats.RAMPercent = ramPercent
	mm.latestStats.SampledAt = time.Now().UTC()
}

// RecordRestart counts a supervised worker restart.
func (mm *MonitoringManager) RecordRestart(worker string, panicked bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.restarts == nil {
		mm.restarts = make(map[string]int)
	}
	mm.restarts[worker]++
	if panicked {
		mm.panics++
	}
}

// GetLatest merges the last process sample with the live counters.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	stats := mm.latestStats
	stats.WorkerRestarts = maps.Clone(mm.restarts)
	stats.WorkerPanics = mm.panics
	mm.mu.RUnlock()

	if mm.source != nil {
		live := mm.source.Stats()
		stats.Connections = live.Connections
		stats.Rooms = live.Rooms
	}
	stats.FramesReceived = mm.framesReceived.Load()
	stats.FramesRejected = mm.framesRejected.Load()

	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	stats.Goroutines = goruntime.NumGoroutine()
	return stats
}

// ServeHTTP writes the latest stats as JSON.
func (mm *MonitoringManager) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mm.GetLatest()); err != nil {
		mm.log.Warn("Failed to write stats", "error", err)
	}
}
