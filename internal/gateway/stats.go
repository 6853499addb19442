package gateway

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Stats is the body of GET /api/stats.
type Stats struct {
	UptimeSec   int64          `json:"uptime_sec"`
	Goroutines  int            `json:"goroutines"`
	HeapAllocMB float64        `json:"heap_alloc_mb"`
	SysMB       float64        `json:"sys_mb"`
	GCRuns      uint32         `json:"gc_runs"`
	CPULoad1    float64        `json:"cpu_load_1,omitempty"`
	WSClients   int            `json:"ws_clients"`
	KLineFetch  LatencySummary `json:"kline_fetch"`
	Compute     LatencySummary `json:"indicator_compute"`
	TS          string         `json:"ts"`
}

// collectStats gathers process figures for the dashboard footer.
func (s *Server) collectStats() Stats {
	st := Stats{
		UptimeSec:  int64(time.Since(s.start).Seconds()),
		Goroutines: runtime.NumGoroutine(),
		CPULoad1:   loadAvg1(),
		WSClients:  s.hub.ClientCount(),
		KLineFetch: s.fetchLatency.Summary(),
		Compute:    s.computeLatency.Summary(),
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024
	st.SysMB = float64(ms.Sys) / 1024 / 1024
	st.GCRuns = ms.NumGC
	return st
}

// loadAvg1 reads the one minute load average. Zero where /proc is absent.
func loadAvg1() float64 {
	f, err := os.Open("/proc/loadavg")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v
}
