package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	emailSent    int64
	emailFailed  int64
	startedAt    time.Time
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		startedAt:    time.Now(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordEmail counts one recorded delivery outcome.
func (m *Metrics) RecordEmail(sent bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sent {
		m.emailSent++
	} else {
		m.emailFailed++
	}
}

// RequestStat is the count and mean latency of one path|method|status key.
type RequestStat struct {
	Count        int64   `json:"count"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Requests      map[string]RequestStat `json:"requests"`
	Errors        map[string]int64       `json:"errors"`
	EmailsSent    int64                  `json:"emailsSent"`
	EmailsFailed  int64                  `json:"emailsFailed"`
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Requests: map[string]RequestStat{}, Errors: map[string]int64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.UptimeSeconds = int64(time.Since(m.startedAt).Seconds())
	for key, count := range m.requestCount {
		stat := RequestStat{Count: count}
		if count > 0 {
			stat.AvgLatencyMs = float64(m.latencyTotal[key].Microseconds()) / float64(count) / 1000
		}
		snap.Requests[key] = stat
	}
	for key, count := range m.errorCount {
		snap.Errors[key] = count
	}
	snap.EmailsSent = m.emailSent
	snap.EmailsFailed = m.emailFailed
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
