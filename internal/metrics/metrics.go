package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// opStats aggregates one named operation.
type opStats struct {
	calls    Counter
	failures Counter
	nanos    Counter
}

// Calls tracks outbound calls keyed by operation name.
type Calls struct {
	mu  sync.RWMutex
	ops map[string]*opStats
}

func NewCalls() *Calls {
	return &Calls{ops: make(map[string]*opStats)}
}

func (c *Calls) get(op string) *opStats {
	c.mu.RLock()
	s, ok := c.ops[op]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.ops[op]; !ok {
		s = &opStats{}
		c.ops[op] = s
	}
	return s
}

// Observe records one finished call.
func (c *Calls) Observe(op string, d time.Duration, failed bool) {
	s := c.get(op)
	s.calls.Inc()
	if failed {
		s.failures.Inc()
	}
	if d > 0 {
		s.nanos.Add(uint64(d))
	}
}

type OpSnapshot struct {
	Op       string
	Calls    uint64
	Failures uint64
	Average  time.Duration
}

// Snapshot returns per-operation totals sorted by operation name.
func (c *Calls) Snapshot() []OpSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]OpSnapshot, 0, len(c.ops))
	for op, s := range c.ops {
		snap := OpSnapshot{
			Op:       op,
			Calls:    s.calls.Load(),
			Failures: s.failures.Load(),
		}
		if snap.Calls > 0 {
			snap.Average = time.Duration(s.nanos.Load() / snap.Calls)
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}
