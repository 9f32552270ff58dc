package observability

import (
	"sync/atomic"
)

// Stats is a point-in-time snapshot of the gateway counters.
type Stats struct {
	SessionsConnected  uint64 `json:"sessions_connected"`
	SessionsClosed     uint64 `json:"sessions_closed"`
	EnvelopesPublished uint64 `json:"envelopes_published"`
	EnvelopesDelivered uint64 `json:"envelopes_delivered"`
	EnvelopesDropped   uint64 `json:"envelopes_dropped"`
}

// Monitoring aggregates real-time gateway telemetry.
// All counters are atomic; Monitoring is safe for concurrent use.
type Monitoring struct {
	sessionsConnected  uint64
	sessionsClosed     uint64
	envelopesPublished uint64
	envelopesDelivered uint64
	envelopesDropped   uint64
}

func NewMonitoring() *Monitoring {
	return &Monitoring{}
}

func (m *Monitoring) IncrSessionsConnected() {
	atomic.AddUint64(&m.sessionsConnected, 1)
}

func (m *Monitoring) IncrSessionsClosed() {
	atomic.AddUint64(&m.sessionsClosed, 1)
}

// IncrPublished counts one envelope appended to one subscriber queue.
func (m *Monitoring) IncrPublished() {
	atomic.AddUint64(&m.envelopesPublished, 1)
}

// IncrDelivered counts one direct delivery to one session queue.
func (m *Monitoring) IncrDelivered() {
	atomic.AddUint64(&m.envelopesDelivered, 1)
}

// IncrDropped counts an envelope discarded by the overflow policy.
func (m *Monitoring) IncrDropped() {
	atomic.AddUint64(&m.envelopesDropped, 1)
}

func (m *Monitoring) Snapshot() Stats {
	return Stats{
		SessionsConnected:  atomic.LoadUint64(&m.sessionsConnected),
		SessionsClosed:     atomic.LoadUint64(&m.sessionsClosed),
		EnvelopesPublished: atomic.LoadUint64(&m.envelopesPublished),
		EnvelopesDelivered: atomic.LoadUint64(&m.envelopesDelivered),
		EnvelopesDropped:   atomic.LoadUint64(&m.envelopesDropped),
	}
}
