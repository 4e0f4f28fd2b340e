package instrument

import "github.com/prometheus/client_golang/prometheus"

const namespace = "mchat"

// Directory counts public key directory activity.
type Directory struct {
	lookups   prometheus.Counter
	cacheHits prometheus.Counter
	coalesced prometheus.Counter
	timeouts  prometheus.Counter
	notFound  prometheus.Counter
	dropped   prometheus.Counter
}

// NewDirectory creates the directory collectors and registers them on reg
// when reg is non-nil.
func NewDirectory(reg prometheus.Registerer) *Directory {
	m := &Directory{
		lookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookups_total",
			Help:      "Number of lookup frames sent to the relay",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "cache_hits_total",
			Help:      "Number of lookups answered from the cache",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "coalesced_total",
			Help:      "Number of lookups joined to an in-flight request",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "timeouts_total",
			Help:      "Number of lookups that expired without a response",
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "not_found_total",
			Help:      "Number of lookups answered with public-key-not-found",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "dropped_responses_total",
			Help:      "Number of malformed directory responses dropped",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.cacheHits, m.coalesced, m.timeouts, m.notFound, m.dropped)
	}
	return m
}

func (m *Directory) Lookup() {
	if m != nil {
		m.lookups.Inc()
	}
}

func (m *Directory) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Directory) Coalesced() {
	if m != nil {
		m.coalesced.Inc()
	}
}

func (m *Directory) Timeout() {
	if m != nil {
		m.timeouts.Inc()
	}
}

func (m *Directory) NotFound() {
	if m != nil {
		m.notFound.Inc()
	}
}

func (m *Directory) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

// Relay counts relay server activity.
type Relay struct {
	connections prometheus.Gauge
	frames      *prometheus.CounterVec
	auth        *prometheus.CounterVec
	rateLimited prometheus.Counter
	undelivered prometheus.Counter
}

// NewRelay creates the relay collectors and registers them on reg when reg
// is non-nil.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Number of open client connections",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Number of inbound frames by kind",
		}, []string{"kind"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "auth_total",
			Help:      "Number of authentication attempts by result",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "rate_limited_total",
			Help:      "Number of frames dropped by the per-connection limiter",
		}),
		undelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "undelivered_total",
			Help:      "Number of chat envelopes with no online recipient",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.frames, m.auth, m.rateLimited, m.undelivered)
	}
	return m
}

func (m *Relay) ConnOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Relay) ConnClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Relay) Frame(kind string) {
	if m != nil {
		m.frames.WithLabelValues(kind).Inc()
	}
}

func (m *Relay) Auth(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.auth.WithLabelValues(result).Inc()
}

func (m *Relay) RateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Relay) Undelivered() {
	if m != nil {
		m.undelivered.Inc()
	}
}
