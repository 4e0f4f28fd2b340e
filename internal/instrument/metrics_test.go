package instrument

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDirectory(reg)

	m.Lookup()
	m.Lookup()
	m.CacheHit()
	m.Timeout()

	require.Equal(t, 2.0, testutil.ToFloat64(m.lookups))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	require.Equal(t, 1.0, testutil.ToFloat64(m.timeouts))
	require.Equal(t, 0.0, testutil.ToFloat64(m.notFound))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestRelay_Counts(t *testing.T) {
	m := NewRelay(prometheus.NewRegistry())

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Auth(true)
	m.Auth(false)
	m.Auth(false)
	m.Frame("auth-request")

	require.Equal(t, 1.0, testutil.ToFloat64(m.connections))
	require.Equal(t, 1.0, testutil.ToFloat64(m.auth.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.auth.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.frames.WithLabelValues("auth-request")))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var d *Directory
	var r *Relay
	require.NotPanics(t, func() {
		d.Lookup()
		d.Dropped()
		r.Frame("chat")
		r.Auth(true)
		r.ConnClosed()
	})
}
