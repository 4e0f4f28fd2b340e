// Package instrument holds the Prometheus collectors exported by mchat.
//
// Collectors are created per instance and registered on the Registerer
// passed in, so tests can use an isolated prometheus.NewRegistry(). All
// recording methods are nil-safe: a nil *Directory or *Relay records nothing.
package instrument
