// Package domain defines core data models and interfaces shared across mchat.
// It contains plain types (keys, identities, wire envelopes) and contracts
// (stores, transports, services) only.
package domain
