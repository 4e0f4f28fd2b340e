// Package main runs the in-memory MChat relay.
//
// The relay is a WebSocket hub. Clients connect to /chat and exchange JSON
// envelopes whose content is a protocol frame:
//
//	check-username:<user>         -> username-exists | username-available
//	register:<user>:<n>:<e>       -> register-success | register-failure:<reason>
//	auth-request                  -> challenge:<hex>
//	auth-response:<sig>:<user>    -> auth-success | auth-failure
//	get-public-key:<user>         -> public-key:<user>:<n>:<e> | public-key-not-found:<user>
//
// Any other content is an encrypted chat payload, forwarded from an
// authenticated sender to the envelope's recipient (or to every other
// online user when the recipient is empty).
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Each challenge is valid for exactly one auth-response.
//   - Control frames are rate limited per connection.
//   - Prometheus metrics are served on /metrics.
//   - The default listen address is :8080.
//
// The relay never sees plaintext or private keys; it only stores public keys
// and forwards ciphertext.
package main
