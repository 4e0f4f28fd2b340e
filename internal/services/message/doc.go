// Package message encrypts outgoing chat text for a peer and decrypts
// incoming chat payloads with the local key pair.
//
// Peers' public keys come from a domain.KeyDirectory. Decryption failures
// never abort the receive pipeline; they surface as a DecryptedMessage with
// Failed set and a display marker as the plaintext.
package message
