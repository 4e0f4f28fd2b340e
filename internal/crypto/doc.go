// Package crypto implements the textbook RSA primitives used by mchat.
//
// Contents
//
//   - Key pair generation starting from the public exponent 65537 (GenerateKeyPair)
//   - Raw modular-exponentiation signatures (Sign, Verify)
//   - Single-block and chunked encryption of byte payloads (Encrypt,
//     Decrypt, EncryptLong, DecryptLong)
//   - SHA-256 challenge digests for the authentication handshake
//     (ChallengeDigest)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// There is no padding. Encryption is deterministic and malleable, and
// plaintexts are treated as unsigned big-endian integers, so leading zero
// bytes do not survive a round trip. Do not use this package to protect
// anything that matters.
package crypto
