// Package client runs one logged-in chat session over a relay transport.
//
// A Session owns the connection's inbound frame loop (Run) and routes each
// frame by kind: login frames to its Authenticator, key directory answers
// to its Directory, registration answers to a pending Register call and
// chat envelopes to the message service for decryption. Run must be
// running for Login, Register and Lookup to make progress.
//
// A Session logs in at most once; after a rejection, dial a new one.
package client
