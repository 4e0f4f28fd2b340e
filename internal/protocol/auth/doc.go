// Package auth implements the challenge-response handshake that proves
// ownership of a registered key pair.
//
// The client side is the Authenticator state machine:
//
//	Idle -> ChallengeReceived -> ResponseSent -> Authenticated | Rejected
//
// The verifier side (NewChallenge, VerifyResponse) is stateless given the
// issued challenge and the claimed public key.
package auth
