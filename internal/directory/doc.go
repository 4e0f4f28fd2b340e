// Package directory caches peers' public keys and coalesces lookups.
//
// A Directory is an explicitly owned instance: it sends get-public-key
// frames through the Sender it was built with and is fed responses by the
// session's inbound frame loop via Handle or HandleResponse. At most one
// lookup per username is in flight; concurrent callers share its Future.
// Unanswered lookups fail with ErrLookupTimeout after the configured window
// and are not retried.
package directory
