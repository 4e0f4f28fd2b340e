// Package frame defines the text command vocabulary exchanged with the relay.
//
// Every transport frame is parsed once into a Frame value whose concrete type
// names its kind; callers dispatch with a type switch. Text that matches no
// command prefix is a Chat frame carrying an encrypted payload.
//
//	auth-request
//	challenge:<hex>
//	auth-response:<sigHex>:<username>
//	auth-success | auth-failure
//	get-public-key:<username>
//	public-key:<username>:<nHex>:<eHex>
//	public-key-not-found:<username>
//	check-username:<username>
//	username-exists | username-available
//	register:<username>:<nHex>:<eHex>
//	register-success | register-failure:<reason>
//
// Numeric fields are lowercase hex with no 0x prefix and no padding.
package frame
