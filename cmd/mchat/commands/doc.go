// Package commands defines the mchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Generate and store the local RSA identity
//   - fingerprint    Print the identity fingerprint
//   - register       Publish your public key to the relay
//   - lookup         Fetch and print peers' public key fingerprints
//   - send           Encrypt and send one message
//   - chat           Interactive session: send stdin lines, print incoming messages
//
// # Implementation
//
// The root command loads mchat.toml from the home directory, applies flag
// overrides and builds the app (logger, credential store, identity service)
// before any subcommand runs. Commands that talk to the relay dial a session,
// run its frame loop in the background and log in before doing their work.
package commands
