// Package app wires application dependencies for the CLI.
//
// It loads Config, builds the logger, credential store and identity service
// (Wire), and dials relay sessions for commands that talk to the server.
package app
