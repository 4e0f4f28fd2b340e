package interfaces

import (
	"context"

	domaintypes "mchat/internal/domain/types"
)

// Transport is an established, ordered text-frame channel to the relay.
type Transport interface {
	// Send writes one envelope. It fails fast when the channel is closed.
	Send(env domaintypes.Envelope) error
	// Receive blocks for the next envelope or until ctx is done.
	Receive(ctx context.Context) (domaintypes.Envelope, error)
	Close() error
}
