package middleware

import (
	"context"
	"errors"
	"fmt"
)

// Middleware is the single contract every processing stage implements.
// Process receives the packet, may mutate its Data and Metadata, and
// returns the (possibly same) packet. A returned error aborts the chain
// for that packet.
type Middleware interface {
	Name() string
	Process(ctx context.Context, packet *DataPacket) (*DataPacket, error)
}

// Chain is an ordered, named sequence of middleware applied to a data
// packet. Chains store middleware names, not instances, so re-registering
// a middleware under an existing name transparently updates every chain
// that references it.
type Chain struct {
	Name        string   `json:"name" validate:"required"`
	Middlewares []string `json:"middlewares" validate:"required,min=1"`
	Description string   `json:"description,omitempty"`
}

// Sentinel errors for chain management and packet processing.
var (
	ErrMiddlewareNotFound = errors.New("middleware not found")
	ErrChainNotFound      = errors.New("chain not found")
	ErrChainExists        = errors.New("chain already exists")
	ErrNoDefaultChain     = errors.New("no default chain configured")
)

// StageError wraps the failure of a single middleware stage with the
// stage that produced it.
type StageError struct {
	Stage string
	Chain string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s in chain %s: %v", e.Stage, e.Chain, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
