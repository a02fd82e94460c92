// Package delivery defines the contract every inbound transport implements.
package delivery

import "context"

// Delivery is a long-running server bound to one transport.
type Delivery interface {
	Serve(ctx context.Context) error
}
