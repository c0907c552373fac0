// Package publisher streams crawled records to downstream consumers.
package publisher

import (
	"context"

	"github.com/pevans/udnfetch/discovery"
)

// Publisher represents a sink for finished runs
type Publisher interface {
	// PublishRun publishes every record of result in order and returns how
	// many were published.
	PublishRun(ctx context.Context, result *discovery.RunResult) (int, error)

	// Close closes the publisher connection
	Close() error
}

type nopPublisher struct{}

func (nopPublisher) PublishRun(context.Context, *discovery.RunResult) (int, error) { return 0, nil }
func (nopPublisher) Close() error { return nil }

// Nop returns a Publisher that drops everything.
func Nop() Publisher { return nopPublisher{} }
