package sidebar

import (
	"context"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// MessageSink delivers outbound messages to the host.
type MessageSink interface {
	PostMessage(ctx context.Context, msg core.OutboundMessage) error
}

// SinkFunc adapts a function to MessageSink.
type SinkFunc func(ctx context.Context, msg core.OutboundMessage) error

// PostMessage calls f.
func (f SinkFunc) PostMessage(ctx context.Context, msg core.OutboundMessage) error {
	return f(ctx, msg)
}

type discardSink struct{}

func (discardSink) PostMessage(context.Context, core.OutboundMessage) error { return nil }
