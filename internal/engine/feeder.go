package engine

import (
	"context"
	"log/slog"
)

// Feeder moves requests from the unbounded OUT stack into the bounded IN
// channel, one at a time. Because InQueue.Send blocks once the channel is
// full, a slow worker pool naturally stalls the feeder, which in turn lets
// the OUT stack grow instead of the IN channel — preserving the depth-first
// LIFO ordering for whichever request is pulled next once a slot frees up.
type Feeder struct {
	out    *OutQueue
	in     *InQueue
	logger *slog.Logger
}

// NewFeeder creates a Feeder moving requests from out to in.
func NewFeeder(out *OutQueue, in *InQueue, logger *slog.Logger) *Feeder {
	return &Feeder{out: out, in: in, logger: logger.With("component", "feeder")}
}

// Run pulls from OUT and pushes into IN until OUT is closed and drained, or
// ctx is canceled. It then closes IN so workers ranging over it exit.
func (f *Feeder) Run(ctx context.Context) {
	defer f.in.Close()

	done := ctx.Done()
	for {
		req := f.out.Pop()
		if req == nil {
			f.logger.Debug("out queue drained, feeder stopping")
			return
		}
		if !f.in.Send(req, done) {
			f.logger.Debug("feeder stopped by context cancellation")
			return
		}
	}
}
