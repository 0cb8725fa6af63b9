package amm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// publisher numbers committed events and hands them to the sink in seq
// order. Seqs are taken inside the serialized ledger transaction, so seq
// order is commit order; callers may still finish out of order, and an
// event whose predecessors are in flight waits in pending.
type publisher struct {
	sink   EventSink
	logger *zap.Logger

	mu        sync.Mutex
	last      uint64 // last seq handed out
	delivered uint64 // every seq up to here is published or dropped
	pending   map[uint64]*Event
}

func newPublisher(sink EventSink, logger *zap.Logger, start uint64) *publisher {
	return &publisher{
		sink:      sink,
		logger:    logger,
		last:      start,
		delivered: start,
		pending:   map[uint64]*Event{},
	}
}

func (b *publisher) next() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last++
	return b.last
}

// done settles seq. A nil ev drops the seq: its transaction took a number
// but did not commit.
func (b *publisher) done(ctx context.Context, seq uint64, ev *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[seq] = ev
	var batch []Event
	for {
		ready, ok := b.pending[b.delivered+1]
		if !ok {
			break
		}
		delete(b.pending, b.delivered+1)
		b.delivered++
		if ready != nil {
			batch = append(batch, *ready)
		}
	}
	if len(batch) == 0 || b.sink == nil {
		return
	}
	// held under mu so that batches reach the sink in order
	if err := b.sink.PutEvents(ctx, batch); err != nil {
		b.logger.Warn("publish events",
			zap.Uint64("first_seq", batch[0].Seq),
			zap.Uint64("last_seq", batch[len(batch)-1].Seq),
			zap.Error(err),
		)
	}
}
