package kademlia

import (
	"context"
	"errors"
	"sync"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// correlationKey identifies one outstanding request: the endpoint it was
// sent to paired with the ReplyID the invoker minted for it. No lock-free
// concurrent map exists anywhere in the dependency corpus this package
// draws from, so sync.Map is the grounded choice here: the access pattern
// (disjoint keys written once, read once, short lifetime) is exactly
// what sync.Map is documented to optimize for.
type correlationKey struct {
	Endpoint Endpoint
	ReplyID  uint32
}

// CorrelationQueue matches inbound responses to the outbound request that
// caused them. The invoker (C8) registers a wait before sending and
// resolves it when the matching response arrives or the caller's context
// is cancelled, whichever comes first.
type CorrelationQueue struct {
	pending sync.Map // correlationKey -> chan wire.Message
}

// NewCorrelationQueue returns an empty queue.
func NewCorrelationQueue() *CorrelationQueue {
	return &CorrelationQueue{}
}

// Wait registers interest in a response to (ep, replyID) and blocks until
// it arrives or ctx is done: a cancelled ctx yields ErrCancelled, an
// expired deadline ErrTimeout. It always removes its own registration
// before returning.
func (q *CorrelationQueue) Wait(ctx context.Context, ep Endpoint, replyID uint32) (wire.Message, error) {
	key := correlationKey{ep, replyID}
	ch := make(chan wire.Message, 1)
	q.pending.Store(key, ch)
	defer q.pending.Delete(key)

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return wire.Message{}, ErrCancelled
		}
		return wire.Message{}, ErrTimeout
	}
}

// Resolve delivers msg to whichever Wait call is registered for (ep,
// replyID), if any. It returns false if nothing was waiting, which is
// the expected outcome for an unsolicited or duplicate response.
func (q *CorrelationQueue) Resolve(ep Endpoint, replyID uint32, msg wire.Message) bool {
	key := correlationKey{ep, replyID}
	v, ok := q.pending.Load(key)
	if !ok {
		return false
	}
	ch := v.(chan wire.Message)
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
