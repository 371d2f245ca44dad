package engine

import (
	"sync"

	"github.com/go-ispider/ispider/internal/types"
)

// DomainInbox accepts new seed URLs submitted at runtime (via the control
// API) and hands them to the orchestrator's intake loop. It is bounded and
// non-blocking: a caller adding domains never stalls behind a busy crawl,
// and a full inbox simply rejects the excess rather than blocking the HTTP
// handler that submitted it.
type DomainInbox struct {
	ch chan *types.Request

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDomainInbox creates a DomainInbox with the given buffer capacity.
func NewDomainInbox(capacity int) *DomainInbox {
	return &DomainInbox{
		ch:   make(chan *types.Request, capacity),
		seen: make(map[string]struct{}),
	}
}

// Submit enqueues seed requests for rawURLs, skipping any already submitted
// and any that are not valid URLs. It returns how many were accepted; if the
// inbox is full it stops at that URL and returns errInboxFull, leaving the
// rest of rawURLs unsubmitted.
func (b *DomainInbox) Submit(rawURLs []string, engine string) (accepted int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, raw := range rawURLs {
		if _, dup := b.seen[raw]; dup {
			continue
		}
		req, reqErr := types.NewRequest(raw, types.KindLanding, engine)
		if reqErr != nil {
			continue
		}
		select {
		case b.ch <- req:
			b.seen[raw] = struct{}{}
			accepted++
		default:
			return accepted, errInboxFull
		}
	}
	return accepted, nil
}

// Chan exposes the receive side for the orchestrator's intake loop.
func (b *DomainInbox) Chan() <-chan *types.Request {
	return b.ch
}

var errInboxFull = inboxFullError{}

type inboxFullError struct{}

func (inboxFullError) Error() string { return "domain inbox is full" }
