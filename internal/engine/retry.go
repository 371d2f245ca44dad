package engine

import (
	"time"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/fetcher"
	"github.com/go-ispider/ispider/internal/types"
)

// RetryAction is the outcome of evaluating a response against the retry
// policy: retry the same engine, fall back to the next engine, or give up.
type RetryAction int

const (
	// ActionAccept means the response is final; no retry needed.
	ActionAccept RetryAction = iota
	// ActionRetrySameEngine means retry the request on its current engine.
	ActionRetrySameEngine
	// ActionRetryNextEngine means fall back to the next configured engine.
	ActionRetryNextEngine
	// ActionAbandon means retries and engines are exhausted; drop the request.
	ActionAbandon
)

// RetryDecision is the result of Evaluate: what to do, and (for a retry) the
// delay to wait and the request prepared for the next attempt.
type RetryDecision struct {
	Action  RetryAction
	Delay   time.Duration
	Request *types.Request
}

func isRetryableStatus(status int, codes []int) bool {
	if status == types.StatusTransportFailure {
		return true
	}
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// Evaluate decides what to do next for resp given the engine registry and
// retry policy. It never performs I/O or mutates shared state; callers are
// responsible for acting on the decision (re-pushing to the queue, closing
// out the domain via FetchController, etc).
func Evaluate(resp *types.Response, reg *fetcher.Registry, cfg *config.EngineConfig) RetryDecision {
	req := resp.Request

	if resp.IsSuccess() || (resp.StatusCode > 0 && resp.StatusCode < 400) {
		return RetryDecision{Action: ActionAccept}
	}

	if !isRetryableStatus(resp.StatusCode, cfg.CodesToRetry) {
		return RetryDecision{Action: ActionAccept}
	}

	if req.Attempt < cfg.MaximumRetries {
		next := req.Clone()
		next.Attempt++
		delay := backoffDelay(resp, next.Attempt)
		return RetryDecision{Action: ActionRetrySameEngine, Delay: delay, Request: next}
	}

	nextEngine, ok := reg.Next(req.Engine)
	if !ok {
		return RetryDecision{Action: ActionAbandon}
	}

	next := req.Clone()
	next.Attempt = 0
	next.Engine = nextEngine
	return RetryDecision{Action: ActionRetryNextEngine, Request: next}
}

func backoffDelay(resp *types.Response, attempt int) time.Duration {
	if resp.StatusCode == http429 {
		if ra := resp.Headers.Get("Retry-After"); ra != "" {
			if d := fetcher.ParseRetryAfter(ra); d > 0 {
				return d
			}
		}
	}
	base := time.Duration(attempt) * 500 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	return base
}

const http429 = 429
