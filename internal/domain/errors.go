package domain

import (
	"errors"
	"fmt"
)

// ErrAborted marks a fetch that was superseded or timed out intentionally.
// It is never surfaced to the user; callers treat it as "no error" and leave
// previously displayed data untouched.
var ErrAborted = errors.New("fetch aborted")

// FeedError is a non-abort feed failure: a transport error, a non-2xx
// response, or an undecodable document. It surfaces as a transient message
// while prior data remains visible.
type FeedError struct {
	Status  int // HTTP status, 0 for transport/decode failures
	Message string
}

func (e *FeedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed request failed: status %d: %s", e.Status, e.Message)
	}
	return "feed request failed: " + e.Message
}
