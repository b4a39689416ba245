package interfaces

import (
	"context"
	"errors"
)

// ErrSplitterUnavailable is returned when a splitting service cannot be reached.
var ErrSplitterUnavailable = errors.New("splitter unavailable")

// Splitter partitions a secret into shares. It is invoked once per session.
type Splitter interface {
	// Split returns exactly `shares` ordered shares of secret, any `quorum`
	// of which reconstruct it.
	Split(ctx context.Context, secret []byte, shares, quorum int) ([]Share, error)

	// Protocol is the tag distinguishing the splitting algorithm and version.
	Protocol() string
}

// ShareLimiter is implemented by splitters that cannot produce more than
// MaxShares shares.
type ShareLimiter interface {
	MaxShares() int
}
