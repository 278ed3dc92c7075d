package lib

import (
	"errors"
	"time"
)

// ErrUnstable reports that a file's size or mtime changed while its digest
// was being computed. It is retryable up to the configured attempt count.
var ErrUnstable = errors.New("file changed while digesting")

// Default stability retry policy: 3 attempts, fixed half-second backoff.
const (
	StabilityAttempts = 3
	StabilityBackoff  = 500 * time.Millisecond
)

// Retry runs an operation up to Attempts times with a fixed Backoff between
// attempts. Only ErrUnstable is retried; any other error returns
// immediately. The final error is returned when attempts are exhausted.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

func (r Retry) Do(op func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && r.Backoff > 0 {
			time.Sleep(r.Backoff)
		}
		err = op()
		if err == nil || !errors.Is(err, ErrUnstable) {
			return err
		}
	}
	return err
}
