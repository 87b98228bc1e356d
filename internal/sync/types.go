package sync

import (
	"time"
)

const (
	DefaultBatchSize     = 10
	DefaultMaxRetries    = 3
	DefaultHealthTimeout = 5 * time.Second
	DefaultBackoffMax    = time.Hour

	// genericFailure is stored when the remote rejects an item without a message.
	genericFailure = "sync failed"
	noResult       = "no result returned for item"
)

// Config tunes the engine. Zero values fall back to the defaults above;
// a zero BackoffBase leaves retry pacing entirely to the caller.
type Config struct {
	BatchSize     int
	MaxRetries    int
	HealthTimeout time.Duration
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     DefaultBatchSize,
		MaxRetries:    DefaultMaxRetries,
		HealthTimeout: DefaultHealthTimeout,
		BackoffMax:    DefaultBackoffMax,
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	return c
}

// Result summarises one Sync pass. Total counts the items taken into the
// pass and equals SuccessCount + ErrorCount + Settled; deferred items are
// not part of it. Settled counts items whose task was already confirmed
// and cleared earlier in the same pass.
type Result struct {
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
	Total        int       `json:"total"`
	Settled      int       `json:"settled,omitempty"`
	Deferred     int       `json:"deferred,omitempty"`
	Batches      int       `json:"batches"`
	Abandoned    int       `json:"abandoned,omitempty"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Failure records why one queue item did not go through.
type Failure struct {
	QueueItemID string `json:"queueItemId"`
	TaskID      string `json:"taskId"`
	Message     string `json:"error"`
	RetryCount  int    `json:"retryCount"`
	Abandoned   bool   `json:"abandoned,omitempty"`
	Err         error  `json:"-"`
}
