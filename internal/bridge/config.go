package bridge

import (
	"fmt"
	"time"
)

const (
	defaultQueueSize     = 4096
	defaultMaxRetries    = 3
	defaultRetryBackoff  = 50 * time.Millisecond
	defaultStreamBuffer  = 256
	defaultFlushInterval = time.Second
)

// FeedConfig controls the live write path.
type FeedConfig struct {
	QueueSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
	FlushInterval time.Duration
	SyncInterval  time.Duration
}

// DefaultFeedConfig returns a baseline feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		QueueSize:     defaultQueueSize,
		MaxRetries:    defaultMaxRetries,
		RetryBackoff:  defaultRetryBackoff,
		FlushInterval: defaultFlushInterval,
	}
}

func (c FeedConfig) withDefaults() FeedConfig {
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	return c
}

// Validate checks if the configuration is usable.
func (c FeedConfig) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid feed config: QueueSize must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid feed config: MaxRetries must be >= 0")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("invalid feed config: RetryBackoff must be >= 0")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("invalid feed config: FlushInterval must be >= 0")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("invalid feed config: SyncInterval must be >= 0")
	}
	return nil
}
