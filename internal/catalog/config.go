package catalog

import "fmt"

const (
	defaultSegmentMaxBytes int64 = 1 << 30
	defaultBufferSize            = 256 * 1024
	defaultFilePrefix            = "part"
)

// Config controls catalog storage layout and buffering.
type Config struct {
	Dir             string
	SegmentMaxBytes int64
	BufferSize      int
	FilePrefix      string
}

// DefaultConfig returns a baseline configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		SegmentMaxBytes: defaultSegmentMaxBytes,
		BufferSize:      defaultBufferSize,
		FilePrefix:      defaultFilePrefix,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid catalog config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid catalog config: SegmentMaxBytes must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid catalog config: BufferSize must be > 0")
	}
	if c.FilePrefix == "" {
		return fmt.Errorf("invalid catalog config: FilePrefix is empty")
	}
	return nil
}
