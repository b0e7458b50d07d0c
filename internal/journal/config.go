package journal

import (
	"fmt"
)

const (
	defaultSegmentMaxBytes int64 = 64 << 20
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "session"
)

// Config controls journal segment behavior.
type Config struct {
	Dir             string
	SegmentMaxBytes int64
	BufferSize      int
	FilePrefix      string
}

// DefaultConfig returns a baseline configuration for the journal.
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
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid journal config: BufferSize must be > 0")
	}
	if c.FilePrefix == "" {
		return fmt.Errorf("invalid journal config: FilePrefix is empty")
	}
	return nil
}
