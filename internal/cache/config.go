package cache

import "fmt"

const (
	defaultTickCapacity = 10000
	defaultBarCapacity  = 10000
)

// Config controls per-series capacities.
type Config struct {
	TickCapacity int
	BarCapacity  int
}

// DefaultConfig returns the baseline cache configuration.
func DefaultConfig() Config {
	return Config{
		TickCapacity: defaultTickCapacity,
		BarCapacity:  defaultBarCapacity,
	}
}

func (c Config) withDefaults() Config {
	if c.TickCapacity == 0 {
		c.TickCapacity = defaultTickCapacity
	}
	if c.BarCapacity == 0 {
		c.BarCapacity = defaultBarCapacity
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.TickCapacity <= 0 {
		return fmt.Errorf("invalid cache config: TickCapacity must be > 0")
	}
	if c.BarCapacity <= 0 {
		return fmt.Errorf("invalid cache config: BarCapacity must be > 0")
	}
	return nil
}
