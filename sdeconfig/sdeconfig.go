// Package sdeconfig holds the tuning knobs the codec packages share.
package sdeconfig

// DefaultMaxDepth bounds object/array recursion in the container sub-codec.
// The original codec has no such bound; we add one per spec design notes
// so a hostile or corrupt input can't blow the stack.
const DefaultMaxDepth = 100

// Config carries codec-wide settings. The zero value is not ready to use;
// call New to fill in defaults.
type Config struct {
	MaxDepth int
}

// Option configures a Config.
type Option func(*Config)

// WithMaxDepth overrides the default recursion depth bound.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		c.MaxDepth = n
	}
}

// New builds a Config, applying opts over the defaults.
func New(opts ...Option) Config {
	c := Config{MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
