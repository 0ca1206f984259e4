package clock

import (
	"context"
	"fmt"
	"time"

	"fixed-deposit-bank/config"
)

// GenesisClock implements ports.BlockClock by deriving the height from wall
// clock time: height = (now - genesis) / interval. The height is monotonic
// non-decreasing as long as the host clock is.
type GenesisClock struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewGenesisClock creates a block clock from chain configuration.
func NewGenesisClock(cfg config.ChainConfig) (*GenesisClock, error) {
	if cfg.BlockInterval <= 0 {
		return nil, fmt.Errorf("block interval must be positive, got %s", cfg.BlockInterval)
	}
	return &GenesisClock{
		genesis:  time.Unix(cfg.GenesisUnix, 0),
		interval: cfg.BlockInterval,
		now:      time.Now,
	}, nil
}

// Current returns the current block height. Heights before genesis clamp
// to zero.
func (c *GenesisClock) Current(_ context.Context) (int64, error) {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0, nil
	}
	return int64(elapsed / c.interval), nil
}
