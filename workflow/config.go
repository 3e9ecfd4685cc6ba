package workflow

import (
	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/uniqueness"
	"github.com/spf13/viper"
)

type (
	ConfigParams struct {
		maxBatchSize  int
		maxParallel   int
		unknownStates uniqueness.UnknownStatePolicy
		clock         uniqueness.Clock
	}

	ConfigOption func(c *ConfigParams)
)

func defaultConfigParams() ConfigParams {
	return ConfigParams{
		maxBatchSize:  global.DefaultBatchSize,
		unknownStates: uniqueness.RejectUnknownStates,
		clock:         uniqueness.SystemClock{},
	}
}

// WithMaxBatchSize limits number of requests in one inbound batch. Bigger submissions are not split
func WithMaxBatchSize(n int) ConfigOption {
	return func(c *ConfigParams) {
		if n > 0 {
			c.maxBatchSize = n
		}
	}
}

// WithMaxParallel limits number of sub-batches processed at the same time. 0 means no limit
func WithMaxParallel(n int) ConfigOption {
	return func(c *ConfigParams) {
		if n >= 0 {
			c.maxParallel = n
		}
	}
}

func WithUnknownStatePolicy(p uniqueness.UnknownStatePolicy) ConfigOption {
	return func(c *ConfigParams) {
		c.unknownStates = p
	}
}

func WithClock(clock uniqueness.Clock) ConfigOption {
	return func(c *ConfigParams) {
		c.clock = clock
	}
}

// WithGlobalConfigOptions takes parameters from the node configuration
func WithGlobalConfigOptions(c *ConfigParams) {
	WithMaxBatchSize(viper.GetInt("batch.max_size"))(c)
	WithMaxParallel(viper.GetInt("batch.max_parallel"))(c)
}
