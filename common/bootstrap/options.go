package bootstrap

import (
	"github.com/lyzr/workflow-engine/common/config"
	"github.com/lyzr/workflow-engine/common/db"
	"github.com/lyzr/workflow-engine/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipDB        bool
	skipQueue     bool
	skipRedis     bool
	skipBlacklist bool
	skipEventBus  bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	dbInitHook    func(*db.DB) error
}

// WithoutDB skips database initialization
func WithoutDB() Option {
	return func(o *options) {
		o.skipDB = true
	}
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) {
		o.skipQueue = true
	}
}

// WithoutRedis skips Redis client initialization. Implies WithoutEventBus,
// since the event bus has nothing to publish through.
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
		o.skipEventBus = true
	}
}

// WithoutBlacklist skips Blacklist Cache (C9) initialization.
func WithoutBlacklist() Option {
	return func(o *options) {
		o.skipBlacklist = true
	}
}

// WithoutEventBus skips event bus initialization.
func WithoutEventBus() Option {
	return func(o *options) {
		o.skipEventBus = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithDBInitHook runs a custom function after DB initialization
// Useful for running migrations, seeding data, etc.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{
		skipDB:        false,
		skipQueue:     false,
		skipRedis:     false,
		skipBlacklist: false,
		skipEventBus:  false,
		skipTelemetry: false,
	}
}
