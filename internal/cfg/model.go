package cfg

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/googleapis/gax-go/v2"
)

type Config struct {
	CacheDir            string        `env:"MEMVIEW_CACHE_DIR"`
	ChunkSize           int64         `env:"MEMVIEW_CHUNK_SIZE"            envDefault:"2097152"`
	Debug               bool          `env:"MEMVIEW_DEBUG"`
	FetchRetries        int           `env:"MEMVIEW_FETCH_RETRIES"         envDefault:"3"`
	RetryInitialBackoff time.Duration `env:"MEMVIEW_RETRY_INITIAL_BACKOFF" envDefault:"10ms"`
	RetryMaxBackoff     time.Duration `env:"MEMVIEW_RETRY_MAX_BACKOFF"     envDefault:"1s"`
	ServiceName         string        `env:"SERVICE_NAME"                  envDefault:"inspect-view"`
}

func Parse() (Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}

	if config.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("MEMVIEW_CHUNK_SIZE must be positive, got %d", config.ChunkSize)
	}

	if config.RetryMaxBackoff < config.RetryInitialBackoff {
		return Config{}, fmt.Errorf("MEMVIEW_RETRY_MAX_BACKOFF (%s) is lower than MEMVIEW_RETRY_INITIAL_BACKOFF (%s)", config.RetryMaxBackoff, config.RetryInitialBackoff)
	}

	return config, nil
}

func (c Config) Backoff() gax.Backoff {
	return gax.Backoff{
		Initial:    c.RetryInitialBackoff,
		Max:        c.RetryMaxBackoff,
		Multiplier: 2,
	}
}
