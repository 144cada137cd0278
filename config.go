package harvest

import "time"

// Config holds the engine settings.
type Config struct {
	// BaseURL is the site the session credentials are valid for.
	BaseURL string
	Headers map[string]string

	MaxConcurrentRequests int
	RateLimitMaxCalls     int
	RateLimitPeriod       time.Duration
	MaxAttempts           int
	BatchSize             int
	RequestTimeout        time.Duration

	// RefreshAfterAttempt is the 0-indexed attempt after which credentials
	// are refreshed before retrying. Negative disables the refresh.
	RefreshAfterAttempt int

	// RefreshCooldown suppresses a refresh if another succeeded within
	// this window. Zero disables the cooldown.
	RefreshCooldown time.Duration

	WritePolicy  WritePolicy
	WriteRetries int
}

// DefaultConfig returns the settings the extraction tool runs with.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRequests: 10,
		RateLimitMaxCalls:     360,
		RateLimitPeriod:       60 * time.Second,
		MaxAttempts:           5,
		BatchSize:             500,
		RequestTimeout:        25 * time.Second,
		RefreshAfterAttempt:   1,
		WritePolicy:           WriteDiscard,
		WriteRetries:          3,
	}
}

// Validate returns an error if the config contains invalid values.
func (c Config) Validate() error {
	if c.MaxConcurrentRequests <= 0 {
		return Errorf(EINVALID, "max concurrent requests must be positive")
	}
	if c.RateLimitMaxCalls <= 0 {
		return Errorf(EINVALID, "rate limit max calls must be positive")
	}
	if c.RateLimitPeriod <= 0 {
		return Errorf(EINVALID, "rate limit period must be positive")
	}
	if c.MaxAttempts <= 0 {
		return Errorf(EINVALID, "max attempts must be positive")
	}
	if c.BatchSize <= 0 {
		return Errorf(EINVALID, "batch size must be positive")
	}
	if c.RequestTimeout <= 0 {
		return Errorf(EINVALID, "request timeout must be positive")
	}
	if c.RefreshCooldown < 0 {
		return Errorf(EINVALID, "refresh cooldown must not be negative")
	}
	if c.WriteRetries < 0 {
		return Errorf(EINVALID, "write retries must not be negative")
	}
	return c.WritePolicy.Validate()
}
