package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Tablet gateway
const (
	QuestionnairePath      = "/questionnaire"
	QRPayloadVersion       = 1
	MaxSubmitBodySize      = 1 << 20
	RateLimitWindow        = time.Minute
	DefaultRateLimitPerMin = 120
)

// Session status tracker
const DefaultPollInterval = time.Second

// Session id generation
const MaxSessionIDAttempts = 5
