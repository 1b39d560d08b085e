package config

import "time"

// Application constants
const (
	AppName    = "ergopulse"
	AppVersion = "1.0.0"

	DefaultFetchTimeout   = 20 * time.Second
	DefaultCacheTTL       = 10 * time.Minute
	DefaultMaxUploadBytes = 16 << 20

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
