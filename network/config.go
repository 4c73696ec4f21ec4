package network

import (
	"time"
)

// Config holds listener configuration
type Config struct {
	// Address to bind
	Address string

	// Telnet enables option negotiation and IAC filtering; disable for raw TCP clients
	Telnet bool

	// Connection limits
	MaxSessions int
	AcceptRate  float64 // Accepted connections per second
	AcceptBurst int

	// Timing
	WriteTimeout time.Duration
	StopTimeout  time.Duration // Grace period for sessions after Stop

	// Websocket buffer sizes
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultConfig returns production-safe defaults
func DefaultConfig() *Config {
	return &Config{
		Address:         ":2323",
		Telnet:          true,
		MaxSessions:     64,
		AcceptRate:      10,
		AcceptBurst:     20,
		WriteTimeout:    5 * time.Second,
		StopTimeout:     5 * time.Second,
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 64 * 1024,
	}
}

// DebugConfig returns config bound to addr with limits relaxed for local testing
func DebugConfig(addr string) *Config {
	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.AcceptRate = 1000
	cfg.AcceptBurst = 1000
	return cfg
}
