package service

// Service defines the lifecycle of a long-lived subsystem: listeners, journal, session index
//
// Lifecycle:
//  1. Construction (via New* constructor)
//  2. Start() - bind resources, launch background goroutines
//  3. [runtime operation]
//  4. Stop() - halt goroutines, release resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Start before this one
	Dependencies() []string

	// Start begins service operation
	Start() error

	// Stop halts service operation; must be idempotent
	Stop() error
}
