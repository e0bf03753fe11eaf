// concurrency/const.go
package concurrency

import "time"

const (
	// MaxConcurrency represents the maximum allowed concurrent requests.
	MaxConcurrency = 10

	// MinConcurrency represents the minimum allowed concurrent requests.
	MinConcurrency = 1

	// DefaultAcquisitionTimeout bounds how long a request waits for a permit when its
	// context carries no earlier deadline.
	DefaultAcquisitionTimeout = 10 * time.Second
)
