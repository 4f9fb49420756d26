package domain

import "errors"

// Engine errors
var (
	// ErrInvalidParameter is returned for malformed generation, shock or
	// sweep configuration. No partial state is created.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShockExceedsAssets is returned when a shock would drive an
	// outside asset negative. The network is left untouched.
	ErrShockExceedsAssets = errors.New("shock exceeds outside assets")
)
