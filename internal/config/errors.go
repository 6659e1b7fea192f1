package config

import "errors"

// ErrInvalidConfig wraps a resolved configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid config")
