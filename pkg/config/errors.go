package config

import "errors"

var (
	ErrEnvFile          = errors.New("config: failed to load env file")
	ErrDecodeEnv        = errors.New("config: failed to decode environment")
	ErrTopologyFile     = errors.New("config: failed to read topology file")
	ErrInvalidConfig    = errors.New("config: invalid configuration")
	ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")
)
