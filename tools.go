//go:build tools

// Package chat_pulse pins mockgen so `go generate ./contract` resolves the
// same version on every checkout.
package chat_pulse

import (
	_ "go.uber.org/mock/mockgen"
)
