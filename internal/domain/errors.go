// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrConfiguration indicates the process is missing required configuration,
// such as the provider credential.
var ErrConfiguration = errors.New("configuration error")
