// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed precondition checks.
var ErrValidation = errors.New("validation failed")

// ErrTerminal indicates the target checkpoint is already resolved or cancelled.
var ErrTerminal = errors.New("checkpoint already completed")

// ErrInvalidOption indicates the chosen option is not among the checkpoint's options.
var ErrInvalidOption = errors.New("option not among checkpoint options")
