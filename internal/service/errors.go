package service

import "errors"

// Expected failure modes of the create/update and generation paths. Handlers
// map these to HTTP statuses; anything else is a storage failure.
var (
	ErrInvalidFormat       = errors.New("invalid format")
	ErrDuplicateCode       = errors.New("duplicate code")
	ErrNotFound            = errors.New("not found")
	ErrGenerationExhausted = errors.New("code generation exhausted")
)
