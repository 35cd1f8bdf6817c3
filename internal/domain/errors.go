package domain

import "errors"

// Sentinel errors returned by validation helpers in this package.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrMissingVariables  = errors.New("missing required template variables")
	ErrInvalidVariable   = errors.New("invalid template variable value")
	ErrInvalidABTest     = errors.New("invalid A/B test configuration")
	ErrInvalidTemplate   = errors.New("invalid template definition")
)
