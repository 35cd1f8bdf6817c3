package campaign

import (
	"errors"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrInvalidInput      = errors.New("invalid campaign input")
	ErrNotEditable       = errors.New("campaign can no longer be edited")
	ErrStatusConflict    = errors.New("campaign status changed concurrently")
)
