package template

import (
	"errors"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Sentinel errors for the template service layer.
var (
	ErrNotFound         = errors.New("template not found")
	ErrForbidden        = errors.New("template belongs to another owner")
	ErrInactive         = errors.New("template is inactive")
	ErrInvalidInput     = domain.ErrInvalidTemplate
	ErrMissingVariables = domain.ErrMissingVariables
	ErrInvalidVariable  = domain.ErrInvalidVariable
)
