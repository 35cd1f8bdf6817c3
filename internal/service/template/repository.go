package template

import (
	"context"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Repository defines the data access contract for templates.
type Repository interface {
	// Get returns a template by id regardless of owner. Visibility is
	// checked by the service.
	Get(ctx context.Context, id string) (*domain.Template, error)

	// List returns the company's templates, plus global ones when
	// IncludeGlobal is set, ordered by name.
	List(ctx context.Context, companyID string, filter ListFilter) ([]domain.Template, int, error)

	Create(ctx context.Context, t *domain.Template) error

	// Save writes every mutable field of an existing template.
	Save(ctx context.Context, t *domain.Template) error

	Delete(ctx context.Context, id string) error

	// IncrementUsage bumps usage_count by one.
	IncrementUsage(ctx context.Context, id string) error
}

// ListFilter controls pagination and filtering for template lists.
type ListFilter struct {
	Category      string
	Search        string
	IncludeGlobal bool
	ActiveOnly    bool
	Limit         int
	Offset        int
}

// Renderer turns template bodies into HTML.
type Renderer interface {
	Markdown(src string) (string, error)
	Liquid(src string, vars map[string]any) (string, error)
}
