package template

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Actor identifies who is calling. Platform actors may write global templates.
type Actor struct {
	CompanyID string
	UserID    string
	Platform  bool
}

// Service implements template business logic.
type Service struct {
	repo     Repository
	renderer Renderer
	now      func() time.Time
}

// NewService creates a template service.
func NewService(repo Repository, renderer Renderer) *Service {
	return &Service{repo: repo, renderer: renderer, now: time.Now}
}

// Input holds the writable template fields.
type Input struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    string                    `json:"category"`
	Format      domain.TemplateFormat     `json:"format"`
	Content     string                    `json:"content"`
	Variables   []domain.TemplateVariable `json:"variables"`
	IsGlobal    bool                      `json:"isGlobal"`
	IsActive    *bool                     `json:"isActive"`
}

// Create validates and stores a template. Global templates require a
// platform actor.
func (s *Service) Create(ctx context.Context, actor Actor, in Input) (*domain.Template, error) {
	if in.IsGlobal && !actor.Platform {
		return nil, fmt.Errorf("%w: only platform administrators can create global templates", ErrForbidden)
	}
	now := s.now().UTC()
	t := &domain.Template{
		ID:        uuid.New().String(),
		IsGlobal:  in.IsGlobal,
		IsActive:  true,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !in.IsGlobal {
		companyID := actor.CompanyID
		t.CompanyID = &companyID
	}
	apply(t, in)
	if err := s.check(t); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	log.Printf("[template.Service] Created template %s (global=%v)", t.ID, t.IsGlobal)
	return t, nil
}

// Get returns a template visible to the actor's company.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*domain.Template, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Platform && !t.VisibleTo(actor.CompanyID) {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns templates visible to the company.
func (s *Service) List(ctx context.Context, companyID string, f ListFilter) ([]domain.Template, int, error) {
	return s.repo.List(ctx, companyID, f)
}

// Update replaces the writable fields. Ownership cannot change.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in Input) (*domain.Template, error) {
	t, err := s.writable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	apply(t, in)
	if err := s.check(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a template the actor owns.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.writable(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Rendered is the output of Render.
type Rendered struct {
	TemplateID string         `json:"templateId"`
	HTML       string         `json:"html"`
	Variables  map[string]any `json:"variables"`
}

// Render resolves variables against their declarations and produces HTML.
// Markdown bodies are converted first, then Liquid substitution runs.
func (s *Service) Render(ctx context.Context, actor Actor, id string, values map[string]string) (*Rendered, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrInactive
	}
	vars, err := t.ResolveVariables(values)
	if err != nil {
		return nil, err
	}

	body := t.Content
	if t.Format == domain.TemplateMarkdown {
		if body, err = s.renderer.Markdown(body); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
	}
	html, err := s.renderer.Liquid(body, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.repo.IncrementUsage(ctx, t.ID); err != nil {
		log.Printf("[template.Service] usage count for %s: %v", t.ID, err)
	}
	return &Rendered{TemplateID: t.ID, HTML: html, Variables: vars}, nil
}

func (s *Service) writable(ctx context.Context, actor Actor, id string) (*domain.Template, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Platform {
		return t, nil
	}
	if t.IsGlobal {
		return nil, ErrForbidden
	}
	if !t.VisibleTo(actor.CompanyID) {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) check(t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return nil
}

func apply(t *domain.Template, in Input) {
	t.Name = strings.TrimSpace(in.Name)
	t.Description = in.Description
	t.Category = in.Category
	if t.Category == "" {
		t.Category = "general"
	}
	t.Format = in.Format
	if t.Format == "" {
		t.Format = domain.TemplateHTML
	}
	t.Content = in.Content
	t.Variables = in.Variables
	if t.Variables == nil {
		t.Variables = []domain.TemplateVariable{}
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}
