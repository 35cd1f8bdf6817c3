package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

// TemplateRepo implements template.Repository in memory.
type TemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*domain.Template
}

// NewTemplateRepo creates an empty repository.
func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{templates: make(map[string]*domain.Template)}
}

func cloneTemplate(t *domain.Template) *domain.Template {
	cp := *t
	cp.Variables = append([]domain.TemplateVariable{}, t.Variables...)
	if t.CompanyID != nil {
		id := *t.CompanyID
		cp.CompanyID = &id
	}
	return &cp
}

func (m *TemplateRepo) Get(_ context.Context, id string) (*domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, tmpl.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (m *TemplateRepo) List(_ context.Context, companyID string, f tmpl.ListFilter) ([]domain.Template, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	var out []domain.Template
	for _, t := range m.templates {
		owned := t.CompanyID != nil && *t.CompanyID == companyID
		if !owned && !(f.IncludeGlobal && t.IsGlobal) {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.ActiveOnly && !t.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		out = append(out, *cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *TemplateRepo) Create(_ context.Context, t *domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = cloneTemplate(t)
	return nil
}

func (m *TemplateRepo) Save(_ context.Context, t *domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; !ok {
		return tmpl.ErrNotFound
	}
	m.templates[t.ID] = cloneTemplate(t)
	return nil
}

func (m *TemplateRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return tmpl.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *TemplateRepo) IncrementUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return tmpl.ErrNotFound
	}
	t.UsageCount++
	return nil
}
