package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// VariableType is the declared type of a template placeholder.
type VariableType string

const (
	VarText   VariableType = "text"
	VarImage  VariableType = "image"
	VarURL    VariableType = "url"
	VarDate   VariableType = "date"
	VarNumber VariableType = "number"
)

// TemplateFormat is the authoring format of a template body.
type TemplateFormat string

const (
	TemplateHTML     TemplateFormat = "html"
	TemplateMarkdown TemplateFormat = "markdown"
)

// TemplateVariable describes one placeholder of a template.
type TemplateVariable struct {
	Name     string       `json:"name"`
	Type     VariableType `json:"type"`
	Required bool         `json:"required"`
	Default  string       `json:"default,omitempty"`
}

// Template is reusable newsletter content. A template without a company is
// global and visible to every company.
type Template struct {
	ID          string             `json:"id" db:"id"`
	CompanyID   *string            `json:"companyId,omitempty" db:"company_id"`
	IsGlobal    bool               `json:"isGlobal" db:"is_global"`
	Name        string             `json:"name" db:"name"`
	Description string             `json:"description,omitempty" db:"description"`
	Category    string             `json:"category" db:"category"`
	Format      TemplateFormat     `json:"format" db:"format"`
	Content     string             `json:"content" db:"content"`
	Variables   []TemplateVariable `json:"variables" db:"variables"`
	IsActive    bool               `json:"isActive" db:"is_active"`
	UsageCount  int                `json:"usageCount" db:"usage_count"`
	CreatedBy   string             `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" db:"updated_at"`
}

// VisibleTo reports whether companyID may read the template.
func (t *Template) VisibleTo(companyID string) bool {
	return t.IsGlobal || (t.CompanyID != nil && *t.CompanyID == companyID)
}

// Validate checks the template definition.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if t.IsGlobal != (t.CompanyID == nil) {
		return fmt.Errorf("%w: global templates have no company, company templates need one", ErrInvalidTemplate)
	}
	if t.Format != TemplateHTML && t.Format != TemplateMarkdown {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidTemplate, t.Format)
	}
	seen := make(map[string]bool, len(t.Variables))
	for _, v := range t.Variables {
		if v.Name == "" {
			return fmt.Errorf("%w: variable name is required", ErrInvalidTemplate)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variable %q", ErrInvalidTemplate, v.Name)
		}
		seen[v.Name] = true
		switch v.Type {
		case VarText, VarImage, VarURL, VarDate, VarNumber:
		default:
			return fmt.Errorf("%w: variable %q has unknown type %q", ErrInvalidTemplate, v.Name, v.Type)
		}
	}
	return nil
}

// ResolveVariables merges caller values with defaults and type-checks them.
// Every missing required variable is reported in a single error.
func (t *Template) ResolveVariables(values map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(t.Variables))
	var missing []string
	for _, v := range t.Variables {
		raw, ok := values[v.Name]
		if !ok || raw == "" {
			raw = v.Default
		}
		if raw == "" {
			if v.Required {
				missing = append(missing, v.Name)
			}
			continue
		}
		val, err := coerceVariable(v, raw)
		if err != nil {
			return nil, err
		}
		out[v.Name] = val
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingVariables, strings.Join(missing, ", "))
	}
	// undeclared values pass through as text
	for k, raw := range values {
		if _, ok := out[k]; !ok && raw != "" {
			out[k] = raw
		}
	}
	return out, nil
}

func coerceVariable(v TemplateVariable, raw string) (any, error) {
	switch v.Type {
	case VarNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidVariable, v.Name)
		}
		return f, nil
	case VarDate:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be a date", ErrInvalidVariable, v.Name)
	case VarURL, VarImage:
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %s must be an absolute URL", ErrInvalidVariable, v.Name)
		}
		return raw, nil
	default:
		return raw, nil
	}
}
