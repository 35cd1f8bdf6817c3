package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyPtr(s string) *string { return &s }

func TestTemplateValidate(t *testing.T) {
	tpl := &Template{Name: "Welcome", IsGlobal: true, Format: TemplateHTML}
	assert.NoError(t, tpl.Validate())

	tpl.CompanyID = companyPtr("c1")
	assert.ErrorIs(t, tpl.Validate(), ErrInvalidTemplate)

	tpl = &Template{Name: "Welcome", CompanyID: companyPtr("c1"), Format: TemplateMarkdown,
		Variables: []TemplateVariable{{Name: "a", Type: VarText}, {Name: "a", Type: VarText}}}
	assert.ErrorIs(t, tpl.Validate(), ErrInvalidTemplate)

	tpl.Variables = []TemplateVariable{{Name: "a", Type: "color"}}
	assert.ErrorIs(t, tpl.Validate(), ErrInvalidTemplate)
}

func TestTemplateVisibleTo(t *testing.T) {
	global := &Template{IsGlobal: true}
	assert.True(t, global.VisibleTo("any"))
	own := &Template{CompanyID: companyPtr("c1")}
	assert.True(t, own.VisibleTo("c1"))
	assert.False(t, own.VisibleTo("c2"))
}

func TestResolveVariables(t *testing.T) {
	tpl := &Template{Variables: []TemplateVariable{
		{Name: "title", Type: VarText, Required: true},
		{Name: "hero", Type: VarImage, Default: "https://cdn.example.com/hero.png"},
		{Name: "price", Type: VarNumber},
		{Name: "date", Type: VarDate, Required: true},
	}}

	vals, err := tpl.ResolveVariables(map[string]string{
		"title": "Spring deals", "price": "12.5", "date": "2026-04-01", "extra": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring deals", vals["title"])
	assert.Equal(t, "https://cdn.example.com/hero.png", vals["hero"])
	assert.Equal(t, 12.5, vals["price"])
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), vals["date"])
	assert.Equal(t, "kept", vals["extra"])
}

func TestResolveVariablesListsAllMissing(t *testing.T) {
	tpl := &Template{Variables: []TemplateVariable{
		{Name: "title", Type: VarText, Required: true},
		{Name: "date", Type: VarDate, Required: true},
	}}
	_, err := tpl.ResolveVariables(nil)
	require.ErrorIs(t, err, ErrMissingVariables)
	assert.Contains(t, err.Error(), "date, title")
}

func TestResolveVariablesTypeErrors(t *testing.T) {
	tpl := &Template{Variables: []TemplateVariable{{Name: "n", Type: VarNumber}}}
	_, err := tpl.ResolveVariables(map[string]string{"n": "many"})
	assert.ErrorIs(t, err, ErrInvalidVariable)

	tpl = &Template{Variables: []TemplateVariable{{Name: "u", Type: VarURL}}}
	_, err = tpl.ResolveVariables(map[string]string{"u": "not a url"})
	assert.ErrorIs(t, err, ErrInvalidVariable)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ama@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail("Ama <ama@example.com>"), ErrInvalidEmail)
	assert.Equal(t, "ama@example.com", NormalizeEmail("  AMA@Example.COM "))
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "", ScopeKey(ScopeGlobal, "c1"))
	assert.Equal(t, "c1", ScopeKey(ScopeCompany, "c1"))
}
