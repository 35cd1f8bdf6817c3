// Package mailer renders newsletter content and delivers it through an
// email provider.
package mailer

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Engine renders Liquid templates and Markdown bodies. Parsed Liquid
// templates are cached by source text.
type Engine struct {
	liquid *liquid.Engine
	md     goldmark.Markdown
	cache  sync.Map // map[string]*liquid.Template
}

// NewEngine creates an engine with the newsletter filters registered.
// Raw HTML inside Markdown is escaped.
func NewEngine() *Engine {
	e := &Engine{
		liquid: liquid.NewEngine(),
		md: goldmark.New(
			goldmark.WithRendererOptions(
				goldmarkHTML.WithHardWraps(),
			),
		),
	}
	e.registerFilters()
	return e
}

func (e *Engine) registerFilters() {
	// {{ first_name | default: "Friend" }}
	e.liquid.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	e.liquid.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	e.liquid.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})

	// Counts runes; a negative length truncates to nothing.
	e.liquid.RegisterFilter("truncate", func(s string, length int) string {
		length = max(length, 0)
		r := []rune(s)
		if len(r) <= length {
			return s
		}
		if length <= 3 {
			return string(r[:length])
		}
		return string(r[:length-3]) + "..."
	})
}

// Markdown converts a Markdown body to HTML.
func (e *Engine) Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Liquid renders src with vars.
func (e *Engine) Liquid(src string, vars map[string]any) (string, error) {
	if !strings.Contains(src, "{{") && !strings.Contains(src, "{%") {
		return src, nil
	}
	var tpl *liquid.Template
	if cached, ok := e.cache.Load(src); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := e.liquid.ParseString(src)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		e.cache.Store(src, parsed)
		tpl = parsed
	}
	out, err := tpl.RenderString(vars)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// Personalize renders a campaign subject and HTML body for one subscriber.
// When the campaign runs an A/B test the subscriber's variant overrides
// subject and body where the variant sets them.
func (e *Engine) Personalize(c *domain.Campaign, sub *domain.Subscriber, unsubscribeURL string) (string, string, error) {
	subject, body := c.Subject, c.HTMLContent
	if v := c.ABTest.VariantFor(sub.Email); v != nil {
		if v.Subject != "" {
			subject = v.Subject
		}
		if v.HTMLContent != "" {
			body = v.HTMLContent
		}
	}

	vars := SubscriberVars(sub, unsubscribeURL)
	vars["campaign_name"] = c.Name

	subject, err := e.Liquid(subject, vars)
	if err != nil {
		return "", "", err
	}
	body, err = e.Liquid(body, vars)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

// SubscriberVars exposes subscriber fields to templates.
func SubscriberVars(sub *domain.Subscriber, unsubscribeURL string) map[string]any {
	return map[string]any{
		"email":           sub.Email,
		"first_name":      sub.FirstName,
		"last_name":       sub.LastName,
		"full_name":       sub.FullName(),
		"tags":            sub.Tags,
		"frequency":       sub.Preferences.Frequency,
		"unsubscribe_url": unsubscribeURL,
	}
}
