package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/app"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

const welcomeMarkdown = `# Welcome, {{ first_name }}!

Thanks for joining the **{{ company_name }}** newsletter.

Every {{ frequency }} we send:

- new facilities and rental items
- booking tips and seasonal offers
- news from the team

Browse facilities at {{ facilities_url }}
`

const digestHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{ company_name }} monthly digest</title>
</head>
<body style="font-family: Arial, sans-serif; background: #f4f5f7; margin: 0; padding: 24px;">
    <div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
        {% if hero_image %}<img src="{{ hero_image }}" alt="" style="width: 100%; border-radius: 6px;">{% endif %}
        <h1 style="color: #1f2937;">{{ headline }}</h1>
        <p style="color: #4b5563;">Hi {{ first_name | default: "there" }}, here is what happened at {{ company_name }} in {{ month }}.</p>
        <p style="color: #4b5563;">{{ summary }}</p>
        <p><a href="{{ cta_url }}" style="background: #2563eb; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">{{ cta_label | default: "Book now" }}</a></p>
    </div>
</body>
</html>
`

// starterTemplates are the global templates every company can start from.
func starterTemplates() []tmpl.Input {
	return []tmpl.Input{
		{
			Name:        "Welcome",
			Description: "Sent to new subscribers",
			Category:    "onboarding",
			Format:      domain.TemplateMarkdown,
			Content:     welcomeMarkdown,
			IsGlobal:    true,
			Variables: []domain.TemplateVariable{
				{Name: "first_name", Type: domain.VarText, Default: "there"},
				{Name: "company_name", Type: domain.VarText, Required: true},
				{Name: "frequency", Type: domain.VarText, Default: "week"},
				{Name: "facilities_url", Type: domain.VarURL, Required: true},
			},
		},
		{
			Name:        "Monthly Digest",
			Description: "Monthly round-up of bookings and offers",
			Category:    "digest",
			Format:      domain.TemplateHTML,
			Content:     digestHTML,
			IsGlobal:    true,
			Variables: []domain.TemplateVariable{
				{Name: "company_name", Type: domain.VarText, Required: true},
				{Name: "headline", Type: domain.VarText, Required: true},
				{Name: "month", Type: domain.VarText, Required: true},
				{Name: "summary", Type: domain.VarText},
				{Name: "hero_image", Type: domain.VarImage},
				{Name: "cta_url", Type: domain.VarURL, Required: true},
				{Name: "cta_label", Type: domain.VarText},
				{Name: "first_name", Type: domain.VarText},
			},
		},
	}
}

// seedTemplates creates every starter template that does not exist yet
// and returns how many were created.
func seedTemplates(ctx context.Context, svc *tmpl.Service, actor tmpl.Actor) (int, error) {
	created := 0
	for _, in := range starterTemplates() {
		existing, _, err := svc.List(ctx, "", tmpl.ListFilter{IncludeGlobal: true, Search: in.Name})
		if err != nil {
			return created, fmt.Errorf("list templates: %w", err)
		}
		if hasGlobal(existing, in.Name) {
			fmt.Printf("   - %s already exists\n", in.Name)
			continue
		}
		t, err := svc.Create(ctx, actor, in)
		if err != nil {
			return created, fmt.Errorf("create %s: %w", in.Name, err)
		}
		fmt.Printf("   ✓ Created template: %s (ID: %s)\n", t.Name, t.ID)
		created++
	}
	return created, nil
}

func hasGlobal(ts []domain.Template, name string) bool {
	for _, t := range ts {
		if t.IsGlobal && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	fmt.Println("Seeding global newsletter templates...")
	n, err := seedTemplates(ctx, a.Templates, tmpl.Actor{UserID: "seed", Platform: true})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	fmt.Printf("Done: %d templates created\n", n)
}
