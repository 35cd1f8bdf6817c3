package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

func TestEngine_Liquid(t *testing.T) {
	e := NewEngine()

	out, err := e.Liquid("Hi {{ first_name | default: \"Friend\" }}!", map[string]any{"first_name": ""})
	require.NoError(t, err)
	assert.Equal(t, "Hi Friend!", out)

	out, err = e.Liquid("Hi {{ first_name }}!", map[string]any{"first_name": "Ama"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ama!", out)

	// cached template renders with new values
	out, err = e.Liquid("Hi {{ first_name }}!", map[string]any{"first_name": "Kofi"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Kofi!", out)

	out, err = e.Liquid("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	_, err = e.Liquid("{% if %}", nil)
	assert.Error(t, err)
}

func TestEngine_Truncate(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		src  string
		name string
		want string
	}{
		{"{{ n | truncate: 20 }}", "Ama Mensah", "Ama Mensah"},
		{"{{ n | truncate: 8 }}", "Ama Mensah", "Ama M..."},
		{"{{ n | truncate: 2 }}", "Ama Mensah", "Am"},
		{"{{ n | truncate: -1 }}", "Ama Mensah", ""},
		{"{{ n | truncate: 6 }}", "Çağrı Öztürk", "Çağ..."},
		{"{{ n | truncate: 3 }}", "日本語テキスト", "日本語"},
	}
	for _, tt := range tests {
		out, err := e.Liquid(tt.src, map[string]any{"n": tt.name})
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, out, tt.src)
	}
}

func TestEngine_Markdown(t *testing.T) {
	e := NewEngine()

	out, err := e.Markdown("# Weekly\n\n**Deals** inside")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Weekly</h1>")
	assert.Contains(t, out, "<strong>Deals</strong>")

	out, err = e.Markdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestEngine_Personalize(t *testing.T) {
	e := NewEngine()
	c := &domain.Campaign{
		Name:        "October",
		Subject:     "News for {{ first_name }}",
		HTMLContent: `<p>{{ full_name }}</p><a href="{{ unsubscribe_url }}">leave</a>`,
	}
	sub := &domain.Subscriber{Email: "ama@example.com", FirstName: "Ama", LastName: "Mensah"}

	subject, body, err := e.Personalize(c, sub, "https://t.example.com/u/1")
	require.NoError(t, err)
	assert.Equal(t, "News for Ama", subject)
	assert.Equal(t, `<p>Ama Mensah</p><a href="https://t.example.com/u/1">leave</a>`, body)
}

func TestEngine_PersonalizeVariant(t *testing.T) {
	e := NewEngine()
	c := &domain.Campaign{
		Subject:     "base",
		HTMLContent: "base body",
		ABTest: &domain.ABTest{
			Enabled:      true,
			WinnerMetric: domain.WinnerOpenRate,
			Variants: []domain.ABVariant{
				{Name: "only", Subject: "variant {{ email }}", Percentage: 100},
			},
		},
	}
	sub := &domain.Subscriber{Email: "a@example.com"}

	subject, body, err := e.Personalize(c, sub, "")
	require.NoError(t, err)
	assert.Equal(t, "variant a@example.com", subject)
	assert.Equal(t, "base body", body)
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(context.Background(), config.EmailConfig{})
	require.NoError(t, err)
	assert.Equal(t, "log", s.Name())

	s, err = NewSender(context.Background(), config.EmailConfig{Provider: "resend", ResendAPIKey: "re_test"})
	require.NoError(t, err)
	assert.Equal(t, "resend", s.Name())

	_, err = NewSender(context.Background(), config.EmailConfig{Provider: "resend"})
	assert.Error(t, err)

	_, err = NewSender(context.Background(), config.EmailConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	res, err := (&LogSender{}).Send(context.Background(), &domain.EmailMessage{
		CampaignID: "c1", Email: "ama@example.com", Subject: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "log", res.Provider)
	assert.NotEmpty(t, res.MessageID)
}
