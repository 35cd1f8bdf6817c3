package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

type fakeSES struct {
	got *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake, configurationSet: "newsletter"}

	res, err := s.Send(context.Background(), &domain.EmailMessage{
		CampaignID:   "c1",
		SubscriberID: "s1",
		Email:        "ama@example.com",
		FromName:     "Taurean",
		FromEmail:    "news@example.com",
		Subject:      "Hello",
		HTMLContent:  "<p>hi</p>",
		TextContent:  "hi",
		Headers:      map[string]string{"List-Unsubscribe": "<https://x>"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ses-123", res.MessageID)
	assert.Equal(t, "ses", res.Provider)

	require.NotNil(t, fake.got)
	assert.Equal(t, "Taurean <news@example.com>", aws.ToString(fake.got.FromEmailAddress))
	assert.Equal(t, []string{"ama@example.com"}, fake.got.Destination.ToAddresses)
	assert.Equal(t, "hi", aws.ToString(fake.got.Content.Simple.Body.Text.Data))
	assert.Len(t, fake.got.Content.Simple.Headers, 1)
	assert.Equal(t, "newsletter", aws.ToString(fake.got.ConfigurationSetName))
}

func TestSESSender_SendError(t *testing.T) {
	s := &SESSender{client: &fakeSES{err: errors.New("throttled")}}
	_, err := s.Send(context.Background(), &domain.EmailMessage{Email: "a@example.com", FromEmail: "n@example.com"})
	assert.ErrorContains(t, err, "throttled")
}
