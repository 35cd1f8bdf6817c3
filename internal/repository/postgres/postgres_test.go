package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

func newMock(t *testing.T) (*CampaignRepo, *SubscriberRepo, *UnsubscriptionRepo, *TemplateRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewCampaignRepo(db), NewSubscriberRepo(db), NewUnsubscriptionRepo(db), NewTemplateRepo(db), mock
}

var campaignCols = []string{
	"id", "company_id", "created_by", "name", "subject", "preview_text", "html_content",
	"text_content", "template_id", "status", "scheduled_at", "sent_at",
	"segment", "ab_test", "analytics", "created_at", "updated_at",
}

var subscriberCols = []string{
	"id", "company_id", "email", "first_name", "last_name", "is_active", "source",
	"tags", "preferences", "unsubscribe_token", "subscribed_at", "unsubscribed_at",
	"last_email_at", "created_at", "updated_at",
}

func TestCampaignGet(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM newsletter_campaigns WHERE id = \\$1 AND company_id = \\$2").
		WithArgs("c1", "co-1").
		WillReturnRows(sqlmock.NewRows(campaignCols).AddRow(
			"c1", "co-1", "u1", "Spring", "Hello", "", "<p>hi</p>",
			"", nil, "scheduled", now, nil,
			[]byte(`{"tags":["vip"],"frequency":"weekly"}`), nil,
			[]byte(`{"totalSent":4,"totalOpened":1,"openRate":25}`), now, now,
		))

	c, err := campaigns.Get(ctx, "co-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignScheduled, c.Status)
	assert.Equal(t, []string{"vip"}, c.Segment.Tags)
	assert.Equal(t, "weekly", c.Segment.Frequency)
	assert.Nil(t, c.ABTest)
	assert.Nil(t, c.TemplateID)
	require.NotNil(t, c.ScheduledAt)
	assert.True(t, c.ScheduledAt.Equal(now))
	assert.Equal(t, 25.0, c.Analytics.OpenRate)

	mock.ExpectQuery("FROM newsletter_campaigns").
		WithArgs("missing", "co-1").
		WillReturnRows(sqlmock.NewRows(campaignCols))
	_, err = campaigns.Get(ctx, "co-1", "missing")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignUpdate(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)
	ctx := context.Background()

	// nothing to change, no statement
	require.NoError(t, campaigns.Update(ctx, "co-1", "c1", campaign.UpdateFields{}))

	name := "Renamed"
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE newsletter_campaigns SET name = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3")).
		WithArgs("Renamed", "c1", "co-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, campaigns.Update(ctx, "co-1", "c1", campaign.UpdateFields{Name: &name}))

	mock.ExpectExec("UPDATE newsletter_campaigns").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := campaigns.Update(ctx, "co-1", "gone", campaign.UpdateFields{Name: &name})
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignUpdateStatus(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE newsletter_campaigns SET status = \\$1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, campaigns.UpdateStatus(ctx, "co-1", "c1",
		domain.CampaignDraft, domain.CampaignSending, campaign.StatusChange{}))

	t.Run("status moved underneath", func(t *testing.T) {
		mock.ExpectExec("UPDATE newsletter_campaigns SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("c1", "co-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		err := campaigns.UpdateStatus(ctx, "co-1", "c1",
			domain.CampaignDraft, domain.CampaignSending, campaign.StatusChange{})
		assert.ErrorIs(t, err, campaign.ErrStatusConflict)
	})

	t.Run("missing campaign", func(t *testing.T) {
		mock.ExpectExec("UPDATE newsletter_campaigns SET status").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		err := campaigns.UpdateStatus(ctx, "co-1", "c9",
			domain.CampaignDraft, domain.CampaignSending, campaign.StatusChange{})
		assert.ErrorIs(t, err, campaign.ErrNotFound)
	})
}

func TestCampaignUpdateAnalyticsLocksRow(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT analytics FROM newsletter_campaigns WHERE id = \\$1 AND company_id = \\$2 FOR UPDATE").
		WithArgs("c1", "co-1").
		WillReturnRows(sqlmock.NewRows([]string{"analytics"}).
			AddRow([]byte(`{"totalSent":10,"totalOpened":2}`)))
	mock.ExpectExec("UPDATE newsletter_campaigns SET analytics = \\$1").
		WithArgs(sqlmock.AnyArg(), "c1", "co-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := campaigns.UpdateAnalytics(context.Background(), "co-1", "c1",
		func(a domain.CampaignAnalytics) domain.CampaignAnalytics {
			a.Apply(domain.EventOpened, 1)
			return domain.RecomputeAnalytics(a, now)
		})
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalOpened)
	assert.InDelta(t, 30.0, a.OpenRate, 0.0001)
}

func TestCampaignUpdateAnalyticsMissing(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT analytics").
		WillReturnRows(sqlmock.NewRows([]string{"analytics"}))
	mock.ExpectRollback()

	_, err := campaigns.UpdateAnalytics(context.Background(), "co-1", "c1",
		func(a domain.CampaignAnalytics) domain.CampaignAnalytics { return a })
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignListBuildsFilters(t *testing.T) {
	campaigns, _, _, _, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM newsletter_campaigns WHERE company_id = $1 AND status = $2 AND (name ILIKE $3 OR subject ILIKE $3)")).
		WithArgs("co-1", "draft", "%50\\%%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $4 OFFSET $5")).
		WithArgs("co-1", "draft", "%50\\%%", 10, 20).
		WillReturnRows(sqlmock.NewRows(campaignCols))

	out, total, err := campaigns.List(context.Background(), "co-1",
		campaign.ListFilter{Status: "draft", Search: "50%", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSubscriberCreateMapsUniqueViolations(t *testing.T) {
	_, subs, _, _, mock := newMock(t)
	ctx := context.Background()
	s := &domain.Subscriber{
		ID: "s1", CompanyID: "co-1", Email: "a@example.com", IsActive: true,
		Source: domain.SourceWebsite, Tags: []string{}, Preferences: domain.DefaultPreferences(),
		UnsubscribeToken: "tok",
	}

	mock.ExpectExec("INSERT INTO newsletter_subscribers").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "newsletter_subscribers_scope_email_key"})
	assert.ErrorIs(t, subs.Create(ctx, s, ""), subscriber.ErrDuplicateEmail)

	mock.ExpectExec("INSERT INTO newsletter_subscribers").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "newsletter_subscribers_unsubscribe_token_key"})
	assert.ErrorIs(t, subs.Create(ctx, s, ""), subscriber.ErrDuplicateToken)

	mock.ExpectExec("INSERT INTO newsletter_subscribers").
		WithArgs("s1", "co-1", "co-1", "a@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(),
			true, "website", sqlmock.AnyArg(), sqlmock.AnyArg(), "tok",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, subs.Create(ctx, s, "co-1"))
}

func TestSubscriberAudienceQuery(t *testing.T) {
	_, subs, _, _, mock := newMock(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM newsletter_subscribers WHERE company_id = $1 AND is_active AND tags && $2 AND NOT (tags && $3) AND preferences->>'frequency' = $4 ORDER BY email")).
		WithArgs("co-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "weekly").
		WillReturnRows(sqlmock.NewRows(subscriberCols).AddRow(
			"s1", "co-1", "a@example.com", "Ama", "Mensah", true, "website",
			"{vip,news}", []byte(`{"frequency":"weekly","categories":["deals"],"format":"html"}`), "tok",
			now, nil, nil, now, now,
		))

	out, err := subs.Audience(context.Background(), "co-1", domain.Segment{
		Tags: []string{"vip"}, ExcludeTags: []string{"churned"}, Frequency: "weekly",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"vip", "news"}, out[0].Tags)
	assert.Equal(t, []string{"deals"}, out[0].Preferences.Categories)
	assert.Equal(t, "tok", out[0].UnsubscribeToken)
	assert.Nil(t, out[0].UnsubscribedAt)
}

func TestUnsubscriptionRepo(t *testing.T) {
	_, _, unsubs, _, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO newsletter_unsubscriptions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "newsletter_unsubscriptions_resubscribe_token_key"})
	err := unsubs.Create(ctx, &domain.Unsubscription{Email: "a@example.com", ResubscribeToken: "r1"})
	assert.ErrorIs(t, err, subscriber.ErrDuplicateToken)

	mock.ExpectQuery("FROM newsletter_unsubscriptions WHERE email = \\$1 AND resubscribe_token = \\$2 AND resubscribed_at IS NULL").
		WithArgs("a@example.com", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = unsubs.LatestByToken(ctx, "a@example.com", "nope")
	assert.ErrorIs(t, err, subscriber.ErrInvalidToken)

	mock.ExpectQuery("SELECT reason, COUNT\\(\\*\\)").
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"reason", "count"}).
			AddRow("spam", 2).
			AddRow("too_frequent", 5))
	counts, err := unsubs.CountByReason(ctx, "co-1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.ReasonSpam])
	assert.Equal(t, 5, counts[domain.ReasonTooFrequent])
}

func TestTemplateListIncludesGlobal(t *testing.T) {
	_, _, _, templates, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM newsletter_templates WHERE (company_id = $1 OR is_global) AND is_active")).
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name")).
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "is_global", "name", "description", "category", "format",
			"content", "variables", "is_active", "usage_count", "created_by", "created_at", "updated_at",
		}).AddRow("t1", nil, true, "Welcome", "", "general", "markdown",
			"# Hi {{ name }}", []byte(`[{"name":"name","type":"text","required":true}]`), true, 3, "admin",
			time.Now(), time.Now()))

	out, total, err := templates.List(context.Background(), "co-1",
		tmpl.ListFilter{IncludeGlobal: true, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsGlobal)
	assert.Nil(t, out[0].CompanyID)
	assert.Equal(t, domain.TemplateMarkdown, out[0].Format)
	require.Len(t, out[0].Variables, 1)
	assert.True(t, out[0].Variables[0].Required)
}

func TestTrackingRepoInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO newsletter_tracking_events").
		WithArgs("co-1", "c1", "s1", "click", "https://example.com", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ev := &domain.TrackingEvent{
		CompanyID: "co-1", CampaignID: "c1", SubscriberID: "s1",
		Event: domain.EventClicked, URL: "https://example.com",
	}
	require.NoError(t, NewTrackingRepo(db).InsertTrackingEvent(context.Background(), ev))
	assert.False(t, ev.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCondsPage(t *testing.T) {
	w := &conds{}
	w.add("company_id = $%d", "co-1")

	suffix, args := w.page(0, 0)
	assert.Equal(t, "", suffix)
	assert.Len(t, args, 1)

	suffix, args = w.page(25, 50)
	assert.Equal(t, " LIMIT $2 OFFSET $3", suffix)
	assert.Equal(t, []interface{}{"co-1", 25, 50}, args)
	assert.Len(t, w.args, 1)

	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
}
