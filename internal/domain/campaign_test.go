package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to CampaignStatus
		ok       bool
	}{
		{CampaignDraft, CampaignScheduled, true},
		{CampaignDraft, CampaignSending, true},
		{CampaignDraft, CampaignCancelled, true},
		{CampaignDraft, CampaignSent, false},
		{CampaignScheduled, CampaignDraft, true},
		{CampaignScheduled, CampaignSending, true},
		{CampaignScheduled, CampaignFailed, false},
		{CampaignSending, CampaignSent, true},
		{CampaignSending, CampaignFailed, true},
		{CampaignSending, CampaignDraft, false},
		{CampaignSent, CampaignDraft, false},
		{CampaignCancelled, CampaignScheduled, false},
		{CampaignFailed, CampaignSending, false},
		{CampaignDraft, CampaignStatus("archived"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
		})
	}
}

func TestValidateTransitionMessageNamesStates(t *testing.T) {
	err := ValidateTransition(CampaignDraft, CampaignSent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft")
	assert.Contains(t, err.Error(), "sent")
	assert.Contains(t, err.Error(), "scheduled, sending, cancelled")

	err = ValidateTransition(CampaignSent, CampaignDraft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot change status")
}

func TestRecomputeAnalytics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := RecomputeAnalytics(CampaignAnalytics{
		TotalSent: 200, TotalOpened: 50, TotalClicked: 20, TotalBounced: 4, TotalUnsubscribed: 2,
	}, now)
	assert.Equal(t, 25.0, a.OpenRate)
	assert.Equal(t, 10.0, a.ClickRate)
	assert.Equal(t, 2.0, a.BounceRate)
	assert.Equal(t, 1.0, a.UnsubscribeRate)
	assert.Equal(t, now, a.LastUpdated)
}

func TestRecomputeAnalyticsZeroSentKeepsRates(t *testing.T) {
	before := CampaignAnalytics{
		TotalSent: 0, TotalOpened: 999, TotalClicked: 5,
		OpenRate: 42.5, ClickRate: 7.25, BounceRate: 1.5, UnsubscribeRate: 0.5,
	}
	now := time.Now()
	after := RecomputeAnalytics(before, now)
	assert.Equal(t, 42.5, after.OpenRate)
	assert.Equal(t, 7.25, after.ClickRate)
	assert.Equal(t, 1.5, after.BounceRate)
	assert.Equal(t, 0.5, after.UnsubscribeRate)
	assert.Equal(t, now, after.LastUpdated)
}

func TestAnalyticsApply(t *testing.T) {
	var a CampaignAnalytics
	assert.True(t, a.Apply(EventSent, 10))
	assert.True(t, a.Apply(EventOpened, 3))
	assert.False(t, a.Apply(AnalyticsEvent("complaint"), 1))
	assert.Equal(t, 10, a.TotalSent)
	assert.Equal(t, 3, a.TotalOpened)
}

func TestABTestValidate(t *testing.T) {
	var nilTest *ABTest
	assert.NoError(t, nilTest.Validate())
	assert.NoError(t, (&ABTest{Enabled: false}).Validate())

	good := &ABTest{
		Enabled:      true,
		WinnerMetric: WinnerOpenRate,
		Variants:     []ABVariant{{Name: "A", Percentage: 50}, {Name: "B", Percentage: 50}},
	}
	assert.NoError(t, good.Validate())

	bad := *good
	bad.Variants = []ABVariant{{Name: "A", Percentage: 60}, {Name: "B", Percentage: 30}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidABTest)

	bad = *good
	bad.WinnerMetric = "revenue"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidABTest)

	bad = *good
	bad.Variants = good.Variants[:1]
	assert.ErrorIs(t, bad.Validate(), ErrInvalidABTest)
}

func TestABTestVariantForIsStable(t *testing.T) {
	test := &ABTest{
		Enabled:      true,
		WinnerMetric: WinnerClickRate,
		Variants:     []ABVariant{{Name: "A", Percentage: 50}, {Name: "B", Percentage: 50}},
	}
	first := test.VariantFor("Someone@Example.com")
	require.NotNil(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first.Name, test.VariantFor("someone@example.com").Name)
	}
	assert.Nil(t, (&ABTest{}).VariantFor("x@example.com"))
}

func TestSegmentMatches(t *testing.T) {
	sub := &Subscriber{
		Tags:        []string{"vip", "gh"},
		Preferences: Preferences{Frequency: FrequencyWeekly, Categories: []string{"events"}, Format: FormatHTML},
	}
	assert.True(t, Segment{}.Matches(sub))
	assert.True(t, Segment{Tags: []string{"vip"}}.Matches(sub))
	assert.False(t, Segment{Tags: []string{"new"}}.Matches(sub))
	assert.True(t, Segment{Categories: []string{"events", "deals"}}.Matches(sub))
	assert.False(t, Segment{Frequency: FrequencyDaily}.Matches(sub))
	assert.False(t, Segment{ExcludeTags: []string{"gh"}}.Matches(sub))
}

func TestCampaignStateHelpers(t *testing.T) {
	c := &Campaign{Status: CampaignDraft}
	assert.True(t, c.IsEditable())
	assert.False(t, c.IsTerminal())
	c.Status = CampaignSent
	assert.False(t, c.IsEditable())
	assert.True(t, c.IsTerminal())
}
