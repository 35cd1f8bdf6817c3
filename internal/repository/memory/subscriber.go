package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

type storedSubscriber struct {
	sub      domain.Subscriber
	scopeKey string
}

// SubscriberRepo implements subscriber.Repository in memory. It enforces
// the same uniqueness rules as the database: (scope key, email) and
// unsubscribe token.
type SubscriberRepo struct {
	mu   sync.Mutex
	subs map[string]*storedSubscriber // keyed by id
}

// NewSubscriberRepo creates an empty repository.
func NewSubscriberRepo() *SubscriberRepo {
	return &SubscriberRepo{subs: make(map[string]*storedSubscriber)}
}

func cloneSubscriber(s domain.Subscriber) *domain.Subscriber {
	s.Tags = append([]string{}, s.Tags...)
	s.Preferences.Categories = append([]string{}, s.Preferences.Categories...)
	return &s
}

func (m *SubscriberRepo) Get(_ context.Context, companyID, id string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subs[id]
	if !ok || st.sub.CompanyID != companyID {
		return nil, subscriber.ErrNotFound
	}
	return cloneSubscriber(st.sub), nil
}

func (m *SubscriberRepo) FindByEmail(_ context.Context, scopeKey, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.subs {
		if st.scopeKey == scopeKey && st.sub.Email == email {
			return cloneSubscriber(st.sub), nil
		}
	}
	return nil, subscriber.ErrNotFound
}

func (m *SubscriberRepo) FindByToken(_ context.Context, token string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.subs {
		if st.sub.UnsubscribeToken == token {
			return cloneSubscriber(st.sub), nil
		}
	}
	return nil, subscriber.ErrNotFound
}

func (m *SubscriberRepo) Create(_ context.Context, s *domain.Subscriber, scopeKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.subs {
		if st.scopeKey == scopeKey && st.sub.Email == s.Email {
			return subscriber.ErrDuplicateEmail
		}
		if st.sub.UnsubscribeToken == s.UnsubscribeToken {
			return subscriber.ErrDuplicateToken
		}
	}
	m.subs[s.ID] = &storedSubscriber{sub: *cloneSubscriber(*s), scopeKey: scopeKey}
	return nil
}

func (m *SubscriberRepo) Save(_ context.Context, s *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subs[s.ID]
	if !ok {
		return subscriber.ErrNotFound
	}
	tok := st.sub.UnsubscribeToken
	st.sub = *cloneSubscriber(*s)
	st.sub.UnsubscribeToken = tok
	return nil
}

func (m *SubscriberRepo) Delete(_ context.Context, companyID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subs[id]
	if !ok || st.sub.CompanyID != companyID {
		return subscriber.ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *SubscriberRepo) List(_ context.Context, companyID string, f subscriber.ListFilter) ([]domain.Subscriber, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	var out []domain.Subscriber
	for _, st := range m.subs {
		s := st.sub
		if s.CompanyID != companyID {
			continue
		}
		if f.Active != nil && s.IsActive != *f.Active {
			continue
		}
		if f.Tag != "" && !contains(s.Tags, f.Tag) {
			continue
		}
		if f.Frequency != "" && s.Preferences.Frequency != f.Frequency {
			continue
		}
		if search != "" && !strings.Contains(s.Email, search) &&
			!strings.Contains(strings.ToLower(s.FullName()), search) {
			continue
		}
		out = append(out, *cloneSubscriber(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscribedAt.After(out[j].SubscribedAt) })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *SubscriberRepo) Audience(_ context.Context, companyID string, seg domain.Segment) ([]domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscriber
	for _, st := range m.subs {
		s := st.sub
		if s.CompanyID != companyID || !s.IsActive || !seg.Matches(&s) {
			continue
		}
		out = append(out, *cloneSubscriber(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *SubscriberRepo) TouchLastEmail(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.subs[id]
	if !ok {
		return subscriber.ErrNotFound
	}
	st.sub.LastEmailAt = &at
	return nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
