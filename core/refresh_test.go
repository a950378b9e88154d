package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"submerger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	subs        []models.Subscription
	customRules string
	saved       string
}

func (f *fakeStore) GetAllSubscriptions() ([]models.Subscription, error) {
	return f.subs, nil
}

func (f *fakeStore) GetCustomRules() (string, error) {
	return f.customRules, nil
}

func (f *fakeStore) SaveMergedConfig(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = content
	return nil
}

func (f *fakeStore) savedConfig() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

// fetchFromMap returns a FetchFunc serving canned bodies; missing URLs fail.
func fetchFromMap(bodies map[string]string) FetchFunc {
	return func(ctx context.Context, url string) (string, error) {
		body, ok := bodies[url]
		if !ok {
			return "", errors.New("connection refused")
		}
		return body, nil
	}
}

func TestRefreshAllNoSubscriptions(t *testing.T) {
	svc := NewRefreshService(&fakeStore{}, fetchFromMap(nil))
	err := svc.RefreshAll(context.Background())
	require.ErrorIs(t, err, ErrNoSubscriptions)
}

func TestRefreshAllAllFetchesFailed(t *testing.T) {
	store := &fakeStore{subs: []models.Subscription{
		{ID: "1", URL: "http://one.example.com"},
		{ID: "2", URL: "http://two.example.com"},
	}}
	svc := NewRefreshService(store, fetchFromMap(nil))

	err := svc.RefreshAll(context.Background())
	require.ErrorIs(t, err, ErrAllFetchesFailed)
	assert.Empty(t, store.savedConfig(), "nothing should be persisted when every fetch fails")
}

func TestRefreshAllSkipsFailedSource(t *testing.T) {
	store := &fakeStore{subs: []models.Subscription{
		{ID: "1", URL: "http://dead.example.com", Name: "down"},
		{ID: "2", URL: "http://live.example.com", Name: "up"},
	}}
	svc := NewRefreshService(store, fetchFromMap(map[string]string{
		"http://live.example.com": "proxies:\n  - name: ProxyA\n",
	}))

	require.NoError(t, svc.RefreshAll(context.Background()))
	assert.Contains(t, store.savedConfig(), "up_ProxyA")
	assert.NotContains(t, store.savedConfig(), "down_")
}

func TestRefreshAllPositionalLabelFallback(t *testing.T) {
	store := &fakeStore{subs: []models.Subscription{
		{ID: "1", URL: "http://named.example.com", Name: "home"},
		{ID: "2", URL: "http://unnamed.example.com"},
	}}
	svc := NewRefreshService(store, fetchFromMap(map[string]string{
		"http://named.example.com":   "proxies:\n  - name: ProxyA\n",
		"http://unnamed.example.com": "proxies:\n  - name: ProxyB\n",
	}))

	require.NoError(t, svc.RefreshAll(context.Background()))
	assert.Contains(t, store.savedConfig(), "home_ProxyA")
	assert.Contains(t, store.savedConfig(), "sub2_ProxyB", "unnamed subscription gets its positional label")
}

func TestRefreshAllAppliesCustomRules(t *testing.T) {
	store := &fakeStore{
		subs:        []models.Subscription{{ID: "1", URL: "http://one.example.com", Name: "sub1"}},
		customRules: "DOMAIN,example.com,DIRECT\n\n",
	}
	svc := NewRefreshService(store, fetchFromMap(map[string]string{
		"http://one.example.com": "rules:\n  - DOMAIN,example.com,ProxyA\n",
	}))

	require.NoError(t, svc.RefreshAll(context.Background()))
	assert.Contains(t, store.savedConfig(), "DOMAIN,example.com,DIRECT")
	assert.NotContains(t, store.savedConfig(), "sub1_ProxyA", "custom rule must win the dedup")
}

func TestMergeURLsDoesNotPersist(t *testing.T) {
	store := &fakeStore{}
	svc := NewRefreshService(store, fetchFromMap(map[string]string{
		"http://a.example.com": "proxies:\n  - name: ProxyA\n",
		"http://b.example.com": "proxies:\n  - name: ProxyA\n",
	}))

	merged, err := svc.MergeURLs(context.Background(), []string{"http://a.example.com", "http://b.example.com"})
	require.NoError(t, err)
	assert.Contains(t, merged, "sub1_ProxyA")
	assert.Contains(t, merged, "sub2_ProxyA")
	assert.Empty(t, store.savedConfig(), "ad-hoc merge must not touch the persisted result")
}

func TestMergeURLsAllFetchesFailed(t *testing.T) {
	svc := NewRefreshService(&fakeStore{}, fetchFromMap(nil))
	_, err := svc.MergeURLs(context.Background(), []string{"http://gone.example.com"})
	require.ErrorIs(t, err, ErrAllFetchesFailed)
}
