package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"submerger/logger"
	"submerger/models"
	"sync"
)

// Store is the persistence surface the refresh pipeline needs. The sqlite
// layer satisfies it; tests substitute fakes.
type Store interface {
	GetAllSubscriptions() ([]models.Subscription, error)
	GetCustomRules() (string, error)
	SaveMergedConfig(content string) error
}

// FetchFunc resolves a subscription URL to its raw document text.
type FetchFunc func(ctx context.Context, url string) (string, error)

var (
	ErrNoSubscriptions  = errors.New("no subscriptions to merge")
	ErrAllFetchesFailed = errors.New("failed to fetch any valid subscriptions")
)

// RefreshService drives the fetch-all, merge, persist pipeline. Scheduled and
// manual refreshes share one instance; the mutex serializes them so they
// cannot race on the persisted output.
type RefreshService struct {
	store Store
	fetch FetchFunc
	mu    sync.Mutex
}

func NewRefreshService(store Store, fetch FetchFunc) *RefreshService {
	return &RefreshService{store: store, fetch: fetch}
}

// RefreshAll fetches every stored subscription, merges the results with the
// stored custom rules and persists the merged document. Individual fetch
// failures only drop that source.
func (s *RefreshService) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.store.GetAllSubscriptions()
	if err != nil {
		return fmt.Errorf("loading subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return ErrNoSubscriptions
	}

	urls := make([]string, len(subs))
	labels := make([]string, len(subs))
	for i, sub := range subs {
		urls[i] = sub.URL
		labels[i] = sub.Name
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("sub%d", i+1)
		}
	}

	configs, err := s.fetchAll(ctx, urls, labels)
	if err != nil {
		return err
	}

	merged, err := s.mergeWithCustomRules(configs)
	if err != nil {
		return err
	}
	if err := s.store.SaveMergedConfig(merged); err != nil {
		return fmt.Errorf("persisting merged config: %w", err)
	}
	logger.Info("Merged %d of %d subscriptions.", len(configs), len(subs))
	return nil
}

// MergeURLs fetches an ad-hoc list of URLs and returns the merged document
// without touching the persisted result. Labels are positional.
func (s *RefreshService) MergeURLs(ctx context.Context, urls []string) (string, error) {
	labels := make([]string, len(urls))
	for i := range urls {
		labels[i] = fmt.Sprintf("sub%d", i+1)
	}
	configs, err := s.fetchAll(ctx, urls, labels)
	if err != nil {
		return "", err
	}
	return s.mergeWithCustomRules(configs)
}

// fetchAll downloads every URL concurrently. One failed fetch never cancels
// the others; the error is only returned when nothing could be fetched.
func (s *RefreshService) fetchAll(ctx context.Context, urls, labels []string) ([]SourceConfig, error) {
	type fetchResult struct {
		content string
		err     error
	}
	results := make([]fetchResult, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			content, err := s.fetch(ctx, url)
			results[i] = fetchResult{content: content, err: err}
		}(i, url)
	}
	wg.Wait()

	var configs []SourceConfig
	for i, res := range results {
		if res.err != nil {
			logger.Error("Error fetching %s: %v", urls[i], res.err)
			continue
		}
		configs = append(configs, SourceConfig{Content: res.content, Label: labels[i]})
	}
	if len(configs) == 0 {
		return nil, ErrAllFetchesFailed
	}
	return configs, nil
}

func (s *RefreshService) mergeWithCustomRules(configs []SourceConfig) (string, error) {
	rulesText, err := s.store.GetCustomRules()
	if err != nil {
		return "", fmt.Errorf("loading custom rules: %w", err)
	}
	var customRules []string
	for _, line := range strings.Split(rulesText, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			customRules = append(customRules, line)
		}
	}
	return Merge(configs, customRules)
}
