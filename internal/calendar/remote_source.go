package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/username/business-calendar/pkg/dateutil"
	"github.com/username/business-calendar/pkg/random"
)

const retryJitterPercent = 20

// holidayListResponse represents an endpoint's JSON body
type holidayListResponse struct {
	Holidays []string `json:"holidays"`
}

// RemoteSource fetches holidays from an additions and a removals endpoint
type RemoteSource struct {
	additionsURL string
	removalsURL  string
	httpClient   *http.Client
	logger       *zap.Logger
	attempts     int
	backoff      time.Duration
}

// NewRemoteSource creates a RemoteSource
func NewRemoteSource(additionsURL, removalsURL string, httpClient *http.Client, logger *zap.Logger) *RemoteSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RemoteSource{
		additionsURL: additionsURL,
		removalsURL:  removalsURL,
		httpClient:   httpClient,
		logger:       logger,
		attempts:     1,
	}
}

// SetRetry makes each endpoint request up to attempts times, waiting
// backoff*attempt (with jitter) between tries. 4xx responses are not retried.
func (s *RemoteSource) SetRetry(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	s.attempts = attempts
	s.backoff = backoff
}

// HolidaysFor fetches the full merged list; the year is not part of the request
func (s *RemoteSource) HolidaysFor(int) (HolidaySet, error) {
	return s.Fetch()
}

// Fetch queries both endpoints and returns additions minus removals
func (s *RemoteSource) Fetch() (HolidaySet, error) {
	var additions, removals HolidaySet

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		additions, err = s.fetchList(ctx, s.additionsURL)
		return err
	})
	g.Go(func() error {
		var err error
		removals, err = s.fetchList(ctx, s.removalsURL)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Failed to fetch remote holidays",
			zap.String("additions_url", s.additionsURL),
			zap.String("removals_url", s.removalsURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	merged := additions.Subtract(removals)

	s.logger.Info("Remote holidays fetched",
		zap.Int("additions", additions.Len()),
		zap.Int("removals", removals.Len()),
		zap.Int("holidays", merged.Len()))

	return merged, nil
}

func (s *RemoteSource) fetchList(ctx context.Context, url string) (HolidaySet, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		set, err := s.fetchListOnce(ctx, url)
		if err == nil {
			return set, nil
		}
		lastErr = err

		if attempt == s.attempts || !retryable(err) {
			break
		}

		s.logger.Warn("Holiday list request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.attempts),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(random.Jitter(s.backoff*time.Duration(attempt), retryJitterPercent)):
		}
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func (s *RemoteSource) fetchListOnce(ctx context.Context, url string) (HolidaySet, error) {
	s.logger.Debug("Fetching holiday list", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holiday list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	var body holidayListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse holiday list from %s: %w", url, err)
	}

	set := make(HolidaySet, len(body.Holidays))
	for _, raw := range body.Holidays {
		date, err := time.Parse(dateutil.DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q from %s: %w", raw, url, err)
		}
		set.Add(date)
	}

	return set, nil
}
