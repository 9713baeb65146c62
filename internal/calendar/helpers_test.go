package calendar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2014, 4, 28, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubEndpoints serves an additions and a removals list and counts requests
type stubEndpoints struct {
	server        *httptest.Server
	additionsHits atomic.Int32
	removalsHits  atomic.Int32
	additionsCode atomic.Int32
}

func newStubEndpoints(t *testing.T, additions, removals []string) *stubEndpoints {
	t.Helper()

	s := &stubEndpoints{}
	s.additionsCode.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/additions", func(w http.ResponseWriter, r *http.Request) {
		s.additionsHits.Add(1)
		if code := int(s.additionsCode.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		writeHolidays(w, additions)
	})
	mux.HandleFunc("/removals", func(w http.ResponseWriter, r *http.Request) {
		s.removalsHits.Add(1)
		writeHolidays(w, removals)
	})

	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *stubEndpoints) AdditionsURL() string { return s.server.URL + "/additions" }
func (s *stubEndpoints) RemovalsURL() string  { return s.server.URL + "/removals" }

func writeHolidays(w http.ResponseWriter, dates []string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(holidayListResponse{Holidays: dates})
}

var (
	defaultAdditions = []string{"2014-07-04", "2014-07-05"}
	defaultRemovals  = []string{"2014-12-24", "2014-12-25"}
)

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
