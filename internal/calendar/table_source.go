package calendar

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
	"go.uber.org/zap"
)

// Jurisdiction is a compiled-in holiday table
type Jurisdiction struct {
	Code     string
	Name     string
	// Holidays are resolved to their actual date; substitute weekdays
	// are not applied.
	Holidays []*cal.Holiday
}

// jurisdictions is the registration map of supported codes
var jurisdictions = map[string]*Jurisdiction{
	"US": {
		Code: "US",
		Name: "United States",
		Holidays: []*cal.Holiday{
			us.NewYear,
			us.MlkDay,
			us.PresidentsDay,
			us.MemorialDay,
			us.Juneteenth,
			us.IndependenceDay,
			us.LaborDay,
			us.ColumbusDay,
			us.VeteransDay,
			us.ThanksgivingDay,
			us.ChristmasDay,
		},
	},
	"GB": {
		Code: "GB",
		Name: "United Kingdom",
		Holidays: []*cal.Holiday{
			gb.NewYear,
			gb.GoodFriday,
			gb.EasterMonday,
			gb.EarlyMay,
			gb.SpringHoliday,
			gb.SummerHoliday,
			gb.ChristmasDay,
			gb.BoxingDay,
		},
	},
}

// LookupJurisdiction resolves a code case-insensitively
func LookupJurisdiction(code string) (*Jurisdiction, error) {
	j, ok := jurisdictions[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCountryNotSupported, code)
	}
	return j, nil
}

// Jurisdictions returns the supported codes in sorted order
func Jurisdictions() []string {
	codes := make([]string, 0, len(jurisdictions))
	for code := range jurisdictions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// TableSource resolves a jurisdiction's holiday rules year by year
type TableSource struct {
	jurisdiction *Jurisdiction
	logger       *zap.Logger
	years        map[int]HolidaySet
	mu           sync.RWMutex
}

// NewTableSource creates a TableSource for j
func NewTableSource(j *Jurisdiction, logger *zap.Logger) *TableSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableSource{
		jurisdiction: j,
		logger:       logger,
		years:        make(map[int]HolidaySet),
	}
}

// HolidaysFor returns the holidays falling in year
func (s *TableSource) HolidaysFor(year int) (HolidaySet, error) {
	if s.jurisdiction == nil {
		return nil, fmt.Errorf("%w: no holiday table configured", ErrSourceUnavailable)
	}

	s.mu.RLock()
	set, ok := s.years[year]
	s.mu.RUnlock()
	if ok {
		return set, nil
	}

	set = s.resolve(year)

	s.mu.Lock()
	s.years[year] = set
	s.mu.Unlock()

	s.logger.Debug("Holiday table resolved",
		zap.String("jurisdiction", s.jurisdiction.Code),
		zap.Int("year", year),
		zap.Int("holidays", set.Len()))

	return set, nil
}

func (s *TableSource) resolve(year int) HolidaySet {
	set := make(HolidaySet, len(s.jurisdiction.Holidays))
	for _, h := range s.jurisdiction.Holidays {
		actual, _ := h.Calc(year)
		// rules outside their start/end years calculate to the zero time
		if actual.IsZero() {
			continue
		}
		set.Add(actual)
	}
	return set
}
