package calendar

import (
	"go.uber.org/zap"
)

// CompositeSource layers local overrides over another source.
// Errors from the primary source are returned as is; there is no fallback.
type CompositeSource struct {
	primary   HolidaySource
	overrides *FileOverrides
	logger    *zap.Logger
}

// NewCompositeSource creates a CompositeSource
func NewCompositeSource(primary HolidaySource, overrides *FileOverrides, logger *zap.Logger) *CompositeSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositeSource{
		primary:   primary,
		overrides: overrides,
		logger:    logger,
	}
}

// HolidaysFor returns the primary holidays with overrides applied
func (cs *CompositeSource) HolidaysFor(year int) (HolidaySet, error) {
	base, err := cs.primary.HolidaysFor(year)
	if err != nil {
		return nil, err
	}
	return cs.overrides.Apply(base), nil
}
