package calendar

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/username/business-calendar/pkg/dateutil"
)

// FileOverrides holds local holiday corrections read from a text file
type FileOverrides struct {
	filePath  string
	logger    *zap.Logger
	additions HolidaySet
	removals  HolidaySet
}

// NewFileOverrides creates a FileOverrides instance; call Load before use
func NewFileOverrides(filePath string, logger *zap.Logger) *FileOverrides {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileOverrides{
		filePath:  filePath,
		logger:    logger,
		additions: make(HolidaySet),
		removals:  make(HolidaySet),
	}
}

// Load loads overrides from file
func (fo *FileOverrides) Load() error {
	file, err := os.Open(fo.filePath)
	if err != nil {
		return fmt.Errorf("failed to open overrides file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Format: YYYY-MM-DD holiday|workday [note]
		// Example: 2014-12-24 holiday Christmas Eve
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return fmt.Errorf("%s:%d: expected 'YYYY-MM-DD holiday|workday [note]'", fo.filePath, lineNo)
		}

		date, err := time.Parse(dateutil.DateLayout, parts[0])
		if err != nil {
			return fmt.Errorf("%s:%d: invalid date %q: %w", fo.filePath, lineNo, parts[0], err)
		}

		switch parts[1] {
		case "holiday":
			fo.additions.Add(date)
			fo.removals.Remove(date)
		case "workday":
			fo.removals.Add(date)
			fo.additions.Remove(date)
		default:
			return fmt.Errorf("%s:%d: unknown day type %q", fo.filePath, lineNo, parts[1])
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading overrides file: %w", err)
	}

	fo.logger.Info("Holiday overrides loaded",
		zap.String("file", fo.filePath),
		zap.Int("holidays", fo.additions.Len()),
		zap.Int("workdays", fo.removals.Len()))

	return nil
}

// Apply returns base with the file's holidays added and workdays removed
func (fo *FileOverrides) Apply(base HolidaySet) HolidaySet {
	merged := make(HolidaySet, base.Len()+fo.additions.Len())
	for d := range base {
		merged[d] = struct{}{}
	}
	for d := range fo.additions {
		merged[d] = struct{}{}
	}
	return merged.Subtract(fo.removals)
}
