package postprocess

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docforge/internal/fields"
)

// DurationCalculator annotates every top-level date range that carries
// startDate and endDate with totalDays (inclusive) and businessDays
// (weekdays only).
type DurationCalculator struct {
	logger *slog.Logger
}

func (c *DurationCalculator) Process(_ context.Context, data map[string]any) (map[string]any, error) {
	for key, v := range data {
		rng, ok := v.(map[string]any)
		if !ok {
			continue
		}
		startRaw, okS := rng["startDate"].(string)
		endRaw, okE := rng["endDate"].(string)
		if !okS || !okE {
			continue
		}
		start, err := fields.ParseYMD(startRaw)
		if err != nil {
			c.logger.Warn("duration.unparsable", "field", key, "start", startRaw)
			continue
		}
		end, err := fields.ParseYMD(endRaw)
		if err != nil {
			c.logger.Warn("duration.unparsable", "field", key, "end", endRaw)
			continue
		}
		if end.Before(start) {
			c.logger.Warn("duration.reversed", "field", key, "start", startRaw, "end", endRaw)
			continue
		}
		total, business := DaysBetween(start, end)
		rng["totalDays"] = total
		rng["businessDays"] = business
	}
	return data, nil
}

// DaysBetween counts the calendar days and the Monday-to-Friday days in the
// inclusive range [start, end].
func DaysBetween(start, end time.Time) (total, business int) {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		total++
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			business++
		}
	}
	return total, business
}
