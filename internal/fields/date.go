package fields

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/docforge/internal/common"
	"github.com/joseph-ayodele/docforge/internal/schema"
)

const (
	DefaultDateFormat = "YYYY-MM-DD"
	isoLayout         = "2006-01-02"

	errInvalidDateFormat = "invalid date format"
)

var formatTokens = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
)

// GoLayout converts a YYYY/MM/DD (or %Y/%m/%d) date format into a time layout.
func GoLayout(format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	return formatTokens.Replace(format)
}

// ParseYMD parses a YYYY-MM-DD date at midnight UTC.
func ParseYMD(s string) (time.Time, error) {
	return parseDate(isoLayout, s)
}

func parseDate(layout, s string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DateProcessor parses a date using spec.Format and returns
// {value, year, month, day, formatted}, or {value, error} when it cannot.
type DateProcessor struct{}

func (DateProcessor) Process(value any, spec schema.FieldSpec) (any, *common.ValidationError) {
	var (
		t   time.Time
		err error
	)
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		t, err = parseDate(GoLayout(spec.Format), v)
	default:
		err = fmt.Errorf("unsupported type %T", value)
	}
	if err != nil {
		return map[string]any{
			"value": value,
			"error": errInvalidDateFormat,
		}, issue(value, errInvalidDateFormat)
	}
	return map[string]any{
		"value":     value,
		"year":      t.Year(),
		"month":     int(t.Month()),
		"day":       t.Day(),
		"formatted": t.Format(isoLayout),
	}, nil
}

var dateRangePattern = regexp.MustCompile(`^\s*(\S+)\s*~\s*(\S+)\s*$`)

// DateRangeProcessor handles "<date> ~ <date>". A reversed range is reported
// but still returned.
type DateRangeProcessor struct{}

func (DateRangeProcessor) Process(value any, _ schema.FieldSpec) (any, *common.ValidationError) {
	s, ok := value.(string)
	if !ok {
		return map[string]any{"value": value}, issue(value, "not a date range string")
	}
	m := dateRangePattern.FindStringSubmatch(s)
	if m == nil {
		return map[string]any{"value": value}, issue(value, `expected "<date> ~ <date>"`)
	}

	start, errStart := ParseYMD(m[1])
	end, errEnd := ParseYMD(m[2])
	if errStart != nil || errEnd != nil {
		return map[string]any{
			"value": value,
			"error": errInvalidDateFormat,
		}, issue(value, errInvalidDateFormat)
	}

	var problem *common.ValidationError
	if end.Before(start) {
		problem = issue(value, "end date is before start date")
	}
	startStr, endStr := start.Format(isoLayout), end.Format(isoLayout)
	return map[string]any{
		"value":     value,
		"startDate": startStr,
		"endDate":   endStr,
		"formatted": startStr + " ~ " + endStr,
	}, problem
}
