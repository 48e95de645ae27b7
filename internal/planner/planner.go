// Package planner expands a backfill specification string into concrete
// (year, month) work items.
package planner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// earliestYear is the first year of trip data the warehouse supports; the
// "all" specification starts here.
const earliestYear = 2020

// Month identifies one backfill unit.
type Month struct {
	Year  int
	Month int
}

// String renders the month in YYYY-MM form, matching the backfill
// specification syntax and the trip file naming convention.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m Month) before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Plan parses a backfill specification and returns a deduplicated,
// ascending-sorted set of months. Supported forms:
//
//	all              every month from 2020-01 through the current month
//	last_N_months    the N most recent months (30-day steps back from now)
//	2024-01,2024-02  explicit comma-separated months
//	2024-01          a single explicit month
//
// Malformed entries are logged and skipped; an empty specification yields an
// empty plan, which callers treat as "nothing to do".
func Plan(spec string, now time.Time, log zerolog.Logger) []Month {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	var months []Month
	switch {
	case spec == "all":
		months = allMonths(now)
	case strings.HasPrefix(spec, "last_") && strings.HasSuffix(spec, "_months"):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(spec, "last_"), "_months"))
		if err != nil || n <= 0 {
			log.Warn().Str("spec", spec).Msg("invalid last_N_months specification, skipping")
			return nil
		}
		months = lastNMonths(n, now)
	default:
		for _, token := range strings.Split(spec, ",") {
			m, err := parseMonth(strings.TrimSpace(token))
			if err != nil {
				log.Warn().Str("token", token).Err(err).Msg("skipping malformed backfill month")
				continue
			}
			months = append(months, m)
		}
	}

	return normalize(months)
}

// Window returns the supported pickup-date window: from the start of the
// earliest supported year up to, exclusive, the first day of the month
// after now. Facts with pickup dates outside the window are quarantined.
func Window(now time.Time) (min, max time.Time) {
	min = time.Date(earliestYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	max = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return min, max
}

func parseMonth(token string) (Month, error) {
	if token == "" {
		return Month{}, fmt.Errorf("parseMonth: empty token")
	}
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("parseMonth: %q is not YYYY-MM", token)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 2000 || year > 2100 {
		return Month{}, fmt.Errorf("parseMonth: invalid year in %q", token)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("parseMonth: invalid month in %q", token)
	}
	return Month{Year: year, Month: month}, nil
}

func allMonths(now time.Time) []Month {
	var out []Month
	for y := earliestYear; y <= now.Year(); y++ {
		lastMonth := 12
		if y == now.Year() {
			lastMonth = int(now.Month())
		}
		for m := 1; m <= lastMonth; m++ {
			out = append(out, Month{Year: y, Month: m})
		}
	}
	return out
}

// lastNMonths walks back from now in 30-day steps, so month boundaries
// are approximate.
func lastNMonths(n int, now time.Time) []Month {
	out := make([]Month, 0, n)
	for i := 0; i < n; i++ {
		t := now.AddDate(0, 0, -30*i)
		out = append(out, Month{Year: t.Year(), Month: int(t.Month())})
	}
	return out
}

func normalize(months []Month) []Month {
	seen := make(map[Month]struct{}, len(months))
	out := make([]Month, 0, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	return out
}
