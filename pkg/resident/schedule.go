package resident

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule produces a strictly increasing sequence of tick times.
// Next returns the zero time when there are no further ticks.
//
// cron.Schedule from robfig/cron satisfies this interface.
type Schedule interface {
	Next(t time.Time) time.Time
}

var ErrNoSchedule = errors.New("schedule required")

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSchedule parses a cron expression or a fixed interval.
//
// Supported forms:
//   - Cron: "*/10 * * * * *", "0 15,45 * * * *", "*/5 * * * *", "@hourly", "@every 55m"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//
// Optional prefixes:
//   - "cron:" forces cron parsing
//   - "interval:" or "every:" forces interval parsing
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ErrNoSchedule
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		return parseEvery(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return parseEvery(s[len("every:"):])
	}

	// Heuristics: any whitespace or leading '@' => cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}
	if sched, err := parseEvery(s); err == nil {
		return sched, nil
	}
	return nil, fmt.Errorf(
		"invalid schedule %q (use cron like '*/10 * * * * *', HH:MM like '02:30', or duration like '55m')",
		raw,
	)
}

// MustParseSchedule is ParseSchedule for package-level literals.
func MustParseSchedule(raw string) Schedule {
	s, err := ParseSchedule(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func parseCron(expr string) (Schedule, error) {
	if expr == "" {
		return nil, ErrNoSchedule
	}
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return s, nil
}

func parseEvery(v string) (Schedule, error) {
	d, err := parseInterval(v)
	if err != nil {
		return nil, err
	}
	return cron.Every(d), nil
}

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); len(m) == 3 {
		var hh int
		for i := 0; i < len(m[1]); i++ {
			hh = hh*10 + int(m[1][i]-'0')
		}
		mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
		if mm > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return 0, fmt.Errorf("interval must be > 0")
		}
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '55m'/'2h30m')", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

// Until stops a schedule after the given instant: ticks after until are dropped.
func Until(s Schedule, until time.Time) Schedule {
	return boundedSchedule{base: s, until: until}
}

type boundedSchedule struct {
	base  Schedule
	until time.Time
}

func (b boundedSchedule) Next(t time.Time) time.Time {
	n := b.base.Next(t)
	if n.IsZero() || n.After(b.until) {
		return time.Time{}
	}
	return n
}

// PreviewNext returns up to n upcoming ticks after from.
func PreviewNext(s Schedule, from time.Time, n int) []time.Time {
	if s == nil || n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = s.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}
