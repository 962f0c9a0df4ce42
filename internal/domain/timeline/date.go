package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a raw date expression cannot be resolved.
var ErrInvalidDate = errors.New("invalid date format")

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses the canonical YYYY-MM-DD form used as store filter key.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		// store values may carry a time component (2025-06-01T00:00:00.000Z)
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday { return d.Time(time.UTC).Weekday() }

func (d Date) AddDays(n int) Date { return DateOf(d.Time(time.UTC).AddDate(0, 0, n)) }

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) valid() bool {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return d.Month >= time.January && d.Month <= time.December && DateOf(t) == d
}

var relativeDays = map[string]int{
	"today":                  0,
	"heute":                  0,
	"tomorrow":               1,
	"morgen":                 1,
	"day-after-tomorrow":     2,
	"day after tomorrow":     2,
	"the day after tomorrow": 2,
	"übermorgen":             2,
	"uebermorgen":            2,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "sonntag": time.Sunday, "so": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "montag": time.Monday, "mo": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday, "dienstag": time.Tuesday, "di": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "mittwoch": time.Wednesday, "mi": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday, "donnerstag": time.Thursday, "do": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "freitag": time.Friday, "fr": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "samstag": time.Saturday, "sonnabend": time.Saturday, "sa": time.Saturday,
}

var fillerPrefixes = []string{"next ", "this ", "on ", "nächsten ", "naechsten ", "nächster ", "kommenden ", "am "}

// Normalize resolves a raw date expression against today into a canonical
// date that is never before today. Weekday names resolve to the next
// occurrence, 1 to 7 days ahead.
func Normalize(raw string, today time.Time) (Date, error) {
	ref := DateOf(today)
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ",;!?")
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if n, ok := relativeDays[s]; ok {
		return ref.AddDays(n), nil
	}

	word := s
	for _, p := range fillerPrefixes {
		word = strings.TrimPrefix(word, p)
	}
	if wd, ok := weekdays[strings.TrimSuffix(word, ".")]; ok {
		return nextWeekday(ref, wd), nil
	}

	d, err := parseNumeric(s, ref.Year)
	if err != nil {
		return Date{}, err
	}
	return rollForward(d, ref), nil
}

func nextWeekday(ref Date, wd time.Weekday) Date {
	diff := (int(wd) - int(ref.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return ref.AddDays(diff)
}

// parseNumeric accepts YYYY-MM-DD (optionally followed by a time component),
// YYYY/MM/DD and day-first D.M[.YYYY] or D/M[/YYYY].
func parseNumeric(s string, refYear int) (Date, error) {
	if i := strings.IndexAny(s, "t "); i == 10 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".")

	var parts []string
	switch {
	case strings.Contains(s, "-"):
		parts = strings.Split(s, "-")
	case strings.Contains(s, "."):
		parts = strings.Split(s, ".")
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	nums := make([]int, 0, 3)
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums = append(nums, n)
	}

	var d Date
	yearGiven := true
	switch {
	case len(nums) == 3 && len(strings.TrimSpace(parts[0])) == 4:
		d = Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}
	case len(nums) == 3 && !strings.Contains(s, "-"):
		y := nums[2]
		if y < 100 {
			y += 2000
		}
		d = Date{Year: y, Month: time.Month(nums[1]), Day: nums[0]}
	case len(nums) == 2 && !strings.Contains(s, "-"):
		d = Date{Year: refYear, Month: time.Month(nums[1]), Day: nums[0]}
		yearGiven = false
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	check := d
	if !yearGiven {
		// Feb 29 without a year is a real date; rollForward lands it on a leap year.
		check.Year = 2000
	}
	if !check.valid() {
		return Date{}, fmt.Errorf("%w: no such day %q", ErrInvalidDate, s)
	}
	return d, nil
}

// rollForward moves d forward a year at a time until it is a real date on or
// after ref.
func rollForward(d, ref Date) Date {
	if d.Year < ref.Year {
		d.Year = ref.Year
	}
	for !d.valid() || d.Before(ref) {
		d.Year++
	}
	return d
}
