package timefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
)

// Spoken is a timestamp recovered from a transcript of an announcement.
type Spoken struct {
	Time            time.Time
	Weekday         string // as heard, lower case; empty if none was spoken
	WeekdayMismatch bool   // heard weekday disagrees with the date
	Extra           []string
}

// Stamp renders the archive stamp of the recovered time.
func (s Spoken) Stamp() string { return Stamp(s.Time) }

var (
	weekdays = wordIndex("sunday monday tuesday wednesday thursday friday saturday")
	months   = wordIndex("january february march april may june july august september october november december")

	dateWord   = regexp.MustCompile(`(?i)\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday|january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	digitClock = regexp.MustCompile(`(\d{1,2})\s*[:.h]\s*(\d{2})(?:\s*[:.]\s*(\d{2}))?`)
	punct      = regexp.MustCompile(`[.,;!?"]`)
	ordinalNum = regexp.MustCompile(`^(\d{1,2})(st|nd|rd|th)?$`)

	ones = wordIndex("zero one two three four five six seven eight nine ten eleven twelve " +
		"thirteen fourteen fifteen sixteen seventeen eighteen nineteen")
	tens = map[string]int{
		"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
		"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	}

	ordinalWords = wordIndex("zeroth first second third fourth fifth sixth seventh eighth ninth tenth " +
		"eleventh twelfth thirteenth fourteenth fifteenth sixteenth seventeenth eighteenth nineteenth")
	ordinalTens = map[string]int{"twentieth": 20, "thirtieth": 30}

	timeFiller = map[string]bool{
		"hundred": true, "hour": true, "hours": true, "o'clock": true, "oclock": true,
		"and": true, "minute": true, "minutes": true, "second": true, "seconds": true,
		"zulu": true, "utc": true, "gmt": true, "at": true, "it's": true, "its": true, "is": true,
	}
)

func wordIndex(s string) map[string]int {
	m := make(map[string]int)
	for i, w := range strings.Fields(s) {
		if _, dup := m[w]; !dup {
			m[w] = i
		}
	}
	return m
}

// ParseSpoken recovers a timestamp from recognised speech of an
// announcement such as "16:30 zulu. Sunday. October 16, 2026". Numbers may
// be digits or English words; the time part comes before the first weekday
// or month name and the date part after it. Unparsed words are returned in
// Extra.
func ParseSpoken(text string) (Spoken, error) {
	loc := dateWord.FindStringIndex(text)
	if loc == nil {
		return Spoken{}, fmt.Errorf("%w: no month or weekday in %q", domain.ErrNoTimestamp, text)
	}
	var out Spoken

	hour, minute, second, extra, err := parseClock(text[:loc[0]])
	if err != nil {
		return Spoken{}, err
	}
	out.Extra = append(out.Extra, extra...)

	year, month, day, weekday, extra, err := parseDate(text[loc[0]:])
	if err != nil {
		return Spoken{}, err
	}
	out.Extra = append(out.Extra, extra...)

	if hour > 23 || minute > 59 || second > 59 {
		return Spoken{}, fmt.Errorf("%w: time %02d:%02d:%02d out of range", domain.ErrNoTimestamp, hour, minute, second)
	}
	out.Time = time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if out.Time.Day() != day {
		return Spoken{}, fmt.Errorf("%w: %s has no day %d", domain.ErrNoTimestamp, time.Month(month), day)
	}
	out.Weekday = weekday
	if weekday != "" && strings.ToLower(out.Time.Weekday().String()) != weekday {
		out.WeekdayMismatch = true
	}
	return out, nil
}

func tokens(s string) []string {
	s = strings.ToLower(punct.ReplaceAllString(s, " "))
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Fields(s)
}

func parseClock(s string) (hour, minute, second int, extra []string, err error) {
	if m := digitClock.FindStringSubmatchIndex(s); m != nil {
		hour, _ = strconv.Atoi(s[m[2]:m[3]])
		minute, _ = strconv.Atoi(s[m[4]:m[5]])
		if m[6] >= 0 {
			second, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		extra = append(tokens(s[:m[0]]), tokens(s[m[1]:])...)
		return hour, minute, second, dropFiller(extra), nil
	}

	var nums []int
	toks := tokens(s)
	for i := 0; i < len(toks); i++ {
		w := toks[i]
		switch {
		case w == "oh" || w == "o":
			// "nine oh five": the next word is a single digit minute.
			if i+1 < len(toks) {
				if v, ok := ones[toks[i+1]]; ok && v < 10 {
					nums = append(nums, v)
					i++
					continue
				}
			}
			nums = append(nums, 0)
		case isDigits(w):
			v, _ := strconv.Atoi(w)
			nums = append(nums, v)
		case tens[w] > 0:
			v := tens[w]
			if i+1 < len(toks) {
				if o, ok := ones[toks[i+1]]; ok && o > 0 && o < 10 {
					v += o
					i++
				}
			}
			nums = append(nums, v)
		case hasKey(ones, w):
			nums = append(nums, ones[w])
		case timeFiller[w]:
		default:
			extra = append(extra, w)
		}
	}
	if len(nums) < 2 {
		return 0, 0, 0, nil, fmt.Errorf("%w: no hour and minute in %q", domain.ErrNoTimestamp, strings.TrimSpace(s))
	}
	hour, minute = nums[0], nums[1]
	if len(nums) > 2 {
		second = nums[2]
	}
	return hour, minute, second, extra, nil
}

func dropFiller(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if !timeFiller[w] {
			out = append(out, w)
		}
	}
	return out
}

func parseDate(s string) (year, month, day int, weekday string, extra []string, err error) {
	toks := tokens(s)

	if len(toks) > 0 && hasKey(weekdays, toks[0]) {
		weekday, toks = toks[0], toks[1:]
	}
	if len(toks) == 0 || !hasKey(months, toks[0]) {
		return 0, 0, 0, "", nil, fmt.Errorf("%w: no month name in %q", domain.ErrNoTimestamp, strings.TrimSpace(s))
	}
	month, toks = months[toks[0]]+1, toks[1:]

	day, toks, err = popDay(toks)
	if err != nil {
		return 0, 0, 0, "", nil, err
	}

	// A weekday may also sit between the day and the year.
	if len(toks) > 0 && hasKey(weekdays, toks[0]) {
		weekday, toks = toks[0], toks[1:]
	}

	year, toks, err = popYear(toks)
	if err != nil {
		return 0, 0, 0, "", nil, err
	}
	return year, month, day, weekday, toks, nil
}

func popDay(toks []string) (int, []string, error) {
	if len(toks) == 0 {
		return 0, nil, fmt.Errorf("%w: missing day of month", domain.ErrNoTimestamp)
	}
	day := -1
	n := 1
	w := toks[0]
	switch {
	case ordinalNum.MatchString(w):
		day, _ = strconv.Atoi(ordinalNum.FindStringSubmatch(w)[1])
	case ordinalTens[w] > 0:
		day = ordinalTens[w]
	case hasKey(ordinalWords, w):
		day = ordinalWords[w]
	case tens[w] > 0 && len(toks) > 1 && ordinalWords[toks[1]] > 0 && ordinalWords[toks[1]] < 10:
		day, n = tens[w]+ordinalWords[toks[1]], 2
	case tens[w] > 0 && len(toks) > 1 && ones[toks[1]] > 0 && ones[toks[1]] < 10:
		day, n = tens[w]+ones[toks[1]], 2
	case tens[w] > 0:
		day = tens[w]
	case hasKey(ones, w):
		day = ones[w]
	}
	if day < 1 || day > 31 {
		return 0, nil, fmt.Errorf("%w: day of month %q out of range", domain.ErrNoTimestamp, w)
	}
	return day, toks[n:], nil
}

func popYear(toks []string) (int, []string, error) {
	if len(toks) == 0 {
		return 0, nil, fmt.Errorf("%w: missing year", domain.ErrNoTimestamp)
	}
	if isDigits(toks[0]) {
		y, _ := strconv.Atoi(toks[0])
		if y < 1900 || y > 2999 {
			return 0, nil, fmt.Errorf("%w: year %d out of range", domain.ErrNoTimestamp, y)
		}
		return y, toks[1:], nil
	}

	if toks[0] == "two" && len(toks) > 1 && toks[1] == "thousand" {
		rest := toks[2:]
		if len(rest) > 0 && rest[0] == "and" {
			rest = rest[1:]
		}
		lo, after, ok := popDoublet(rest)
		if !ok {
			return 2000, rest, nil
		}
		return 2000 + lo, after, nil
	}

	// Spoken as two doublets: "twenty twenty six", "nineteen ninety nine".
	hi, rest, ok := popDoublet(toks)
	if !ok || (hi != 19 && hi != 20) {
		return 0, nil, fmt.Errorf("%w: no year in %q", domain.ErrNoTimestamp, strings.Join(toks, " "))
	}
	lo, rest, ok := popDoublet(rest)
	if !ok {
		return 0, nil, fmt.Errorf("%w: incomplete year after %d", domain.ErrNoTimestamp, hi)
	}
	return hi*100 + lo, rest, nil
}

func popDoublet(toks []string) (int, []string, bool) {
	if len(toks) == 0 {
		return 0, toks, false
	}
	w := toks[0]
	if w == "oh" && len(toks) > 1 && ones[toks[1]] < 10 && hasKey(ones, toks[1]) {
		return ones[toks[1]], toks[2:], true
	}
	if t := tens[w]; t > 0 {
		if len(toks) > 1 {
			if o, ok := ones[toks[1]]; ok && o > 0 && o < 10 {
				return t + o, toks[2:], true
			}
		}
		return t, toks[1:], true
	}
	if v, ok := ones[w]; ok {
		return v, toks[1:], true
	}
	return 0, toks, false
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
