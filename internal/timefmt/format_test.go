package timefmt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
)

func TestRenderExample(t *testing.T) {
	p := FromMap(map[string]string{"hour": "16", "minute": "30", "weekday": "Sunday"})
	got := Render("${hour}:${minute} zulu. ${weekday}.", p)
	if want := "16:30 zulu. Sunday."; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderUnknownKeys(t *testing.T) {
	p := FromMap(map[string]string{"hour": "07"})

	tests := []struct {
		tmpl string
		want string
	}{
		{"${hour}", "07"},
		{"${hours}", "[unknown key: hours]"},
		{"${}", "[unknown key: ]"},
		{"at ${hour} and ${minute}", "at 07 and [unknown key: minute]"},
		{"no placeholders", "no placeholders"},
		{"$hour {hour}", "$hour {hour}"},
		{"${hour}${hour}", "0707"},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			if got := Render(tt.tmpl, p); got != tt.want {
				t.Fatalf("Render(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestPartsFixedUTC(t *testing.T) {
	// 18:30:05.042 in UTC+2 is 16:30:05.042Z.
	zone := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2026, time.October, 18, 18, 30, 5, 42_000_000, zone)
	f := New(WithClock(func() time.Time { return at }))

	p := f.Now()
	want := map[string]string{
		PartWeekday:          "Sunday",
		PartMonth:            "October",
		PartDay:              "18",
		PartYear:             "2026",
		PartHour:             "16",
		PartMinute:           "30",
		PartSecond:           "05",
		PartFractionalSecond: "042",
		PartLiteral:          ".",
	}
	for k, v := range want {
		if got, _ := p.Lookup(k); got != v {
			t.Errorf("part %s = %q, want %q", k, got, v)
		}
	}
	if p.At.Location() != time.UTC {
		t.Errorf("parts not in UTC: %v", p.At.Location())
	}

	got := Render(DefaultTemplate, p)
	if wantStr := "16:30 zulu. Sunday. October 18, 2026"; got != wantStr {
		t.Fatalf("default template = %q, want %q", got, wantStr)
	}

	var joined string
	for _, part := range p.Order {
		joined += part.Value
	}
	if joined != "Sunday, October 18, 2026 at 16:30:05.042" {
		t.Fatalf("ordered parts = %q", joined)
	}
}

func TestPartsJSON(t *testing.T) {
	p := New().Parts(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["hour"] != "03" || m["day"] != "2" || m["weekday"] != "Friday" {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestStamp(t *testing.T) {
	at := time.Date(2026, time.October, 16, 16, 30, 5, 0, time.UTC)
	if got := Stamp(at); got != "20261016-163005-Fri" {
		t.Fatalf("Stamp = %q", got)
	}
}

func TestParseSpoken(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     time.Time
		mismatch bool
		extra    int
	}{
		{
			name: "digits, default template",
			text: "16:30 zulu. Sunday. October 18, 2026.",
			want: time.Date(2026, 10, 18, 16, 30, 0, 0, time.UTC),
		},
		{
			name: "seconds and ordinal",
			text: "09:05:59 Friday, October 16th 2026",
			want: time.Date(2026, 10, 16, 9, 5, 59, 0, time.UTC),
		},
		{
			name: "words",
			text: "nineteen thirty eight, Wednesday. May nineteenth, twenty twenty one",
			want: time.Date(2021, 5, 19, 19, 38, 0, 0, time.UTC),
		},
		{
			name: "oh minute and compound day",
			text: "nine oh five hours march twenty first two thousand and nine",
			want: time.Date(2009, 3, 21, 9, 5, 0, 0, time.UTC),
		},
		{
			name:     "weekday disagrees",
			text:     "16:30 zulu. Sunday. October 16, 2026.",
			want:     time.Date(2026, 10, 16, 16, 30, 0, 0, time.UTC),
			mismatch: true,
		},
		{
			name:  "trailing note",
			text:  "16:30 zulu. Sunday. October 18, 2026. take two",
			want:  time.Date(2026, 10, 18, 16, 30, 0, 0, time.UTC),
			extra: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpoken(tt.text)
			if err != nil {
				t.Fatalf("ParseSpoken: %v", err)
			}
			if !got.Time.Equal(tt.want) {
				t.Fatalf("time = %v, want %v", got.Time, tt.want)
			}
			if got.WeekdayMismatch != tt.mismatch {
				t.Fatalf("mismatch = %v, want %v", got.WeekdayMismatch, tt.mismatch)
			}
			if len(got.Extra) != tt.extra {
				t.Fatalf("extra = %q, want %d words", got.Extra, tt.extra)
			}
		})
	}
}

func TestParseSpokenErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"just some music",
		"16:30 zulu. October",
		"October 40, 2026",
		"16:30 February 30, 2026",
		"25:10 October 16, 2026",
		"16:30 October 16, 1200",
	} {
		t.Run(text, func(t *testing.T) {
			if _, err := ParseSpoken(text); !errors.Is(err, domain.ErrNoTimestamp) {
				t.Fatalf("expected ErrNoTimestamp, got %v", err)
			}
		})
	}
}
