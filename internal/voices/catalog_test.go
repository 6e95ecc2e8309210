package voices

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

// fakeSource serves a replaceable voice list.
type fakeSource struct {
	mu     sync.Mutex
	voices []domain.Voice
	err    error
	calls  int
}

func (f *fakeSource) Voices(context.Context) ([]domain.Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]domain.Voice(nil), f.voices...), f.err
}

func (f *fakeSource) set(v []domain.Voice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = v
}

func ids(vs []domain.Voice) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

var (
	enUS = domain.Voice{ID: "us", Name: "Aria", Lang: "en-US"}
	enGB = domain.Voice{ID: "gb", Name: "Libby", Lang: "en-GB"}
	frFR = domain.Voice{ID: "fr", Name: "Denise", Lang: "fr-FR"}
)

func TestPartition(t *testing.T) {
	frDefault := frFR
	frDefault.Default = true

	tests := []struct {
		name      string
		voices    []domain.Voice
		preferred []string
		defaults  []string
		others    []string
	}{
		{"region exact", []domain.Voice{enUS, enGB, frFR}, []string{"en-US"}, []string{"us"}, []string{"gb", "fr"}},
		{"host default appended", []domain.Voice{enUS, enGB, frDefault}, []string{"en-US"}, []string{"us", "fr"}, []string{"gb"}},
		{"bare language prefix", []domain.Voice{frFR, enGB, enUS}, []string{"en"}, []string{"gb", "us"}, []string{"fr"}},
		{"preference order", []domain.Voice{enUS, enGB, frFR}, []string{"fr-FR", "en-GB"}, []string{"fr", "gb"}, []string{"us"}},
		{"underscore and case", []domain.Voice{{ID: "x", Lang: "EN_us"}}, []string{"en-US"}, []string{"x"}, nil},
		{"no match", []domain.Voice{enGB}, []string{"de-DE"}, nil, []string{"gb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Partition(tt.voices, tt.preferred)
			if got := ids(g.Defaults); !reflect.DeepEqual(got, nonNil(tt.defaults)) {
				t.Fatalf("defaults = %v, want %v", got, tt.defaults)
			}
			if got := ids(g.Others); !reflect.DeepEqual(got, nonNil(tt.others)) {
				t.Fatalf("others = %v, want %v", got, tt.others)
			}
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func TestRefreshKeepsIndexUnvalidated(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := &fakeSource{voices: []domain.Voice{enUS, enGB, frFR}}
	changes := 0
	c := New(src, log, WithPreferred([]string{"en-US"}), WithOnChange(func() { changes++ }))

	if c.SelectedIndex() != -1 {
		t.Fatalf("empty catalog index = %d", c.SelectedIndex())
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.SelectedIndex() != 0 {
		t.Fatalf("index after first refresh = %d, want 0", c.SelectedIndex())
	}
	if v, ok := c.Selected(); !ok || v.ID != "us" {
		t.Fatalf("selected = %+v", v)
	}

	if _, err := c.Select(2); err != nil {
		t.Fatal(err)
	}

	// The list shrinks; the index is carried over as is.
	src.set([]domain.Voice{enUS})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.SelectedIndex() != 2 {
		t.Fatalf("index = %d, want 2 carried over", c.SelectedIndex())
	}
	if _, ok := c.Selected(); ok {
		t.Fatal("stale index should not resolve to a voice")
	}

	src.set(nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.SelectedIndex() != -1 {
		t.Fatalf("empty list index = %d, want -1", c.SelectedIndex())
	}
	if changes != 3 {
		t.Fatalf("onChange fired %d times, want 3", changes)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := New(&fakeSource{voices: []domain.Voice{enUS}}, log)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Select(5); !errors.Is(err, domain.ErrNoVoice) {
		t.Fatalf("expected ErrNoVoice, got %v", err)
	}
	if c.SelectedIndex() != 0 {
		t.Fatal("failed select changed the index")
	}
}

func TestRefreshErrorKeepsCatalog(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := &fakeSource{voices: []domain.Voice{enUS}}
	c := New(src, log)
	_ = c.Refresh(context.Background())

	src.err = errors.New("backend down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if c.Groups().Len() != 1 {
		t.Fatal("catalog lost on error")
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	src := &fakeSource{voices: []domain.Voice{enUS}}
	rebuilt := make(chan struct{}, 8)
	c := New(src, log, WithOnChange(func() { rebuilt <- struct{}{} }))
	_ = c.Refresh(context.Background())
	<-rebuilt

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Watch(ctx, 5*time.Millisecond)

	src.set([]domain.Voice{enUS, enGB})
	select {
	case <-rebuilt:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not rebuild")
	}
	if c.Groups().Len() != 2 {
		t.Fatalf("len = %d", c.Groups().Len())
	}

	// An unchanged list does not trigger another rebuild.
	select {
	case <-rebuilt:
		t.Fatal("rebuilt without a change")
	case <-time.After(50 * time.Millisecond):
	}
}
