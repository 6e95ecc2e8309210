package engine

import "slices"

// Event tells subscribers which part of the state changed.
type Event string

const (
	EventTime     Event = "time"
	EventClock    Event = "clock"
	EventSpeech   Event = "speech"
	EventVoices   Event = "voices"
	EventControls Event = "controls"
	EventVerify   Event = "verify"
)

// Subscribe registers fn to run after every state change. fn runs on the
// goroutine that made the change and must not block.
func (e *Engine) Subscribe(fn func(Event)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify(ev Event) {
	e.subMu.Lock()
	subs := slices.Clone(e.subs)
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
