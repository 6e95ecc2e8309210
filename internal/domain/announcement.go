package domain

import "time"

// Announcement status values.
const (
	StatusOK        = "ok"
	StatusCached    = "cached"
	StatusError     = "error"
	StatusCancelled = "cancelled"
	StatusDisabled  = "disabled"
)

// Announcement records one finished utterance.
type Announcement struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Voice    Voice     `json:"voice"`
	Backend  string    `json:"backend"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`              // the announced instant
	Stamp    string    `json:"stamp,omitempty"` // archive stamp of At
	Finished time.Time `json:"finished"`
}
