package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNoVoice          = errors.New("no voice selected")
	ErrNotFound         = errors.New("not found")
	ErrUnknownControl   = errors.New("unknown control")
	ErrInvalidValue     = errors.New("invalid value")
	ErrNoTimestamp      = errors.New("no timestamp recognised")
	ErrNotImplemented   = errors.New("not implemented")
	ErrSpeechDisabled   = errors.New("speech output disabled")
	ErrRecorderDisabled = errors.New("recorder disabled")
)
