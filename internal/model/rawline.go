package model

import "time"

// RawLine is the intermediate type produced by connectors and consumed by the engine.
type RawLine struct {
	Received time.Time
	Channel  string // feed channel the line arrived on, e.g. "#en.wikipedia"
	Text     string // raw notification text, control bytes included
}

// Project returns the project key: the channel name minus its leading marker.
func (r RawLine) Project() string {
	if r.Channel == "" {
		return ""
	}
	switch r.Channel[0] {
	case '#', '&', '+', '!':
		return r.Channel[1:]
	}
	return r.Channel
}
