package models

import (
	"time"
)

type Status struct {
	JobID     string     `json:"id,omitempty"`
	Objective string     `json:"objective,omitempty"`
	State     State      `json:"state"`
	Busy      bool       `json:"busy"`
	Cycle     int        `json:"cycle"`
	LastEvent string     `json:"lastEvent,omitempty"`
	Action    *Action    `json:"action,omitempty"`
	Err       *Error     `json:"error,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type Error struct {
	Category string     `json:"category"`
	Message  string     `json:"message"`
	Time     *time.Time `json:"time,omitempty"`
}

// Action is the last action the session executed or attempted, as reported to callers.
type Action struct {
	Kind      string  `json:"kind"`
	ElementID string  `json:"elementId,omitempty"`
	Value     string  `json:"value,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
	Point     *[2]int `json:"point,omitempty"`
}

type Perception struct {
	Cycle          int                   `json:"cycle"`
	AnnotatedImage string                `json:"annotatedImage,omitempty"`
	Text           string                `json:"text"`
	Elements       map[string][4]float64 `json:"elements"`
	Attempts       int                   `json:"attempts"`
}
