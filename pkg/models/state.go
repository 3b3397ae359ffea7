package models

type State string

const (
	Idle       State = "idle"
	Capturing  State = "capturing"
	Perceiving State = "perceiving"
	Deciding   State = "deciding"
	Acting     State = "acting"
	Completed  State = "completed" // dead state
	Failed     State = "failed"    // dead state
)

// Terminal reports whether no further automatic transition leaves the state.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}
