package month

// Navigator holds the month currently shown to a user and moves it one
// month at a time. A Navigator belongs to a single caller (one request, one
// CLI invocation) and is not safe for concurrent use.
type Navigator struct {
	current Key
}

// State is a read-only snapshot of a Navigator, shaped for templates and
// JSON responses.
type State struct {
	CurrentMonth   Key    `json:"currentMonth"`
	FormattedMonth string `json:"formattedMonth"`
	PreviousMonth  Key    `json:"previousMonth"`
	NextMonth      Key    `json:"nextMonth"`
}

// NewNavigator starts at initial when it is a valid key, otherwise at the
// clock's current month.
func NewNavigator(clock Clock, initial Key) *Navigator {
	if initial.Valid() {
		return &Navigator{current: initial}
	}
	return &Navigator{current: Current(clock)}
}

// CurrentMonth returns the cursor.
func (n *Navigator) CurrentMonth() Key {
	return n.current
}

// SetCurrentMonth jumps to k. Invalid keys are rejected and leave the
// cursor where it was.
func (n *Navigator) SetCurrentMonth(k Key) error {
	if err := Validate(string(k)); err != nil {
		return err
	}
	n.current = k
	return nil
}

// PreviousMonth moves the cursor back one month.
func (n *Navigator) PreviousMonth() {
	n.current = Previous(n.current)
}

// NextMonth moves the cursor forward one month.
func (n *Navigator) NextMonth() {
	n.current = Next(n.current)
}

// FormattedMonth renders the cursor, e.g. "January 2025".
func (n *Navigator) FormattedMonth() string {
	return FormatMonthYear(n.current)
}

// State snapshots the cursor with its label and both neighbours.
func (n *Navigator) State() State {
	return State{
		CurrentMonth:   n.current,
		FormattedMonth: n.FormattedMonth(),
		PreviousMonth:  Previous(n.current),
		NextMonth:      Next(n.current),
	}
}
