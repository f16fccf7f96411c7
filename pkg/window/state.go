package window

import (
	"fmt"
	"time"

	"github.com/carematch/carematch/internal/types"
)

// State is the state of a confirmation window
type State int

const (
	// Open means candidates may still confirm
	Open State = iota
	// Ended means the deadline passed. Only a restart opens the window again.
	Ended
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Snapshot is what a view renders
type Snapshot struct {
	JobID      string
	State      State
	Remaining  int
	Candidates []types.Candidate
}

// Countdown renders the remaining seconds
func (s Snapshot) Countdown() string {
	return FormatCountdown(s.Remaining)
}

// FormatCountdown renders seconds as m:ss
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// secondsUntil rounds up so a partial second still counts, and never goes below 0
func secondsUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
