package models

// PatternState tracks the yin-yang crown sub-machine over the histogram
// series: a sign-momentum reversal that either confirms into a turning
// point or expires.
type PatternState int

const (
	PatternIdle PatternState = iota
	PatternForming
	PatternConfirmed
	PatternExpired
)

func (p PatternState) String() string {
	switch p {
	case PatternForming:
		return "forming"
	case PatternConfirmed:
		return "confirmed"
	case PatternExpired:
		return "expired"
	default:
		return "idle"
	}
}

// PatternStatus is the sub-machine value threaded through AdvancePattern.
type PatternStatus struct {
	State PatternState
	// RunLength counts consecutive bars of the new sign since Forming began.
	RunLength int
	// Age counts bars since Forming began, capped by the max-age expiry.
	Age int
	// LastHistogram is the histogram of the previous bar.
	LastHistogram float64
	// Sign is the histogram sign the forming run must hold: +1 or -1.
	Sign int
	// Shrinking is set while the histogram magnitude is contracting; a
	// sign flip only arms the sub-machine after a shrinking run.
	Shrinking bool
	// Seen guards the first bar, where no previous histogram exists.
	Seen bool
}
