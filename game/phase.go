package game

// Phase is the current stage of the game.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseMath             // rule-based elimination
	PhaseChallenge        // gift boxes, judged pass/fail
	PhaseFinalDraw        // one winning card among the survivors
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseMath:
		return "math"
	case PhaseChallenge:
		return "challenge"
	case PhaseFinalDraw:
		return "final_draw"
	default:
		return "unknown"
	}
}

// Active-player bands driving automatic transitions.
const (
	// MathPhaseAbove forces the math phase while more than this many players are active.
	MathPhaseAbove = 8
	// ChallengePhaseMin is the smallest active count that forces the challenge phase.
	ChallengePhaseMin = 4
)

// PhaseForCount returns the phase selected by the active-player bands, starting from current.
// Below ChallengePhaseMin the current phase is kept: the final draw is never entered automatically.
func PhaseForCount(current Phase, activeCount int) Phase {
	if current == PhaseFinalDraw || current == PhaseNotStarted {
		return current
	}
	switch {
	case activeCount > MathPhaseAbove:
		return PhaseMath
	case activeCount >= ChallengePhaseMin:
		return PhaseChallenge
	default:
		return current
	}
}

// recomputePhase re-evaluates the phase bands. Called after every roster mutation.
func (e *Engine) recomputePhase() {
	if e.phase == PhaseFinalDraw || e.phase == PhaseNotStarted {
		return
	}
	count := e.roster.ActiveCount()
	next := PhaseForCount(e.phase, count)
	if count > MathPhaseAbove {
		e.pendingRule = nil
	}
	e.phase = next
}
