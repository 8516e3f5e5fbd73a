package game

import (
	"fmt"
	"math/rand"

	"chosen-one-server/rules"
)

// MaxVictimsPerRound caps how many players a single math rule can eliminate.
const MaxVictimsPerRound = 3

// ChallengeSource abstracts the challenge catalog so the game package
// does not import the challenge package directly.
type ChallengeSource interface {
	PickChallenge(rng *rand.Rand) string
}

// Announcement is the first step of a math round: the victims are highlighted
// but not yet eliminated. Round is the token CommitElimination expects.
type Announcement struct {
	Round   int
	Rule    rules.Rule
	Victims []int
}

// Challenge is an opened box waiting for the host's verdict.
type Challenge struct {
	PlayerID int
	Text     string
}

// Outcome is the committed verdict for an opened box.
type Outcome struct {
	PlayerID int
	Passed   bool
}

// Reveal is the result of picking a final-draw card.
type Reveal struct {
	CardID   int
	PlayerID int
	IsWinner bool
}

// Engine owns the roster, the phase and the final-draw cards of one game.
// It is not safe for concurrent use; callers serialize access (see the session package).
type Engine struct {
	rng        *rand.Rand
	challenges ChallengeSource

	roster *Roster
	phase  Phase

	// Round counts resolved math rules.
	Round int

	pendingRule      *rules.Rule
	announcement     *Announcement
	pendingChallenge *Challenge

	cards       []Card
	winner      int
	winningCard int
}

// NewEngine creates an engine in the not-started state. challenges may be nil, in which case
// opened boxes carry no text.
func NewEngine(rng *rand.Rand, challenges ChallengeSource) *Engine {
	return &Engine{
		rng:        rng,
		challenges: challenges,
		roster:     NewRoster(0),
		phase:      PhaseNotStarted,
	}
}

// StartGame creates a fresh roster with ids 1..total, all active, and enters the math phase.
// Any previous game is discarded. The phase bands are applied immediately, so a small
// roster may start directly in the challenge phase.
func (e *Engine) StartGame(total int) error {
	if total <= 0 {
		return fmt.Errorf("%w: total players must be positive, got %d", ErrInvalidConfiguration, total)
	}
	e.roster = NewRoster(total)
	e.phase = PhaseMath
	e.Round = 0
	e.pendingRule = nil
	e.announcement = nil
	e.pendingChallenge = nil
	e.cards = nil
	e.winner = 0
	e.winningCard = 0
	e.recomputePhase()
	return nil
}

// Started reports whether StartGame has succeeded at least once.
func (e *Engine) Started() bool {
	return e.phase != PhaseNotStarted
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// ActiveCount returns the number of active players.
func (e *Engine) ActiveCount() int {
	return e.roster.ActiveCount()
}

// Player returns a copy of the player with the given id.
func (e *Engine) Player(id int) (Player, bool) {
	p, ok := e.roster.Get(id)
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Cards returns a copy of the final-draw cards.
func (e *Engine) Cards() []Card {
	out := make([]Card, len(e.cards))
	copy(out, e.cards)
	return out
}

// Winner returns the winning player's id once the winning card has been revealed.
func (e *Engine) Winner() (int, bool) {
	return e.winner, e.winner != 0
}

// busy returns a rejection when a delayed transition is still in flight.
func (e *Engine) busy() error {
	if e.announcement != nil {
		return invalidTransition("elimination of round %d is still pending", e.announcement.Round)
	}
	if e.pendingChallenge != nil {
		return invalidTransition("waiting for the verdict on player %d", e.pendingChallenge.PlayerID)
	}
	return nil
}

// afterMutation re-evaluates the phase and checks roster invariants.
func (e *Engine) afterMutation() {
	e.recomputePhase()
	e.roster.checkInvariants()
}
