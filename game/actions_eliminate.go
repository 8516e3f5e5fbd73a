package game

import (
	"math/rand"

	"chosen-one-server/rules"
)

// SelectVictims returns the active ids matched by rule. When more than MaxVictimsPerRound
// ids match, the matches are shuffled (Fisher-Yates) and the first MaxVictimsPerRound are kept.
// An empty result means nobody is eliminated this round.
func SelectVictims(rng *rand.Rand, rule rules.Rule, active []int) []int {
	var matching []int
	for _, id := range active {
		if rule.Matches(id) {
			matching = append(matching, id)
		}
	}
	if len(matching) <= MaxVictimsPerRound {
		return matching
	}
	rng.Shuffle(len(matching), func(i, j int) {
		matching[i], matching[j] = matching[j], matching[i]
	})
	return matching[:MaxVictimsPerRound]
}

// RequestRule draws a fresh rule set and selects one rule for display.
// Requesting again before resolving replaces the pending rule.
func (e *Engine) RequestRule() (rules.Rule, error) {
	if err := e.requireMathPhase(); err != nil {
		return rules.Rule{}, err
	}
	if err := e.busy(); err != nil {
		return rules.Rule{}, err
	}
	rule := rules.Pick(e.rng, rules.Generate(e.rng))
	e.pendingRule = &rule
	return rule, nil
}

// ResolveRule applies the pending rule to the active players and announces the victims.
// The victims stay active until CommitElimination is called with the announcement's round.
// When nobody matches, the rule is cleared and the returned announcement has no victims.
func (e *Engine) ResolveRule() (Announcement, error) {
	if err := e.requireMathPhase(); err != nil {
		return Announcement{}, err
	}
	if err := e.busy(); err != nil {
		return Announcement{}, err
	}
	if e.pendingRule == nil {
		return Announcement{}, invalidTransition("no rule is pending")
	}

	rule := *e.pendingRule
	e.Round++
	a := Announcement{
		Round:   e.Round,
		Rule:    rule,
		Victims: SelectVictims(e.rng, rule, e.roster.ActiveIDs()),
	}
	if len(a.Victims) == 0 {
		e.pendingRule = nil
		return a, nil
	}
	e.announcement = &a
	return a, nil
}

// CommitElimination eliminates the victims announced for round. Stale or unknown rounds are rejected.
func (e *Engine) CommitElimination(round int) error {
	if e.announcement == nil {
		return invalidTransition("no elimination is pending")
	}
	if e.announcement.Round != round {
		return invalidTransition("round %d is not pending (pending round is %d)", round, e.announcement.Round)
	}
	for _, id := range e.announcement.Victims {
		p, ok := e.roster.Get(id)
		invariant(ok, "announced victim %d is not in the roster", id)
		e.roster.setStatus(p, StatusEliminated)
	}
	e.announcement = nil
	e.pendingRule = nil
	e.afterMutation()
	return nil
}

func (e *Engine) requireMathPhase() error {
	if e.phase != PhaseMath {
		return invalidTransition("math rules are only available in the math phase (phase is %s)", e.phase)
	}
	return nil
}
