package game

import "chosen-one-server/rules"

// PlayerView is the client-facing representation of a player.
type PlayerView struct {
	ID          int    `json:"id"`
	Status      string `json:"status"`
	Box         string `json:"box"`
	Result      string `json:"result,omitempty"`
	Highlighted bool   `json:"highlighted,omitempty"`
}

// RuleView is the client-facing representation of the pending math rule.
type RuleView struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChallengeView is the opened box waiting for a verdict.
type ChallengeView struct {
	PlayerID int    `json:"playerId"`
	Text     string `json:"text"`
}

// CardView is the client-facing representation of a final-draw card.
// IsWinner is only included once the card is revealed.
type CardView struct {
	ID       int   `json:"id"`
	PlayerID int   `json:"playerId"`
	Revealed bool  `json:"revealed"`
	IsWinner *bool `json:"isWinner,omitempty"`
}

// Snapshot is the read-only game state the presentation layer renders from.
type Snapshot struct {
	Type              string       `json:"type"`
	Started           bool         `json:"started"`
	Phase             int          `json:"phase"`
	PhaseName         string       `json:"phaseName"`
	Round             int          `json:"round"`
	TotalPlayers      int          `json:"totalPlayers"`
	ActivePlayerCount int          `json:"activePlayerCount"`
	Players           []PlayerView `json:"players"`
	PendingRule       *RuleView    `json:"pendingRule,omitempty"`
	// Victims are announced but not yet eliminated.
	Victims           []int          `json:"victims,omitempty"`
	PendingChallenge  *ChallengeView `json:"pendingChallenge,omitempty"`
	AllBoxesOpened    bool           `json:"allBoxesOpened"`
	CanAdvanceToFinal bool           `json:"canAdvanceToFinal"`
	Cards             []CardView     `json:"cards,omitempty"`
	AllCardsRevealed  bool           `json:"allCardsRevealed"`
	Winner            *int           `json:"winner,omitempty"`
	WinningCard       *int           `json:"winningCard,omitempty"`
}

// NewRuleView returns the client-facing representation of r.
func NewRuleView(r rules.Rule) RuleView {
	return RuleView{Kind: r.Kind, Name: r.Name, Description: r.Description}
}

// BuildPlayerViews constructs the client-facing player list. Ids in highlighted are flagged.
func BuildPlayerViews(r *Roster, highlighted []int) []PlayerView {
	marked := make(map[int]struct{}, len(highlighted))
	for _, id := range highlighted {
		marked[id] = struct{}{}
	}
	views := make([]PlayerView, len(r.players))
	for i, p := range r.players {
		_, hl := marked[p.ID]
		views[i] = PlayerView{
			ID:          p.ID,
			Status:      p.Status.String(),
			Box:         p.Box.String(),
			Result:      p.Result.String(),
			Highlighted: hl,
		}
	}
	return views
}

// BuildCardViews constructs the client-facing card list. Hidden cards do not expose isWinner.
func BuildCardViews(cards []Card) []CardView {
	if len(cards) == 0 {
		return nil
	}
	views := make([]CardView, len(cards))
	for i, c := range cards {
		cv := CardView{ID: c.ID, PlayerID: c.PlayerID, Revealed: c.Revealed}
		if c.Revealed {
			isWinner := c.IsWinner
			cv.IsWinner = &isWinner
		}
		views[i] = cv
	}
	return views
}

// Snapshot returns the current state for rendering. The result shares no memory with the engine.
func (e *Engine) Snapshot() Snapshot {
	var victims []int
	if e.announcement != nil {
		victims = append(victims, e.announcement.Victims...)
	}

	s := Snapshot{
		Type:              "game_state",
		Started:           e.Started(),
		Phase:             int(e.phase),
		PhaseName:         e.phase.String(),
		Round:             e.Round,
		TotalPlayers:      e.roster.Len(),
		ActivePlayerCount: e.roster.ActiveCount(),
		Players:           BuildPlayerViews(e.roster, victims),
		Victims:           victims,
		AllBoxesOpened:    e.phase == PhaseChallenge && e.AllBoxesOpened(),
		CanAdvanceToFinal: e.CanAdvanceToFinal(),
		Cards:             BuildCardViews(e.cards),
		AllCardsRevealed:  len(e.cards) > 0 && AllRevealed(e.cards),
	}
	if e.pendingRule != nil {
		rv := NewRuleView(*e.pendingRule)
		s.PendingRule = &rv
	}
	if e.pendingChallenge != nil {
		s.PendingChallenge = &ChallengeView{
			PlayerID: e.pendingChallenge.PlayerID,
			Text:     e.pendingChallenge.Text,
		}
	}
	if e.winner != 0 {
		winner, card := e.winner, e.winningCard
		s.Winner = &winner
		s.WinningCard = &card
	}
	return s
}
