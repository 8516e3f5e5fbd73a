package game

// CanAdvanceToFinal reports whether AdvanceToFinal would succeed: challenge phase,
// every active box opened, no verdict pending and at least one safe survivor.
func (e *Engine) CanAdvanceToFinal() bool {
	return e.advanceBlocker() == nil
}

func (e *Engine) advanceBlocker() error {
	if e.phase != PhaseChallenge {
		return invalidTransition("the final draw can only be entered from the challenge phase (phase is %s)", e.phase)
	}
	if err := e.busy(); err != nil {
		return err
	}
	if !e.AllBoxesOpened() {
		return invalidTransition("not every active player has opened their box")
	}
	if len(e.roster.IDsWithStatus(StatusSafe)) == 0 {
		return invalidTransition("no survivors to draw for")
	}
	return nil
}

// AdvanceToFinal enters the final draw. Safe players go back to active and receive one
// card each, exactly one of which wins. The final draw is never left once entered.
func (e *Engine) AdvanceToFinal() ([]Card, error) {
	if err := e.advanceBlocker(); err != nil {
		return nil, err
	}
	survivors := e.roster.IDsWithStatus(StatusSafe)
	for _, id := range survivors {
		p, _ := e.roster.Get(id)
		e.roster.setStatus(p, StatusActive)
	}

	e.cards = DealFinalDraw(e.rng, survivors)
	invariant(WinningCards(e.cards) == 1, "final draw has %d winning cards", WinningCards(e.cards))
	e.phase = PhaseFinalDraw
	e.afterMutation()
	return e.Cards(), nil
}

// PickCard reveals an unrevealed card. Revealing the winning card declares its player the winner,
// which ends the game. Losing cards stay revealed and further cards may be picked.
func (e *Engine) PickCard(cardID int) (Reveal, error) {
	if e.phase != PhaseFinalDraw {
		return Reveal{}, invalidTransition("cards can only be picked in the final draw (phase is %s)", e.phase)
	}
	if e.winner != 0 {
		return Reveal{}, invalidTransition("player %d has already won", e.winner)
	}
	if cardID < 1 || cardID > len(e.cards) {
		return Reveal{}, invalidTransition("card %d does not exist", cardID)
	}
	c := &e.cards[cardID-1]
	if c.Revealed {
		return Reveal{}, invalidTransition("card %d is already revealed", cardID)
	}

	c.Revealed = true
	if c.IsWinner {
		e.winner = c.PlayerID
		e.winningCard = c.ID
	}
	return Reveal{CardID: c.ID, PlayerID: c.PlayerID, IsWinner: c.IsWinner}, nil
}
