package game

// OpenBox opens the gift box of an active player whose box is still pending and draws a
// challenge text. The verdict is supplied afterwards with SubmitChallengeOutcome.
func (e *Engine) OpenBox(playerID int) (Challenge, error) {
	if e.phase != PhaseChallenge {
		return Challenge{}, invalidTransition("boxes can only be opened in the challenge phase (phase is %s)", e.phase)
	}
	if err := e.busy(); err != nil {
		return Challenge{}, err
	}
	p, ok := e.roster.Get(playerID)
	if !ok {
		return Challenge{}, invalidTransition("player %d does not exist", playerID)
	}
	if p.Status != StatusActive {
		return Challenge{}, invalidTransition("player %d is %s", playerID, p.Status)
	}
	if p.Box == BoxOpened {
		return Challenge{}, invalidTransition("box of player %d is already opened", playerID)
	}

	p.Box = BoxOpened
	c := Challenge{PlayerID: playerID}
	if e.challenges != nil {
		c.Text = e.challenges.PickChallenge(e.rng)
	}
	e.pendingChallenge = &c
	return c, nil
}

// SubmitChallengeOutcome commits the host's verdict for the opened box.
// A pass makes the player safe; a fail eliminates them.
func (e *Engine) SubmitChallengeOutcome(pass bool) (Outcome, error) {
	if e.pendingChallenge == nil {
		return Outcome{}, invalidTransition("no box is waiting for a verdict")
	}
	p, ok := e.roster.Get(e.pendingChallenge.PlayerID)
	invariant(ok, "opened box belongs to unknown player %d", e.pendingChallenge.PlayerID)

	if pass {
		p.Result = ResultPass
		e.roster.setStatus(p, StatusSafe)
	} else {
		p.Result = ResultFail
		e.roster.setStatus(p, StatusEliminated)
	}
	e.pendingChallenge = nil
	e.afterMutation()
	return Outcome{PlayerID: p.ID, Passed: pass}, nil
}

// ResetSafePlayers returns every safe player to active with a pending box so the
// challenge phase can be replayed. It returns how many players were reset.
func (e *Engine) ResetSafePlayers() (int, error) {
	if e.phase != PhaseChallenge {
		return 0, invalidTransition("safe players can only be reset in the challenge phase (phase is %s)", e.phase)
	}
	if err := e.busy(); err != nil {
		return 0, err
	}
	n := 0
	for _, id := range e.roster.IDsWithStatus(StatusSafe) {
		p, _ := e.roster.Get(id)
		e.roster.setStatus(p, StatusActive)
		p.Box = BoxPending
		p.Result = ResultUnset
		n++
	}
	if n > 0 {
		e.afterMutation()
	}
	return n, nil
}

// AllBoxesOpened reports whether every active player has opened their box.
// It is vacuously true when no player is active.
func (e *Engine) AllBoxesOpened() bool {
	for _, id := range e.roster.ActiveIDs() {
		p, _ := e.roster.Get(id)
		if p.Box != BoxOpened {
			return false
		}
	}
	return true
}
