package game

// PlayerStatus is the overall standing of a player.
type PlayerStatus int

const (
	StatusActive PlayerStatus = iota
	StatusEliminated
	StatusSafe
)

// String returns the protocol string for a PlayerStatus.
func (s PlayerStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEliminated:
		return "eliminated"
	case StatusSafe:
		return "safe"
	default:
		return "unknown"
	}
}

// BoxStatus tracks the player's gift box during the challenge phase.
type BoxStatus int

const (
	BoxPending BoxStatus = iota
	BoxOpened
)

// String returns the protocol string for a BoxStatus.
func (s BoxStatus) String() string {
	switch s {
	case BoxPending:
		return "pending"
	case BoxOpened:
		return "opened"
	default:
		return "unknown"
	}
}

// ChallengeResult is the judged outcome of a player's box.
type ChallengeResult int

const (
	ResultUnset ChallengeResult = iota
	ResultPass
	ResultFail
)

// String returns the protocol string for a ChallengeResult ("" when unset).
func (r ChallengeResult) String() string {
	switch r {
	case ResultPass:
		return "pass"
	case ResultFail:
		return "fail"
	default:
		return ""
	}
}

// Player is one numbered participant. Ids are assigned 1..N when the roster is created.
type Player struct {
	ID     int
	Status PlayerStatus
	Box    BoxStatus
	Result ChallengeResult
}

// Roster is the ordered set of all players; index i holds id i+1.
// Eliminated players stay in the roster for display.
type Roster struct {
	players []Player
}

// NewRoster creates n active players with ids 1..n.
func NewRoster(n int) *Roster {
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{ID: i + 1, Status: StatusActive, Box: BoxPending}
	}
	return &Roster{players: players}
}

// Len returns the number of players, eliminated ones included.
func (r *Roster) Len() int {
	return len(r.players)
}

// Get returns the player with the given id.
func (r *Roster) Get(id int) (*Player, bool) {
	if id < 1 || id > len(r.players) {
		return nil, false
	}
	return &r.players[id-1], true
}

// IDsWithStatus returns the ids of players with status s, in id order.
func (r *Roster) IDsWithStatus(s PlayerStatus) []int {
	var ids []int
	for _, p := range r.players {
		if p.Status == s {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// ActiveIDs returns the ids of active players in id order.
func (r *Roster) ActiveIDs() []int {
	return r.IDsWithStatus(StatusActive)
}

// ActiveCount returns the number of active players. Safe and eliminated players are excluded.
func (r *Roster) ActiveCount() int {
	n := 0
	for _, p := range r.players {
		if p.Status == StatusActive {
			n++
		}
	}
	return n
}

// setStatus moves a player to a new status. Eliminated is permanent.
func (r *Roster) setStatus(p *Player, s PlayerStatus) {
	invariant(p.Status != StatusEliminated || s == StatusEliminated,
		"player %d cannot leave eliminated status", p.ID)
	p.Status = s
}

// checkInvariants verifies the per-player rules after a mutation.
func (r *Roster) checkInvariants() {
	for i, p := range r.players {
		invariant(p.ID == i+1, "player at position %d has id %d", i, p.ID)
		invariant(p.Status != StatusSafe || p.Result == ResultPass,
			"player %d is safe without a passed challenge", p.ID)
	}
}
