package session

import "chosen-one-server/game"

// --- Server-to-host event messages. game_state snapshots are sent after each of them. ---

// ErrorMsg is sent when a host action is rejected.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// VictimsAnnouncedMsg highlights the players a math rule matched. They are eliminated
// once RevealDelayMS has elapsed.
type VictimsAnnouncedMsg struct {
	Type          string        `json:"type"`
	Round         int           `json:"round"`
	Rule          game.RuleView `json:"rule"`
	Victims       []int         `json:"victims"`
	RevealDelayMS int           `json:"revealDelayMs"`
}

// NoVictimsMsg is sent when a math rule matched nobody.
type NoVictimsMsg struct {
	Type  string        `json:"type"`
	Round int           `json:"round"`
	Rule  game.RuleView `json:"rule"`
}

// EliminationCommittedMsg is sent when announced victims are eliminated.
type EliminationCommittedMsg struct {
	Type              string `json:"type"`
	Round             int    `json:"round"`
	Victims           []int  `json:"victims"`
	ActivePlayerCount int    `json:"activePlayerCount"`
	Phase             string `json:"phase"`
}

// ChallengeOpenedMsg is sent when a gift box is opened.
type ChallengeOpenedMsg struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
	Text     string `json:"text"`
}

// ChallengeResolvedMsg carries the host's verdict for an opened box.
type ChallengeResolvedMsg struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
	Passed   bool   `json:"passed"`
}

// FinalDrawStartedMsg is sent when the survivors receive their cards.
type FinalDrawStartedMsg struct {
	Type      string `json:"type"`
	CardCount int    `json:"cardCount"`
	PlayerIDs []int  `json:"playerIds"`
}

// CardRevealedMsg is sent for every picked card.
type CardRevealedMsg struct {
	Type     string `json:"type"`
	CardID   int    `json:"cardId"`
	PlayerID int    `json:"playerId"`
	IsWinner bool   `json:"isWinner"`
}

// WinnerDeclaredMsg ends the game.
type WinnerDeclaredMsg struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
	CardID   int    `json:"cardId"`
}
