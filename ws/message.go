package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	// Unmarshal just the type field
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Host-to-server message payloads ---
// request_rule, resolve_rule, reset_safe, advance_final, get_state and autoplay carry no payload.

// StartGameMsg starts a new game. TotalPlayers 0 selects the configured default.
type StartGameMsg struct {
	Type         string `json:"type"`
	TotalPlayers int    `json:"totalPlayers"`
}

// OpenBoxMsg opens the gift box of a player.
type OpenBoxMsg struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
}

// SubmitOutcomeMsg is the host's verdict for the opened box.
type SubmitOutcomeMsg struct {
	Type   string `json:"type"`
	Passed bool   `json:"passed"`
}

// PickCardMsg reveals a final-draw card.
type PickCardMsg struct {
	Type   string `json:"type"`
	CardID int    `json:"cardId"`
}

// --- Server-to-host messages ---

// ErrorMsg is sent when a host message is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SessionOpenedMsg is sent once after the connection is accepted.
type SessionOpenedMsg struct {
	Type                string   `json:"type"`
	SessionID           string   `json:"sessionId"`
	HostName            string   `json:"hostName"`
	DefaultTotalPlayers int      `json:"defaultTotalPlayers"`
	MaxTotalPlayers     int      `json:"maxTotalPlayers"`
	VictimRevealDelayMS int      `json:"victimRevealDelayMs"`
	Strategies          []string `json:"strategies"`
}

// AutoplayStartedMsg confirms that the automatic host took over.
type AutoplayStartedMsg struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}
