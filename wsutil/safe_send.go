package wsutil

import (
	"encoding/json"
	"log/slog"
)

// SafeSend sends data to a channel without panicking if the channel is closed.
// If the channel is full or closed, the send is skipped. Panics are recovered
// and logged for debugging. It reports whether the data was queued.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("SafeSend recovered panic", "tag", "wsutil", "panic", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

// SendJSON marshals v and queues it with SafeSend.
func SendJSON(ch chan []byte, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outgoing message", "tag", "wsutil", "error", err)
		return false
	}
	return SafeSend(ch, data)
}
