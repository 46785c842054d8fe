package nakama

import (
	"encoding/json"

	"thirteen/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// serverFrame is the wire envelope of every server message.
type serverFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// sendEvents fans the service's events out to their recipients. An event
// with no recipients goes to every joined presence. Recipients whose
// presence is gone are skipped silently; the record reaps via TTL.
func (ms *matchState) sendEvents(logger runtime.Logger, dispatcher runtime.MatchDispatcher, events []app.Event) {
	for _, ev := range events {
		data, err := json.Marshal(serverFrame{Type: string(ev.Kind), Payload: ev.Payload})
		if err != nil {
			logger.Error("sendEvents: failed to marshal %s frame: %v", ev.Kind, err)
			continue
		}
		if len(ev.Recipients) == 0 {
			if err := dispatcher.BroadcastMessage(OpServerFrame, data, nil, nil, true); err != nil {
				logger.Error("sendEvents: broadcast of %s failed: %v", ev.Kind, err)
			}
			continue
		}
		targets := make([]runtime.Presence, 0, len(ev.Recipients))
		for _, connID := range ev.Recipients {
			if p, ok := ms.presences[connID]; ok {
				targets = append(targets, p)
			}
		}
		if len(targets) == 0 {
			continue
		}
		if err := dispatcher.BroadcastMessage(OpServerFrame, data, targets, nil, true); err != nil {
			logger.Error("sendEvents: send of %s failed: %v", ev.Kind, err)
		}
	}
}

// sendError replies an error frame to the sender only.
func sendError(logger runtime.Logger, dispatcher runtime.MatchDispatcher, to runtime.Presence, appErr *app.Error) {
	data, err := json.Marshal(serverFrame{Type: "error", Payload: appErr})
	if err != nil {
		logger.Error("sendError: failed to marshal error frame: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpServerFrame, data, []runtime.Presence{to}, nil, true); err != nil {
		logger.Error("sendError: send failed: %v", err)
	}
}
