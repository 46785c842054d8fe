package app

import "thirteen/internal/domain"

// EventKind is the wire type of a server frame.
type EventKind string

const (
	EventPong          EventKind = "pong"
	EventTourneyUpdate EventKind = "tourney/updated"
	EventGameStarted   EventKind = "game/started"
	EventGameUpdated   EventKind = "game/updated"
	EventGameOver      EventKind = "game/over"
)

// Event is an outbound frame with its audience. An empty Recipients slice
// means every connection the transport knows about.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

// PongPayload echoes the client's heartbeat timestamp.
type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// GameStartedPayload is private per seat: it carries only that seat's hand.
type GameStartedPayload struct {
	YourPosition  int           `json:"yourPosition"`
	YourHand      []domain.Card `json:"yourHand"`
	CurrentPlayer int           `json:"currentPlayer"`
	Players       []string      `json:"players"`
}

// GameUpdatedPayload is private per seat for the same reason.
type GameUpdatedPayload struct {
	CurrentPlayer int           `json:"currentPlayer"`
	LastPlay      *domain.Play  `json:"lastPlay"`
	PassedPlayers []bool        `json:"passedPlayers"`
	HandCounts    []int         `json:"handCounts"`
	YourHand      []domain.Card `json:"yourHand"`
}

// GameOverPayload closes out a game. Winner is set only when the
// tournament itself is complete.
type GameOverPayload struct {
	WinOrder        []int                     `json:"winOrder"`
	PointsAwarded   []int                     `json:"pointsAwarded"`
	Leaderboard     []domain.LeaderboardEntry `json:"leaderboard"`
	TourneyComplete bool                      `json:"tourneyComplete"`
	Winner          *int                      `json:"winner"`
}

// broadcast is an event for every known connection.
func broadcast(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}

// private is an event for a single connection.
func private(kind EventKind, payload any, connectionID string) Event {
	return Event{Kind: kind, Payload: payload, Recipients: []string{connectionID}}
}
