package domain

// Seat is one of the four fixed positions of the tournament. An empty seat
// has an empty PlayerID and zeroed identity fields.
type Seat struct {
	Position       int    `json:"position"`
	PlayerID       string `json:"playerId,omitempty"`
	PlayerName     string `json:"playerName,omitempty"`
	ConnectionID   string `json:"connectionId,omitempty"`
	Score          int    `json:"score"`
	GamesWon       int    `json:"gamesWon"`
	LastGamePoints int    `json:"lastGamePoints"`
	Ready          bool   `json:"ready"`
	IsBot          bool   `json:"isBot,omitempty"`
	BotProfile     string `json:"botProfile,omitempty"`
	DisconnectedAt int64  `json:"disconnectedAt,omitempty"`
}

func (s *Seat) IsOccupied() bool {
	return s.PlayerID != ""
}

func (s *Seat) IsEmpty() bool {
	return s.PlayerID == ""
}

// Clear resets the seat to empty, keeping only its position.
func (s *Seat) Clear() {
	*s = Seat{Position: s.Position}
}
