package domain

import (
	"fmt"
	"math/rand"
	"sort"
)

// Status is the tournament lifecycle state.
type Status string

const (
	StatusWaiting      Status = "WAITING"
	StatusStarting     Status = "STARTING"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusBetweenGames Status = "BETWEEN_GAMES"
	StatusCompleted    Status = "COMPLETED"
)

const (
	// GlobalID is the reserved id of the singleton tournament.
	GlobalID = "global"

	DefaultTargetScore = 21
	SeatCount          = 4

	// DisconnectGraceSeconds is how long a seat survives a dropped
	// connection in WAITING or STARTING.
	DisconnectGraceSeconds = 5
)

// Seating and readiness rule codes.
const (
	CodeTourneyInProgress = "TOURNEY_IN_PROGRESS"
	CodeTourneyFull       = "TOURNEY_FULL"
	CodeSeatTaken         = "SEAT_TAKEN"
	CodeInvalidSeat       = "INVALID_SEAT"
	CodeSeatEmpty         = "SEAT_EMPTY"
	CodeNotABot           = "NOT_A_BOT"
	CodeNotInTourney      = "NOT_IN_TOURNEY"
	CodeInvalidState      = "INVALID_STATE"
	CodeSeatNotFound      = "SEAT_NOT_FOUND"
)

// PointsByFinish is awarded to seats by finishing position in the win order.
var PointsByFinish = [SeatCount]int{4, 2, 1, 0}

// GameRecord is one completed game in the tournament history.
type GameRecord struct {
	GameNumber    int   `json:"gameNumber"`
	WinOrder      []int `json:"winOrder"`
	PointsAwarded []int `json:"pointsAwarded"`
	Timestamp     int64 `json:"timestamp"`
}

// Tourney is the singleton tournament. CurrentGame is non-nil exactly while
// the status is IN_PROGRESS.
type Tourney struct {
	TourneyID   string       `json:"tourneyId"`
	Status      Status       `json:"status"`
	TargetScore int          `json:"targetScore"`
	Seats       []*Seat      `json:"seats"`
	CurrentGame *Game        `json:"currentGame"`
	GameHistory []GameRecord `json:"gameHistory"`
}

// NewTourney creates an empty WAITING tournament.
func NewTourney(targetScore int) *Tourney {
	if targetScore <= 0 {
		targetScore = DefaultTargetScore
	}
	seats := make([]*Seat, SeatCount)
	for i := range seats {
		seats[i] = &Seat{Position: i}
	}
	return &Tourney{
		TourneyID:   GlobalID,
		Status:      StatusWaiting,
		TargetScore: targetScore,
		Seats:       seats,
		GameHistory: []GameRecord{},
	}
}

// SeatOf returns the seat held by the player, or nil.
func (t *Tourney) SeatOf(playerID string) *Seat {
	for _, s := range t.Seats {
		if s.IsOccupied() && s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// OccupiedCount is the number of non-empty seats.
func (t *Tourney) OccupiedCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.IsOccupied() {
			n++
		}
	}
	return n
}

// ReadyCount is the number of seats flagged ready.
func (t *Tourney) ReadyCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.IsOccupied() && s.Ready {
			n++
		}
	}
	return n
}

func (t *Tourney) allReady() bool {
	for _, s := range t.Seats {
		if s.IsOccupied() && !s.Ready {
			return false
		}
	}
	return true
}

// ClaimSeat seats the player, or refreshes their connection when they are
// already seated. Only allowed before a game starts; mid-game rebinding
// goes through the reconnect path instead. A negative seatPos means
// "lowest empty". Returns the seat position and an empty code on success.
func (t *Tourney) ClaimSeat(playerID, playerName, connectionID string, seatPos int) (int, string) {
	if t.Status != StatusWaiting && t.Status != StatusStarting {
		return -1, CodeTourneyInProgress
	}
	if existing := t.SeatOf(playerID); existing != nil {
		existing.ConnectionID = connectionID
		existing.DisconnectedAt = 0
		return existing.Position, ""
	}
	var seat *Seat
	if seatPos >= 0 {
		if seatPos >= SeatCount {
			return -1, CodeInvalidSeat
		}
		if t.Seats[seatPos].IsOccupied() {
			return -1, CodeSeatTaken
		}
		seat = t.Seats[seatPos]
	} else {
		for _, s := range t.Seats {
			if s.IsEmpty() {
				seat = s
				break
			}
		}
		if seat == nil {
			return -1, CodeTourneyFull
		}
	}
	seat.Clear()
	seat.PlayerID = playerID
	seat.PlayerName = playerName
	seat.ConnectionID = connectionID
	if t.Status == StatusWaiting && t.OccupiedCount() == SeatCount {
		t.Status = StatusStarting
	}
	return seat.Position, ""
}

// Leave vacates the player's seat. Only allowed before a game starts.
func (t *Tourney) Leave(playerID string) string {
	seat := t.SeatOf(playerID)
	if seat == nil {
		return CodeNotInTourney
	}
	if t.Status != StatusWaiting && t.Status != StatusStarting {
		return CodeTourneyInProgress
	}
	seat.Clear()
	t.Status = StatusWaiting
	return ""
}

// AddBot seats a bot at the given position. The bot is always ready and
// carries no connection.
func (t *Tourney) AddBot(pos int, profile, botID string) string {
	if t.Status != StatusWaiting && t.Status != StatusStarting {
		return CodeTourneyInProgress
	}
	if pos < 0 || pos >= SeatCount {
		return CodeInvalidSeat
	}
	seat := t.Seats[pos]
	if seat.IsOccupied() {
		return CodeSeatTaken
	}
	seat.Clear()
	seat.PlayerID = botID
	seat.PlayerName = fmt.Sprintf("Bot_%d", pos+1)
	seat.IsBot = true
	seat.BotProfile = profile
	seat.Ready = true
	if t.Status == StatusWaiting && t.OccupiedCount() == SeatCount {
		t.Status = StatusStarting
	}
	return ""
}

// KickBot vacates a bot seat.
func (t *Tourney) KickBot(pos int) string {
	if pos < 0 || pos >= SeatCount {
		return CodeInvalidSeat
	}
	seat := t.Seats[pos]
	if seat.IsEmpty() {
		return CodeSeatEmpty
	}
	if !seat.IsBot {
		return CodeNotABot
	}
	seat.Clear()
	t.Status = StatusWaiting
	return ""
}

// SetReady flags the player's readiness. When every seat is occupied and
// ready the tournament moves to IN_PROGRESS; the caller is expected to
// start a game next.
func (t *Tourney) SetReady(playerID string, ready bool) (started bool, code string) {
	seat := t.SeatOf(playerID)
	if seat == nil {
		return false, CodeNotInTourney
	}
	if t.Status != StatusStarting && t.Status != StatusBetweenGames {
		return false, CodeInvalidState
	}
	seat.Ready = ready
	if t.allReady() && t.OccupiedCount() == SeatCount {
		t.Status = StatusInProgress
		return true, ""
	}
	return false, ""
}

// StartGame deals a fresh game for the current seats and clears readiness.
func (t *Tourney) StartGame(rng *rand.Rand) *Game {
	playerIDs := make([]string, SeatCount)
	for i, s := range t.Seats {
		playerIDs[i] = s.PlayerID
	}
	g := NewGame(playerIDs)
	g.Deal(rng)
	g.GameNumber = len(t.GameHistory) + 1
	t.CurrentGame = g
	for _, s := range t.Seats {
		s.Ready = false
	}
	return g
}

// CompleteGame awards points for the finished game, records it in the
// history, and either ends the tournament or parks it between games.
func (t *Tourney) CompleteGame(winOrder []int, now int64) (ok, complete bool) {
	if t.CurrentGame == nil {
		return false, false
	}
	gameNumber := t.CurrentGame.GameNumber
	points := make([]int, len(winOrder))
	for finish, pos := range winOrder {
		if pos < 0 || pos >= SeatCount || finish >= len(PointsByFinish) {
			continue
		}
		awarded := PointsByFinish[finish]
		points[finish] = awarded
		seat := t.Seats[pos]
		seat.Score += awarded
		seat.LastGamePoints = awarded
		if finish == 0 {
			seat.GamesWon++
		}
	}
	t.GameHistory = append(t.GameHistory, GameRecord{
		GameNumber:    gameNumber,
		WinOrder:      append([]int(nil), winOrder...),
		PointsAwarded: points,
		Timestamp:     now,
	})
	t.CurrentGame = nil
	if t.maxScore() >= t.TargetScore {
		t.Status = StatusCompleted
		return true, true
	}
	t.Status = StatusBetweenGames
	return true, false
}

func (t *Tourney) maxScore() int {
	max := 0
	for _, s := range t.Seats {
		if s.IsOccupied() && s.Score > max {
			max = s.Score
		}
	}
	return max
}

// WinnerPosition is the first seat holding the top score, or -1 when no
// seat is occupied.
func (t *Tourney) WinnerPosition() int {
	winner, best := -1, -1
	for _, s := range t.Seats {
		if s.IsOccupied() && s.Score > best {
			winner, best = s.Position, s.Score
		}
	}
	return winner
}

// CleanupDisconnected reclaims seats whose players dropped at least
// graceSeconds ago. Only acts before a game starts; returns whether any
// seat changed.
func (t *Tourney) CleanupDisconnected(now int64, graceSeconds int64) bool {
	if t.Status != StatusWaiting && t.Status != StatusStarting {
		return false
	}
	changed := false
	for _, s := range t.Seats {
		if s.IsOccupied() && !s.IsBot && s.DisconnectedAt > 0 && now-s.DisconnectedAt >= graceSeconds {
			s.Clear()
			changed = true
		}
	}
	if changed && t.OccupiedCount() < SeatCount {
		t.Status = StatusWaiting
	}
	return changed
}

// LeaderboardEntry is one row of the score standings.
type LeaderboardEntry struct {
	Position   int    `json:"position"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	GamesWon   int    `json:"gamesWon"`
}

// Leaderboard returns the occupied seats sorted by score descending.
func (t *Tourney) Leaderboard() []LeaderboardEntry {
	entries := []LeaderboardEntry{}
	for _, s := range t.Seats {
		if s.IsOccupied() {
			entries = append(entries, LeaderboardEntry{
				Position:   s.Position,
				PlayerName: s.PlayerName,
				Score:      s.Score,
				GamesWon:   s.GamesWon,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// ClientSeat is the public view of a seat.
type ClientSeat struct {
	Position   int    `json:"position"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	GamesWon   int    `json:"gamesWon"`
	Ready      bool   `json:"ready"`
	IsBot      bool   `json:"isBot"`
}

// ClientState is the public tournament snapshot broadcast to clients.
type ClientState struct {
	Status            Status       `json:"status"`
	Seats             []ClientSeat `json:"seats"`
	TargetScore       int          `json:"targetScore"`
	CurrentGameNumber int          `json:"currentGameNumber"`
	ReadyCount        int          `json:"readyCount"`
}

// ToClientState builds the public snapshot. Hands never appear here.
func (t *Tourney) ToClientState() ClientState {
	seats := make([]ClientSeat, SeatCount)
	for i, s := range t.Seats {
		seats[i] = ClientSeat{
			Position:   s.Position,
			PlayerName: s.PlayerName,
			Score:      s.Score,
			GamesWon:   s.GamesWon,
			Ready:      s.Ready,
			IsBot:      s.IsBot,
		}
	}
	gameNumber := len(t.GameHistory)
	if t.CurrentGame != nil {
		gameNumber++
	}
	return ClientState{
		Status:            t.Status,
		Seats:             seats,
		TargetScore:       t.TargetScore,
		CurrentGameNumber: gameNumber,
		ReadyCount:        t.ReadyCount(),
	}
}
