// Package app holds the tournament use-cases. Each method mutates a loaded
// tournament snapshot and returns the events to broadcast; persistence and
// transport stay behind the ports.
package app

import (
	"fmt"
	"math/rand"
	"time"

	"thirteen/internal/bot"
	"thirteen/internal/domain"
)

// Service executes client actions against the tournament.
type Service struct {
	rng          *rand.Rand
	now          func() time.Time
	graceSeconds int64
	targetScore  int
}

// NewService builds a service. A nil rng gets a time-seeded source.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		rng:          rng,
		now:          time.Now,
		graceSeconds: domain.DisconnectGraceSeconds,
		targetScore:  domain.DefaultTargetScore,
	}
}

// SetDisconnectGrace overrides the seat reclaim grace period.
func (s *Service) SetDisconnectGrace(seconds int64) {
	s.graceSeconds = seconds
}

// SetTargetScore overrides the score at which a tournament completes.
func (s *Service) SetTargetScore(target int) {
	if target > 0 {
		s.targetScore = target
	}
}

// SetClock overrides the wall clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// NewTourney creates the empty singleton tournament.
func (s *Service) NewTourney() *domain.Tourney {
	return domain.NewTourney(s.targetScore)
}

// Info reaps overdue disconnected seats and replies with the public state.
// The changed flag tells the caller whether the snapshot needs persisting.
func (s *Service) Info(t *domain.Tourney, connectionID string) ([]Event, bool) {
	changed := t.CleanupDisconnected(s.now().Unix(), s.graceSeconds)
	return []Event{private(EventTourneyUpdate, t.ToClientState(), connectionID)}, changed
}

// ClaimSeat seats the caller. seatPos nil means lowest empty seat.
func (s *Service) ClaimSeat(t *domain.Tourney, playerID, playerName, connectionID string, seatPos *int) ([]Event, error) {
	t.CleanupDisconnected(s.now().Unix(), s.graceSeconds)
	pos := -1
	if seatPos != nil {
		pos = *seatPos
	}
	if _, code := t.ClaimSeat(playerID, playerName, connectionID, pos); code != "" {
		return nil, ruleError(code)
	}
	return []Event{broadcast(EventTourneyUpdate, t.ToClientState())}, nil
}

// Leave vacates the caller's seat.
func (s *Service) Leave(t *domain.Tourney, playerID string) ([]Event, error) {
	if code := t.Leave(playerID); code != "" {
		return nil, ruleError(code)
	}
	return []Event{broadcast(EventTourneyUpdate, t.ToClientState())}, nil
}

// Ready marks the caller ready and starts a game once everyone is.
func (s *Service) Ready(t *domain.Tourney, playerID string) ([]Event, error) {
	started, code := t.SetReady(playerID, true)
	if code != "" {
		return nil, ruleError(code)
	}
	events := []Event{broadcast(EventTourneyUpdate, t.ToClientState())}
	if started {
		events = append(events, s.startGame(t)...)
	}
	return events, nil
}

// AddBot seats a bot at the requested position.
func (s *Service) AddBot(t *domain.Tourney, seatPos *int, profile string) ([]Event, error) {
	if seatPos == nil {
		return nil, NewError(CodeMissingSeatPosition, "seatPosition is required")
	}
	botID := fmt.Sprintf("bot_%08x", s.rng.Uint32())
	if code := t.AddBot(*seatPos, profile, botID); code != "" {
		return nil, ruleError(code)
	}
	return []Event{broadcast(EventTourneyUpdate, t.ToClientState())}, nil
}

// KickBot vacates a bot seat.
func (s *Service) KickBot(t *domain.Tourney, seatPos *int) ([]Event, error) {
	if seatPos == nil {
		return nil, NewError(CodeMissingSeatPosition, "seatPosition is required")
	}
	if code := t.KickBot(*seatPos); code != "" {
		return nil, ruleError(code)
	}
	return []Event{broadcast(EventTourneyUpdate, t.ToClientState())}, nil
}

// Play puts the caller's cards on the table, runs any bot turns they
// trigger, and closes the game out when it ends.
func (s *Service) Play(t *domain.Tourney, playerID string, cards []domain.Card) ([]Event, error) {
	seat := t.SeatOf(playerID)
	if seat == nil {
		return nil, ruleError(domain.CodeNotInTourney)
	}
	g := t.CurrentGame
	if g == nil {
		return nil, NewError(CodeNoActiveGame, "no game in progress")
	}
	if !g.HasCards(seat.Position, cards) {
		return nil, NewError(domain.ReasonInvalidCombo, "you do not hold those cards")
	}
	if ok, reason := g.CanPlay(seat.Position, cards); !ok {
		return nil, ruleError(reason)
	}
	g.PlayCards(seat.Position, cards)
	return s.afterMove(t, g), nil
}

// Pass folds the caller for the current trick.
func (s *Service) Pass(t *domain.Tourney, playerID string) ([]Event, error) {
	seat := t.SeatOf(playerID)
	if seat == nil {
		return nil, ruleError(domain.CodeNotInTourney)
	}
	g := t.CurrentGame
	if g == nil {
		return nil, NewError(CodeNoActiveGame, "no game in progress")
	}
	if !g.PassTurn(seat.Position) {
		return nil, NewError(CodeCantPass, "you cannot pass right now")
	}
	return s.afterMove(t, g), nil
}

// Reconnect rebinds a dropped player's new connection to the seat they
// already own and replays the frames their client needs to catch up.
func (s *Service) Reconnect(t *domain.Tourney, playerID, connectionID string, seatPos *int) ([]Event, error) {
	if seatPos == nil {
		return nil, NewError(CodeMissingSeatPosition, "seatPosition is required")
	}
	if *seatPos < 0 || *seatPos >= domain.SeatCount {
		return nil, ruleError(domain.CodeInvalidSeat)
	}
	seat := t.Seats[*seatPos]
	if seat.IsEmpty() {
		return nil, ruleError(domain.CodeSeatNotFound)
	}
	if seat.PlayerID != playerID {
		return nil, ruleError(domain.CodeSeatTaken)
	}
	seat.ConnectionID = connectionID
	seat.DisconnectedAt = 0

	events := []Event{broadcast(EventTourneyUpdate, t.ToClientState())}
	if g := t.CurrentGame; g != nil {
		events = append(events,
			private(EventGameStarted, startedPayload(g, seat.Position), connectionID),
			private(EventGameUpdated, updatedPayload(g, seat.Position), connectionID),
		)
	} else if t.Status == domain.StatusCompleted && len(t.GameHistory) > 0 {
		last := t.GameHistory[len(t.GameHistory)-1]
		winner := t.WinnerPosition()
		events = append(events, private(EventGameOver, GameOverPayload{
			WinOrder:        last.WinOrder,
			PointsAwarded:   last.PointsAwarded,
			Leaderboard:     t.Leaderboard(),
			TourneyComplete: true,
			Winner:          &winner,
		}, connectionID))
	}
	return events, nil
}

// Reset discards the tournament and starts over empty.
func (s *Service) Reset() (*domain.Tourney, []Event) {
	t := s.NewTourney()
	return t, []Event{broadcast(EventTourneyUpdate, t.ToClientState())}
}

// QuickStart resets, seats the caller, fills the table with bots and deals
// immediately. Debug path.
func (s *Service) QuickStart(playerID, playerName, connectionID string, seatPos *int) (*domain.Tourney, []Event, error) {
	t := s.NewTourney()
	pos := -1
	if seatPos != nil {
		pos = *seatPos
	}
	if _, code := t.ClaimSeat(playerID, playerName, connectionID, pos); code != "" {
		return nil, nil, ruleError(code)
	}
	for _, seat := range t.Seats {
		if seat.IsEmpty() {
			botID := fmt.Sprintf("bot_%08x", s.rng.Uint32())
			if code := t.AddBot(seat.Position, "", botID); code != "" {
				return nil, nil, ruleError(code)
			}
		}
	}
	started, code := t.SetReady(playerID, true)
	if code != "" {
		return nil, nil, ruleError(code)
	}
	events := []Event{broadcast(EventTourneyUpdate, t.ToClientState())}
	if started {
		events = append(events, s.startGame(t)...)
	}
	return t, events, nil
}

// startGame deals and announces a fresh game, then lets bots act until a
// human's turn comes up.
func (s *Service) startGame(t *domain.Tourney) []Event {
	g := t.StartGame(s.rng)
	events := []Event{}
	for _, seat := range humanSeats(t) {
		events = append(events, private(EventGameStarted, startedPayload(g, seat.Position), seat.ConnectionID))
	}
	moves := bot.ExecuteTurns(t, g)
	if g.IsOver() {
		return append(events, s.finishGame(t, g)...)
	}
	if len(moves) > 0 {
		events = append(events, gameUpdatedEvents(t, g)...)
	}
	return events
}

// afterMove runs pending bot turns and emits either the new table state or
// the game-over sequence.
func (s *Service) afterMove(t *domain.Tourney, g *domain.Game) []Event {
	bot.ExecuteTurns(t, g)
	if g.IsOver() {
		return s.finishGame(t, g)
	}
	return gameUpdatedEvents(t, g)
}

// finishGame appends the last active seat to the win order, settles the
// scores and announces the result.
func (s *Service) finishGame(t *domain.Tourney, g *domain.Game) []Event {
	if rem := g.RemainingPlayer(); rem >= 0 {
		g.WinOrder = append(g.WinOrder, rem)
	}
	winOrder := append([]int(nil), g.WinOrder...)
	_, complete := t.CompleteGame(winOrder, s.now().Unix())

	last := t.GameHistory[len(t.GameHistory)-1]
	payload := GameOverPayload{
		WinOrder:        last.WinOrder,
		PointsAwarded:   last.PointsAwarded,
		Leaderboard:     t.Leaderboard(),
		TourneyComplete: complete,
	}
	if complete {
		winner := t.WinnerPosition()
		payload.Winner = &winner
	}
	events := []Event{}
	if recipients := humanConnections(t); len(recipients) > 0 {
		events = append(events, Event{Kind: EventGameOver, Payload: payload, Recipients: recipients})
	}
	return append(events, broadcast(EventTourneyUpdate, t.ToClientState()))
}

func startedPayload(g *domain.Game, pos int) GameStartedPayload {
	return GameStartedPayload{
		YourPosition:  pos,
		YourHand:      append([]domain.Card(nil), g.Hands[pos]...),
		CurrentPlayer: g.CurrentPlayer,
		Players:       append([]string(nil), g.PlayerIDs...),
	}
}

func updatedPayload(g *domain.Game, pos int) GameUpdatedPayload {
	return GameUpdatedPayload{
		CurrentPlayer: g.CurrentPlayer,
		LastPlay:      g.LastPlay,
		PassedPlayers: append([]bool(nil), g.PassedPlayers...),
		HandCounts:    g.HandCounts(),
		YourHand:      append([]domain.Card(nil), g.Hands[pos]...),
	}
}

func gameUpdatedEvents(t *domain.Tourney, g *domain.Game) []Event {
	events := []Event{}
	for _, seat := range humanSeats(t) {
		events = append(events, private(EventGameUpdated, updatedPayload(g, seat.Position), seat.ConnectionID))
	}
	return events
}

// humanSeats returns occupied non-bot seats that still have a connection.
func humanSeats(t *domain.Tourney) []*domain.Seat {
	seats := []*domain.Seat{}
	for _, s := range t.Seats {
		if s.IsOccupied() && !s.IsBot && s.ConnectionID != "" {
			seats = append(seats, s)
		}
	}
	return seats
}

func humanConnections(t *domain.Tourney) []string {
	conns := []string{}
	for _, s := range humanSeats(t) {
		conns = append(conns, s.ConnectionID)
	}
	return conns
}
