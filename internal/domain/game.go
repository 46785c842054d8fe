package domain

import "math/rand"

// Rule reasons returned by CanPlay and PassTurn. These travel to clients
// verbatim as error codes.
const (
	ReasonNotYourTurn   = "NOT_YOUR_TURN"
	ReasonAlreadyPassed = "ALREADY_PASSED"
	ReasonInvalidCombo  = "INVALID_COMBO"
	ReasonCantOpenBomb  = "CANT_OPEN_WITH_BOMB"
	ReasonCantBeat      = "CANT_BEAT_LAST_PLAY"
)

// Move actions recorded in the history.
const (
	ActionPlay = "play"
	ActionPass = "pass"
)

// HandSize is the cards dealt to each seat.
const HandSize = 13

// MoveRecord is one entry of the game's move history.
type MoveRecord struct {
	PlayerPos int    `json:"playerPos"`
	Action    string `json:"action"`
	Cards     []Card `json:"cards,omitempty"`
}

// Game is one hand of Thirteen among four seats. A nil LastPlay means the
// current player holds power and may open.
type Game struct {
	PlayerIDs     []string     `json:"playerIds"`
	Hands         [][]Card     `json:"hands"`
	CurrentPlayer int          `json:"currentPlayer"`
	LastPlay      *Play        `json:"lastPlay"`
	PassedPlayers []bool       `json:"passedPlayers"`
	WinOrder      []int        `json:"winOrder"`
	MoveHistory   []MoveRecord `json:"moveHistory"`
	GameNumber    int          `json:"gameNumber,omitempty"`
}

// NewGame creates an undealt game for the given seat players.
func NewGame(playerIDs []string) *Game {
	return &Game{
		PlayerIDs:     append([]string(nil), playerIDs...),
		Hands:         make([][]Card, SeatCount),
		PassedPlayers: make([]bool, SeatCount),
		WinOrder:      []int{},
		MoveHistory:   []MoveRecord{},
	}
}

// Deal shuffles a fresh deck and hands 13 cards to each seat, sorted by
// value. The holder of the 3 of Spades starts with power.
func (g *Game) Deal(rng *rand.Rand) {
	deck := NewDeck()
	ShuffleDeck(deck, rng)
	for pos := 0; pos < SeatCount; pos++ {
		hand := append([]Card(nil), deck[pos*HandSize:(pos+1)*HandSize]...)
		SortCards(hand)
		g.Hands[pos] = hand
	}
	g.CurrentPlayer = 0
	for pos, hand := range g.Hands {
		for _, c := range hand {
			if c.Rank == RankMin && c.Suit == SuitSpades {
				g.CurrentPlayer = pos
			}
		}
	}
	g.LastPlay = nil
	g.PassedPlayers = make([]bool, SeatCount)
	g.WinOrder = []int{}
	g.MoveHistory = []MoveRecord{}
}

// HasCards reports whether the seat holds every given card.
func (g *Game) HasCards(pos int, cards []Card) bool {
	if pos < 0 || pos >= len(g.Hands) {
		return false
	}
	held := make(map[int]int, len(g.Hands[pos]))
	for _, c := range g.Hands[pos] {
		held[c.Value()]++
	}
	for _, c := range cards {
		if held[c.Value()] == 0 {
			return false
		}
		held[c.Value()]--
	}
	return true
}

// CanPlay checks whether the seat may put down the given cards right now.
// The reason string is empty on success.
func (g *Game) CanPlay(pos int, cards []Card) (bool, string) {
	if pos != g.CurrentPlayer {
		return false, ReasonNotYourTurn
	}
	if g.PassedPlayers[pos] {
		return false, ReasonAlreadyPassed
	}
	play := DeterminePlay(cards)
	if play.Combo == ComboInvalid {
		return false, ReasonInvalidCombo
	}
	if g.LastPlay == nil {
		if play.Combo == ComboBomb {
			return false, ReasonCantOpenBomb
		}
		return true, ""
	}
	if !play.Beats(*g.LastPlay) {
		return false, ReasonCantBeat
	}
	return true, ""
}

// PlayCards commits a play already vetted by CanPlay.
func (g *Game) PlayCards(pos int, cards []Card) {
	play := DeterminePlay(cards)
	g.removeCards(pos, play.Cards)
	g.LastPlay = &play
	g.PassedPlayers = make([]bool, SeatCount)
	g.MoveHistory = append(g.MoveHistory, MoveRecord{
		PlayerPos: pos,
		Action:    ActionPlay,
		Cards:     play.Cards,
	})
	if len(g.Hands[pos]) == 0 {
		g.WinOrder = append(g.WinOrder, pos)
	}
	g.advanceTurn()
}

// PassTurn records a pass. It fails when the seat is out of turn, holds
// power, or already passed this trick.
func (g *Game) PassTurn(pos int) bool {
	if pos != g.CurrentPlayer || g.LastPlay == nil || g.PassedPlayers[pos] {
		return false
	}
	g.PassedPlayers[pos] = true
	g.MoveHistory = append(g.MoveHistory, MoveRecord{PlayerPos: pos, Action: ActionPass})
	g.advanceTurn()
	return true
}

func (g *Game) removeCards(pos int, cards []Card) {
	hand := g.Hands[pos]
	for _, c := range cards {
		for i, h := range hand {
			if h.Value() == c.Value() {
				hand = append(hand[:i], hand[i+1:]...)
				break
			}
		}
	}
	g.Hands[pos] = hand
}

// advanceTurn moves to the next seat still in the game, then grants power
// when every other active seat has passed.
func (g *Game) advanceTurn() {
	for i := 0; i < SeatCount; i++ {
		g.CurrentPlayer = (g.CurrentPlayer + 1) % SeatCount
		if !g.hasWon(g.CurrentPlayer) {
			break
		}
	}
	for pos := 0; pos < SeatCount; pos++ {
		if pos == g.CurrentPlayer || g.hasWon(pos) {
			continue
		}
		if !g.PassedPlayers[pos] {
			return
		}
	}
	g.LastPlay = nil
	g.PassedPlayers = make([]bool, SeatCount)
}

func (g *Game) hasWon(pos int) bool {
	for _, w := range g.WinOrder {
		if w == pos {
			return true
		}
	}
	return false
}

// IsOver reports whether only one active seat remains.
func (g *Game) IsOver() bool {
	return len(g.WinOrder) >= SeatCount-1
}

// RemainingPlayer returns the single seat not yet in the win order, or -1
// when more than one remains.
func (g *Game) RemainingPlayer() int {
	if !g.IsOver() {
		return -1
	}
	for pos := 0; pos < SeatCount; pos++ {
		if !g.hasWon(pos) {
			return pos
		}
	}
	return -1
}

// HandCounts returns the number of cards left per seat.
func (g *Game) HandCounts() []int {
	counts := make([]int, len(g.Hands))
	for i, h := range g.Hands {
		counts[i] = len(h)
	}
	return counts
}
