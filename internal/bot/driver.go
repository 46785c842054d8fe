package bot

import "thirteen/internal/domain"

// turnCap bounds a single driver run. A game of Thirteen never takes this
// many moves; the cap guards against an engine bug looping forever.
const turnCap = 100

// Move is one bot action taken during a driver run.
type Move struct {
	PlayerPos int           `json:"playerPos"`
	Action    string        `json:"action"`
	Cards     []domain.Card `json:"cards,omitempty"`
}

// ExecuteTurns runs bot seats until a human's turn comes up or the game
// ends, committing each move to the game as it goes.
func ExecuteTurns(t *domain.Tourney, g *domain.Game) []Move {
	moves := []Move{}
	for i := 0; i < turnCap; i++ {
		if g.IsOver() {
			break
		}
		seat := t.Seats[g.CurrentPlayer]
		if !seat.IsBot {
			break
		}
		pos := g.CurrentPlayer
		cards := ChoosePlay(g, pos)
		if len(cards) > 0 {
			if ok, _ := g.CanPlay(pos, cards); ok {
				g.PlayCards(pos, cards)
				moves = append(moves, Move{PlayerPos: pos, Action: domain.ActionPlay, Cards: cards})
				continue
			}
		}
		if g.PassTurn(pos) {
			moves = append(moves, Move{PlayerPos: pos, Action: domain.ActionPass})
			continue
		}
		// Neither play nor pass went through; the seat holds power with
		// no cards to shed, which IsOver should have caught. Bail out.
		break
	}
	return moves
}
