package bot

import (
	"math/rand"
	"testing"

	"thirteen/internal/domain"
)

func c(rank, suit int) domain.Card {
	return domain.Card{Rank: rank, Suit: suit}
}

// gameWithHands builds a game where seat 0 is to move and holds power.
func gameWithHands(hands [][]domain.Card) *domain.Game {
	g := domain.NewGame([]string{"p0", "p1", "p2", "p3"})
	for i, h := range hands {
		g.Hands[i] = append([]domain.Card(nil), h...)
		domain.SortCards(g.Hands[i])
	}
	return g
}

func TestEvaluateEnumeratesCategories(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(3, 0), c(3, 1), c(3, 2), c(4, 0), c(4, 1), c(5, 0), c(5, 1), c(6, 2)},
		{c(9, 0)}, {c(9, 1)}, {c(9, 2)},
	})
	eval := Evaluate(g, 0)

	if len(eval.Singles) != 8 {
		t.Errorf("singles = %d, want 8", len(eval.Singles))
	}
	// Rank 3 has three cards: C(3,2)=3 pairs; ranks 4 and 5 one pair each.
	if len(eval.Pairs) != 5 {
		t.Errorf("pairs = %d, want 5", len(eval.Pairs))
	}
	if len(eval.Triples) != 1 {
		t.Errorf("triples = %d, want 1", len(eval.Triples))
	}
	// Runs 3-4-5, 3-4-5-6, 4-5-6.
	if len(eval.Runs) != 3 {
		t.Errorf("runs = %d, want 3", len(eval.Runs))
	}
	// The 3-3 4-4 5-5 window exists in the hand, but a bomb cannot open.
	if len(eval.Bombs) != 0 {
		t.Errorf("bombs = %d, want 0 with power", len(eval.Bombs))
	}
}

func TestEvaluateRespectsLastPlay(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(9, 0)},
		{c(5, 0), c(6, 0), c(7, 0), c(8, 0), c(10, 1), c(10, 2)},
		{c(9, 2)}, {c(9, 3)},
	})
	// Seat 0 opens a three-card run; seat 1 must answer with one.
	g.PlayCards(0, []domain.Card{c(9, 0)})
	g.LastPlay = &domain.Play{Combo: domain.ComboRun, Cards: []domain.Card{c(3, 1), c(4, 1), c(5, 1)}}

	eval := Evaluate(g, 1)
	if len(eval.Singles) != 0 || len(eval.Pairs) != 0 {
		t.Errorf("mismatched combos leaked: %d singles, %d pairs", len(eval.Singles), len(eval.Pairs))
	}
	for _, run := range eval.Runs {
		if len(run) != 3 {
			t.Errorf("run of %d cards against a three-card run", len(run))
		}
	}
	if len(eval.Runs) != 2 {
		// 5-6-7 and 6-7-8
		t.Errorf("runs = %d, want 2", len(eval.Runs))
	}
}

func TestEvaluateBombAgainstPairOfTwos(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(9, 0)},
		{c(3, 0), c(3, 1), c(4, 0), c(4, 1), c(5, 0), c(5, 1), c(6, 0), c(6, 1)},
		{c(9, 2)}, {c(9, 3)},
	})
	g.PlayCards(0, []domain.Card{c(9, 0)})
	g.LastPlay = &domain.Play{Combo: domain.ComboPair, Cards: []domain.Card{c(15, 0), c(15, 1)}}

	eval := Evaluate(g, 1)
	if len(eval.Bombs) != 1 {
		t.Fatalf("bombs = %d, want exactly the four-pair chop", len(eval.Bombs))
	}
	if len(eval.Bombs[0]) != 8 {
		t.Errorf("bomb size = %d cards, want 8", len(eval.Bombs[0]))
	}
}

func TestChoosePlayWithPowerOpensLowestSingle(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(3, 0), c(3, 1), c(7, 0), c(8, 0), c(9, 0)},
		{c(9, 1)}, {c(9, 2)}, {c(9, 3)},
	})
	cards := ChoosePlay(g, 0)
	if len(cards) != 1 || cards[0] != c(3, 0) {
		t.Errorf("choice = %v, want the single 3 of Spades", cards)
	}
}

func TestChoosePlayPrefersLowestLegal(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(9, 0)},
		{c(10, 0), c(12, 1), c(14, 2)},
		{c(9, 2)}, {c(9, 3)},
	})
	g.PlayCards(0, []domain.Card{c(9, 0)})

	cards := ChoosePlay(g, 1)
	if len(cards) != 1 || cards[0] != c(10, 0) {
		t.Errorf("choice = %v, want the 10 of Spades", cards)
	}
}

func TestChoosePlayPassesWithNothingLegal(t *testing.T) {
	g := gameWithHands([][]domain.Card{
		{c(14, 3)},
		{c(3, 0), c(4, 0)},
		{c(9, 2)}, {c(9, 3)},
	})
	g.PlayCards(0, []domain.Card{c(14, 3)})

	if cards := ChoosePlay(g, 1); cards != nil {
		t.Errorf("choice = %v, want pass", cards)
	}
}

func TestExecuteTurnsStopsAtHuman(t *testing.T) {
	tn := domain.NewTourney(domain.DefaultTargetScore)
	tn.ClaimSeat("alice", "Alice", "conn-1", -1)
	tn.AddBot(1, "", "bot_1")
	tn.AddBot(2, "", "bot_2")
	tn.AddBot(3, "", "bot_3")
	tn.SetReady("alice", true)
	g := tn.StartGame(rand.New(rand.NewSource(5)))

	// Walk the human's turns automatically so the game can only stop on
	// the human seat or at game over.
	for i := 0; i < 200 && !g.IsOver(); i++ {
		if g.CurrentPlayer == 0 {
			cards := ChoosePlay(g, 0)
			if len(cards) > 0 {
				g.PlayCards(0, cards)
			} else if !g.PassTurn(0) {
				t.Fatal("human seat stuck with no legal action")
			}
		}
		moves := ExecuteTurns(tn, g)
		for _, m := range moves {
			if !tn.Seats[m.PlayerPos].IsBot {
				t.Fatalf("driver moved human seat %d", m.PlayerPos)
			}
			if m.Action != domain.ActionPlay && m.Action != domain.ActionPass {
				t.Fatalf("unknown action %q", m.Action)
			}
		}
		if !g.IsOver() && g.CurrentPlayer != 0 {
			t.Fatalf("driver stopped on bot seat %d", g.CurrentPlayer)
		}
	}
	if !g.IsOver() {
		t.Fatal("game never finished")
	}
	if len(g.WinOrder) < 3 {
		t.Errorf("win order = %v", g.WinOrder)
	}
}
