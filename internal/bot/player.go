package bot

import "thirteen/internal/domain"

// ChoosePlay picks the cards the bot should put down, or nil to pass. The
// policy is greedy: shed the lowest cards that are legal. With power the
// bot always opens on its single lowest card.
func ChoosePlay(g *domain.Game, pos int) []domain.Card {
	if g.LastPlay == nil {
		hand := g.Hands[pos]
		if len(hand) == 0 {
			return nil
		}
		lowest := hand[0]
		for _, c := range hand[1:] {
			if c.Value() < lowest.Value() {
				lowest = c
			}
		}
		return []domain.Card{lowest}
	}

	candidates := Evaluate(g, pos).All()
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	bestMax := maxValue(best)
	for _, cand := range candidates[1:] {
		if m := maxValue(cand); m < bestMax {
			best, bestMax = cand, m
		}
	}
	return best
}

func maxValue(cards []domain.Card) int {
	max := -1
	for _, c := range cards {
		if v := c.Value(); v > max {
			max = v
		}
	}
	return max
}
