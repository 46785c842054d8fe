package domain

import "math/rand"

// NewDeck builds the canonical 52-card deck in value order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for rank := RankMin; rank <= RankMax; rank++ {
		for suit := SuitSpades; suit <= SuitHearts; suit++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// ShuffleDeck shuffles in place with the supplied source.
func ShuffleDeck(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}
