package domain

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Suit constants in the canonical Thirteen order. Spades is the lowest suit.
const (
	SuitSpades = iota
	SuitClubs
	SuitDiamonds
	SuitHearts
)

// Rank constants. Ranks run 3..15; the 2 outranks everything.
const (
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
	RankAce   = 14
	RankTwo   = 15

	RankMin = 3
	RankMax = 15
)

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// Card is a single playing card.
type Card struct {
	Rank int // 3..15 (J=11, Q=12, K=13, A=14, 2=15)
	Suit int // 0..3 (Spades, Clubs, Diamonds, Hearts)
}

// Value is the total ordering key over the deck. The 3 of Spades is 0.
func (c Card) Value() int {
	return c.Rank*4 + c.Suit
}

// CardFromValue reconstructs a card from its ordering key.
func CardFromValue(v int) Card {
	return Card{Rank: v / 4, Suit: v % 4}
}

var rankNames = map[int]string{
	RankJack:  "J",
	RankQueen: "Q",
	RankKing:  "K",
	RankAce:   "A",
	RankTwo:   "2",
}

var suitNames = [4]string{"♠", "♣", "♦", "♥"}

func (c Card) String() string {
	rank, ok := rankNames[c.Rank]
	if !ok {
		rank = strconv.Itoa(c.Rank)
	}
	if c.Suit < 0 || c.Suit > 3 {
		return rank + "?"
	}
	return rank + suitNames[c.Suit]
}

type cardJSON struct {
	Rank  int  `json:"rank"`
	Suit  int  `json:"suit"`
	Value *int `json:"value,omitempty"`
}

// MarshalJSON emits the wire form {rank, suit, value}.
func (c Card) MarshalJSON() ([]byte, error) {
	v := c.Value()
	return json.Marshal(cardJSON{Rank: c.Rank, Suit: c.Suit, Value: &v})
}

// UnmarshalJSON accepts {rank, suit} and tolerates value-only records.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Rank == 0 && raw.Suit == 0 && raw.Value != nil {
		*c = CardFromValue(*raw.Value)
		return nil
	}
	c.Rank = raw.Rank
	c.Suit = raw.Suit
	return nil
}

// SortCards orders cards in place by ascending value.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Value() < cards[j].Value()
	})
}

// sortedCopy returns the cards sorted ascending by value without
// touching the caller's slice.
func sortedCopy(cards []Card) []Card {
	out := append([]Card(nil), cards...)
	SortCards(out)
	return out
}
