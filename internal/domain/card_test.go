package domain

import (
	"encoding/json"
	"testing"
)

func TestCardValueOrdering(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want int
	}{
		{"ThreeOfSpadesIsLowest", Card{Rank: 3, Suit: SuitSpades}, 12},
		{"ThreeOfHearts", Card{Rank: 3, Suit: SuitHearts}, 15},
		{"FourOfSpades", Card{Rank: 4, Suit: SuitSpades}, 16},
		{"TwoOfHeartsIsHighest", Card{Rank: RankTwo, Suit: SuitHearts}, 63},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.card.Value(); got != tc.want {
				t.Errorf("Value() = %d, want %d", got, tc.want)
			}
			if back := CardFromValue(tc.want); back != tc.card {
				t.Errorf("CardFromValue(%d) = %+v, want %+v", tc.want, back, tc.card)
			}
		})
	}
}

func TestSortCards(t *testing.T) {
	cards := []Card{
		{Rank: RankTwo, Suit: SuitHearts},
		{Rank: 3, Suit: SuitSpades},
		{Rank: 3, Suit: SuitHearts},
		{Rank: 10, Suit: SuitClubs},
	}
	SortCards(cards)
	for i := 1; i < len(cards); i++ {
		if cards[i-1].Value() >= cards[i].Value() {
			t.Fatalf("cards not sorted at %d: %v", i, cards)
		}
	}
	if (cards[0] != Card{Rank: 3, Suit: SuitSpades}) {
		t.Errorf("lowest card = %v, want 3 of Spades", cards[0])
	}
}

func TestCardJSONRoundTrip(t *testing.T) {
	orig := Card{Rank: RankQueen, Suit: SuitDiamonds}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Card
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != orig {
		t.Errorf("round trip = %+v, want %+v", decoded, orig)
	}
}

func TestCardJSONEmitsValue(t *testing.T) {
	data, err := json.Marshal(Card{Rank: 4, Suit: SuitClubs})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["value"] != 17 {
		t.Errorf("value = %d, want 17", raw["value"])
	}
}

func TestCardJSONValueOnlyRecord(t *testing.T) {
	var c Card
	if err := json.Unmarshal([]byte(`{"value":63}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Card{Rank: RankTwo, Suit: SuitHearts}
	if c != want {
		t.Errorf("decoded = %+v, want %+v", c, want)
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}
	seen := map[int]bool{}
	for _, c := range deck {
		v := c.Value()
		if seen[v] {
			t.Fatalf("duplicate card value %d", v)
		}
		seen[v] = true
	}
}
