package domain

import (
	"encoding/json"
	"fmt"
)

// Combo is the category a set of cards classifies as.
type Combo int

const (
	ComboInvalid Combo = iota
	ComboSingle
	ComboPair
	ComboTriple
	ComboQuad
	ComboRun
	ComboBomb
)

var comboNames = map[Combo]string{
	ComboInvalid: "INVALID",
	ComboSingle:  "SINGLE",
	ComboPair:    "PAIR",
	ComboTriple:  "TRIPLE",
	ComboQuad:    "QUAD",
	ComboRun:     "RUN",
	ComboBomb:    "BOMB",
}

var comboValues = map[string]Combo{
	"INVALID": ComboInvalid,
	"SINGLE":  ComboSingle,
	"PAIR":    ComboPair,
	"TRIPLE":  ComboTriple,
	"QUAD":    ComboQuad,
	"RUN":     ComboRun,
	"BOMB":    ComboBomb,
}

func (c Combo) String() string {
	if name, ok := comboNames[c]; ok {
		return name
	}
	return "INVALID"
}

func (c Combo) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Combo) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := comboValues[name]
	if !ok {
		return fmt.Errorf("unknown combo %q", name)
	}
	*c = v
	return nil
}

// Play is a classified set of cards on the table.
type Play struct {
	Combo  Combo  `json:"combo"`
	Cards  []Card `json:"cards"` // sorted ascending by value
	Suited bool   `json:"suited"`
}

// HighCard is the strongest card of the play.
func (p Play) HighCard() Card {
	return p.Cards[len(p.Cards)-1]
}

// pairCount is the bomb length in consecutive pairs.
func (p Play) pairCount() int {
	return len(p.Cards) / 2
}

// DeterminePlay classifies a set of cards. The returned play carries the
// cards sorted ascending by value; an unclassifiable set yields ComboInvalid.
func DeterminePlay(cards []Card) Play {
	sorted := sortedCopy(cards)
	p := Play{Combo: classify(sorted), Cards: sorted}
	if p.Combo != ComboInvalid {
		p.Suited = sameSuit(sorted)
	}
	return p
}

func classify(s []Card) Combo {
	switch n := len(s); {
	case n == 0:
		return ComboInvalid
	case n == 1:
		return ComboSingle
	case n <= 4 && sameRank(s):
		switch n {
		case 2:
			return ComboPair
		case 3:
			return ComboTriple
		default:
			return ComboQuad
		}
	}
	if isRun(s) {
		return ComboRun
	}
	if isBomb(s) {
		return ComboBomb
	}
	return ComboInvalid
}

func sameRank(s []Card) bool {
	for _, c := range s[1:] {
		if c.Rank != s[0].Rank {
			return false
		}
	}
	return true
}

func sameSuit(s []Card) bool {
	for _, c := range s[1:] {
		if c.Suit != s[0].Suit {
			return false
		}
	}
	return true
}

// isRun reports 3+ strictly consecutive ranks with no 2s.
func isRun(s []Card) bool {
	if len(s) < 3 {
		return false
	}
	for i, c := range s {
		if c.Rank == RankTwo {
			return false
		}
		if i > 0 && c.Rank != s[i-1].Rank+1 {
			return false
		}
	}
	return true
}

// isBomb reports 3+ consecutive pairs with no 2s.
func isBomb(s []Card) bool {
	if len(s) < 6 || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i += 2 {
		if s[i].Rank == RankTwo || s[i].Rank != s[i+1].Rank {
			return false
		}
		if i > 0 && s[i].Rank != s[i-2].Rank+1 {
			return false
		}
	}
	return true
}

// Beats reports whether p beats last under the table rules, including the
// chop ladder against 2s.
func (p Play) Beats(last Play) bool {
	if p.Combo == ComboInvalid || last.Combo == ComboInvalid {
		return false
	}

	// Chops. A quad beats any single 2; a bomb of k pairs climbs the
	// ladder against singles, pairs and triples of 2s.
	lastIsTwos := last.HighCard().Rank == RankTwo
	if lastIsTwos {
		if p.Combo == ComboQuad && last.Combo == ComboSingle {
			return true
		}
		if p.Combo == ComboBomb {
			k := p.pairCount()
			switch last.Combo {
			case ComboSingle:
				return k >= 3
			case ComboPair:
				return k >= 4
			case ComboTriple:
				return k >= 5
			}
		}
	}

	if p.Combo != last.Combo || len(p.Cards) != len(last.Cards) {
		return false
	}
	// A suited run is only beaten by another suited run.
	if last.Combo == ComboRun && last.Suited && !p.Suited {
		return false
	}
	return p.HighCard().Value() > last.HighCard().Value()
}
