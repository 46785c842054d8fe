// Package bot implements the greedy seat-filling player. It owns no rule
// logic of its own: every candidate play is vetted through the game engine
// before the policy considers it.
package bot

import (
	"sort"

	"thirteen/internal/domain"
)

// Evaluation holds the legal plays available to a seat, grouped by combo
// category.
type Evaluation struct {
	Singles [][]domain.Card
	Pairs   [][]domain.Card
	Triples [][]domain.Card
	Quads   [][]domain.Card
	Runs    [][]domain.Card
	Bombs   [][]domain.Card
}

// All flattens the evaluation into one candidate list.
func (e Evaluation) All() [][]domain.Card {
	out := [][]domain.Card{}
	out = append(out, e.Singles...)
	out = append(out, e.Pairs...)
	out = append(out, e.Triples...)
	out = append(out, e.Quads...)
	out = append(out, e.Runs...)
	out = append(out, e.Bombs...)
	return out
}

// Evaluate enumerates every play the seat may legally make right now. When
// the last play is a run or bomb, enumeration only generates candidates of
// the required length.
func Evaluate(g *domain.Game, pos int) Evaluation {
	hand := append([]domain.Card(nil), g.Hands[pos]...)
	domain.SortCards(hand)

	buckets := rankBuckets(hand)
	ranks := sortedRanks(buckets)

	var eval Evaluation
	keep := func(dst *[][]domain.Card, cards []domain.Card) {
		if ok, _ := g.CanPlay(pos, cards); ok {
			*dst = append(*dst, cards)
		}
	}

	for _, c := range hand {
		keep(&eval.Singles, []domain.Card{c})
	}
	for _, r := range ranks {
		bucket := buckets[r]
		for _, cards := range combinations(bucket, 2) {
			keep(&eval.Pairs, cards)
		}
		for _, cards := range combinations(bucket, 3) {
			keep(&eval.Triples, cards)
		}
		if len(bucket) == 4 {
			keep(&eval.Quads, append([]domain.Card(nil), bucket...))
		}
	}
	for _, cards := range enumerateRuns(buckets, ranks, runLength(g.LastPlay)) {
		keep(&eval.Runs, cards)
	}
	for _, cards := range enumerateBombs(buckets, ranks, bombPairs(g.LastPlay)) {
		keep(&eval.Bombs, cards)
	}
	return eval
}

// runLength returns the required run length, or 0 when any length goes.
func runLength(last *domain.Play) int {
	if last != nil && last.Combo == domain.ComboRun {
		return len(last.Cards)
	}
	return 0
}

// bombPairs returns the required bomb size in pairs, or 0 when unconstrained.
func bombPairs(last *domain.Play) int {
	if last != nil && last.Combo == domain.ComboBomb {
		return len(last.Cards) / 2
	}
	return 0
}

func rankBuckets(hand []domain.Card) map[int][]domain.Card {
	buckets := map[int][]domain.Card{}
	for _, c := range hand {
		buckets[c.Rank] = append(buckets[c.Rank], c)
	}
	return buckets
}

func sortedRanks(buckets map[int][]domain.Card) []int {
	ranks := make([]int, 0, len(buckets))
	for r := range buckets {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	return ranks
}

// combinations returns every k-subset of the cards, preserving order.
func combinations(cards []domain.Card, k int) [][]domain.Card {
	if k > len(cards) {
		return nil
	}
	var out [][]domain.Card
	var pick func(start int, cur []domain.Card)
	pick = func(start int, cur []domain.Card) {
		if len(cur) == k {
			out = append(out, append([]domain.Card(nil), cur...))
			return
		}
		for i := start; i < len(cards); i++ {
			pick(i+1, append(cur, cards[i]))
		}
	}
	pick(0, nil)
	return out
}

// enumerateRuns produces consecutive-rank sequences with one representative
// (the lowest by suit) per rank. With fixedLen 0 it tries every length from
// 3 up; otherwise only runs of exactly fixedLen.
func enumerateRuns(buckets map[int][]domain.Card, ranks []int, fixedLen int) [][]domain.Card {
	var out [][]domain.Card
	for i := range ranks {
		if ranks[i] == domain.RankTwo {
			continue
		}
		run := []domain.Card{buckets[ranks[i]][0]}
		for j := i + 1; j < len(ranks); j++ {
			if ranks[j] == domain.RankTwo || ranks[j] != ranks[j-1]+1 {
				break
			}
			run = append(run, buckets[ranks[j]][0])
			if len(run) < 3 {
				continue
			}
			if fixedLen == 0 || len(run) == fixedLen {
				out = append(out, append([]domain.Card(nil), run...))
			}
			if fixedLen != 0 && len(run) >= fixedLen {
				break
			}
		}
	}
	return out
}

// enumerateBombs produces consecutive-pair windows over ranks holding at
// least two cards, taking the two lowest-suit cards of each rank. With
// fixedPairs 0 every window size from 3 pairs up is produced.
func enumerateBombs(buckets map[int][]domain.Card, ranks []int, fixedPairs int) [][]domain.Card {
	var pairRanks []int
	for _, r := range ranks {
		if r != domain.RankTwo && len(buckets[r]) >= 2 {
			pairRanks = append(pairRanks, r)
		}
	}
	var out [][]domain.Card
	for i := range pairRanks {
		window := []int{pairRanks[i]}
		for j := i + 1; j < len(pairRanks); j++ {
			if pairRanks[j] != pairRanks[j-1]+1 {
				break
			}
			window = append(window, pairRanks[j])
			if len(window) < 3 {
				continue
			}
			if fixedPairs == 0 || len(window) == fixedPairs {
				cards := make([]domain.Card, 0, len(window)*2)
				for _, r := range window {
					cards = append(cards, buckets[r][0], buckets[r][1])
				}
				out = append(out, cards)
			}
			if fixedPairs != 0 && len(window) >= fixedPairs {
				break
			}
		}
	}
	return out
}
