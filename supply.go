package main

import (
	"math/rand"
)

// letterCounts is a multiset over A-Z, indexed by letter-'A'.
type letterCounts [26]int

func countLetters(words ...string) letterCounts {
	var counts letterCounts
	for _, word := range words {
		for i := 0; i < len(word); i++ {
			counts[word[i]-'A']++
		}
	}
	return counts
}

// supplyComposition is the tile bag a fresh game starts with: 21 distinct
// letters, 64 tiles total. J, Q, V, X and Z are deliberately absent.
var supplyComposition = map[byte]int{
	'A': 4, 'B': 2, 'C': 3, 'D': 3, 'E': 6, 'F': 2, 'G': 2,
	'H': 3, 'I': 4, 'K': 2, 'L': 3, 'M': 2, 'N': 3, 'O': 4,
	'P': 2, 'R': 4, 'S': 4, 'T': 4, 'U': 3, 'W': 2, 'Y': 2,
}

// letterSupply is the shared pool of letter tiles that player words and NPC
// hands are drawn from. Counts never go negative; removal is all-or-nothing.
type letterSupply struct {
	counts letterCounts
	size   int
}

func newLetterSupply() *letterSupply {
	ls := &letterSupply{}
	for letter, count := range supplyComposition {
		ls.counts[letter-'A'] = count
		ls.size += count
	}
	return ls
}

func (ls *letterSupply) count(letter byte) int {
	return ls.counts[letter-'A']
}

// removeAll removes the given multiset of letters from the supply. If any
// letter's requirement exceeds its current count, nothing is removed and
// false is returned.
func (ls *letterSupply) removeAll(requirement letterCounts) bool {
	total := 0
	for i, needed := range requirement {
		if needed > ls.counts[i] {
			return false
		}
		total += needed
	}
	for i, needed := range requirement {
		ls.counts[i] -= needed
	}
	ls.size -= total
	return true
}

// popArbitrary removes and returns one letter chosen uniformly at random,
// without replacement, from the remaining tiles. Returns false if the supply
// is empty.
func (ls *letterSupply) popArbitrary() (byte, bool) {
	if ls.size == 0 {
		return 0, false
	}
	n := rand.Intn(ls.size)
	for i, count := range ls.counts {
		if n < count {
			ls.counts[i]--
			ls.size--
			return 'A' + byte(i), true
		}
		n -= count
	}
	// Unreachable while size matches the sum of counts.
	return 0, false
}
