package main

import (
	"fmt"
	"math/rand"
)

var errNoPossibleCombination = fmt.Errorf("%w: no possible combination of words", errUnprocessable)

// maxDealCandidates bounds the brute-force combination search. The expected
// operating parameters (a few thousand eligible words, at most six per deal)
// find a fit almost immediately, so the budget only matters for pathological
// supplies.
const maxDealCandidates = 200000

// dealWords picks wordCount distinct words of length wordLength from the
// corpus whose combined letters fit the supply, removes those letters from
// the supply, and returns the words. Candidate order is randomized so
// repeated deals with the same inputs produce different words.
//
// On failure the supply is left untouched and errNoPossibleCombination is
// returned.
func dealWords(supply *letterSupply, corpus *wordCorpus, wordLength int, wordCount int) ([]string, error) {
	if wordCount == 0 {
		return nil, nil
	}

	eligible := corpus.wordsOfLength(wordLength)
	if wordCount < 0 || wordCount > len(eligible) {
		return nil, errNoPossibleCombination
	}
	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	// First-fit search over combinations without repetition, in the shuffled
	// order. indices walks the standard lexicographic combination sequence.
	indices := make([]int, wordCount)
	for i := range indices {
		indices[i] = i
	}

	words := make([]string, wordCount)
	for candidates := 0; candidates < maxDealCandidates; candidates++ {
		for i, idx := range indices {
			words[i] = eligible[idx]
		}

		required := countLetters(words...)
		if supply.removeAll(required) {
			return words, nil
		}

		// Advance to the next combination.
		i := wordCount - 1
		for i >= 0 && indices[i] == len(eligible)-wordCount+i {
			i--
		}
		if i < 0 {
			return nil, errNoPossibleCombination
		}
		indices[i]++
		for j := i + 1; j < wordCount; j++ {
			indices[j] = indices[j-1] + 1
		}
	}

	return nil, errNoPossibleCombination
}
