package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *client {
	return &client{send: make(chan []byte, 64)}
}

// newTestGame builds a game against the embedded corpus with the given
// players, each already connected.
func newTestGame(t *testing.T, wordLength int, names ...string) *game {
	t.Helper()

	corpus, err := loadCorpus("")
	require.NoError(t, err)

	g := newGame(&Config{}, corpus, "test-game", gameSettings{PlayerWordLength: wordLength})
	for _, name := range names {
		require.NoError(t, g.addPlayer(name))
		require.NoError(t, g.connect(name, testClient()))
	}
	return g
}

func decodeSnapshot(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestAddPlayerDuplicateConflict(t *testing.T) {
	g := newTestGame(t, 3, "Alice")

	err := g.addPlayer("Alice")
	require.ErrorIs(t, err, errConflict)
	assert.Len(t, g.players, 1, "player list must be unchanged")
}

func TestRemovePlayerNotFound(t *testing.T) {
	g := newTestGame(t, 3, "Alice")

	assert.ErrorIs(t, g.removePlayer("Bob"), errNotFound)
	assert.NoError(t, g.removePlayer("Alice"))
	assert.Empty(t, g.players)
}

func TestStartRequiresConnectedPlayers(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	g.players[1].client = nil

	err := g.start()
	require.ErrorIs(t, err, errConflict)
	assert.Equal(t, phaseLobby, g.phase.kind)
}

func TestStartOnlyFromLobby(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())

	err := g.start()
	assert.ErrorIs(t, err, errConflict)
}

func TestStartDealsWordsAndFillsSeats(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())

	assert.Equal(t, phaseVote, g.phase.kind)

	seen := make(map[string]bool)
	for _, p := range g.players {
		require.Len(t, p.word, 3)
		assert.True(t, g.corpus.contains(p.word))
		assert.False(t, seen[p.word], "dealt words must be distinct")
		seen[p.word] = true

		// Deck plus revealed letter reconstructs the word's letters exactly.
		reconstructed := countLetters(string(p.deck), string(p.letter))
		assert.Equal(t, countLetters(p.word), reconstructed)
	}

	require.Len(t, g.npcs, 4)
	for i, n := range g.npcs {
		assert.Equal(t, npcNames[i], n.name)
		assert.Equal(t, npcFirstDeckSize+i, n.deckSize)
		assert.NotZero(t, n.letter)
	}

	// Every tile is either still in the supply, in a player's word, or in an
	// NPC's hand (plus its revealed letter). Nothing invented, nothing lost.
	allocated := 0
	for _, p := range g.players {
		allocated += len(p.word)
	}
	for _, n := range g.npcs {
		allocated += n.deckSize + 1
	}
	assert.Equal(t, 64, g.supply.size+allocated)
}

func TestQuorum(t *testing.T) {
	tests := []struct {
		players int
		quorum  int
	}{
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
		{6, 4},
	}
	for _, tt := range tests {
		g := &game{players: make([]*player, tt.players)}
		assert.Equal(t, tt.quorum, g.quorumLocked(), "%d players", tt.players)
	}
}

func TestTallyVotes(t *testing.T) {
	g := &game{players: []*player{
		{name: "A", vote: "B"},
		{name: "B", vote: "C"},
		{name: "C", vote: "B"},
		{name: "D", vote: ""},
		{name: "E", vote: "Nobody"},
	}}
	g.players = append(g.players, &player{name: "Nobody2"})

	leader, count := g.tallyVotesLocked()
	assert.Equal(t, "B", leader)
	assert.Equal(t, 2, count, "votes for non-players must not count")
}

func TestTallyVotesTieBreaksByFirstEncounter(t *testing.T) {
	g := &game{players: []*player{
		{name: "A", vote: "B"},
		{name: "B", vote: "A"},
		{name: "C"},
	}}

	leader, count := g.tallyVotesLocked()
	assert.Equal(t, "B", leader, "first-encountered leader wins ties")
	assert.Equal(t, 1, count)
}

func TestVoteOutsideVotePhaseConflicts(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")

	err := g.castVote("Alice", "Bob")
	require.ErrorIs(t, err, errConflict)
	assert.Contains(t, err.Error(), "vote phase")
}

func TestVoteQuorumElectsClueGiver(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())

	// 1 of 2 votes: below quorum, still voting.
	require.NoError(t, g.castVote("Alice", "Bob"))
	assert.Equal(t, phaseVote, g.phase.kind)

	// 2 of 2: Bob is elected.
	require.NoError(t, g.castVote("Bob", "Bob"))
	require.Equal(t, phaseClue, g.phase.kind)
	assert.Equal(t, "Bob", g.phase.clueGiver)
}

func TestSubmitClueRequiresCluePhase(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")

	err := g.submitClue(clue{{kind: tokenWild}})
	assert.ErrorIs(t, err, errConflict)
}

func TestSubmitClueUnknownReference(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())
	require.NoError(t, g.castVote("Alice", "Bob"))
	require.NoError(t, g.castVote("Bob", "Bob"))

	err := g.submitClue(clue{{kind: tokenPlayer, name: "Mallory"}})
	require.ErrorIs(t, err, errNotFound)
	assert.Equal(t, phaseClue, g.phase.kind)

	err = g.submitClue(clue{{kind: tokenNpc, name: "Zulu"}})
	assert.ErrorIs(t, err, errNotFound)
}

func TestClueWithoutPlayerTokensCompletesImmediately(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())
	require.NoError(t, g.castVote("Alice", "Bob"))
	require.NoError(t, g.castVote("Bob", "Bob"))

	tokens := clue{
		{kind: tokenWild},
		{kind: tokenNpc, name: g.npcs[0].name},
	}
	require.NoError(t, g.submitClue(tokens))

	// Straight back to the next round's vote, with votes cleared.
	assert.Equal(t, phaseVote, g.phase.kind)
	for _, p := range g.players {
		assert.Empty(t, p.vote)
		assert.Equal(t, guessUnset, p.guess)
	}
}

func TestGuessPhaseCompletion(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob", "Carol")
	require.NoError(t, g.start())
	require.NoError(t, g.castVote("Alice", "Carol"))
	require.NoError(t, g.castVote("Bob", "Carol"))
	require.Equal(t, phaseClue, g.phase.kind)

	tokens := clue{
		{kind: tokenPlayer, name: "Alice"},
		{kind: tokenWild},
		{kind: tokenPlayer, name: "Bob"},
	}
	require.NoError(t, g.submitClue(tokens))
	require.Equal(t, phaseGuess, g.phase.kind)

	// Carol is not referenced; her state is not required.
	require.NoError(t, g.setGuessState("Alice", guessMoveOn))
	assert.Equal(t, phaseGuess, g.phase.kind, "waiting on Bob")

	require.NoError(t, g.setGuessState("Bob", guessStay))
	assert.Equal(t, phaseVote, g.phase.kind)

	// Round reset: all votes and guess states cleared, NPCs untouched.
	for _, p := range g.players {
		assert.Empty(t, p.vote)
		assert.Equal(t, guessUnset, p.guess)
	}
	assert.Len(t, g.npcs, 3)
}

func TestGuessStateOutsideGuessPhase(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())

	err := g.setGuessState("Alice", guessMoveOn)
	assert.ErrorIs(t, err, errConflict)
}

func TestClueCandidateRoundTrip(t *testing.T) {
	g := newTestGame(t, 3, "Alice")

	candidate := clueCandidate{Length: 5, PlayerCount: 2, NpcCount: 1, Wild: true}
	require.NoError(t, g.setClueCandidate("Alice", candidate))
	require.NotNil(t, g.players[0].clueCandidate)
	assert.Equal(t, candidate, *g.players[0].clueCandidate)

	require.NoError(t, g.clearClueCandidate("Alice"))
	assert.Nil(t, g.players[0].clueCandidate)

	assert.ErrorIs(t, g.setClueCandidate("Mallory", candidate), errNotFound)
}

func TestBroadcastDropsUnresponsiveConnection(t *testing.T) {
	g := newTestGame(t, 3, "Alice")

	// An unbuffered channel with no reader cannot accept the push.
	stuck := &client{send: make(chan []byte)}
	require.NoError(t, g.connect("Alice", stuck))

	require.NoError(t, g.setClueCandidate("Alice", clueCandidate{Length: 3}))
	assert.Nil(t, g.players[0].client, "failed push must mark the player disconnected")
}

func TestSnapshotShape(t *testing.T) {
	g := newTestGame(t, 3, "Alice", "Bob")
	require.NoError(t, g.start())
	require.NoError(t, g.castVote("Alice", "Bob"))
	require.NoError(t, g.castVote("Bob", "Bob"))
	require.NoError(t, g.submitClue(clue{{kind: tokenPlayer, name: "Alice"}}))

	snap := decodeSnapshot(t, g.snapshot())
	assert.Equal(t, "test-game", snap["id"])

	phase := snap["phase"].(map[string]any)
	assert.Equal(t, "guess", phase["name"])
	assert.Equal(t, "Bob", phase["clueGiver"])

	tokens := phase["clue"].([]any)
	require.Len(t, tokens, 1)
	assert.Equal(t, map[string]any{"kind": "player", "playerName": "Alice"}, tokens[0])

	players := snap["players"].([]any)
	require.Len(t, players, 2)
	alice := players[0].(map[string]any)
	assert.Equal(t, "Alice", alice["name"])
	assert.Equal(t, true, alice["connected"])
	assert.Equal(t, float64(2), alice["deckSize"])
	assert.Len(t, alice["letter"], 1)
	assert.NotContains(t, alice, "word", "secret word must not leak into snapshots")
	assert.NotContains(t, alice, "deck", "secret deck must not leak into snapshots")

	npcs := snap["npcs"].([]any)
	require.Len(t, npcs, 4)
}

// The end-to-end round from the player's perspective: create, join, start,
// vote, clue with no player references, and back to voting.
func TestFullRoundScenario(t *testing.T) {
	g := newTestGame(t, 3, "A", "B")
	require.NoError(t, g.start())
	require.Equal(t, phaseVote, g.phase.kind)

	for _, p := range g.players {
		assert.Len(t, p.word, 3)
	}

	require.NoError(t, g.castVote("A", "B"))
	assert.Equal(t, phaseVote, g.phase.kind, "1 of 2 votes is below quorum")

	require.NoError(t, g.castVote("B", "B"))
	require.Equal(t, phaseClue, g.phase.kind)
	require.Equal(t, "B", g.phase.clueGiver)

	require.NoError(t, g.submitClue(clue{{kind: tokenWild}}))
	assert.Equal(t, phaseVote, g.phase.kind)
	assert.Empty(t, g.players[0].vote)
	assert.Empty(t, g.players[1].vote)
}
