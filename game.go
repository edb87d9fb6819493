// ulg cooperative word-deduction game
//
// Each player is secretly dealt a word drawn from a shared 64-tile letter
// supply. One letter of each word is revealed on a stand facing the other
// players; the rest stays hidden in that player's deck. Empty seats are
// filled with NPCs holding letter hands of increasing size.
//
// Rounds cycle through three phases:
//   - Vote: players propose clue candidates and vote for a clue giver.
//     A strict majority of players elects the clue giver.
//   - Clue: the elected player submits a clue, an ordered list of tokens
//     pointing at player stands, NPC stands, or a wildcard.
//   - Guess: every player referenced by the clue privately decides whether
//     their letter moves them forward ("move_on") or not ("stay"). Once all
//     referenced players have decided, votes and guesses reset and the next
//     round's vote begins.
//
// The lobby phase exists only before the first deal. Every state change is
// pushed to all connected players as a full snapshot over their websocket.

package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
)

// tableSize is the target seat count; empty seats are filled with NPCs.
const tableSize = 6

// npcFirstDeckSize is the hand size of the first filler NPC. Each additional
// NPC draws one more letter, so fewer humans means harder clues.
const npcFirstDeckSize = 7

// npcNames seats NPCs in fill order.
var npcNames = []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}

type gameSettings struct {
	PlayerWordLength int `json:"playerWordLength"`
}

type clueCandidate struct {
	Length      int  `json:"length"`
	PlayerCount int  `json:"playerCount"`
	NpcCount    int  `json:"npcCount"`
	Wild        bool `json:"wild"`
}

type guessState string

const (
	guessUnset  guessState = ""
	guessMoveOn guessState = "move_on"
	guessStay   guessState = "stay"
)

type player struct {
	name          string
	client        *client
	word          string
	deck          []byte
	letter        byte
	vote          string
	clueCandidate *clueCandidate
	guess         guessState
}

type npc struct {
	name     string
	letter   byte
	deckSize int
}

type tokenKind int

const (
	tokenWild tokenKind = iota
	tokenPlayer
	tokenNpc
)

// clueToken is one element of a clue: a wildcard, or a reference to a player
// or NPC stand.
type clueToken struct {
	kind tokenKind
	name string
}

func (t clueToken) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case tokenPlayer:
		return json.Marshal(map[string]string{"kind": "player", "playerName": t.name})
	case tokenNpc:
		return json.Marshal(map[string]string{"kind": "npc", "npcName": t.name})
	case tokenWild:
		return json.Marshal(map[string]string{"kind": "wild"})
	}
	return nil, fmt.Errorf("unknown token kind %d", t.kind)
}

func (t *clueToken) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind       string `json:"kind"`
		PlayerName string `json:"playerName"`
		NpcName    string `json:"npcName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "player":
		*t = clueToken{kind: tokenPlayer, name: raw.PlayerName}
	case "npc":
		*t = clueToken{kind: tokenNpc, name: raw.NpcName}
	case "wild":
		*t = clueToken{kind: tokenWild}
	default:
		return fmt.Errorf("unknown token kind %q", raw.Kind)
	}
	return nil
}

type clue []clueToken

type phaseKind int

const (
	phaseLobby phaseKind = iota
	phaseVote
	phaseClue
	phaseGuess
)

func (k phaseKind) String() string {
	switch k {
	case phaseLobby:
		return "lobby"
	case phaseVote:
		return "vote"
	case phaseClue:
		return "clue"
	case phaseGuess:
		return "guess"
	}
	return "unknown"
}

// phase is the session's current position in the round cycle. clueGiver is
// set while kind is phaseClue or phaseGuess; clue only while phaseGuess.
type phase struct {
	kind      phaseKind
	clueGiver string
	clue      clue
}

func (p phase) MarshalJSON() ([]byte, error) {
	out := map[string]any{"name": p.kind.String()}
	switch p.kind {
	case phaseClue:
		out["clueGiver"] = p.clueGiver
	case phaseGuess:
		out["clueGiver"] = p.clueGiver
		out["clue"] = p.clue
	}
	return json.Marshal(out)
}

// game is one session. All mutation happens under mu; every mutating action
// ends with a snapshot broadcast to all connected players.
type game struct {
	id       string
	settings gameSettings
	cfg      *Config
	corpus   *wordCorpus

	mu      sync.Mutex
	players []*player
	npcs    []*npc
	phase   phase
	supply  *letterSupply
}

func newGame(cfg *Config, corpus *wordCorpus, id string, settings gameSettings) *game {
	return &game{
		id:       id,
		settings: settings,
		cfg:      cfg,
		corpus:   corpus,
		phase:    phase{kind: phaseLobby},
		supply:   newLetterSupply(),
	}
}

func (g *game) playerLocked(name string) *player {
	for _, p := range g.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (g *game) hasPlayer(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerLocked(name) != nil
}

func (g *game) npcLocked(name string) *npc {
	for _, n := range g.npcs {
		if n.name == name {
			return n
		}
	}
	return nil
}

func (g *game) requirePhaseLocked(kind phaseKind) error {
	if g.phase.kind != kind {
		return fmt.Errorf("%w: action requires the %s phase (currently %s)",
			errConflict, kind, g.phase.kind)
	}
	return nil
}

func (g *game) addPlayer(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.playerLocked(name) != nil {
		return fmt.Errorf("%w: player %q already exists", errConflict, name)
	}
	g.players = append(g.players, &player{name: name})
	logf(g.cfg, "GAMES: Player %q joined %s", name, g.id)

	g.broadcastLocked()
	return nil
}

func (g *game) removePlayer(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	dst := g.players[:0]
	var removed *player
	for _, p := range g.players {
		if p.name == name {
			removed = p
			continue
		}
		dst = append(dst, p)
	}
	if removed == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	g.players = dst

	if removed.client != nil {
		removed.client.drop()
		removed.client = nil
	}
	logf(g.cfg, "GAMES: Player %q left %s", name, g.id)

	g.broadcastLocked()
	return nil
}

// connect attaches a push connection to a player, replacing any previous one.
func (g *game) connect(name string, c *client) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	if p.client != nil {
		p.client.drop()
	}
	p.client = c

	g.broadcastLocked()
	return nil
}

// disconnect detaches c from its player, if still attached. Safe to call
// multiple times.
func (g *game) disconnect(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.players {
		if p.client == c {
			p.client = nil
			logf(g.cfg, "GAMES: Player %q disconnected from %s", p.name, g.id)
			g.broadcastLocked()
			return
		}
	}
}

func (g *game) setClueCandidate(name string, candidate clueCandidate) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	p.clueCandidate = &candidate

	g.broadcastLocked()
	return nil
}

func (g *game) clearClueCandidate(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	p.clueCandidate = nil

	g.broadcastLocked()
	return nil
}

// start deals secret words to every player, fills the remaining seats with
// NPCs, and enters the first vote phase. Requires every player connected.
func (g *game) start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(phaseLobby); err != nil {
		return err
	}
	for _, p := range g.players {
		if p.client == nil {
			return fmt.Errorf("%w: player %q is not connected", errConflict, p.name)
		}
	}

	// Seat filling draws from whatever the deal leaves behind; make sure the
	// whole transition can succeed before committing any of it.
	npcDemand := 0
	for seat := len(g.players); seat < tableSize; seat++ {
		npcDemand += npcFirstDeckSize + (seat - len(g.players)) + 1
	}
	if g.supply.size-len(g.players)*g.settings.PlayerWordLength < npcDemand {
		return fmt.Errorf("%w: not enough letters for %d players with word length %d",
			errUnprocessable, len(g.players), g.settings.PlayerWordLength)
	}

	words, err := dealWords(g.supply, g.corpus, g.settings.PlayerWordLength, len(g.players))
	if err != nil {
		return err
	}

	for i, p := range g.players {
		p.word = words[i]
		deck := []byte(words[i])
		rand.Shuffle(len(deck), func(a, b int) {
			deck[a], deck[b] = deck[b], deck[a]
		})
		// The revealed letter comes from the player's own word, never from
		// the shared supply.
		p.letter = deck[len(deck)-1]
		p.deck = deck[:len(deck)-1]
	}

	if err := g.fillSeatsLocked(); err != nil {
		return err
	}

	g.phase = phase{kind: phaseVote}
	logf(g.cfg, "GAMES: Started %s with %d players and %d NPCs",
		g.id, len(g.players), len(g.npcs))

	g.broadcastLocked()
	return nil
}

// fillSeatsLocked adds NPCs until the table has tableSize seats. The first
// filler NPC draws npcFirstDeckSize letters, each subsequent one more, plus
// one revealed letter each, all from the shared supply.
func (g *game) fillSeatsLocked() error {
	for seat := len(g.players); seat < tableSize; seat++ {
		filler := seat - len(g.players)
		deckSize := npcFirstDeckSize + filler

		if g.supply.size < deckSize+1 {
			return fmt.Errorf("%w: letter supply exhausted while seating NPCs", errUnprocessable)
		}
		for i := 0; i < deckSize; i++ {
			// NPC hand contents are never consulted again, only their count.
			g.supply.popArbitrary()
		}
		letter, _ := g.supply.popArbitrary()

		g.npcs = append(g.npcs, &npc{
			name:     npcNames[filler],
			letter:   letter,
			deckSize: deckSize,
		})
	}
	return nil
}

// castVote records a player's vote (empty string clears it) and elects a
// clue giver once a strict majority agrees.
func (g *game) castVote(name string, choice string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	if err := g.requirePhaseLocked(phaseVote); err != nil {
		return err
	}
	p.vote = choice

	if leader, count := g.tallyVotesLocked(); leader != "" && count >= g.quorumLocked() {
		g.phase = phase{kind: phaseClue, clueGiver: leader}
		logf(g.cfg, "GAMES: %q elected clue giver in %s (%d votes)", leader, g.id, count)
	}

	g.broadcastLocked()
	return nil
}

// quorumLocked is the minimum vote count that elects a clue giver: a strict
// majority of human players. NPCs never vote and are not counted.
func (g *game) quorumLocked() int {
	return len(g.players)/2 + 1
}

// tallyVotesLocked returns the leading vote target and its count. Only votes
// naming a current player count. Ties break toward the target encountered
// first while scanning players in join order.
func (g *game) tallyVotesLocked() (string, int) {
	counts := make(map[string]int)
	var order []string

	for _, p := range g.players {
		if p.vote == "" || g.playerLocked(p.vote) == nil {
			continue
		}
		if _, seen := counts[p.vote]; !seen {
			order = append(order, p.vote)
		}
		counts[p.vote]++
	}

	leader, best := "", 0
	for _, name := range order {
		if counts[name] > best {
			leader, best = name, counts[name]
		}
	}
	return leader, best
}

// submitClue accepts the clue giver's clue and enters the guess phase. A clue
// referencing no players completes immediately, resetting straight to the
// next vote phase.
func (g *game) submitClue(tokens clue) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requirePhaseLocked(phaseClue); err != nil {
		return err
	}
	for _, t := range tokens {
		switch t.kind {
		case tokenPlayer:
			if g.playerLocked(t.name) == nil {
				return fmt.Errorf("%w: clue references unknown player %q", errNotFound, t.name)
			}
		case tokenNpc:
			if g.npcLocked(t.name) == nil {
				return fmt.Errorf("%w: clue references unknown NPC %q", errNotFound, t.name)
			}
		}
	}

	g.phase = phase{kind: phaseGuess, clueGiver: g.phase.clueGiver, clue: tokens}
	g.finishGuessIfCompleteLocked()

	g.broadcastLocked()
	return nil
}

// setGuessState records a clue-referenced player's decision and ends the
// round once every referenced player has decided.
func (g *game) setGuessState(name string, state guessState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: no player named %q", errNotFound, name)
	}
	if err := g.requirePhaseLocked(phaseGuess); err != nil {
		return err
	}
	p.guess = state
	g.finishGuessIfCompleteLocked()

	g.broadcastLocked()
	return nil
}

// finishGuessIfCompleteLocked resets the round and returns to the vote phase
// once every player referenced by the active clue has a guess state. NPC and
// wildcard tokens impose no requirement.
func (g *game) finishGuessIfCompleteLocked() {
	if g.phase.kind != phaseGuess {
		return
	}
	for _, t := range g.phase.clue {
		if t.kind != tokenPlayer {
			continue
		}
		if p := g.playerLocked(t.name); p != nil && p.guess == guessUnset {
			return
		}
	}

	for _, p := range g.players {
		p.vote = ""
		p.guess = guessUnset
	}
	g.phase = phase{kind: phaseVote}
}

// snapshotLocked serializes the externally visible session state. Secret
// words and decks stay server-side; clients only see revealed letters and
// deck sizes.
func (g *game) snapshotLocked() []byte {
	type playerView struct {
		Name          string         `json:"name"`
		Connected     bool           `json:"connected"`
		Letter        string         `json:"letter"`
		DeckSize      int            `json:"deckSize"`
		ClueCandidate *clueCandidate `json:"clueCandidate,omitempty"`
		Vote          string         `json:"vote"`
		GuessState    guessState     `json:"guessState,omitempty"`
	}
	type npcView struct {
		Name     string `json:"name"`
		Letter   string `json:"letter"`
		DeckSize int    `json:"deckSize"`
	}
	type gameView struct {
		ID       string       `json:"id"`
		Settings gameSettings `json:"settings"`
		Players  []playerView `json:"players"`
		Npcs     []npcView    `json:"npcs"`
		Phase    phase        `json:"phase"`
	}

	view := gameView{
		ID:       g.id,
		Settings: g.settings,
		Players:  make([]playerView, 0, len(g.players)),
		Npcs:     make([]npcView, 0, len(g.npcs)),
		Phase:    g.phase,
	}
	for _, p := range g.players {
		pv := playerView{
			Name:          p.name,
			Connected:     p.client != nil,
			DeckSize:      len(p.deck),
			ClueCandidate: p.clueCandidate,
			Vote:          p.vote,
			GuessState:    p.guess,
		}
		if p.letter != 0 {
			pv.Letter = string(p.letter)
		}
		view.Players = append(view.Players, pv)
	}
	for _, n := range g.npcs {
		view.Npcs = append(view.Npcs, npcView{
			Name:     n.name,
			Letter:   string(n.letter),
			DeckSize: n.deckSize,
		})
	}

	data, err := json.Marshal(view)
	if err != nil {
		// The view contains only marshalable types.
		panic(err)
	}
	return data
}

// snapshot returns the current snapshot without mutating anything; the HTTP
// GET handler uses it.
func (g *game) snapshot() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

// broadcastLocked pushes the current snapshot to every connected player. A
// subscriber whose send buffer is full or closed is treated as disconnected;
// one slow or dead peer never blocks the others or the triggering action.
func (g *game) broadcastLocked() {
	data := g.snapshotLocked()

	for _, p := range g.players {
		if p.client == nil {
			continue
		}
		if !p.client.trySend(data) {
			p.client.drop()
			p.client = nil
			logf(g.cfg, "GAMES: Dropped unresponsive connection for %q in %s", p.name, g.id)
		}
	}
}
