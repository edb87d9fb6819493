package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// Word pools for generated game ids and player name suggestions.
var (
	slugAdjectives = []string{
		"amber", "bold", "brave", "bright", "calm", "clever", "cosmic",
		"crimson", "daring", "dusty", "eager", "fancy", "gentle", "golden",
		"happy", "hazel", "jolly", "lively", "lucky", "mellow", "misty",
		"noble", "polite", "proud", "quiet", "rapid", "rustic", "silent",
		"silver", "snowy", "sturdy", "sunny", "swift", "tidy", "velvet",
		"witty",
	}
	slugNouns = []string{
		"badger", "beacon", "breeze", "canyon", "cedar", "comet", "coral",
		"falcon", "fjord", "garden", "glacier", "harbor", "heron", "lagoon",
		"lantern", "magpie", "meadow", "mesa", "nebula", "orchard", "otter",
		"panda", "pebble", "prairie", "raven", "reef", "saddle", "sparrow",
		"spruce", "summit", "thicket", "tundra", "walrus", "willow",
	}
)

// newSlug builds a human-readable id like "misty-walrus-lagoon".
func newSlug() string {
	parts := []string{
		slugAdjectives[rand.Intn(len(slugAdjectives))],
		slugNouns[rand.Intn(len(slugNouns))],
		slugNouns[rand.Intn(len(slugNouns))],
	}
	return strings.Join(parts, "-")
}

// playerNameSuggestion generates a friendly two-word display name,
// e.g. "Velvet Falcon".
func playerNameSuggestion() string {
	adjective := slugAdjectives[rand.Intn(len(slugAdjectives))]
	noun := slugNouns[rand.Intn(len(slugNouns))]
	caser := func(s string) string {
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return caser(adjective) + " " + caser(noun)
}

// registry is the process-wide map of game id to session. It is the only
// shared mutable state outside of the sessions themselves.
type registry struct {
	mu    sync.Mutex
	games map[string]*game
	order []string
}

func newRegistry() *registry {
	return &registry{games: make(map[string]*game)}
}

// create stores a new empty lobby-phase game under a fresh slug id,
// re-rolling on the unlikely collision.
func (r *registry) create(cfg *Config, corpus *wordCorpus, settings gameSettings) *game {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		id = newSlug()
		if _, exists := r.games[id]; !exists {
			break
		}
	}

	g := newGame(cfg, corpus, id, settings)
	r.games[id] = g
	r.order = append(r.order, id)
	logf(cfg, "GAMES: Created game %s", id)
	return g
}

func (r *registry) get(id string) (*game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: no game with id %q", errNotFound, id)
	}
	return g, nil
}

func (r *registry) delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[id]; !ok {
		return fmt.Errorf("%w: no game with id %q", errNotFound, id)
	}
	delete(r.games, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// list returns game ids in creation order.
func (r *registry) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
