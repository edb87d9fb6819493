package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one player's push connection. Snapshots are queued on send;
// writePump drains it onto the websocket.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, 8),
	}
}

// trySend queues data without blocking. False means the peer is too slow or
// gone and should be treated as disconnected.
func (c *client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// drop closes the send queue, ending writePump. Idempotent.
func (c *client) drop() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump consumes inbound frames until the connection dies. Actions arrive
// over the REST surface, so frames are discarded; reading is still required
// to notice closure promptly.
func (c *client) readPump(g *game) {
	defer func() {
		g.disconnect(c)
		c.drop()
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errUnprocessable, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func writeSnapshot(w http.ResponseWriter, g *game) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(g.snapshot())
}

func createGameHandler(cfg *Config, reg *registry, corpus *wordCorpus) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var settings gameSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, err)
			return
		}
		if settings.PlayerWordLength < 2 || settings.PlayerWordLength > 10 {
			writeError(w, fmt.Errorf("%w: playerWordLength must be between 2 and 10", errUnprocessable))
			return
		}

		g := reg.create(cfg, corpus, settings)
		writeSnapshot(w, g)
	}
}

func listGamesHandler(reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, reg.list())
	}
}

func getGameHandler(reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g, err := reg.get(ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeSnapshot(w, g)
	}
}

func deleteGameHandler(cfg *Config, reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := reg.delete(ps.ByName("id")); err != nil {
			writeError(w, err)
			return
		}
		logf(cfg, "GAMES: Deleted game %s", ps.ByName("id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// gameAction wraps handlers that resolve a game and run one mutating action,
// answering with the post-action snapshot or a mapped error.
func gameAction(reg *registry, action func(g *game, r *http.Request, ps httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g, err := reg.get(ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if err := action(g, r, ps); err != nil {
			writeError(w, err)
			return
		}
		writeSnapshot(w, g)
	}
}

func addPlayerHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		name := ps.ByName("name")
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: player name must not be empty", errUnprocessable)
		}
		return g.addPlayer(name)
	})
}

func removePlayerHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		return g.removePlayer(ps.ByName("name"))
	})
}

func setClueCandidateHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		var candidate clueCandidate
		if err := decodeJSON(r, &candidate); err != nil {
			return err
		}
		if candidate.Length < 1 {
			return fmt.Errorf("%w: clue candidate length must be positive", errUnprocessable)
		}
		return g.setClueCandidate(ps.ByName("name"), candidate)
	})
}

func clearClueCandidateHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		return g.clearClueCandidate(ps.ByName("name"))
	})
}

func voteHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		var body struct {
			Vote string `json:"vote"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return err
		}
		return g.castVote(ps.ByName("name"), body.Vote)
	})
}

func startGameHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		return g.start()
	})
}

func submitClueHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		var body struct {
			Tokens clue `json:"tokens"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return err
		}
		return g.submitClue(body.Tokens)
	})
}

func setGuessStateHandler(reg *registry) httprouter.Handle {
	return gameAction(reg, func(g *game, r *http.Request, ps httprouter.Params) error {
		var body struct {
			GuessState guessState `json:"guessState"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return err
		}
		if body.GuessState != guessMoveOn && body.GuessState != guessStay {
			return fmt.Errorf("%w: guessState must be %q or %q", errUnprocessable, guessMoveOn, guessStay)
		}
		return g.setGuessState(ps.ByName("name"), body.GuessState)
	})
}

// serveGameWS upgrades a player's connection and begins their push stream.
// The player shows as connected until the socket dies or is replaced.
func serveGameWS(cfg *Config, reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		g, err := reg.get(ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		name := ps.ByName("name")
		if !g.hasPlayer(name) {
			writeError(w, fmt.Errorf("%w: no player named %q", errNotFound, name))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade failed for %q in %s: %v", name, g.id, err)
			return
		}

		c := newClient(conn)
		go c.writePump()

		if err := g.connect(name, c); err != nil {
			// Player removed between the check and the upgrade.
			c.drop()
			_ = conn.Close()
			return
		}
		logf(cfg, "GAMES: Player %q connected to %s", name, g.id)

		c.readPump(g)
	}
}

// gameQRHandler renders a PNG QR code pointing at the game's join URL.
func gameQRHandler(cfg *Config, reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, err := reg.get(ps.ByName("id")); err != nil {
			writeError(w, err)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/" + ps.ByName("id")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// searchWordsHandler backs the in-game word search panel.
func searchWordsHandler(corpus *wordCorpus) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		query := r.URL.Query().Get("q")
		length, _ := strconv.Atoi(r.URL.Query().Get("length"))

		const maxResults = 50
		writeJSON(w, corpus.search(query, length, maxResults))
	}
}

func playerNameHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, playerNameSuggestion())
	}
}

// registerGameAPI wires the game action surface:
//   - game lifecycle under /api/game
//   - per-player actions under /api/game/:id/player/:name
//   - corpus search and name suggestions under /api
func registerGameAPI(cfg *Config, mux *httprouter.Router, reg *registry, corpus *wordCorpus) {
	api := cfg.prefix + "/api"

	mux.POST(api+"/game", createGameHandler(cfg, reg, corpus))
	mux.GET(api+"/game", listGamesHandler(reg))
	mux.GET(api+"/game/:id", getGameHandler(reg))
	mux.DELETE(api+"/game/:id", deleteGameHandler(cfg, reg))
	mux.GET(api+"/game/:id/qr", gameQRHandler(cfg, reg))
	mux.POST(api+"/game/:id/start", startGameHandler(reg))
	mux.POST(api+"/game/:id/clue", submitClueHandler(reg))

	mux.POST(api+"/game/:id/player/:name", addPlayerHandler(reg))
	mux.DELETE(api+"/game/:id/player/:name", removePlayerHandler(reg))
	mux.GET(api+"/game/:id/player/:name/ws", serveGameWS(cfg, reg))
	mux.PUT(api+"/game/:id/player/:name/vote", voteHandler(reg))
	mux.PUT(api+"/game/:id/player/:name/clue_candidate", setClueCandidateHandler(reg))
	mux.DELETE(api+"/game/:id/player/:name/clue_candidate", clearClueCandidateHandler(reg))
	mux.PUT(api+"/game/:id/player/:name/guess_state", setGuessStateHandler(reg))

	mux.GET(api+"/words", searchWordsHandler(corpus))
	mux.GET(api+"/player_name", playerNameHandler())
}
