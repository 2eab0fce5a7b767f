// Rainbowboat game sessions.
//
// Each game ID gets its own hub of websocket clients plus (once the host
// starts the game) one engine instance and one bot driver. The first
// connection to a session becomes the host; the host picks the board mode,
// adds bots, and starts the voyage. Players are identified by cookie so a
// refresh reconnects them to their seat.
//
// Routes per game path:
//   - $path              → redirects to a new random game (8-char ID)
//   - $path/:gameid      → HTML client
//   - $path/:gameid/ws   → WebSocket for that game
//   - $path/:gameid/qr   → PNG QR code for that game URL

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"fmt"
	"log"
	mrand "math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients.
type ClientMessage struct {
	Type       string   `json:"type"` // join, add_bot, start_game, roll, move, category, task, rate, helper, target
	Name       string   `json:"name,omitempty"`
	MBTI       string   `json:"mbti,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Override   int      `json:"override,omitempty"`
	Tile       *int     `json:"tile,omitempty"`
	Category   string   `json:"category,omitempty"`
	Action     string   `json:"action,omitempty"` // start, done, skip, reselect, help, energy
	Transcript string   `json:"transcript,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
	Rating     *int     `json:"rating,omitempty"`
	TargetID   string   `json:"target_id,omitempty"`
}

// SessionInfoMessage is sent immediately on connect so the client knows what
// role this cookie has.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	PlayerID   string `json:"player_id"`
	IsHost     bool   `json:"is_host"`
	IsExisting bool   `json:"is_existing"`
	Name       string `json:"name,omitempty"`
	Started    bool   `json:"started"`
}

// RosterMessage lists who has joined the lobby.
type RosterMessage struct {
	Type    string   `json:"type"` // "roster"
	Players []string `json:"players"`
}

// BoardMessage carries the immutable tile graph, sent once at game start and
// on reconnect.
type BoardMessage struct {
	Type  string   `json:"type"` // "board"
	Mode  GameMode `json:"mode"`
	Tiles []Tile   `json:"tiles"`
}

// StateMessage broadcasts the full observable game state.
type StateMessage struct {
	Type  string   `json:"type"` // "game_state"
	State Snapshot `json:"state"`
}

// SummaryMessage delivers the shareable result string once the game ends.
type SummaryMessage struct {
	Type    string `json:"type"` // "summary"
	Encoded string `json:"encoded"`
}

// SimpleMessage is for generic notifications ("join_error", etc.).
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

type rosterEntry struct {
	id    string
	name  string
	mbti  string
	isBot bool
}

type Hub struct {
	id  string
	cfg *Config

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	hostID     string

	roster   []rosterEntry
	botCount int

	game *Game
	bots *botDriver
}

func newHub(cfg *Config, gameID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			playerID := c.playerID
			started := h.game != nil
			hostID := h.hostID
			h.mu.Unlock()

			// Seats in a running game survive disconnects; lobby seats
			// are reclaimed after the idle window.
			if playerID != "" && !started && playerID != hostID {
				go h.scheduleRemoval(playerID, h.cfg.playerTimeout)
			}

		case ar := <-h.actions:
			h.handleAction(ar)
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.lastActive = time.Now()

	if h.hostID == "" {
		h.hostID = c.playerID
	}

	existingName := ""
	for _, r := range h.roster {
		if r.id == c.playerID {
			existingName = r.name
			break
		}
	}

	h.clients[c] = true
	started := h.game != nil
	h.mu.Unlock()

	c.send <- SessionInfoMessage{
		Type:       "session_info",
		PlayerID:   c.playerID,
		IsHost:     c.playerID == h.hostID,
		IsExisting: existingName != "",
		Name:       existingName,
		Started:    started,
	}

	if started {
		c.send <- BoardMessage{
			Type:  "board",
			Mode:  h.game.mode,
			Tiles: h.game.BoardTiles(),
		}
		c.send <- StateMessage{
			Type:  "game_state",
			State: h.game.Snapshot(),
		}
	} else {
		h.broadcastRoster()
	}
}

func (h *Hub) sendOrDrop(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	for c := range h.clients {
		h.sendOrDrop(c, msg)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcastRoster() {
	h.mu.RLock()
	names := make([]string, 0, len(h.roster))
	for _, r := range h.roster {
		label := r.name + " (" + r.mbti + ")"
		if r.isBot {
			label += " [bot]"
		}
		names = append(names, label)
	}
	h.mu.RUnlock()

	h.broadcast(RosterMessage{
		Type:    "roster",
		Players: names,
	})
}

// broadcastState pushes the current snapshot, plus the share summary once
// the game has reached analysis.
func (h *Hub) broadcastState() {
	h.mu.RLock()
	game := h.game
	h.mu.RUnlock()
	if game == nil {
		return
	}

	snap := game.Snapshot()
	h.broadcast(StateMessage{
		Type:  "game_state",
		State: snap,
	})

	if snap.Phase == PhaseAnalysis {
		encoded, err := EncodeSummary(game.Summary())
		if err != nil {
			logf(h.cfg, "GAMES: Summary encoding failed for %s: %v", h.id, err)
			return
		}
		h.broadcast(SummaryMessage{
			Type:    "summary",
			Encoded: encoded,
		})
	}
}

func (h *Hub) handleAction(ar actionRequest) {
	c := ar.client
	msg := ar.msg

	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()

	switch msg.Type {
	case "join":
		h.handleJoin(c, msg)
	case "add_bot":
		h.handleAddBot(c)
	case "start_game":
		h.handleStart(c, msg)
	default:
		h.handleGameAction(c, msg)
	}
}

func (h *Hub) handleJoin(c *Client, msg ClientMessage) {
	name := strings.TrimSpace(msg.Name)
	mbti := strings.ToUpper(strings.TrimSpace(msg.MBTI))

	if name == "" || c.playerID == "" {
		return
	}

	h.mu.Lock()

	if h.game != nil {
		h.mu.Unlock()
		h.sendTo(c, SimpleMessage{
			Type:    "join_error",
			Message: "The voyage has already departed; spectate or start a new one.",
		})
		return
	}

	if !isValidMBTI(mbti) {
		h.mu.Unlock()
		h.sendTo(c, SimpleMessage{
			Type:    "join_error",
			Message: "Please pick a valid 4-letter MBTI type.",
		})
		return
	}

	existing := -1
	for i, r := range h.roster {
		if r.id == c.playerID {
			existing = i
			continue
		}
		if strings.EqualFold(r.name, name) {
			h.mu.Unlock()
			h.sendTo(c, SimpleMessage{
				Type:    "join_error",
				Message: "That name is already taken. Please choose a different one.",
			})
			return
		}
	}

	if existing >= 0 {
		h.roster[existing].name = name
		h.roster[existing].mbti = mbti
	} else {
		h.roster = append(h.roster, rosterEntry{
			id:   c.playerID,
			name: name,
			mbti: mbti,
		})
		logf(h.cfg, "GAMES: Player %q (%s) joined %s", name, mbti, h.id)
	}
	h.mu.Unlock()

	h.broadcastRoster()
}

func (h *Hub) handleAddBot(c *Client) {
	h.mu.Lock()
	if c.playerID != h.hostID || h.game != nil {
		h.mu.Unlock()
		return
	}

	h.botCount++
	bot := rosterEntry{
		id:    fmt.Sprintf("bot-%s-%d", h.id, h.botCount),
		name:  fmt.Sprintf("Bot %d", h.botCount),
		mbti:  mbtiTypes[mrand.Intn(len(mbtiTypes))],
		isBot: true,
	}
	h.roster = append(h.roster, bot)
	h.mu.Unlock()

	logf(h.cfg, "GAMES: Added %q (%s) to %s", bot.name, bot.mbti, h.id)
	h.broadcastRoster()
}

func (h *Hub) handleStart(c *Client, msg ClientMessage) {
	h.mu.Lock()
	if c.playerID != h.hostID || h.game != nil || len(h.roster) == 0 {
		h.mu.Unlock()
		return
	}

	mode := ModeJung8
	if msg.Mode == string(ModeMBTI16) {
		mode = ModeMBTI16
	}

	rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
	game, err := newGame(h.cfg, mode, rng, newTaskGenerator(h.cfg))
	if err != nil {
		h.mu.Unlock()
		return
	}

	for _, r := range h.roster {
		if _, err := game.AddPlayer(r.id, r.name, r.mbti, r.isBot); err != nil {
			logf(h.cfg, "GAMES: Seating %q in %s failed: %v", r.name, h.id, err)
		}
	}

	// The driver gets a derived Rand of its own; the engine's dice share
	// no lock with bot timers.
	bots := newBotDriver(game, h.cfg.botDelay, mrand.New(mrand.NewSource(rng.Int63())))
	game.setOnChange(func() {
		h.broadcastState()
		bots.onChange()
	})

	h.game = game
	h.bots = bots
	h.mu.Unlock()

	h.broadcast(BoardMessage{
		Type:  "board",
		Mode:  mode,
		Tiles: game.BoardTiles(),
	})

	if err := game.Start(); err != nil {
		logf(h.cfg, "GAMES: Starting %s failed: %v", h.id, err)
		return
	}
	logf(h.cfg, "GAMES: Started %s (%s, %d players)", h.id, mode, len(h.roster))
}

// handleGameAction routes in-game messages to the engine entry points.
// Rejected transitions are silent no-ops: they are benign UI races.
func (h *Hub) handleGameAction(c *Client, msg ClientMessage) {
	h.mu.RLock()
	game := h.game
	h.mu.RUnlock()
	if game == nil {
		return
	}

	id := c.playerID

	switch msg.Type {
	case "roll":
		game.RollDice(id, msg.Override)

	case "move":
		if msg.Tile != nil {
			game.SelectTile(id, *msg.Tile)
		}

	case "category":
		game.SelectCategory(id, TaskCategory(msg.Category))

	case "task":
		switch msg.Action {
		case "start":
			game.StartTask(id)
		case "done":
			game.CompleteTask(id, msg.Transcript, msg.Evidence)
		case "skip":
			game.SkipTask(id)
		case "reselect":
			game.ReselectTask(id)
		case "help":
			game.AskForHelp(id)
		case "energy":
			game.MarkHighEnergy(id)
		}

	case "rate":
		if msg.Rating != nil {
			game.SubmitRating(id, *msg.Rating)
		}

	case "helper":
		game.SelectHelper(id, msg.TargetID)

	case "target":
		game.SelectTarget(id, msg.TargetID)
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	h.sendOrDrop(c, msg)
	h.mu.Unlock()
}

// scheduleRemoval reclaims a lobby seat if its player stays disconnected.
func (h *Hub) scheduleRemoval(playerID string, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()

	for client := range h.clients {
		if client.playerID == playerID {
			h.mu.Unlock()
			return
		}
	}

	if h.game != nil {
		h.mu.Unlock()
		return
	}

	dst := h.roster[:0]
	changed := false
	for _, r := range h.roster {
		if r.id == playerID {
			changed = true
			continue
		}
		dst = append(dst, r)
	}
	h.roster = dst

	if !changed {
		h.mu.Unlock()
		return
	}

	h.lastActive = time.Now()
	h.mu.Unlock()

	h.broadcastRoster()
}

// closeAll disconnects all clients of this hub (used by the reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "rainbowboat_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	cfg         *Config
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(cfg *Config, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.cfg, gameID)
	gm.hubs[gameID] = hub
	go hub.run()
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than
// idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid.
func serveWSForManager(gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join", "add_bot", "start_game",
			"roll", "move", "category", "task", "rate", "helper", "target":
			h.actions <- actionRequest{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed assets/board/index.html
var indexHTML []byte

//go:embed assets/board/app.css
var boardCSS []byte

//go:embed assets/board/app.js
var boardJS []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getAssetHandler(cfg *Config, contentType string, data []byte) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID and
// redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func registerBoardGame(cfg *Config, path string, mux *httprouter.Router) {
	gm := newGameManager(cfg, cfg.sessionTimeout)

	base := cfg.prefix + path

	mux.GET(base, redirectNewGame(cfg, base, gm))

	mux.GET(base+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/assets/board/app.css", getAssetHandler(cfg, "text/css; charset=utf-8", boardCSS))
	mux.GET(cfg.prefix+"/assets/board/app.js", getAssetHandler(cfg, "application/javascript; charset=utf-8", boardJS))

	mux.GET(base+"/:gameid/ws", serveWSForManager(gm))

	mux.GET(base+"/:gameid/qr", qrHandler)
}
