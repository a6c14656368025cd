// Jeopardy Board
//
// Every board lives at its own random URL. Any number of browsers can attach
// to a board; all of them see the same grid, so one screen can be projected
// while players follow along on their phones.
//
// Features:
// - WebSockets per board ID: /path/:boardid and /path/:boardid/ws
// - Start/Restart fills the board with 6 random categories of 5 clues
// - Clicking a clue shows its question, clicking again shows its answer
// - Restarting while a board is loading abandons the older load
// - Boards auto-reaped after configurable idle timeout
// - Random 8-char board IDs via crypto/rand, with server-side collision check
// - In-browser QR link to share the current board, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/jeopardy/trivia"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "setup", "reveal"
	Category *int   `json:"category,omitempty"` // reveal
	Clue     *int   `json:"clue,omitempty"`     // reveal
}

// ViewMessage carries the whole board and the state of the controls.
type ViewMessage struct {
	Type string `json:"type"` // "view"
	trivia.View
}

// CellMessage updates a single cell after a reveal.
type CellMessage struct {
	Type     string `json:"type"` // "cell"
	Setup    string `json:"setup"`
	Category int    `json:"category"`
	Clue     int    `json:"clue"`
	trivia.Cell
}

// SimpleMessage is for notifications sent to a single client ("error").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type revealRequest struct {
	client *Client
	pos    trivia.Position
}

type setupResult struct {
	setup trivia.Setup
	err   error
}

type Hub struct {
	id      string
	clients map[*Client]bool
	session *trivia.Session
	source  trivia.BoardSource
	logger  log.FieldLogger

	register chan *Client
	unreg    chan *Client
	setups   chan *Client
	reveals  chan revealRequest
	results  chan setupResult
	quit     chan struct{}

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
	closed     bool
}

func newHub(boardID string, source trivia.BoardSource, logger log.FieldLogger) *Hub {
	now := time.Now()
	return &Hub{
		id:         boardID,
		clients:    make(map[*Client]bool),
		session:    trivia.NewSession(),
		source:     source,
		logger:     logger,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		setups:     make(chan *Client),
		reveals:    make(chan revealRequest),
		results:    make(chan setupResult),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.quit:
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.closed {
				close(c.send)
				_ = c.conn.Close()
				h.mu.Unlock()
				continue
			}
			h.lastActive = time.Now()
			h.clients[c] = true

			// Late joiners get the full board straight away.
			c.send <- h.viewMessage()
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case <-h.setups:
			h.startSetup(cfg)

		case rr := <-h.reveals:
			h.handleReveal(cfg, rr)

		case res := <-h.results:
			h.handleResult(cfg, res)
		}
	}
}

func (h *Hub) viewMessage() ViewMessage {
	return ViewMessage{
		Type: "view",
		View: h.session.View(),
	}
}

// startSetup clears the board, tells every client it is loading, and fills
// the board in the background. A setup started while another is still
// loading supersedes it.
func (h *Hub) startSetup(cfg *Config) {
	setup, ctx := h.session.Begin(context.Background())

	logf(cfg, "GAMES: Setting up board %s (setup %s)", h.id, setup.ID)

	h.mu.Lock()
	h.lastActive = time.Now()
	h.broadcastLocked(h.viewMessage())
	h.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(ctx, cfg.setupTimeout)
		defer cancel()

		err := h.session.Load(ctx, setup, h.source)

		select {
		case h.results <- setupResult{setup: setup, err: err}:
		case <-h.quit:
		}
	}()
}

func (h *Hub) handleResult(cfg *Config, res setupResult) {
	fields := log.Fields{
		"board": h.id,
		"setup": res.setup.ID,
	}

	switch {
	case errors.Is(res.err, trivia.ErrStaleSetup):
		h.logger.WithFields(fields).Debug("discarded superseded setup")
		return
	case res.err != nil:
		h.logger.WithFields(fields).WithError(res.err).Warn("board setup failed")
	default:
		logf(cfg, "GAMES: Filled board %s (setup %s)", h.id, res.setup.ID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
	h.broadcastLocked(h.viewMessage())
}

// handleReveal advances one clue and, if it changed, shows the new text to
// every client. Clicks on answered clues are ignored.
func (h *Hub) handleReveal(cfg *Config, rr revealRequest) {
	cell, changed, err := h.session.Reveal(rr.pos)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if err != nil {
		text := "That clue cannot be revealed right now."
		if errors.Is(err, trivia.ErrOutOfRange) {
			text = "There is no such clue on the board."
		}

		select {
		case rr.client.send <- SimpleMessage{
			Type:    "error",
			Message: text,
		}:
		default:
			h.dropLocked(rr.client)
		}
		return
	}

	if !changed {
		return
	}

	logf(cfg, "GAMES: Revealed %s on board %s", rr.pos, h.id)

	h.broadcastLocked(CellMessage{
		Type:     "cell",
		Setup:    h.session.Current().ID,
		Category: rr.pos.Category,
		Clue:     rr.pos.Clue,
		Cell:     cell,
	})
}

// broadcastLocked assumes h.mu is already held.
func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			h.dropLocked(client)
		}
	}
}

func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// closeAll disconnects all clients of this hub and stops it (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	h.session.Close()
	close(h.quit)

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// BoardManager holds a set of hubs keyed by board ID, so each $path/$boardid
// is its own isolated board.
type BoardManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	newSource   func(boardID string) trivia.BoardSource
	logger      log.FieldLogger

	done     chan struct{}
	doneOnce sync.Once
}

func newBoardManager(idleTimeout time.Duration, logger log.FieldLogger, newSource func(boardID string) trivia.BoardSource) *BoardManager {
	bm := &BoardManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		newSource:   newSource,
		logger:      logger,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go bm.reaperLoop()
	}
	return bm
}

func (bm *BoardManager) getHub(cfg *Config, boardID string) *Hub {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if hub, ok := bm.hubs[boardID]; ok {
		return hub
	}

	hub := newHub(boardID, bm.newSource(boardID), bm.logger.WithField("board", boardID))
	bm.hubs[boardID] = hub
	go hub.run(cfg)
	return hub
}

const (
	boardIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	boardIDLength  = 8
)

// newBoardID generates a crypto-random board ID and ensures it doesn't
// collide with existing boards.
func (bm *BoardManager) newBoardID() string {
	const max = byte(255 - (256 % len(boardIDLetters)))

	for {
		out := make([]byte, 0, boardIDLength)
		buf := make([]byte, boardIDLength*2)

		for len(out) < boardIDLength {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}

			for _, b := range buf {
				if b <= max && len(out) < boardIDLength {
					out = append(out, boardIDLetters[int(b)%len(boardIDLetters)])
				}
			}
		}
		id := string(out)

		bm.mu.Lock()
		_, exists := bm.hubs[id]
		bm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

func validBoardID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(boardIDLetters, r) {
			return false
		}
	}
	return true
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (bm *BoardManager) reaperLoop() {
	ticker := time.NewTicker(bm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-bm.done:
			return
		case <-ticker.C:
			bm.reap(time.Now().Add(-bm.idleTimeout))
		}
	}
}

// shutdown ends every board and stops the reaper.
func (bm *BoardManager) shutdown() {
	bm.doneOnce.Do(func() { close(bm.done) })

	bm.mu.Lock()
	hubs := bm.hubs
	bm.hubs = make(map[string]*Hub)
	bm.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}

func (bm *BoardManager) reap(cutoff time.Time) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	for id, hub := range bm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		connected := len(hub.clients)
		hub.mu.RUnlock()

		if connected == 0 && last.Before(cutoff) {
			delete(bm.hubs, id)
			bm.logger.WithField("board", id).Info("reaped idle board")
			go hub.closeAll()
		}
	}
}

// WebSocket handler that picks the hub based on :boardid
func serveWSForManager(cfg *Config, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		boardID := ps.ByName("boardid")
		if !validBoardID(boardID) {
			http.Error(w, "invalid board id", http.StatusBadRequest)
			return
		}

		hub := bm.getHub(cfg, boardID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			bm.logger.WithError(err).Warn("websocket upgrade failed")
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	// Lift the deadline the HTTP server set before the upgrade.
	_ = c.conn.SetReadDeadline(time.Time{})

	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "setup":
			select {
			case h.setups <- c:
			case <-h.quit:
				return
			}
		case "reveal":
			if msg.Category == nil || msg.Clue == nil {
				continue
			}
			select {
			case h.reveals <- revealRequest{
				client: c,
				pos:    trivia.Position{Category: *msg.Category, Clue: *msg.Clue},
			}:
			case <-h.quit:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current board URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	boardID := ps.ByName("boardid")
	if !validBoardID(boardID) {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	// We are at /.../:boardid/qr; strip trailing "/qr" to get the board URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewBoard handles GET /path by generating a new random board ID
// (with server-side collision detection) and redirecting to /path/:boardid.
func redirectNewBoard(cfg *Config, path string, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		boardID := bm.newBoardID()
		logf(cfg, "GAMES: Created board %s/%s", path, boardID)
		http.Redirect(w, r, cfg.prefix+path+"/"+boardID, http.StatusTemporaryRedirect)
	}
}

// registerJeopardy sets up routes so that:
//   - $path                  → redirects to new random board (8-char ID)
//   - $path/:boardid         → HTML client
//   - $path/:boardid/ws      → WebSocket for that board
//   - $path/:boardid/qr      → PNG QR code for that board URL
func registerJeopardy(cfg *Config, path string, mux *httprouter.Router, provider trivia.Provider, errs chan<- error) *BoardManager {
	bm := newBoardManager(cfg.sessionTimeout, cfg.logger, func(boardID string) trivia.BoardSource {
		// Each board walks the catalog on its own, so restarts on one board
		// never skip pages for another.
		return trivia.NewAcquirer(provider,
			trivia.WithPageSize(cfg.pageSize),
			trivia.WithLogger(cfg.logger.WithField("board", boardID)),
		)
	})

	// Root path → redirect to new random board
	mux.GET(cfg.prefix+path, redirectNewBoard(cfg, path, bm))

	// Per-board client view (HTML)
	mux.GET(cfg.prefix+path+"/:boardid", serveBoardPage(cfg, path, errs))

	// Per-board websocket
	mux.GET(cfg.prefix+path+"/:boardid/ws", serveWSForManager(cfg, bm))

	// Per-board QR code
	mux.GET(cfg.prefix+path+"/:boardid/qr", qrHandler)

	return bm
}
