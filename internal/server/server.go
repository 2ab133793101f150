package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/ladder-rush/internal/directory"
)

// connection is the subset of *websocket.Conn the server uses. Tests swap
// in recording fakes.
type connection interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// RosterFetcher is the external participant directory, queried once per
// room to learn who is allowed to join.
type RosterFetcher interface {
	Participants(ctx context.Context, roomID string) ([]directory.Participant, error)
}

const (
	countdownStart      = 5
	turnTickCeiling     = 180
	debtNotifyTick      = 10
	raceWinScore        = 10
	maxLobbyPlayers     = 4
	defaultLobbyRoomID  = "lobby"
	defaultTickInterval = time.Second

	// Inbound messages per connection: sustained rate and burst.
	inboundRate  = rate.Limit(20)
	inboundBurst = 40
)

// Config carries the collaborators a GameServer needs. Zero values get
// sensible defaults so production wiring stays short.
type Config struct {
	Directory    RosterFetcher
	Tickers      TickerFactory
	Logger       zerolog.Logger
	TickInterval time.Duration
	LobbyRoomID  string
	DirTimeout   time.Duration
}

type GameServer struct {
	rooms   map[string]*Room
	roomsMu sync.RWMutex

	countdowns   map[string]chan struct{}
	countdownsMu sync.Mutex

	turnTimers   map[string]*turnTimer
	turnTimersMu sync.Mutex

	debts   []DebtEntry
	debtsMu sync.Mutex

	dir        RosterFetcher
	tickers    TickerFactory
	tick       time.Duration
	lobbyID    string
	dirTimeout time.Duration

	rng   *rand.Rand
	rngMu sync.Mutex

	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewGameServer(cfg Config) *GameServer {
	if cfg.Tickers == nil {
		cfg.Tickers = NewTickerFactory()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.LobbyRoomID == "" {
		cfg.LobbyRoomID = defaultLobbyRoomID
	}
	if cfg.DirTimeout <= 0 {
		cfg.DirTimeout = 5 * time.Second
	}
	return &GameServer{
		rooms:      make(map[string]*Room),
		countdowns: make(map[string]chan struct{}),
		turnTimers: make(map[string]*turnTimer),
		dir:        cfg.Directory,
		tickers:    cfg.Tickers,
		tick:       cfg.TickInterval,
		lobbyID:    cfg.LobbyRoomID,
		dirTimeout: cfg.DirTimeout,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		log:        cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (gs *GameServer) intn(n int) int {
	gs.rngMu.Lock()
	defer gs.rngMu.Unlock()
	return gs.rng.Intn(n)
}

// HTTP handlers

func (gs *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gs.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	go gs.readLoop(conn)
}

func (gs *GameServer) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	gs.roomsMu.RLock()
	resp := []map[string]interface{}{}
	for _, room := range gs.rooms {
		room.mu.Lock()
		resp = append(resp, map[string]interface{}{
			"id":                room.ID,
			"phase":             room.Phase,
			"playerCount":       len(room.Players),
			"totalParticipants": room.TotalParticipants,
		})
		room.mu.Unlock()
	}
	gs.roomsMu.RUnlock()
	// sort for stable output
	sort.Slice(resp, func(i, j int) bool { return resp[i]["id"].(string) < resp[j]["id"].(string) })
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// WebSocket read loop. One goroutine per connection; every state mutation
// happens in handlers called from here or from timer goroutines.
func (gs *GameServer) readLoop(conn connection) {
	limiter := rate.NewLimiter(inboundRate, inboundBurst)
	defer func() {
		conn.Close()
		gs.removeConnection(conn)
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			gs.log.Debug().Err(err).Msg("read loop closed")
			return
		}
		if !limiter.Allow() {
			gs.log.Warn().Str("type", msg.Type).Msg("inbound rate limit exceeded, message dropped")
			continue
		}
		gs.dispatch(conn, &msg)
	}
}

func (gs *GameServer) dispatch(conn connection, msg *Message) {
	switch msg.Type {
	case "login":
		gs.handleLogin(conn, msg)
	case "ready":
		gs.handleReady(msg)
	case "chat":
		gs.handleChat(msg)
	case "count":
		gs.handleCount(msg)
	case "join":
		gs.handleJoin(conn, msg)
	case "finishPath":
		gs.handleFinishPath(msg)
	case "turn":
		gs.handleTurn(msg)
	case "skip":
		gs.handleSkip(msg)
	case "buySell":
		gs.handleBuySell(msg)
	case "gameChat":
		gs.handleGameChat(msg)
	case "lottery":
		gs.handleLottery(msg)
	case "fakenews":
		gs.handleFakeNews(msg)
	case "shortSelling":
		gs.handleShortSelling(msg)
	case "gameover":
		gs.handleGameover(msg)
	default:
		gs.log.Warn().Str("type", msg.Type).Msg("unknown message type")
	}
}

// Broadcast fan-out. Write errors are logged and left for the read loop to
// clean up; a broken conn surfaces there as a read error.
func (gs *GameServer) broadcast(room *Room, v interface{}) {
	room.mu.Lock()
	conns := make([]connection, 0, len(room.Players))
	for _, p := range room.Players {
		if p.conn != nil {
			conns = append(conns, p.conn)
		}
	}
	room.mu.Unlock()
	for _, c := range conns {
		if err := c.WriteJSON(v); err != nil {
			gs.log.Debug().Err(err).Str("room", room.ID).Msg("broadcast write failed")
		}
	}
}

func (gs *GameServer) broadcastPlayers(room *Room) {
	room.mu.Lock()
	infos := room.playerInfos()
	room.mu.Unlock()
	gs.broadcast(room, playersMsg{Type: "players", Players: infos})
}
