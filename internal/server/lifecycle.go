package server

import (
	"context"

	"github.com/google/uuid"
)

// handleJoin admits a connection into a room. The authoritative roster comes
// from the external directory, fetched once per room and cached; players are
// admitted in roster order.
func (gs *GameServer) handleJoin(conn connection, msg *Message) {
	if msg.RoomID == "" {
		gs.log.Warn().Msg("join without roomId ignored")
		return
	}
	room := gs.getOrCreateRoom(msg.RoomID)

	room.mu.Lock()
	needRoster := room.Roster == nil
	room.mu.Unlock()

	if needRoster {
		ctx, cancel := context.WithTimeout(context.Background(), gs.dirTimeout)
		participants, err := gs.dir.Participants(ctx, msg.RoomID)
		cancel()
		if err != nil {
			gs.log.Error().Err(err).Str("room", msg.RoomID).Msg("directory lookup failed, join not completed")
			gs.dropRoomIfEmpty(msg.RoomID)
			return
		}
		// The lookup suspended us; the room may have been deleted or
		// populated meanwhile. Re-resolve before touching state.
		room = gs.getOrCreateRoom(msg.RoomID)
		room.mu.Lock()
		if room.Roster == nil {
			roster := make([]RosterEntry, 0, len(participants))
			for _, p := range participants {
				roster = append(roster, RosterEntry{
					Usernum:  p.UserNum,
					Nickname: p.Nickname,
					Grade:    p.Grade,
					Picture:  p.Picture,
				})
			}
			room.Roster = roster
			room.TotalParticipants = len(roster)
		}
		room.mu.Unlock()
	}

	room.mu.Lock()
	// Reconnect: the same client replaces its stored handle in place, no
	// duplicate player record.
	if msg.ClientID != "" {
		if existing := room.playerByClientID(msg.ClientID); existing != nil {
			existing.conn = conn
			room.mu.Unlock()
			gs.log.Info().Str("room", room.ID).Str("client", msg.ClientID).Msg("reconnect, handle replaced")
			gs.broadcastPlayers(room)
			return
		}
	}

	if len(room.Players) >= room.TotalParticipants {
		room.mu.Unlock()
		gs.log.Info().Err(ErrRoomFull).Str("room", room.ID).Msg("join rejected")
		if err := conn.WriteJSON(roomFullMsg{Type: "roomFull"}); err != nil {
			gs.log.Debug().Err(err).Msg("roomFull write failed")
		}
		return
	}

	entry := room.Roster[len(room.Players)]
	clientID := msg.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	player := &Player{
		ClientID: clientID,
		Nickname: entry.Nickname,
		Grade:    entry.Grade,
		Picture:  entry.Picture,
		Points:   1000,
		Usernum:  entry.Usernum,
		conn:     conn,
	}
	room.Players = append(room.Players, player)
	playerNum := len(room.Players)
	full := playerNum == room.TotalParticipants
	room.mu.Unlock()

	gs.log.Info().Str("room", room.ID).Str("client", clientID).Int("usernum", entry.Usernum).Msg("player joined")
	if err := conn.WriteJSON(initMsg{Type: "init", ClientID: clientID, PlayerNum: playerNum}); err != nil {
		gs.log.Debug().Err(err).Msg("init write failed")
	}
	gs.broadcastPlayers(room)

	if full {
		gs.startCountdown(room)
	}
}

// handleReady toggles a player's ready flag. All players ready (and at least
// two present) starts the countdown; un-readying cancels a running one.
func (gs *GameServer) handleReady(msg *Message) {
	if msg.ClientID == "" {
		gs.log.Warn().Msg("ready without clientId ignored")
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = gs.lobbyID
	}
	room := gs.getRoom(roomID)
	if room == nil {
		gs.log.Warn().Str("room", roomID).Msg("ready for unknown room ignored")
		return
	}

	room.mu.Lock()
	player := room.playerByClientID(msg.ClientID)
	if player == nil {
		room.mu.Unlock()
		gs.log.Warn().Str("room", roomID).Str("client", msg.ClientID).Msg("ready for unknown player ignored")
		return
	}
	player.Ready = msg.Ready
	readyCount := 0
	for _, p := range room.Players {
		if p.Ready {
			readyCount++
		}
	}
	total := len(room.Players)
	room.mu.Unlock()

	gs.broadcastPlayers(room)

	if readyCount == total && total > 1 {
		gs.startCountdown(room)
		return
	}
	if gs.cancelCountdown(room.ID) {
		room.mu.Lock()
		if room.Phase == PhaseCountdown {
			room.Phase = PhaseWaiting
		}
		room.mu.Unlock()
		gs.broadcast(room, countdownCanceledMsg{Type: "countdownCanceled"})
		gs.log.Info().Str("room", room.ID).Msg("countdown canceled")
	}
}

// startCountdown moves the room into the countdown phase and starts the
// 5..0 tick broadcast. A second start while one is running is a no-op; the
// running countdown keeps its schedule.
func (gs *GameServer) startCountdown(room *Room) {
	room.mu.Lock()
	if room.Phase != PhaseWaiting {
		room.mu.Unlock()
		gs.log.Debug().Str("room", room.ID).Str("phase", string(room.Phase)).Msg("countdown not started, wrong phase")
		return
	}
	room.Phase = PhaseCountdown
	room.mu.Unlock()

	gs.countdownsMu.Lock()
	if _, running := gs.countdowns[room.ID]; running {
		gs.countdownsMu.Unlock()
		gs.log.Debug().Str("room", room.ID).Msg("countdown already running")
		return
	}
	stop := make(chan struct{})
	gs.countdowns[room.ID] = stop
	gs.countdownsMu.Unlock()

	go gs.runCountdown(room.ID, stop)
}

func (gs *GameServer) runCountdown(roomID string, stop chan struct{}) {
	ticks, cancel := gs.tickers.Create(gs.tick)
	defer cancel()

	room := gs.getRoom(roomID)
	if room == nil {
		gs.clearCountdown(roomID, stop)
		return
	}
	remaining := countdownStart
	gs.broadcast(room, countdownMsg{Type: "countdown", Countdown: remaining})

	for {
		select {
		case <-stop:
			return
		case <-ticks:
			room := gs.getRoom(roomID)
			if room == nil {
				// Room vanished mid-countdown.
				gs.clearCountdown(roomID, stop)
				return
			}
			remaining--
			gs.broadcast(room, countdownMsg{Type: "countdown", Countdown: remaining})
			if remaining <= 0 {
				if gs.clearCountdown(roomID, stop) {
					gs.startGame(room)
				}
				return
			}
		}
	}
}

// cancelCountdown removes and closes the room's countdown handle. Reports
// whether a countdown was actually running, so callers settle who acts on
// completion exactly once.
func (gs *GameServer) cancelCountdown(roomID string) bool {
	gs.countdownsMu.Lock()
	defer gs.countdownsMu.Unlock()
	stop, ok := gs.countdowns[roomID]
	if !ok {
		return false
	}
	delete(gs.countdowns, roomID)
	close(stop)
	return true
}

// clearCountdown is cancelCountdown restricted to one specific handle, so a
// stale goroutine can never tear down a successor countdown registered under
// the same room id.
func (gs *GameServer) clearCountdown(roomID string, stop chan struct{}) bool {
	gs.countdownsMu.Lock()
	defer gs.countdownsMu.Unlock()
	cur, ok := gs.countdowns[roomID]
	if !ok || cur != stop {
		return false
	}
	delete(gs.countdowns, roomID)
	close(stop)
	return true
}

// startGame transitions the room to running and deals out the round: one
// ladder, one reward assignment, broadcast to everyone.
func (gs *GameServer) startGame(room *Room) {
	room.mu.Lock()
	room.Phase = PhaseRunning
	numPlayers := len(room.Players)
	gs.rngMu.Lock()
	room.Ladder = generateLadder(numPlayers, gs.rng)
	room.Rewards = generateRewards(numPlayers, gs.rng)
	gs.rngMu.Unlock()
	room.Results = nil
	room.Winner = nil
	ladder := room.Ladder
	rewards := room.Rewards
	infos := room.playerInfos()
	room.mu.Unlock()

	gs.log.Info().Str("room", room.ID).Int("players", numPlayers).Int("rows", len(ladder)).Msg("game started")
	gs.broadcast(room, startGameMsg{
		Type:    "startGame",
		Ladder:  ladder,
		Players: infos,
		Rewards: rewards,
	})
}
