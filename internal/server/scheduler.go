package server

// The turn scheduler drives one room's timed trading phase: a repeating
// tick advances an elapsed-seconds counter from 0 to the ceiling, settles
// pending debts at a fixed offset, and ends the cycle by handing the turn
// to a randomly chosen room member.

type turnTimer struct {
	stop chan struct{}
	turn int // turn number of the triggering message, echoed in the handoff
}

// handleTurn starts a turn cycle for the room. If one is already running
// this is a logged no-op, never an error.
func (gs *GameServer) handleTurn(msg *Message) {
	if msg.RoomID == "" {
		gs.log.Warn().Msg("turn without roomId ignored")
		return
	}

	gs.turnTimersMu.Lock()
	if _, running := gs.turnTimers[msg.RoomID]; running {
		gs.turnTimersMu.Unlock()
		gs.log.Debug().Str("room", msg.RoomID).Msg("turn timer already running")
		return
	}
	timer := &turnTimer{stop: make(chan struct{}), turn: msg.Turn}
	gs.turnTimers[msg.RoomID] = timer
	gs.turnTimersMu.Unlock()

	gs.log.Info().Str("room", msg.RoomID).Int("turn", msg.Turn).Msg("turn timer started")
	go gs.runTurnTimer(msg.RoomID, timer)
}

// handleSkip cancels the room's active turn timer and hands off immediately,
// tagged as a skip. No active timer means nothing to do.
func (gs *GameServer) handleSkip(msg *Message) {
	if msg.RoomID == "" {
		gs.log.Warn().Msg("skip without roomId ignored")
		return
	}
	if _, cleared := gs.clearTurnTimer(msg.RoomID); !cleared {
		return
	}
	gs.log.Info().Str("room", msg.RoomID).Msg("turn timer skipped")
	if room := gs.getRoom(msg.RoomID); room != nil {
		// The handoff echoes the skip message's own turn number, not the
		// one the cancelled cycle was started with.
		gs.handOffTurn(room, msg.Turn, "skip")
	}
}

func (gs *GameServer) runTurnTimer(roomID string, timer *turnTimer) {
	ticks, cancel := gs.tickers.Create(gs.tick)
	defer cancel()

	elapsed := 0
	for {
		select {
		case <-timer.stop:
			return
		case <-ticks:
			room := gs.getRoom(roomID)
			if room == nil {
				// Room deleted under a live timer; guarded no-op.
				gs.clearTurnTimerIf(roomID, timer)
				return
			}
			if elapsed >= turnTickCeiling {
				if gs.clearTurnTimerIf(roomID, timer) {
					gs.handOffTurn(room, timer.turn, "turn")
				}
				return
			}
			if elapsed == debtNotifyTick {
				gs.settleDebts(room)
			}
			gs.broadcast(room, timerMsg{Type: "timer", Time: elapsed})
			elapsed++
		}
	}
}

// clearTurnTimer removes and closes the room's timer handle. The returned
// bool settles races between natural expiry and skip: only the caller that
// actually cleared the handle performs the handoff.
func (gs *GameServer) clearTurnTimer(roomID string) (*turnTimer, bool) {
	gs.turnTimersMu.Lock()
	defer gs.turnTimersMu.Unlock()
	timer, ok := gs.turnTimers[roomID]
	if !ok {
		return nil, false
	}
	delete(gs.turnTimers, roomID)
	close(timer.stop)
	return timer, true
}

// clearTurnTimerIf clears only the given handle, so a stale timer goroutine
// can never tear down a successor timer registered under the same room id.
func (gs *GameServer) clearTurnTimerIf(roomID string, timer *turnTimer) bool {
	gs.turnTimersMu.Lock()
	defer gs.turnTimersMu.Unlock()
	cur, ok := gs.turnTimers[roomID]
	if !ok || cur != timer {
		return false
	}
	delete(gs.turnTimers, roomID)
	close(timer.stop)
	return true
}

// handOffTurn picks one room member uniformly at random and names them in
// charge of the next turn.
func (gs *GameServer) handOffTurn(room *Room, turn int, content string) {
	room.mu.Lock()
	n := len(room.Players)
	if n == 0 {
		room.mu.Unlock()
		gs.log.Warn().Str("room", room.ID).Msg("no players left for turn handoff")
		return
	}
	next := room.Players[gs.intn(n)]
	incharge := next.Usernum
	room.mu.Unlock()

	gs.log.Info().Str("room", room.ID).Int("incharge", incharge).Str("content", content).Msg("turn handed off")
	gs.broadcast(room, turnMsg{Type: "turn", Turn: turn, Content: content, Incharge: incharge})
}

// handleShortSelling records a debt to be settled during the next turn
// cycle's debt notification.
func (gs *GameServer) handleShortSelling(msg *Message) {
	if msg.RoomID == "" {
		gs.log.Warn().Msg("shortSelling without roomId ignored")
		return
	}
	gs.debtsMu.Lock()
	gs.debts = append(gs.debts, DebtEntry{
		RoomID:  msg.RoomID,
		Usernum: msg.Usernum,
		Stock:   msg.StockID,
		Amount:  msg.Amount,
	})
	gs.debtsMu.Unlock()
	gs.log.Info().Str("room", msg.RoomID).Int("usernum", msg.Usernum).Str("stock", msg.StockID).Msg("debt recorded")
}

// settleDebts delivers a debt notification to each debtor in the room whose
// connection is open, removing delivered entries. Undeliverable entries stay
// pending for a later cycle.
func (gs *GameServer) settleDebts(room *Room) {
	gs.debtsMu.Lock()
	defer gs.debtsMu.Unlock()

	kept := gs.debts[:0]
	for _, entry := range gs.debts {
		if entry.RoomID != room.ID {
			kept = append(kept, entry)
			continue
		}
		room.mu.Lock()
		var conn connection
		if debtor := room.playerByUsernum(entry.Usernum); debtor != nil {
			conn = debtor.conn
		}
		room.mu.Unlock()
		if conn == nil {
			kept = append(kept, entry)
			continue
		}
		err := conn.WriteJSON(debtMsg{
			Type:    "debt",
			Usernum: entry.Usernum,
			Stock:   entry.Stock,
			Amount:  entry.Amount,
		})
		if err != nil {
			gs.log.Debug().Err(err).Str("room", room.ID).Int("usernum", entry.Usernum).Msg("debt notify failed, kept pending")
			kept = append(kept, entry)
			continue
		}
		gs.log.Info().Str("room", room.ID).Int("usernum", entry.Usernum).Msg("debt notified")
	}
	gs.debts = kept
}
