package server

import "sort"

// handleFinishPath records one player's self-reported ladder outcome. The
// reported slot is trusted as-is; the server does not re-traverse the
// ladder (known limitation, see the tests).
func (gs *GameServer) handleFinishPath(msg *Message) {
	if msg.ClientID == "" {
		gs.log.Warn().Msg("finishPath without clientId ignored")
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = gs.lobbyID
	}
	room := gs.getRoom(roomID)
	if room == nil {
		gs.log.Warn().Str("room", roomID).Msg("finishPath for unknown room ignored")
		return
	}

	room.mu.Lock()
	if room.Phase != PhaseRunning {
		room.mu.Unlock()
		gs.log.Debug().Str("room", room.ID).Str("phase", string(room.Phase)).Msg("finishPath outside running phase ignored")
		return
	}
	player := room.playerByClientID(msg.ClientID)
	if player == nil {
		room.mu.Unlock()
		gs.log.Warn().Str("room", room.ID).Str("client", msg.ClientID).Msg("finishPath for unknown player ignored")
		return
	}
	for _, r := range room.Results {
		if r.ClientID == msg.ClientID {
			room.mu.Unlock()
			gs.log.Debug().Str("room", room.ID).Str("client", msg.ClientID).Msg("duplicate finishPath ignored")
			return
		}
	}
	room.Results = append(room.Results, Result{
		ClientID: msg.ClientID,
		Result:   msg.Result,
		Nickname: player.Nickname,
	})
	if msg.Result >= 0 && msg.Result < len(room.Rewards) && room.Rewards[msg.Result] == RewardWin {
		room.Winner = player
	}
	done := len(room.Results) == len(room.Players)
	results := append([]Result(nil), room.Results...)
	rewards := room.Rewards
	var winnerID string
	if room.Winner != nil {
		winnerID = room.Winner.ClientID
	}
	if done {
		room.Phase = PhaseEnded
	}
	room.mu.Unlock()

	if !done {
		return
	}
	gs.log.Info().Str("room", room.ID).Str("winner", winnerID).Msg("game ended")
	gs.broadcast(room, gameEndedMsg{
		Type:    "gameEnded",
		Results: results,
		Winner:  winnerID,
		Rewards: rewards,
	})
}

// handleGameover closes a trading round: ranks the client-reported totals
// and broadcasts the ranked list to the room.
func (gs *GameServer) handleGameover(msg *Message) {
	if msg.RoomID == "" || len(msg.Data) == 0 {
		gs.log.Warn().Msg("gameover without roomId or data ignored")
		return
	}
	room := gs.getRoom(msg.RoomID)
	if room == nil {
		gs.log.Warn().Str("room", msg.RoomID).Msg("gameover for unknown room ignored")
		return
	}
	ranked := rankTotals(msg.Data)
	gs.log.Info().Str("room", room.ID).Int("entries", len(ranked)).Msg("trading round over")
	gs.broadcast(room, gameoverMsg{Type: "gameover", Content: ranked})
}

// rankTotals sorts entries descending by total and assigns competition
// ranking: tied totals share a rank, and the next distinct total gets
// 1 + the index of its first occurrence.
func rankTotals(entries []GameoverEntry) []GameoverEntry {
	ranked := append([]GameoverEntry(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total > ranked[j].Total })

	rank := 1
	for i := range ranked {
		if i > 0 && ranked[i].Total != ranked[i-1].Total {
			rank = i + 1
		}
		ranked[i].Rank = rank
	}
	return ranked
}
