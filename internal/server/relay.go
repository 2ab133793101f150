package server

// Pass-through messages for the trading sub-game. These carry no server
// state beyond the fake-news schedule and are relayed to the room as-is.

func (gs *GameServer) roomForRelay(msg *Message) *Room {
	if msg.RoomID == "" {
		gs.log.Warn().Str("type", msg.Type).Msg("relay without roomId ignored")
		return nil
	}
	room := gs.getRoom(msg.RoomID)
	if room == nil {
		gs.log.Warn().Err(ErrRoomNotFound).Str("type", msg.Type).Str("room", msg.RoomID).Msg("relay ignored")
	}
	return room
}

func (gs *GameServer) handleGameChat(msg *Message) {
	room := gs.roomForRelay(msg)
	if room == nil {
		return
	}
	gs.broadcast(room, chatMsg{
		Type:    "message",
		Sender:  msg.Nickname,
		Content: msg.Content,
		Usernum: msg.Usernum,
	})
}

func (gs *GameServer) handleBuySell(msg *Message) {
	room := gs.roomForRelay(msg)
	if room == nil {
		return
	}
	gs.broadcast(room, buySellMsg{
		Type:    "buySell",
		Sender:  msg.Nickname,
		StockID: msg.StockID,
		Amount:  msg.Amount,
		Usernum: msg.Usernum,
		Action:  msg.Action,
	})
}

func (gs *GameServer) handleLottery(msg *Message) {
	room := gs.roomForRelay(msg)
	if room == nil {
		return
	}
	gs.broadcast(room, gameMsg{Type: "game", Content: msg.Content})
}

// handleFakeNews stores the scheduled reveal on the room and relays the
// announcement.
func (gs *GameServer) handleFakeNews(msg *Message) {
	room := gs.roomForRelay(msg)
	if room == nil {
		return
	}
	room.mu.Lock()
	room.FakeNews = append(room.FakeNews, FakeNewsEntry{
		Turn:     msg.Turn,
		Stock:    msg.StockID,
		Describe: msg.Describe,
	})
	room.mu.Unlock()
	gs.broadcast(room, gameMsg{Type: "game", Content: msg.Content})
}
