package server

import (
	"fmt"

	"github.com/google/uuid"
)

// The press-count race is the standalone lobby mode: everyone shares the
// well-known lobby room, readies up, and races a counter to the win score.
// It is an ordinary room, not a parallel code path.

// handleLogin registers a connection in the lobby room. The lobby has a
// fixed capacity; anyone beyond it gets roomFull and is disconnected.
func (gs *GameServer) handleLogin(conn connection, msg *Message) {
	room := gs.getOrCreateRoom(gs.lobbyID)

	room.mu.Lock()
	if len(room.Players) >= maxLobbyPlayers {
		room.mu.Unlock()
		gs.log.Info().Str("room", room.ID).Msg("lobby full, login rejected")
		if err := conn.WriteJSON(roomFullMsg{Type: "roomFull"}); err != nil {
			gs.log.Debug().Err(err).Msg("roomFull write failed")
		}
		conn.Close()
		return
	}
	clientID := msg.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	nickname := msg.UserNickname
	if nickname == "" {
		nickname = fmt.Sprintf("Player%d", len(room.Players)+1)
	}
	player := &Player{
		ClientID: clientID,
		Nickname: nickname,
		Grade:    msg.UserGrade,
		Points:   msg.UserPoint,
		Picture:  msg.UserPicture,
		conn:     conn,
	}
	room.Players = append(room.Players, player)
	playerNum := len(room.Players)
	room.mu.Unlock()

	gs.log.Info().Str("client", clientID).Str("nickname", nickname).Msg("player logged in")
	if err := conn.WriteJSON(initMsg{Type: "init", ClientID: clientID, PlayerNum: playerNum}); err != nil {
		gs.log.Debug().Err(err).Msg("init write failed")
	}
	gs.broadcastPlayers(room)
}

// handleChat relays lobby chat to everyone in the lobby room.
func (gs *GameServer) handleChat(msg *Message) {
	room := gs.getRoom(gs.lobbyID)
	if room == nil {
		return
	}
	gs.broadcast(room, chatMsg{Type: "chat", Sender: msg.Nickname, Content: msg.Content})
}

// handleCount bumps the player's race score. First to the win score ends
// the race, once per round.
func (gs *GameServer) handleCount(msg *Message) {
	if msg.ClientID == "" {
		gs.log.Warn().Msg("count without clientId ignored")
		return
	}
	room := gs.getRoom(gs.lobbyID)
	if room == nil {
		return
	}

	room.mu.Lock()
	player := room.playerByClientID(msg.ClientID)
	if player == nil {
		room.mu.Unlock()
		gs.log.Warn().Str("client", msg.ClientID).Msg("count for unknown player ignored")
		return
	}
	player.Score++
	score := player.Score
	playerNum := 0
	for i, p := range room.Players {
		if p == player {
			playerNum = i + 1
		}
	}
	won := !room.raceOver && score >= raceWinScore
	if won {
		room.raceOver = true
	}
	clientID := player.ClientID
	nickname := player.Nickname
	winnerConn := player.conn
	var loserConns []connection
	if won {
		for _, p := range room.Players {
			if p != player && p.conn != nil {
				loserConns = append(loserConns, p.conn)
			}
		}
	}
	room.mu.Unlock()

	if won {
		gs.log.Info().Str("client", clientID).Str("nickname", nickname).Msg("race won")
		if winnerConn != nil {
			if err := winnerConn.WriteJSON(raceOverMsg{Type: "gameOver", Message: "You finished first! The race is over.", IsWinner: true}); err != nil {
				gs.log.Debug().Err(err).Msg("gameOver write failed")
			}
		}
		for _, c := range loserConns {
			if err := c.WriteJSON(raceOverMsg{Type: "gameOver", Message: "The race is over."}); err != nil {
				gs.log.Debug().Err(err).Msg("gameOver write failed")
			}
		}
	}

	gs.broadcast(room, countMsg{Type: "count", ClientID: clientID, Count: score, PlayerNum: playerNum})
}
