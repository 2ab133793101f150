package server

import "sync"

// Phase is a room's lifecycle state. Transitions only move forward:
// waiting -> countdown -> running -> ended.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhaseRunning   Phase = "running"
	PhaseEnded     Phase = "ended"
)

type Player struct {
	ClientID string
	Nickname string
	Grade    string
	Points   int
	Score    int
	Picture  string
	Ready    bool
	Usernum  int
	conn     connection // not serialized
}

// Result is one player's self-reported ladder outcome.
type Result struct {
	ClientID string `json:"clientId"`
	Result   int    `json:"result"`
	Nickname string `json:"nickname"`
}

// DebtEntry is a pending short-sell obligation, settled by the turn
// scheduler's mid-countdown notification.
type DebtEntry struct {
	RoomID  string
	Usernum int
	Stock   string
	Amount  int
}

type Room struct {
	ID                string
	Players           []*Player
	Phase             Phase
	TotalParticipants int
	Roster            []RosterEntry
	Ladder            Ladder
	Rewards           []string
	Results           []Result
	Winner            *Player
	FakeNews          []FakeNewsEntry
	raceOver          bool
	mu                sync.Mutex
}

// RosterEntry mirrors one record of the external directory's response,
// cached on the room for the lifetime of the room object.
type RosterEntry struct {
	Usernum  int
	Nickname string
	Grade    string
	Picture  string
}

// FakeNewsEntry is a scheduled fake-news reveal for the trading sub-game.
type FakeNewsEntry struct {
	Turn     int    `json:"turn"`
	Stock    string `json:"stock"`
	Describe string `json:"describe"`
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Phase:   PhaseWaiting,
		Players: []*Player{},
	}
}

// callers must hold room.mu
func (r *Room) playerByConn(c connection) (*Player, int) {
	for i, p := range r.Players {
		if p.conn == c {
			return p, i
		}
	}
	return nil, -1
}

// callers must hold room.mu
func (r *Room) playerByClientID(clientID string) *Player {
	for _, p := range r.Players {
		if p.ClientID == clientID {
			return p
		}
	}
	return nil
}

// callers must hold room.mu
func (r *Room) playerByUsernum(usernum int) *Player {
	for _, p := range r.Players {
		if p.Usernum == usernum {
			return p
		}
	}
	return nil
}

// callers must hold room.mu
func (r *Room) playerInfos() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		infos = append(infos, PlayerInfo{
			ClientID: p.ClientID,
			Nickname: p.Nickname,
			Grade:    p.Grade,
			Points:   p.Points,
			Ready:    p.Ready,
			Score:    p.Score,
			Picture:  p.Picture,
			Usernum:  p.Usernum,
		})
	}
	return infos
}

func (gs *GameServer) getRoom(id string) *Room {
	if id == "" {
		return nil
	}
	gs.roomsMu.RLock()
	defer gs.roomsMu.RUnlock()
	return gs.rooms[id]
}

// getOrCreateRoom returns the room for id, creating it in the waiting phase
// if absent. Room identifiers are opaque; any value is accepted.
func (gs *GameServer) getOrCreateRoom(id string) *Room {
	gs.roomsMu.Lock()
	defer gs.roomsMu.Unlock()
	if room, ok := gs.rooms[id]; ok {
		return room
	}
	room := newRoom(id)
	gs.rooms[id] = room
	return room
}

// dropRoomIfEmpty deletes a memberless room, so a failed first join does
// not leave an orphan behind.
func (gs *GameServer) dropRoomIfEmpty(id string) {
	gs.roomsMu.Lock()
	defer gs.roomsMu.Unlock()
	room, ok := gs.rooms[id]
	if !ok {
		return
	}
	room.mu.Lock()
	empty := len(room.Players) == 0
	room.mu.Unlock()
	if empty {
		delete(gs.rooms, id)
	}
}

// removeConnection detaches conn from whatever room holds it. Empty rooms
// are deleted along with their timers; surviving rooms get a fresh
// membership broadcast.
func (gs *GameServer) removeConnection(conn connection) {
	gs.roomsMu.Lock()
	var affected *Room
	var emptied bool
	for id, room := range gs.rooms {
		room.mu.Lock()
		if p, i := room.playerByConn(conn); p != nil {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			affected = room
			emptied = len(room.Players) == 0
			if emptied {
				delete(gs.rooms, id)
			}
		}
		room.mu.Unlock()
		if affected != nil {
			break
		}
	}
	gs.roomsMu.Unlock()

	if affected == nil {
		return
	}
	if emptied {
		gs.cancelCountdown(affected.ID)
		gs.clearTurnTimer(affected.ID)
		gs.log.Info().Str("room", affected.ID).Msg("room emptied, deleted")
		return
	}
	gs.broadcastPlayers(affected)
}
