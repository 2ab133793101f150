package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginCapacity(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)

	conns := make([]*fakeConn, maxLobbyPlayers)
	for i := range conns {
		conns[i] = &fakeConn{}
		gs.handleLogin(conns[i], &Message{Type: "login", ClientID: fmt.Sprintf("p%d", i+1)})
		require.Len(t, conns[i].typed("init"), 1)
	}

	late := &fakeConn{}
	gs.handleLogin(late, &Message{Type: "login", ClientID: "p5"})
	require.Len(t, late.typed("roomFull"), 1)
	assert.True(t, late.closed, "over-capacity login is disconnected")

	room := gs.getRoom(gs.lobbyID)
	room.mu.Lock()
	assert.Len(t, room.Players, maxLobbyPlayers)
	room.mu.Unlock()
}

func TestLoginAssignsDefaults(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)

	conn := &fakeConn{}
	gs.handleLogin(conn, &Message{Type: "login"})

	room := gs.getRoom(gs.lobbyID)
	room.mu.Lock()
	require.Len(t, room.Players, 1)
	assert.NotEmpty(t, room.Players[0].ClientID, "server generates a client id")
	assert.Equal(t, "Player1", room.Players[0].Nickname)
	room.mu.Unlock()

	init := conn.typed("init")[0].(initMsg)
	assert.Equal(t, 1, init.PlayerNum)
	assert.NotEmpty(t, init.ClientID)
}

func TestCountRace(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)

	c1 := &fakeConn{}
	c2 := &fakeConn{}
	gs.handleLogin(c1, &Message{Type: "login", ClientID: "p1", UserNickname: "ana"})
	gs.handleLogin(c2, &Message{Type: "login", ClientID: "p2", UserNickname: "bora"})

	for i := 0; i < raceWinScore-1; i++ {
		gs.handleCount(&Message{Type: "count", ClientID: "p1"})
	}
	assert.Empty(t, c1.typed("gameOver"))
	assert.Len(t, c1.typed("count"), raceWinScore-1)

	gs.handleCount(&Message{Type: "count", ClientID: "p1"})

	require.Len(t, c1.typed("gameOver"), 1)
	winner := c1.typed("gameOver")[0].(raceOverMsg)
	assert.True(t, winner.IsWinner)
	require.Len(t, c2.typed("gameOver"), 1)
	assert.False(t, c2.typed("gameOver")[0].(raceOverMsg).IsWinner)

	last := c1.typed("count")[raceWinScore-1].(countMsg)
	assert.Equal(t, raceWinScore, last.Count)
	assert.Equal(t, 1, last.PlayerNum)

	// Further presses still count but cannot end the race twice.
	gs.handleCount(&Message{Type: "count", ClientID: "p2"})
	require.Len(t, c2.typed("gameOver"), 1)
}

func TestCountUnknownPlayerIgnored(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	c1 := &fakeConn{}
	gs.handleLogin(c1, &Message{Type: "login", ClientID: "p1"})

	gs.handleCount(&Message{Type: "count", ClientID: "ghost"})
	assert.Empty(t, c1.typed("count"))
}

func TestChatRelayedToLobby(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	gs.handleLogin(c1, &Message{Type: "login", ClientID: "p1"})
	gs.handleLogin(c2, &Message{Type: "login", ClientID: "p2"})

	gs.handleChat(&Message{Type: "chat", Nickname: "ana", Content: "hello"})

	for _, c := range []*fakeConn{c1, c2} {
		msgs := c.typed("chat")
		require.Len(t, msgs, 1)
		assert.Equal(t, chatMsg{Type: "chat", Sender: "ana", Content: "hello"}, msgs[0])
	}
}
