package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTotals(t *testing.T) {
	testCases := []struct {
		desc   string
		totals []int
		ranks  []int
	}{
		{"distinct totals", []int{30, 50, 40}, []int{1, 2, 3}},
		{"tie shares rank and skips next", []int{50, 50, 30}, []int{1, 1, 3}},
		{"all tied", []int{10, 10, 10}, []int{1, 1, 1}},
		{"tie in the middle", []int{70, 40, 40, 20}, []int{1, 2, 2, 4}},
		{"single entry", []int{5}, []int{1}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			entries := make([]GameoverEntry, len(tc.totals))
			for i, total := range tc.totals {
				entries[i] = GameoverEntry{Usernum: i + 1, Total: total}
			}
			ranked := rankTotals(entries)

			require.Len(t, ranked, len(tc.totals))
			for i, r := range ranked {
				assert.Equal(t, tc.ranks[i], r.Rank)
				if i > 0 {
					assert.GreaterOrEqual(t, ranked[i-1].Total, r.Total, "sorted descending")
				}
			}
		})
	}
}

func TestRankTotalsDoesNotMutateInput(t *testing.T) {
	entries := []GameoverEntry{{Total: 1}, {Total: 9}}
	rankTotals(entries)
	assert.Equal(t, 1, entries[0].Total)
	assert.Zero(t, entries[0].Rank)
}

func TestFinishPathAggregatesAndEnds(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	room := gs.getOrCreateRoom("R1")
	conns := []*fakeConn{{}, {}, {}}
	room.mu.Lock()
	room.Phase = PhaseRunning
	room.TotalParticipants = 3
	room.Players = []*Player{
		{ClientID: "p1", Nickname: "ana", Usernum: 1, conn: conns[0]},
		{ClientID: "p2", Nickname: "bora", Usernum: 2, conn: conns[1]},
		{ClientID: "p3", Nickname: "chan", Usernum: 3, conn: conns[2]},
	}
	room.Rewards = []string{RewardBomb, RewardWin, RewardBomb}
	room.mu.Unlock()

	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p1", Result: 0})
	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p2", Result: 1})

	// Not everyone has reported; no broadcast yet.
	assert.Empty(t, conns[0].typed("gameEnded"))

	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p3", Result: 2})

	for _, c := range conns {
		msgs := c.typed("gameEnded")
		require.Len(t, msgs, 1)
		ended := msgs[0].(gameEndedMsg)
		assert.Equal(t, "p2", ended.Winner)
		assert.Len(t, ended.Results, 3)
		assert.Equal(t, []string{RewardBomb, RewardWin, RewardBomb}, ended.Rewards)
	}

	room.mu.Lock()
	assert.Equal(t, PhaseEnded, room.Phase)
	room.mu.Unlock()

	// The round is over; late reports change nothing. The reported slot
	// itself is never validated against the ladder - a hostile client can
	// claim any slot, which is an accepted trust boundary.
	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p1", Result: 1})
	require.Len(t, conns[0].typed("gameEnded"), 1)
}

func TestFinishPathBeforeRunningIgnored(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	room := gs.getOrCreateRoom("R1")
	conn := &fakeConn{}
	room.mu.Lock()
	room.Players = []*Player{{ClientID: "p1", Nickname: "ana", conn: conn}}
	room.mu.Unlock()

	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p1", Result: 0})

	room.mu.Lock()
	assert.Empty(t, room.Results)
	assert.Equal(t, PhaseWaiting, room.Phase)
	room.mu.Unlock()
	assert.Empty(t, conn.typed("gameEnded"))
}

func TestFinishPathDuplicateIgnored(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	room, _, _ := twoPlayerRoom(gs, "R1")
	room.mu.Lock()
	room.Rewards = []string{RewardWin, RewardBomb}
	room.mu.Unlock()

	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p1", Result: 1})
	gs.handleFinishPath(&Message{Type: "finishPath", RoomID: "R1", ClientID: "p1", Result: 0})

	room.mu.Lock()
	require.Len(t, room.Results, 1)
	assert.Nil(t, room.Winner, "second report must not steal the win slot")
	room.mu.Unlock()
}

func TestGameoverBroadcastsRankedList(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	_, c1, c2 := twoPlayerRoom(gs, "R1")

	gs.handleGameover(&Message{Type: "gameover", RoomID: "R1", Data: []GameoverEntry{
		{Usernum: 1, Total: 50},
		{Usernum: 2, Total: 50},
		{Usernum: 3, Total: 30},
	}})

	for _, c := range []*fakeConn{c1, c2} {
		msgs := c.typed("gameover")
		require.Len(t, msgs, 1)
		content := msgs[0].(gameoverMsg).Content
		require.Len(t, content, 3)
		assert.Equal(t, []int{1, 1, 3}, []int{content[0].Rank, content[1].Rank, content[2].Rank})
		assert.Equal(t, 30, content[2].Total)
	}
}

func TestGameoverUnknownRoomIgnored(t *testing.T) {
	ft := &fakeTickers{}
	gs := newTestServer(nil, ft)
	assert.NotPanics(t, func() {
		gs.handleGameover(&Message{Type: "gameover", RoomID: "ghost", Data: []GameoverEntry{{Total: 1}}})
	})
}
