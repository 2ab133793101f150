package server

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/ladder-rush/internal/directory"
)

// --- connection ---

type fakeConn struct {
	mu     sync.Mutex
	writes []interface{}
	closed bool
}

var errConnClosed = errors.New("connection closed")

func (c *fakeConn) ReadJSON(v interface{}) error { return io.EOF }

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.writes...)
}

// typed returns every recorded write whose "type" field matches.
func (c *fakeConn) typed(msgType string) []interface{} {
	var out []interface{}
	for _, w := range c.messages() {
		if typeOf(w) == msgType {
			out = append(out, w)
		}
	}
	return out
}

func typeOf(v interface{}) string {
	f := reflect.ValueOf(v).FieldByName("Type")
	if !f.IsValid() {
		return ""
	}
	return f.String()
}

// --- TickerFactory ---

type fakeTickers struct {
	mu    sync.Mutex
	chans []chan time.Time
}

func (f *fakeTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	c := make(chan time.Time)
	f.mu.Lock()
	f.chans = append(f.chans, c)
	f.mu.Unlock()
	return c, func() {}
}

func (f *fakeTickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chans)
}

func (f *fakeTickers) channel(i int) chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chans[i]
}

// waitForTicker blocks until the n-th ticker has been created by a timer
// goroutine, then returns its channel.
func waitForTicker(t *testing.T, f *fakeTickers, n int) chan time.Time {
	t.Helper()
	require.Eventually(t, func() bool { return f.count() >= n+1 }, time.Second, time.Millisecond)
	return f.channel(n)
}

// tick feeds one tick and yields so the timer goroutine can run. Sends are
// unbuffered, so a send returning means the goroutine received it.
func tick(c chan time.Time) {
	c <- time.Time{}
}

// --- RosterFetcher ---

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Participants(ctx context.Context, roomID string) ([]directory.Participant, error) {
	args := m.Called(ctx, roomID)
	if p := args.Get(0); p != nil {
		return p.([]directory.Participant), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- server under test ---

func newTestServer(dir RosterFetcher, tickers TickerFactory) *GameServer {
	return NewGameServer(Config{
		Directory:    dir,
		Tickers:      tickers,
		Logger:       zerolog.Nop(),
		TickInterval: time.Millisecond,
	})
}

func threeParticipants() []directory.Participant {
	return []directory.Participant{
		{UserNum: 1, Nickname: "ana", Grade: "Gold"},
		{UserNum: 2, Nickname: "bora", Grade: "Silver"},
		{UserNum: 3, Nickname: "chan", Grade: "Bronze"},
	}
}

// joinRoom is shorthand for a successful join of one connection.
func joinRoom(gs *GameServer, roomID, clientID string) *fakeConn {
	conn := &fakeConn{}
	gs.handleJoin(conn, &Message{Type: "join", RoomID: roomID, ClientID: clientID})
	return conn
}
