package server

// Message is the flat inbound envelope. Every field the protocol knows about
// lives here; which ones are required depends on Type. Unknown types and
// missing fields are logged and dropped, never fatal.
type Message struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	ClientID string `json:"clientId,omitempty"`

	// login
	UserNickname string `json:"userNickname,omitempty"`
	UserGrade    string `json:"userGrade,omitempty"`
	UserPoint    int    `json:"userPoint,omitempty"`
	UserPicture  string `json:"userPicture,omitempty"`

	// ready
	Ready bool `json:"ready,omitempty"`

	// finishPath
	Result int `json:"result,omitempty"`

	// trading sub-game
	Nickname string `json:"nickname,omitempty"`
	Usernum  int    `json:"usernum,omitempty"`
	StockID  string `json:"stockId,omitempty"`
	Amount   int    `json:"amount,omitempty"`
	Action   string `json:"action,omitempty"`
	Content  string `json:"content,omitempty"`
	Describe string `json:"describe,omitempty"`
	Turn     int    `json:"turn,omitempty"`

	// gameover
	Data []GameoverEntry `json:"data,omitempty"`
}

// GameoverEntry is one row of a trading round's closing report. Rank is
// assigned server-side, everything else is client-reported.
type GameoverEntry struct {
	Usernum  int    `json:"usernum,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Total    int    `json:"total"`
	Rank     int    `json:"rank,omitempty"`
}

// Outbound messages. The wire format is flat JSON records tagged by "type".

type initMsg struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	PlayerNum int    `json:"playerNum"`
}

type playersMsg struct {
	Type    string       `json:"type"`
	Players []PlayerInfo `json:"players"`
}

// PlayerInfo is the serializable view of a room member.
type PlayerInfo struct {
	ClientID string `json:"clientId"`
	Nickname string `json:"nickname"`
	Grade    string `json:"grade"`
	Points   int    `json:"points"`
	Ready    bool   `json:"ready"`
	Score    int    `json:"score"`
	Picture  string `json:"picture,omitempty"`
	Usernum  int    `json:"usernum,omitempty"`
}

type countdownMsg struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
}

type countdownCanceledMsg struct {
	Type string `json:"type"`
}

type startGameMsg struct {
	Type    string       `json:"type"`
	Ladder  Ladder       `json:"ladder"`
	Players []PlayerInfo `json:"players"`
	Rewards []string     `json:"rewards"`
}

type roomFullMsg struct {
	Type string `json:"type"`
}

type timerMsg struct {
	Type string `json:"type"`
	Time int    `json:"time"`
}

type debtMsg struct {
	Type    string `json:"type"`
	Usernum int    `json:"usernum"`
	Stock   string `json:"stock"`
	Amount  int    `json:"amount"`
}

type turnMsg struct {
	Type     string `json:"type"`
	Turn     int    `json:"turn"`
	Content  string `json:"content"`
	Incharge int    `json:"incharge"`
}

type gameEndedMsg struct {
	Type    string   `json:"type"`
	Results []Result `json:"results"`
	Winner  string   `json:"winner,omitempty"`
	Rewards []string `json:"rewards"`
}

type gameoverMsg struct {
	Type    string          `json:"type"`
	Content []GameoverEntry `json:"content"`
}

type chatMsg struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Usernum int    `json:"usernum,omitempty"`
}

type buySellMsg struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	StockID string `json:"stockId"`
	Amount  int    `json:"amount"`
	Usernum int    `json:"usernum"`
	Action  string `json:"action"`
}

type gameMsg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type countMsg struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	Count     int    `json:"count"`
	PlayerNum int    `json:"playerNum"`
}

type raceOverMsg struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	IsWinner bool   `json:"isWinner,omitempty"`
}
