// Package directory talks to the external participant directory service,
// the authority on who may join a room.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Participant is one roster record, in the directory's join order.
type Participant struct {
	UserNum  int    `json:"userNum"`
	Nickname string `json:"userNickname"`
	Grade    string `json:"userGrade"`
	Picture  string `json:"userPicture"`
}

// participantRecord mirrors the wire shape: each element wraps the user
// object under a "users" key.
type participantRecord struct {
	Users Participant `json:"users"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a directory client for baseURL. An empty baseURL falls
// back to the DIRECTORY_URL environment variable.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("DIRECTORY_URL")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Participants fetches the ordered roster for roomID. Callers cache the
// result for the lifetime of the room object.
func (c *Client) Participants(ctx context.Context, roomID string) ([]Participant, error) {
	endpoint := fmt.Sprintf("%s/participants/%s", c.baseURL, url.PathEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch participants: status %d", resp.StatusCode)
	}

	var records []participantRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}

	participants := make([]Participant, 0, len(records))
	for _, r := range records {
		participants = append(participants, r.Users)
	}
	c.log.Debug().Str("room", roomID).Int("count", len(participants)).Msg("roster fetched")
	return participants, nil
}
