// Package baldadto holds the JSON shapes of the client-facing API.
package baldadto

import "time"

type Cell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Char string `json:"char"`
}

// MoveRequest is one ply as submitted by a client.
type MoveRequest struct {
	Added Cell   `json:"added"`
	Path  []Cell `json:"path"`
}

type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Bot   bool   `json:"bot,omitempty"`
	Score int    `json:"score"`
}

// SessionView is the read model of a session. Board is derived from
// the move log; empty cells are "".
type SessionView struct {
	ID        string       `json:"id"`
	Players   []PlayerView `json:"players"`
	FieldSize int          `json:"field_size"`
	FirstWord string       `json:"first_word"`
	Status    string       `json:"status"`
	Turn      string       `json:"turn"` // id of the next mover
	Board     [][]string   `json:"board"`
	Words     []string     `json:"words"`
	Winner    string       `json:"winner,omitempty"`
	EndReason string       `json:"end_reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PollResponse reports matchmaking progress. Game is empty while no
// match exists yet.
type PollResponse struct {
	Game    string `json:"game"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type OnlineResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
