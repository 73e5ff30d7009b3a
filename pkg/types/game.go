package types

import "time"

type Game struct {
	ID          int64     `json:"id"`
	HostID      int64     `json:"hostId"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	CourtCount  int       `json:"courtCount"`
	CourtLabels []string  `json:"courtLabels"`
	HostContact string    `json:"hostContact"`
	Capacity    int       `json:"capacity"`
	Notes       string    `json:"notes"`
	Status      string    `json:"status"`
	Enrolled    int64     `json:"enrolled"`
}

// GameInput is the body of POST/PUT /api/games.
type GameInput struct {
	Title       string    `json:"title" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
	CourtCount  int       `json:"courtCount" binding:"required,min=1,max=32"`
	CourtLabels []string  `json:"courtLabels"`
	HostContact string    `json:"hostContact"`
	Capacity    int       `json:"capacity" binding:"required,min=4"`
	Notes       string    `json:"notes"`
}

type User struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Level       int    `json:"level"`
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	User     User      `json:"user"`
}

type LineStart struct {
	AuthorizeURL string `json:"authorizeUrl"`
	State        string `json:"state"`
}
