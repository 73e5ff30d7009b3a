package types

import "time"

type PlayerStatus string

const (
	PlayerIdle           PlayerStatus = "idle"
	PlayerPlaying        PlayerStatus = "playing"
	PlayerWaitingCheckin PlayerStatus = "waiting_checkin"
)

type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchFinished MatchStatus = "finished"
)

// Side values accepted by the finish endpoint.
const (
	WinnerA    = "A"
	WinnerB    = "B"
	WinnerNone = "none"
)

type Player struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"userId"`
	Name        string       `json:"name"`
	Avatar      string       `json:"avatar,omitempty"`
	Level       int          `json:"level"`
	GamesPlayed int          `json:"gamesPlayed"`
	Wins        int          `json:"wins"`
	Status      PlayerStatus `json:"status"`
	CheckInAt   *time.Time   `json:"checkInAt,omitempty"`
	IsHost      bool         `json:"isHost"`
}

type Lineup struct {
	A1 int64 `json:"a1"`
	A2 int64 `json:"a2"`
	B1 int64 `json:"b1"`
	B2 int64 `json:"b2"`
}

// IDs returns the four player ids in slot order a1, a2, b1, b2.
func (l Lineup) IDs() [4]int64 {
	return [4]int64{l.A1, l.A2, l.B1, l.B2}
}

type Match struct {
	ID          int64       `json:"id"`
	GameID      int64       `json:"gameId"`
	CourtNumber string      `json:"courtNumber"`
	Players     Lineup      `json:"players"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Status      MatchStatus `json:"status"`
	Winner      string      `json:"winner,omitempty"`
}

// Terminal reports whether the match no longer occupies its court.
func (m Match) Terminal() bool {
	return m.Status == MatchFinished
}

type LiveStatus struct {
	Players    []Player `json:"players"`
	Matches    []Match  `json:"matches"`
	MyPlayerID *int64   `json:"myPlayerId,omitempty"`
}

type StartMatchRequest struct {
	GameID      int64  `json:"gameId" binding:"required"`
	CourtNumber string `json:"courtNumber" binding:"required"`
	Players     Lineup `json:"players"`
}

type FinishMatchRequest struct {
	MatchID int64  `json:"matchId" binding:"required"`
	Winner  string `json:"winner,omitempty"`
}

type CheckinRequest struct {
	GameID   int64  `json:"gameId" binding:"required"`
	PlayerID *int64 `json:"playerId,omitempty"`
}

// WSMessage is the frame exchanged on /ws. Clients send type "join" with a
// game id; the server emits "refresh" to every member of that game's room.
type WSMessage struct {
	Type    string `json:"type"`
	GameID  int64  `json:"gameId,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	WSJoin    = "join"
	WSRefresh = "refresh"
	WSJoined  = "joined"
	WSError   = "error"
)
