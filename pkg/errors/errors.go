package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// auth
	ErrInvalidLoginState = errors.New("login state is invalid or expired")
	ErrLineExchange      = errors.New("line login exchange failed")
	ErrDevLoginDisabled  = errors.New("dev login is only available in debug mode")
	ErrUserBanned        = errors.New("user is banned")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrInvalidUserStatus = errors.New("invalid user status")

	// admin
	ErrAdminNotFound        = errors.New("admin not found")
	ErrInvalidAdminPassword = errors.New("invalid admin password")
	ErrAdminDisabled        = errors.New("admin disabled")

	// game
	ErrGameNotFound       = errors.New("game not found")
	ErrInvalidGame        = errors.New("invalid game")
	ErrGameFull           = errors.New("game is full")
	ErrGameClosed         = errors.New("game is closed")
	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrNotEnrolled        = errors.New("not enrolled")
	ErrEnrollmentLocked   = errors.New("enrollment cannot be cancelled while playing")
	ErrHostCannotWithdraw = errors.New("host cannot cancel own enrollment")

	// live
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerNotIdle    = errors.New("player is not idle")
	ErrDuplicatePlayer  = errors.New("duplicate player in group")
	ErrInvalidCourt     = errors.New("invalid court")
	ErrCourtOccupied    = errors.New("court already has an active match")
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchFinished    = errors.New("match already finished")
	ErrInvalidWinner    = errors.New("winner must be A, B or none")
	ErrAlreadyCheckedIn = errors.New("player already checked in")
	ErrLiveBusy         = errors.New("another start is in progress for this game")

	// board
	ErrStagingFull       = errors.New("staging already holds four players")
	ErrStagingIncomplete = errors.New("staging needs four distinct players")
	ErrNotEnoughPlayers  = errors.New("not enough idle players to fill staging")
	ErrInvalidSlot       = errors.New("slot index out of range")
	ErrCourtBusy         = errors.New("court has an active match")
	ErrLastCourt         = errors.New("cannot remove the last court")
	ErrCourtExists       = errors.New("court already exists")
	ErrUnknownCourt      = errors.New("unknown court")
	ErrInvalidStrategy   = errors.New("unknown auto-fill strategy")
	ErrNotAuthenticated  = errors.New("login required")
)
