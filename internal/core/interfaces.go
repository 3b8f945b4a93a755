package core

import (
	"errors"

	"github.com/dkeye/Pointing/internal/domain"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
	ErrBadPassword  = errors.New("wrong room password")
	ErrBadRoomID    = errors.New("invalid room id")
)

// RoomStore is the sole owner of all room state. Every method is a single
// synchronous atomic mutation; read accessors return empty values instead
// of failing when the room is gone. The coordinator never touches room
// state except through this surface.
type RoomStore interface {
	// CreateRoom creates a room with the host as its only member.
	// Returns ErrRoomExists if the id is taken.
	CreateRoom(id domain.RoomID, hostID domain.UserID, hostName string, private bool, password string) error
	// JoinRoom inserts or overwrites the membership entry for userID.
	// A private room requires the stored password unless the caller is
	// already the host. Returns ErrRoomNotFound or ErrBadPassword.
	JoinRoom(id domain.RoomID, userID domain.UserID, username, password string) error
	// LeaveRoom removes the member and their vote. The earliest remaining
	// joiner inherits the host seat; an emptied room is deleted.
	LeaveRoom(id domain.RoomID, userID domain.UserID) bool
	// HandleDisconnect removes the connection from every room it belongs
	// to and reports the ids of the rooms it touched.
	HandleDisconnect(userID domain.UserID) []domain.RoomID
	UpdateUsername(id domain.RoomID, userID domain.UserID, username string) bool
	TransferHost(id domain.RoomID, currentHostID, newHostID domain.UserID) bool

	AddVote(id domain.RoomID, userID domain.UserID, value string) bool
	// RoomVotes joins votes with display names. While the phase is
	// PhaseVoting every value is replaced with domain.HiddenVote.
	RoomVotes(id domain.RoomID) map[domain.UserID]domain.VoteView

	CreateTask(id domain.RoomID, userID domain.UserID, ticket, description string) (domain.Task, bool)
	UpdateTask(id domain.RoomID, userID domain.UserID, taskID domain.TaskID, upd domain.TaskUpdate) bool
	DeleteTask(id domain.RoomID, userID domain.UserID, taskID domain.TaskID) bool
	// SetCurrentTask selects the estimation target and restarts the
	// round: votes cleared, phase forced back to idle.
	SetCurrentTask(id domain.RoomID, hostID domain.UserID, taskID domain.TaskID) bool

	StartVoting(id domain.RoomID, hostID domain.UserID) bool
	// RevealVotes computes the estimation result over the raw votes and
	// moves the phase to revealed. Fails unless the phase is voting.
	RevealVotes(id domain.RoomID, hostID domain.UserID) *domain.EstimationResult
	ResetVoting(id domain.RoomID, hostID domain.UserID) bool
	// FinalizeEstimate completes the current task with the given estimate
	// and ends the round, de-selecting the task.
	FinalizeEstimate(id domain.RoomID, hostID domain.UserID, estimate string) bool

	UpdateJiraBaseURL(id domain.RoomID, hostID domain.UserID, baseURL string) bool
	UpdateRoomPassword(id domain.RoomID, hostID domain.UserID, password string) bool

	// ActiveRooms lists public rooms only.
	ActiveRooms() []domain.RoomSummary
	RoomExists(id domain.RoomID) bool
	RoomUsers(id domain.RoomID) []domain.User
	HostID(id domain.RoomID) domain.UserID
	Tasks(id domain.RoomID) []domain.Task
	CurrentTask(id domain.RoomID) (domain.Task, bool)
	SessionState(id domain.RoomID) (domain.SessionState, bool)
	JiraBaseURL(id domain.RoomID) string
	RoomPrivate(id domain.RoomID) bool
	ValidatePassword(id domain.RoomID, password string) bool
}
