package signal

import "github.com/dkeye/Pointing/internal/domain"

// Inbound message types. The dispatch switch in io.go covers every
// constant here; anything else is answered with errUnknownType.
const (
	reqCreateRoom           = "createRoom"
	reqJoinRoom             = "joinRoom"
	reqLeaveRoom            = "leaveRoom"
	reqUpdateUsername       = "updateUsername"
	reqTransferHost         = "transferHost"
	reqVote                 = "vote"
	reqCreateTask           = "createTask"
	reqUpdateTask           = "updateTask"
	reqDeleteTask           = "deleteTask"
	reqSetCurrentTask       = "setCurrentTask"
	reqStartVoting          = "startVoting"
	reqRevealVotes          = "revealVotes"
	reqResetVoting          = "resetVoting"
	reqFinalizeEstimate     = "finalizeEstimate"
	reqUpdateJiraBaseURL    = "updateJiraBaseUrl"
	reqUpdateRoomPassword   = "updateRoomPassword"
	reqCheckRoomExists      = "checkRoomExists"
	reqValidateRoomPassword = "validateRoomPassword"
	reqGetRoomList          = "getRoomList"
	reqGetRoomState         = "getRoomState"
	reqPing                 = "ping"
)

// Outbound event types.
const (
	evtRoomCreated         = "roomCreated"
	evtRoomJoined          = "roomJoined"
	evtRoomLeft            = "roomLeft"
	evtUserJoined          = "userJoined"
	evtUsernameUpdated     = "usernameUpdated"
	evtRoomState           = "roomState"
	evtVotesUpdated        = "votesUpdated"
	evtSessionStateUpdated = "sessionStateUpdated"
	evtEstimationResult    = "estimationResult"
	evtTasksUpdated        = "tasksUpdated"
	evtHostChanged         = "hostChanged"
	evtJiraBaseURLUpdated  = "jiraBaseUrlUpdated"
	evtRoomPasswordUpdated = "roomPasswordUpdated"
	evtRoomList            = "roomList"
	evtRoomExists          = "roomExists"
	evtPasswordValid       = "passwordValid"
	evtPong                = "pong"
	evtError               = "error"
)

// Error codes carried by evtError. Failures go to the acting connection
// only, never to the room.
const (
	errDuplicateRoom    = "duplicateRoom"
	errRoomNotFound     = "roomNotFound"
	errUnauthorized     = "unauthorized"
	errPasswordRequired = "passwordRequired"
	errBadPayload       = "badPayload"
	errUnknownType      = "unknownType"
)

// Inbound payloads. Every struct is validated before its handler runs.

type createRoomRequest struct {
	RoomID    string `json:"roomId" validate:"required,max=64"`
	Username  string `json:"username" validate:"required,max=36"`
	IsPrivate bool   `json:"isPrivate"`
	Password  string `json:"password"`
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=36"`
	Password string `json:"password"`
}

type roomRequest struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

type updateUsernameRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=36"`
}

type transferHostRequest struct {
	RoomID    string `json:"roomId" validate:"required,max=64"`
	NewHostID string `json:"newHostId" validate:"required"`
}

type voteRequest struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Value  string `json:"value" validate:"required,max=8"`
}

type createTaskRequest struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	Task   struct {
		Ticket      string `json:"ticket" validate:"required,max=128"`
		Description string `json:"description" validate:"max=2048"`
	} `json:"task"`
}

type updateTaskRequest struct {
	RoomID  string            `json:"roomId" validate:"required,max=64"`
	TaskID  string            `json:"taskId" validate:"required"`
	Updates domain.TaskUpdate `json:"updates"`
}

type deleteTaskRequest struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	TaskID string `json:"taskId" validate:"required"`
}

type setCurrentTaskRequest struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
	TaskID string `json:"taskId" validate:"required"`
}

type finalizeEstimateRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Estimate string `json:"estimate" validate:"required,max=8"`
}

type updateJiraBaseURLRequest struct {
	RoomID      string `json:"roomId" validate:"required,max=64"`
	JiraBaseURL string `json:"jiraBaseUrl" validate:"max=512"`
}

type updateRoomPasswordRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Password string `json:"password" validate:"max=64"`
}

type validatePasswordRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=64"`
	Password string `json:"password"`
}

// Outbound payloads.

type roomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
}

type roomStateEvent struct {
	Type          string        `json:"type"`
	Users         []domain.User `json:"users"`
	HostID        domain.UserID `json:"hostId"`
	Tasks         []domain.Task `json:"tasks"`
	CurrentTaskID domain.TaskID `json:"currentTaskId,omitempty"`
	JiraBaseURL   string        `json:"jiraBaseUrl"`
	IsPrivate     bool          `json:"isPrivate"`
}

type userEvent struct {
	Type string      `json:"type"`
	User domain.User `json:"user"`
}

type votesEvent struct {
	Type  string                            `json:"type"`
	Votes map[domain.UserID]domain.VoteView `json:"votes"`
}

type sessionStateEvent struct {
	Type string `json:"type"`
	domain.SessionState
}

type estimationResultEvent struct {
	Type string `json:"type"`
	domain.EstimationResult
}

type tasksEvent struct {
	Type          string        `json:"type"`
	Tasks         []domain.Task `json:"tasks"`
	CurrentTaskID domain.TaskID `json:"currentTaskId,omitempty"`
}

type hostChangedEvent struct {
	Type   string        `json:"type"`
	HostID domain.UserID `json:"hostId"`
}

type jiraBaseURLEvent struct {
	Type        string `json:"type"`
	JiraBaseURL string `json:"jiraBaseUrl"`
}

type passwordUpdatedEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type roomListEvent struct {
	Type  string               `json:"type"`
	Rooms []domain.RoomSummary `json:"rooms"`
}

type boolReplyEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Value  bool   `json:"value"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
