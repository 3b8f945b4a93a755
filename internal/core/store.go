package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pointing/internal/domain"
)

// room is the full mutable state of one estimation session. Only the store
// sees it; everything leaving the store is a copy.
type room struct {
	id          domain.RoomID
	hostID      domain.UserID
	users       []domain.User // join order, earliest first
	votes       map[domain.UserID]string
	tasks       []domain.Task // most recently created first
	currentTask domain.TaskID
	session     domain.SessionState
	jiraBaseURL string
	private     bool
	password    string
	taskSeq     int
}

type storeImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
}

// NewRoomStore returns an empty in-memory RoomStore. The room table is
// owned by the returned value; there is no package-level state.
func NewRoomStore() RoomStore {
	return &storeImpl{rooms: make(map[domain.RoomID]*room)}
}

func (s *storeImpl) CreateRoom(id domain.RoomID, hostID domain.UserID, hostName string, private bool, password string) error {
	if len(id) == 0 || len(id) > domain.MaxRoomIDLen {
		return ErrBadRoomID
	}
	host, err := domain.NewUser(hostID, hostName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		return ErrRoomExists
	}
	r := &room{
		id:      id,
		hostID:  hostID,
		users:   []domain.User{host},
		votes:   make(map[domain.UserID]string),
		session: domain.SessionState{Phase: domain.PhaseIdle},
		private: private,
	}
	if private {
		r.password = password
	}
	s.rooms[id] = r
	log.Info().Str("module", "core.store").Str("room", string(id)).Str("host", string(hostID)).Bool("private", private).Msg("room created")
	return nil
}

func (s *storeImpl) JoinRoom(id domain.RoomID, userID domain.UserID, username, password string) error {
	user, err := domain.NewUser(userID, username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	if r.private && userID != r.hostID && password != r.password {
		return ErrBadPassword
	}
	if i := r.userIndex(userID); i >= 0 {
		// Re-join keeps the original seat, only the name may change.
		r.users[i].Username = user.Username
	} else {
		r.users = append(r.users, user)
	}
	log.Info().Str("module", "core.store").Str("room", string(id)).Str("user", string(userID)).Msg("member joined")
	return nil
}

func (s *storeImpl) LeaveRoom(id domain.RoomID, userID domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.userIndex(userID) < 0 {
		return false
	}
	s.removeMember(r, userID)
	return true
}

func (s *storeImpl) HandleDisconnect(userID domain.UserID) []domain.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched []domain.RoomID
	for id, r := range s.rooms {
		if r.userIndex(userID) >= 0 {
			s.removeMember(r, userID)
			touched = append(touched, id)
		}
	}
	if len(touched) > 0 {
		log.Info().Str("module", "core.store").Str("user", string(userID)).Int("rooms", len(touched)).Msg("disconnect cleanup")
	}
	return touched
}

// removeMember drops the member and their vote, rotates the host seat to
// the earliest remaining joiner and deletes the room once it is empty.
// Caller holds the write lock.
func (s *storeImpl) removeMember(r *room, userID domain.UserID) {
	i := r.userIndex(userID)
	r.users = append(r.users[:i], r.users[i+1:]...)
	delete(r.votes, userID)
	if len(r.users) == 0 {
		delete(s.rooms, r.id)
		log.Info().Str("module", "core.store").Str("room", string(r.id)).Msg("room deleted")
		return
	}
	if r.hostID == userID {
		r.hostID = r.users[0].ID
		log.Info().Str("module", "core.store").Str("room", string(r.id)).Str("host", string(r.hostID)).Msg("host rotated")
	}
}

func (s *storeImpl) UpdateUsername(id domain.RoomID, userID domain.UserID, username string) bool {
	if domain.ValidateUsername(username) != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return false
	}
	i := r.userIndex(userID)
	if i < 0 {
		return false
	}
	r.users[i].Username = username
	return true
}

func (s *storeImpl) TransferHost(id domain.RoomID, currentHostID, newHostID domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != currentHostID || r.userIndex(newHostID) < 0 {
		return false
	}
	r.hostID = newHostID
	log.Info().Str("module", "core.store").Str("room", string(id)).Str("host", string(newHostID)).Msg("host transferred")
	return true
}

func (s *storeImpl) AddVote(id domain.RoomID, userID domain.UserID, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.userIndex(userID) < 0 {
		return false
	}
	r.votes[userID] = value
	return true
}

func (s *storeImpl) RoomVotes(id domain.RoomID) map[domain.UserID]domain.VoteView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.UserID]domain.VoteView)
	r, ok := s.rooms[id]
	if !ok {
		return out
	}
	hidden := r.session.Phase == domain.PhaseVoting
	for uid, value := range r.votes {
		if hidden {
			value = domain.HiddenVote
		}
		out[uid] = domain.VoteView{Value: value, Username: r.username(uid)}
	}
	return out
}

func (s *storeImpl) CreateTask(id domain.RoomID, userID domain.UserID, ticket, description string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.userIndex(userID) < 0 {
		return domain.Task{}, false
	}
	r.taskSeq++
	task := domain.Task{
		ID:          domain.TaskID(fmt.Sprintf("task-%d", r.taskSeq)),
		Ticket:      ticket,
		Description: description,
		Status:      domain.TaskPending,
		CreatedAt:   time.Now(),
	}
	r.tasks = append([]domain.Task{task}, r.tasks...)
	return task, true
}

func (s *storeImpl) UpdateTask(id domain.RoomID, userID domain.UserID, taskID domain.TaskID, upd domain.TaskUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.userIndex(userID) < 0 {
		return false
	}
	i := r.taskIndex(taskID)
	if i < 0 {
		return false
	}
	if upd.Ticket != nil {
		r.tasks[i].Ticket = *upd.Ticket
	}
	if upd.Description != nil {
		r.tasks[i].Description = *upd.Description
	}
	return true
}

func (s *storeImpl) DeleteTask(id domain.RoomID, userID domain.UserID, taskID domain.TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.userIndex(userID) < 0 {
		return false
	}
	i := r.taskIndex(taskID)
	if i < 0 {
		return false
	}
	r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
	if r.currentTask == taskID {
		r.currentTask = ""
	}
	return true
}

func (s *storeImpl) SetCurrentTask(id domain.RoomID, hostID domain.UserID, taskID domain.TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID {
		return false
	}
	i := r.taskIndex(taskID)
	if i < 0 {
		return false
	}
	if j := r.taskIndex(r.currentTask); j >= 0 && r.tasks[j].Status == domain.TaskInProgress {
		r.tasks[j].Status = domain.TaskPending
	}
	r.tasks[i].Status = domain.TaskInProgress
	r.currentTask = taskID
	// Switching tasks always restarts the round.
	r.resetSession()
	return true
}

func (s *storeImpl) StartVoting(id domain.RoomID, hostID domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID || r.currentTask == "" {
		return false
	}
	r.votes = make(map[domain.UserID]string)
	r.session = domain.SessionState{Phase: domain.PhaseVoting}
	log.Info().Str("module", "core.store").Str("room", string(id)).Msg("voting started")
	return true
}

func (s *storeImpl) RevealVotes(id domain.RoomID, hostID domain.UserID) *domain.EstimationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID || r.session.Phase != domain.PhaseVoting {
		return nil
	}
	values := make([]string, 0, len(r.votes))
	for _, v := range r.votes {
		values = append(values, v)
	}
	result := Estimate(values)
	r.session = domain.SessionState{Phase: domain.PhaseRevealed, Result: &result}
	log.Info().Str("module", "core.store").Str("room", string(id)).Int("votes", len(values)).Msg("votes revealed")
	return &result
}

func (s *storeImpl) ResetVoting(id domain.RoomID, hostID domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID {
		return false
	}
	r.resetSession()
	return true
}

func (s *storeImpl) FinalizeEstimate(id domain.RoomID, hostID domain.UserID, estimate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID {
		return false
	}
	i := r.taskIndex(r.currentTask)
	if i < 0 {
		return false
	}
	r.tasks[i].FinalEstimate = estimate
	r.tasks[i].Status = domain.TaskCompleted
	r.currentTask = ""
	r.resetSession()
	log.Info().Str("module", "core.store").Str("room", string(id)).Str("task", string(r.tasks[i].ID)).Str("estimate", estimate).Msg("estimate finalized")
	return true
}

func (s *storeImpl) UpdateJiraBaseURL(id domain.RoomID, hostID domain.UserID, baseURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID {
		return false
	}
	r.jiraBaseURL = baseURL
	return true
}

func (s *storeImpl) UpdateRoomPassword(id domain.RoomID, hostID domain.UserID, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || r.hostID != hostID {
		return false
	}
	// Public rooms never carry a password; the write is acknowledged but
	// nothing is stored.
	if r.private {
		r.password = password
	}
	return true
}

func (s *storeImpl) ActiveRooms() []domain.RoomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomSummary, 0, len(s.rooms))
	for id, r := range s.rooms {
		if r.private {
			continue
		}
		out = append(out, domain.RoomSummary{
			ID:           id,
			UserCount:    len(r.users),
			HostUsername: r.username(r.hostID),
		})
	}
	return out
}

func (s *storeImpl) RoomExists(id domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok
}

func (s *storeImpl) RoomUsers(id domain.RoomID) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil
	}
	out := make([]domain.User, len(r.users))
	copy(out, r.users)
	return out
}

func (s *storeImpl) HostID(id domain.RoomID) domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[id]; ok {
		return r.hostID
	}
	return ""
}

func (s *storeImpl) Tasks(id domain.RoomID) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil
	}
	out := make([]domain.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (s *storeImpl) CurrentTask(id domain.RoomID) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok || r.currentTask == "" {
		return domain.Task{}, false
	}
	if i := r.taskIndex(r.currentTask); i >= 0 {
		return r.tasks[i], true
	}
	return domain.Task{}, false
}

func (s *storeImpl) SessionState(id domain.RoomID) (domain.SessionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[id]; ok {
		return r.session, true
	}
	return domain.SessionState{}, false
}

func (s *storeImpl) JiraBaseURL(id domain.RoomID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[id]; ok {
		return r.jiraBaseURL
	}
	return ""
}

func (s *storeImpl) RoomPrivate(id domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[id]; ok {
		return r.private
	}
	return false
}

func (s *storeImpl) ValidatePassword(id domain.RoomID, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return false
	}
	if !r.private {
		return true
	}
	return password == r.password
}

func (r *room) resetSession() {
	r.votes = make(map[domain.UserID]string)
	r.session = domain.SessionState{Phase: domain.PhaseIdle}
}

func (r *room) userIndex(userID domain.UserID) int {
	for i, u := range r.users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

func (r *room) username(userID domain.UserID) string {
	if i := r.userIndex(userID); i >= 0 {
		return r.users[i].Username
	}
	return ""
}

func (r *room) taskIndex(taskID domain.TaskID) int {
	if taskID == "" {
		return -1
	}
	for i, t := range r.tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}
