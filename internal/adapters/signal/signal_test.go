package signal

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Pointing/internal/app"
	"github.com/dkeye/Pointing/internal/core"
	"github.com/dkeye/Pointing/internal/domain"
)

// fakeConn records every frame a client would have received.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("connection closed")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// events decodes everything received so far as loose maps.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

// lastOfType returns the most recent event of the given type, if any.
func (f *fakeConn) lastOfType(t *testing.T, typ string) (map[string]any, bool) {
	t.Helper()
	evts := f.events(t)
	for i := len(evts) - 1; i >= 0; i-- {
		if evts[i]["type"] == typ {
			return evts[i], true
		}
	}
	return nil, false
}

func (f *fakeConn) countOfType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, e := range f.events(t) {
		if e["type"] == typ {
			n++
		}
	}
	return n
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

type harness struct {
	ctl *Controller
	reg *app.Registry
}

func newHarness() *harness {
	reg := app.NewRegistry()
	return &harness{
		ctl: NewController(core.NewRoomStore(), reg, nil),
		reg: reg,
	}
}

func (h *harness) connect(sid string) *fakeConn {
	conn := &fakeConn{}
	h.reg.Bind(core.SessionID(sid), conn, nil)
	return conn
}

func (h *harness) send(sid string, conn *fakeConn, msg string) {
	h.ctl.Dispatch(core.SessionID(sid), conn, []byte(msg))
}

func TestCreateRoomFlow(t *testing.T) {
	h := newHarness()
	host := h.connect("host")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)

	created, ok := host.lastOfType(t, evtRoomCreated)
	require.True(t, ok)
	assert.Equal(t, "sprint-12", created["roomId"])

	state, ok := host.lastOfType(t, evtRoomState)
	require.True(t, ok)
	assert.Equal(t, "host", state["hostId"])

	list, ok := host.lastOfType(t, evtRoomList)
	require.True(t, ok)
	assert.Len(t, list["rooms"], 1)

	rooms := h.reg.Rooms("host")
	require.Len(t, rooms, 1)
	assert.Equal(t, "sprint-12", string(rooms[0]))
}

func TestCreateRoomDuplicate(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	other := h.connect("other")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("other", other, `{"type":"createRoom","roomId":"sprint-12","username":"Bob"}`)

	errEvt, ok := other.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errDuplicateRoom, errEvt["code"])
	assert.Empty(t, h.reg.Rooms("other"))
}

func TestJoinRoomFlow(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	host.reset()

	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)

	joined, ok := guest.lastOfType(t, evtRoomJoined)
	require.True(t, ok)
	assert.Equal(t, "sprint-12", joined["roomId"])

	// The newcomer gets a full view: state, votes and phase.
	state, ok := guest.lastOfType(t, evtRoomState)
	require.True(t, ok)
	assert.Len(t, state["users"], 2)
	_, ok = guest.lastOfType(t, evtVotesUpdated)
	assert.True(t, ok)
	_, ok = guest.lastOfType(t, evtSessionStateUpdated)
	assert.True(t, ok)

	// The host sees the newcomer, but never a userJoined for itself.
	userEvt, ok := host.lastOfType(t, evtUserJoined)
	require.True(t, ok)
	assert.Equal(t, "Bob", userEvt["user"].(map[string]any)["username"])
	assert.Equal(t, 0, guest.countOfType(t, evtUserJoined))
}

func TestJoinRoomUnknown(t *testing.T) {
	h := newHarness()
	guest := h.connect("guest")

	h.send("guest", guest, `{"type":"joinRoom","roomId":"nope","username":"Bob"}`)

	errEvt, ok := guest.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errRoomNotFound, errEvt["code"])
	assert.Empty(t, h.reg.Rooms("guest"))
}

func TestJoinPrivateRoomPassword(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"войс","username":"Alice","isPrivate":true,"password":"p"}`)

	h.send("guest", guest, `{"type":"joinRoom","roomId":"войс","username":"Bob"}`)
	errEvt, ok := guest.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errPasswordRequired, errEvt["code"])

	h.send("guest", guest, `{"type":"joinRoom","roomId":"войс","username":"Bob","password":"p"}`)
	_, ok = guest.lastOfType(t, evtRoomJoined)
	assert.True(t, ok)

	// Private rooms stay out of the lobby broadcast.
	list, ok := guest.lastOfType(t, evtRoomList)
	require.True(t, ok)
	assert.Empty(t, list["rooms"])
}

func TestVotingLifecycle(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)

	h.send("host", host, `{"type":"createTask","roomId":"sprint-12","task":{"ticket":"PROJ-1"}}`)
	tasks, ok := guest.lastOfType(t, evtTasksUpdated)
	require.True(t, ok)
	taskList := tasks["tasks"].([]any)
	require.Len(t, taskList, 1)
	taskID := taskList[0].(map[string]any)["id"].(string)

	h.send("host", host, fmt.Sprintf(`{"type":"setCurrentTask","roomId":"sprint-12","taskId":"%s"}`, taskID))
	tasks, _ = guest.lastOfType(t, evtTasksUpdated)
	assert.Equal(t, taskID, tasks["currentTaskId"])

	h.send("host", host, `{"type":"startVoting","roomId":"sprint-12"}`)
	state, ok := guest.lastOfType(t, evtSessionStateUpdated)
	require.True(t, ok)
	assert.Equal(t, "voting", state["phase"])

	guest.reset()
	h.send("host", host, `{"type":"vote","roomId":"sprint-12","value":"5"}`)
	h.send("guest", guest, `{"type":"vote","roomId":"sprint-12","value":"8"}`)

	// Blind round: everyone sees who voted, nobody sees what.
	votes, ok := guest.lastOfType(t, evtVotesUpdated)
	require.True(t, ok)
	voteMap := votes["votes"].(map[string]any)
	require.Len(t, voteMap, 2)
	for _, v := range voteMap {
		assert.Equal(t, "hidden", v.(map[string]any)["value"])
	}

	h.send("host", host, `{"type":"revealVotes","roomId":"sprint-12"}`)
	result, ok := guest.lastOfType(t, evtEstimationResult)
	require.True(t, ok)
	assert.Equal(t, 6.5, result["average"])
	assert.Equal(t, true, result["hasConsensus"])

	votes, _ = guest.lastOfType(t, evtVotesUpdated)
	voteMap = votes["votes"].(map[string]any)
	assert.Equal(t, "5", voteMap["host"].(map[string]any)["value"])

	h.send("host", host, `{"type":"finalizeEstimate","roomId":"sprint-12","estimate":"8"}`)
	tasks, _ = guest.lastOfType(t, evtTasksUpdated)
	done := tasks["tasks"].([]any)[0].(map[string]any)
	assert.Equal(t, "completed", done["status"])
	assert.Equal(t, "8", done["finalEstimate"])
	votes, _ = guest.lastOfType(t, evtVotesUpdated)
	assert.Empty(t, votes["votes"])
}

func TestMemberOfTwoRoomsHearsBoth(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	dual := h.connect("dual")

	h.send("host", host, `{"type":"createRoom","roomId":"room-a","username":"Alice"}`)
	h.send("dual", dual, `{"type":"joinRoom","roomId":"room-a","username":"Bob"}`)
	h.send("dual", dual, `{"type":"createRoom","roomId":"room-b","username":"Bob"}`)
	dual.reset()

	// A vote in the first room still reaches the dual-room member.
	h.send("host", host, `{"type":"vote","roomId":"room-a","value":"5"}`)
	_, ok := dual.lastOfType(t, evtVotesUpdated)
	assert.True(t, ok)

	// Leaving the first room keeps the second subscription alive.
	h.send("dual", dual, `{"type":"leaveRoom","roomId":"room-a"}`)
	assert.Equal(t, []domain.RoomID{"room-b"}, h.reg.Rooms("dual"))

	dual.reset()
	h.send("dual", dual, `{"type":"createTask","roomId":"room-b","task":{"ticket":"PROJ-1"}}`)
	_, ok = dual.lastOfType(t, evtTasksUpdated)
	assert.True(t, ok)
}

func TestHostOnlyActionsRejected(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)
	host.reset()

	h.send("guest", guest, `{"type":"startVoting","roomId":"sprint-12"}`)
	errEvt, ok := guest.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errUnauthorized, errEvt["code"])

	// Failures never reach the rest of the room.
	assert.Empty(t, host.events(t))
}

func TestLeaveRoomBroadcasts(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)
	guest.reset()

	h.send("host", host, `{"type":"leaveRoom","roomId":"sprint-12"}`)

	_, ok := host.lastOfType(t, evtRoomLeft)
	assert.True(t, ok)

	hostChanged, ok := guest.lastOfType(t, evtHostChanged)
	require.True(t, ok)
	assert.Equal(t, "guest", hostChanged["hostId"])
	state, ok := guest.lastOfType(t, evtRoomState)
	require.True(t, ok)
	assert.Len(t, state["users"], 1)
}

func TestDisconnectCleanup(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)
	guest.reset()

	h.ctl.handleDisconnect("host")

	hostChanged, ok := guest.lastOfType(t, evtHostChanged)
	require.True(t, ok)
	assert.Equal(t, "guest", hostChanged["hostId"])

	list, ok := guest.lastOfType(t, evtRoomList)
	require.True(t, ok)
	rooms := list["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, float64(1), rooms[0].(map[string]any)["userCount"])

	_, bound := h.reg.Conn("host")
	assert.False(t, bound)
}

func TestTransferHost(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)

	h.send("guest", guest, `{"type":"transferHost","roomId":"sprint-12","newHostId":"guest"}`)
	errEvt, ok := guest.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errUnauthorized, errEvt["code"])

	h.send("host", host, `{"type":"transferHost","roomId":"sprint-12","newHostId":"guest"}`)
	hostChanged, ok := guest.lastOfType(t, evtHostChanged)
	require.True(t, ok)
	assert.Equal(t, "guest", hostChanged["hostId"])
}

func TestRequestReplyProbes(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	probe := h.connect("probe")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice","isPrivate":true,"password":"p"}`)

	h.send("probe", probe, `{"type":"checkRoomExists","roomId":"sprint-12"}`)
	reply, ok := probe.lastOfType(t, evtRoomExists)
	require.True(t, ok)
	assert.Equal(t, true, reply["value"])

	h.send("probe", probe, `{"type":"checkRoomExists","roomId":"nope"}`)
	reply, _ = probe.lastOfType(t, evtRoomExists)
	assert.Equal(t, false, reply["value"])

	h.send("probe", probe, `{"type":"validateRoomPassword","roomId":"sprint-12","password":"p"}`)
	reply, ok = probe.lastOfType(t, evtPasswordValid)
	require.True(t, ok)
	assert.Equal(t, true, reply["value"])

	h.send("probe", probe, `{"type":"validateRoomPassword","roomId":"sprint-12","password":"x"}`)
	reply, _ = probe.lastOfType(t, evtPasswordValid)
	assert.Equal(t, false, reply["value"])
}

func TestGetRoomState(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	probe := h.connect("probe")

	h.send("probe", probe, `{"type":"getRoomState","roomId":"nope"}`)
	errEvt, ok := probe.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errRoomNotFound, errEvt["code"])

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("probe", probe, `{"type":"getRoomState","roomId":"sprint-12"}`)
	state, ok := probe.lastOfType(t, evtRoomState)
	require.True(t, ok)
	assert.Len(t, state["users"], 1)
	_, ok = probe.lastOfType(t, evtVotesUpdated)
	assert.True(t, ok)
}

func TestBadPayloadAndUnknownType(t *testing.T) {
	h := newHarness()
	conn := h.connect("sid")

	h.send("sid", conn, `not json`)
	errEvt, ok := conn.lastOfType(t, evtError)
	require.True(t, ok)
	assert.Equal(t, errBadPayload, errEvt["code"])

	h.send("sid", conn, `{"type":"joinRoom"}`)
	errEvt, _ = conn.lastOfType(t, evtError)
	assert.Equal(t, errBadPayload, errEvt["code"])

	h.send("sid", conn, `{"type":"warp"}`)
	errEvt, _ = conn.lastOfType(t, evtError)
	assert.Equal(t, errUnknownType, errEvt["code"])
}

func TestPing(t *testing.T) {
	h := newHarness()
	conn := h.connect("sid")

	h.send("sid", conn, `{"type":"ping"}`)
	_, ok := conn.lastOfType(t, evtPong)
	assert.True(t, ok)
}

func TestUpdateUsernameBroadcast(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)

	h.send("guest", guest, `{"type":"updateUsername","roomId":"sprint-12","username":"Bobby"}`)
	evt, ok := host.lastOfType(t, evtUsernameUpdated)
	require.True(t, ok)
	assert.Equal(t, "Bobby", evt["user"].(map[string]any)["username"])

	list, ok := host.lastOfType(t, evtRoomList)
	require.True(t, ok)
	assert.Len(t, list["rooms"], 1)
}

func TestUpdateRoomSettings(t *testing.T) {
	h := newHarness()
	host := h.connect("host")
	guest := h.connect("guest")

	h.send("host", host, `{"type":"createRoom","roomId":"sprint-12","username":"Alice"}`)
	h.send("guest", guest, `{"type":"joinRoom","roomId":"sprint-12","username":"Bob"}`)

	h.send("host", host, `{"type":"updateJiraBaseUrl","roomId":"sprint-12","jiraBaseUrl":"https://jira.example.com/browse/"}`)
	evt, ok := guest.lastOfType(t, evtJiraBaseURLUpdated)
	require.True(t, ok)
	assert.Equal(t, "https://jira.example.com/browse/", evt["jiraBaseUrl"])

	h.send("guest", guest, `{"type":"updateRoomPassword","roomId":"sprint-12","password":"p"}`)
	pw, ok := guest.lastOfType(t, evtRoomPasswordUpdated)
	require.True(t, ok)
	assert.Equal(t, false, pw["success"])

	h.send("host", host, `{"type":"updateRoomPassword","roomId":"sprint-12","password":"p"}`)
	pw, ok = host.lastOfType(t, evtRoomPasswordUpdated)
	require.True(t, ok)
	assert.Equal(t, true, pw["success"])
}
