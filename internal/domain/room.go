package domain

type RoomID string

// SessionPhase is the voting lifecycle of a room.
type SessionPhase string

const (
	PhaseIdle     SessionPhase = "idle"
	PhaseVoting   SessionPhase = "voting"
	PhaseRevealed SessionPhase = "revealed"
)

// Card values that never count toward numeric aggregates.
const (
	CardUnknown  = "?"
	CardInfinity = "∞"
)

// CardScale is the numeric part of the deck, in play order. Consensus
// tolerates a spread of one step on this scale.
var CardScale = []string{"0", "1", "2", "3", "5", "8", "13"}

// HiddenVote replaces in-progress vote values in every snapshot sent while
// the phase is PhaseVoting, so votes stay blind until reveal.
const HiddenVote = "hidden"

// EstimationResult is derived once per reveal, never maintained
// incrementally.
type EstimationResult struct {
	Average      float64  `json:"average"`
	Median       float64  `json:"median"`
	Mode         []string `json:"mode"`
	HasConsensus bool     `json:"hasConsensus"`
}

// SessionState pairs the phase with its result. Result is non-nil exactly
// when Phase is PhaseRevealed; the store's transition methods are the only
// writers.
type SessionState struct {
	Phase  SessionPhase      `json:"phase"`
	Result *EstimationResult `json:"estimationResult,omitempty"`
}

// VoteView is a vote joined with the voter's display name, the shape
// clients render.
type VoteView struct {
	Value    string `json:"value"`
	Username string `json:"username"`
}

// RoomSummary is the lobby listing entry. Private rooms are never listed.
type RoomSummary struct {
	ID           RoomID `json:"id"`
	UserCount    int    `json:"userCount"`
	HostUsername string `json:"hostUsername"`
}
