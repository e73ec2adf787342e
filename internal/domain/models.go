package domain

// Phase is a session's current stage in its lifecycle.
type Phase string

const (
	PhaseWaiting   Phase = "WAITING"
	PhaseQuestion  Phase = "QUESTION"
	PhaseGrading   Phase = "GRADING"
	PhaseBreak     Phase = "BREAK"
	PhaseFinished  Phase = "FINISHED"
	PhaseCancelled Phase = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseCancelled
}

// Role determines whether a participant is scored.
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// SessionConfig is mutable by the admin while the session is waiting.
type SessionConfig struct {
	PlayerLimit         int `json:"playerLimit"`
	MCQCount            int `json:"mcqCount"`
	QuestionTimeSeconds int `json:"questionTime"`
}

// Validate rejects non-positive values.
func (c SessionConfig) Validate() error {
	if c.PlayerLimit <= 0 || c.MCQCount <= 0 || c.QuestionTimeSeconds <= 0 {
		return ErrValidation
	}
	return nil
}

// Participant is a member of a contest session. The record survives
// disconnects; only the Connected flag flips.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	JoinOrder int    `json:"-"`
}

// Question is an MCQ with one correct option value. The correct value is
// withheld from broadcasts until the session finishes.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct string   `json:"correct"`
	Hint    string   `json:"hint,omitempty"`
}

// LeaderboardEntry is a broadcast-friendly view of a player.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Score int    `json:"score"`
}
