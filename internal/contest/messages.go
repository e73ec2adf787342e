package contest

import "mentora-contest-service/internal/domain"

// Server -> client message types.
const (
	MsgInit             = "INIT"
	MsgNewQuestion      = "NEW_QUESTION"
	MsgCurrentQuestion  = "CURRENT_QUESTION"
	MsgRoundResult      = "ROUND_RESULT"
	MsgGameOver         = "GAME_OVER"
	MsgSessionCancelled = "SESSION_CANCELLED"
	MsgError            = "ERROR"
)

// Client -> server message types.
const (
	MsgSubmitAnswer = "SUBMIT_ANSWER"
)

// Envelope frames every message on the persistent channel.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// InitPayload is the snapshot sent on every (re)connection so a client can
// render correct state without replaying history.
type InitPayload struct {
	State   domain.Phase              `json:"state"`
	Players []domain.LeaderboardEntry `json:"players"`
	Config  *domain.SessionConfig     `json:"config,omitempty"`
}

// QuestionPayload carries an active question. It never includes the correct
// option.
type QuestionPayload struct {
	QNum    int      `json:"q_num"`
	Total   int      `json:"total"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	EndTime int64    `json:"endTime"`
}

// RoundResultPayload is broadcast after grading a non-final question.
type RoundResultPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	BreakEnd    int64                     `json:"break_end"`
}

// GameOverPayload reveals the full question list, correct answers included.
type GameOverPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	Winners     []domain.LeaderboardEntry `json:"winners"`
	Questions   []domain.Question         `json:"questions"`
}

// ErrorPayload reports a rejected inbound command to its sender.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

// Inbound is a client -> server frame.
type Inbound struct {
	Type   string `json:"type"`
	Answer string `json:"answer"`
}
