package contest

import (
	"sort"
	"time"

	"mentora-contest-service/internal/domain"
)

// session is the aggregate behind one contest. It is not safe for concurrent
// use: the owning actor executes every mutation sequentially, which is what
// makes first-submission-wins and grade-exactly-once plain sequential code.
type session struct {
	id    string
	docID string
	cfg   domain.SessionConfig

	phase     domain.Phase
	questions []domain.Question
	current   int

	participants map[string]*domain.Participant
	adminID      string
	joinSeq      int

	// answers for the active question only; reset on every advance. Grading
	// is atomic with leaving QUESTION, so no per-index history is needed.
	answers map[string]string

	roundEnd     time.Time
	breakEnd     time.Time
	breakSeconds int

	now func() time.Time
}

func newSession(id, docID string, cfg domain.SessionConfig, breakSeconds int, now func() time.Time) *session {
	return &session{
		id:           id,
		docID:        docID,
		cfg:          cfg,
		phase:        domain.PhaseWaiting,
		current:      -1,
		participants: make(map[string]*domain.Participant),
		answers:      make(map[string]string),
		breakSeconds: breakSeconds,
		now:          now,
	}
}

func (s *session) playerCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Role == domain.RolePlayer {
			n++
		}
	}
	return n
}

// join admits a new identity while waiting. The uid is minted by the caller,
// never chosen by the client; supplied ids go through reconnect instead.
func (s *session) join(uid, name string, role domain.Role) (*domain.Participant, error) {
	if s.phase != domain.PhaseWaiting {
		return nil, domain.ErrInvalidPhase
	}
	if name == "" || (role != domain.RolePlayer && role != domain.RoleSpectator) {
		return nil, domain.ErrValidation
	}
	if role == domain.RolePlayer && s.playerCount() >= s.cfg.PlayerLimit {
		return nil, domain.ErrCapacityExceeded
	}
	p := &domain.Participant{
		ID:        uid,
		Name:      name,
		Role:      role,
		JoinOrder: s.joinSeq,
	}
	s.joinSeq++
	if s.adminID == "" {
		s.adminID = p.ID
	}
	s.participants[p.ID] = p
	return p, nil
}

// reconnect restores an existing participant, score and role intact, in any
// non-terminal phase. An unknown uid is rejected so clients cannot smuggle
// their own identities in.
func (s *session) reconnect(uid string) (*domain.Participant, error) {
	if s.phase == domain.PhaseCancelled {
		return nil, domain.ErrInvalidPhase
	}
	p, ok := s.participants[uid]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *session) isAdmin(uid string) bool {
	return uid != "" && uid == s.adminID
}

// toggleRole flips a participant between player and spectator. Promoting to
// player re-validates the cap and leaves state untouched on failure.
func (s *session) toggleRole(requester, target string) (*domain.Participant, error) {
	if !s.isAdmin(requester) {
		return nil, domain.ErrRoleForbidden
	}
	if s.phase != domain.PhaseWaiting {
		return nil, domain.ErrInvalidPhase
	}
	p, ok := s.participants[target]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	if p.Role == domain.RoleSpectator {
		if s.playerCount() >= s.cfg.PlayerLimit {
			return nil, domain.ErrCapacityExceeded
		}
		p.Role = domain.RolePlayer
	} else {
		p.Role = domain.RoleSpectator
	}
	return p, nil
}

// updateConfig replaces the session config. Lowering the limit never evicts
// existing players.
func (s *session) updateConfig(requester string, cfg domain.SessionConfig) error {
	if !s.isAdmin(requester) {
		return domain.ErrRoleForbidden
	}
	if s.phase != domain.PhaseWaiting {
		return domain.ErrInvalidPhase
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// start moves to the first question with an already-generated question set.
func (s *session) start(requester string, questions []domain.Question) (QuestionPayload, error) {
	if !s.isAdmin(requester) {
		return QuestionPayload{}, domain.ErrRoleForbidden
	}
	if s.phase != domain.PhaseWaiting {
		return QuestionPayload{}, domain.ErrInvalidPhase
	}
	if len(s.participants) == 0 {
		return QuestionPayload{}, domain.ErrValidation
	}
	// The set was generated from a config snapshot; a config update racing
	// the start could leave it stale.
	if len(questions) != s.cfg.MCQCount {
		return QuestionPayload{}, domain.ErrValidation
	}
	s.questions = questions
	s.current = 0
	s.answers = make(map[string]string)
	s.roundEnd = s.now().Add(time.Duration(s.cfg.QuestionTimeSeconds) * time.Second)
	s.phase = domain.PhaseQuestion
	return s.questionPayload(), nil
}

func (s *session) questionPayload() QuestionPayload {
	q := s.questions[s.current]
	return QuestionPayload{
		QNum:    s.current + 1,
		Total:   len(s.questions),
		Text:    q.Text,
		Options: q.Options,
		EndTime: s.roundEnd.Unix(),
	}
}

// submit records a player's answer for the active question, first submission
// wins.
func (s *session) submit(uid, answer string) error {
	if s.phase != domain.PhaseQuestion {
		return domain.ErrInvalidPhase
	}
	p, ok := s.participants[uid]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.Role != domain.RolePlayer {
		return domain.ErrRoleForbidden
	}
	if !p.Connected {
		return domain.ErrInvalidPhase
	}
	if _, dup := s.answers[uid]; dup {
		return domain.ErrAlreadyAnswered
	}
	s.answers[uid] = answer
	return nil
}

// allConnectedPlayersAnswered is the early-grading trigger. Disconnected
// players never block it; with zero connected players it reports false so
// the round always runs out its timer.
func (s *session) allConnectedPlayersAnswered() bool {
	connected := 0
	for _, p := range s.participants {
		if p.Role != domain.RolePlayer || !p.Connected {
			continue
		}
		connected++
		if _, ok := s.answers[p.ID]; !ok {
			return false
		}
	}
	return connected > 0
}

// grade scores the active question and transitions to BREAK or FINISHED.
// Exactly one of the two payloads is non-nil.
func (s *session) grade() (*RoundResultPayload, *GameOverPayload, error) {
	if s.phase != domain.PhaseQuestion {
		return nil, nil, domain.ErrInvalidPhase
	}
	s.phase = domain.PhaseGrading
	correct := s.questions[s.current].Correct
	for uid, answer := range s.answers {
		if answer != correct {
			continue
		}
		if p, ok := s.participants[uid]; ok {
			p.Score++
		}
	}
	s.answers = make(map[string]string)

	if s.current+1 == len(s.questions) {
		s.phase = domain.PhaseFinished
		s.current = len(s.questions)
		return nil, &GameOverPayload{
			Leaderboard: s.leaderboard(),
			Winners:     s.winners(),
			Questions:   s.questions,
		}, nil
	}
	s.breakEnd = s.now().Add(time.Duration(s.breakSeconds) * time.Second)
	s.phase = domain.PhaseBreak
	return &RoundResultPayload{
		Leaderboard: s.leaderboard(),
		BreakEnd:    s.breakEnd.Unix(),
	}, nil, nil
}

// advance moves from a break to the next question.
func (s *session) advance() (QuestionPayload, error) {
	if s.phase != domain.PhaseBreak {
		return QuestionPayload{}, domain.ErrInvalidPhase
	}
	s.current++
	s.answers = make(map[string]string)
	s.roundEnd = s.now().Add(time.Duration(s.cfg.QuestionTimeSeconds) * time.Second)
	s.phase = domain.PhaseQuestion
	return s.questionPayload(), nil
}

func (s *session) cancel(requester string) error {
	if !s.isAdmin(requester) {
		return domain.ErrRoleForbidden
	}
	if s.phase.Terminal() {
		return domain.ErrInvalidPhase
	}
	s.phase = domain.PhaseCancelled
	return nil
}

func (s *session) setConnected(uid string, connected bool) {
	if p, ok := s.participants[uid]; ok {
		p.Connected = connected
	}
}

// leaderboard lists players only, score descending, ties broken by join
// order so the ordering is stable across broadcasts.
func (s *session) leaderboard() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, p := range s.participants {
		if p.Role != domain.RolePlayer {
			continue
		}
		entries = append(entries, entry(p))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return s.participants[entries[i].ID].JoinOrder < s.participants[entries[j].ID].JoinOrder
	})
	return entries
}

// winners is every player tied for the maximum score.
func (s *session) winners() []domain.LeaderboardEntry {
	lb := s.leaderboard()
	if len(lb) == 0 {
		return nil
	}
	top := lb[0].Score
	winners := make([]domain.LeaderboardEntry, 0, 1)
	for _, e := range lb {
		if e.Score == top {
			winners = append(winners, e)
		}
	}
	return winners
}

// roster lists every participant, spectators included, in join order. Used
// for the INIT snapshot so the lobby can show and toggle roles.
func (s *session) roster() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	ids := make([]string, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.participants[ids[i]].JoinOrder < s.participants[ids[j]].JoinOrder
	})
	for _, id := range ids {
		entries = append(entries, entry(s.participants[id]))
	}
	return entries
}

func (s *session) initPayload() InitPayload {
	cfg := s.cfg
	return InitPayload{
		State:   s.phase,
		Players: s.roster(),
		Config:  &cfg,
	}
}

func entry(p *domain.Participant) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{ID: p.ID, Name: p.Name, Role: p.Role, Score: p.Score}
}
