package contest

import (
	"testing"
	"time"

	"mentora-contest-service/internal/domain"
)

func testClock() func() time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func testSession(t *testing.T, cfg domain.SessionConfig) *session {
	t.Helper()
	return newSession("s1", "doc-1", cfg, 5, testClock())
}

func join(t *testing.T, s *session, uid, name string, role domain.Role) *domain.Participant {
	t.Helper()
	p, err := s.join(uid, name, role)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return p
}

func questions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Text:    "question",
			Options: []string{"right", "wrong"},
			Correct: "right",
		}
	}
	return qs
}

func TestFirstJoinerIsAdmin(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 4, MCQCount: 1, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)

	if !s.isAdmin(a.ID) {
		t.Fatalf("expected first joiner to be admin")
	}
	if s.isAdmin("b") {
		t.Fatalf("expected second joiner not to be admin")
	}
}

func TestJoinEnforcesPlayerCap(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 10})
	join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)

	if _, err := s.join("c", "Carol", domain.RolePlayer); err != domain.ErrCapacityExceeded {
		t.Fatalf("expected capacity error, got %v", err)
	}
	// spectator joins are never capped
	if _, err := s.join("c", "Carol", domain.RoleSpectator); err != nil {
		t.Fatalf("spectator join: %v", err)
	}
}

func TestJoinRejectedAfterStartButReconnectAllowed(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	if _, err := s.start(a.ID, questions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := s.join("x", "Eve", domain.RolePlayer); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error for new join, got %v", err)
	}

	p, err := s.reconnect("a")
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if p.ID != "a" {
		t.Fatalf("expected restored participant a, got %s", p.ID)
	}
}

func TestReconnectRequiresExistingRecord(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 10})
	join(t, s, "a", "Alice", domain.RolePlayer)

	// A client-chosen id with no record is not adopted as a new identity.
	if _, err := s.reconnect("chosen-by-client"); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant-not-found, got %v", err)
	}
	if _, ok := s.participants["chosen-by-client"]; ok {
		t.Fatalf("rejected reconnect must not create a record")
	}
}

func TestToggleRoleRevalidatesCap(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 1, MCQCount: 1, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RoleSpectator)

	if _, err := s.toggleRole(a.ID, "b"); err != domain.ErrCapacityExceeded {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if s.participants["b"].Role != domain.RoleSpectator {
		t.Fatalf("failed toggle must leave state unchanged")
	}

	// demote the player, then promotion fits
	if _, err := s.toggleRole(a.ID, "a"); err != nil {
		t.Fatalf("demote: %v", err)
	}
	if _, err := s.toggleRole(a.ID, "b"); err != nil {
		t.Fatalf("promote: %v", err)
	}
}

func TestToggleRoleRequiresAdmin(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 4, MCQCount: 1, QuestionTimeSeconds: 10})
	join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)

	if _, err := s.toggleRole("b", "a"); err != domain.ErrRoleForbidden {
		t.Fatalf("expected role error, got %v", err)
	}
}

func TestLoweringLimitDoesNotEvictPlayers(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 3, MCQCount: 1, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)
	join(t, s, "c", "Carol", domain.RolePlayer)

	if err := s.updateConfig(a.ID, domain.SessionConfig{PlayerLimit: 1, MCQCount: 1, QuestionTimeSeconds: 10}); err != nil {
		t.Fatalf("update config: %v", err)
	}
	if s.playerCount() != 3 {
		t.Fatalf("existing players must survive a limit reduction, got %d", s.playerCount())
	}
	if _, err := s.join("d", "Dave", domain.RolePlayer); err != domain.ErrCapacityExceeded {
		t.Fatalf("expected capacity error after reduction, got %v", err)
	}
}

func TestUpdateConfigRejectsNonPositive(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 3, MCQCount: 1, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)

	err := s.updateConfig(a.ID, domain.SessionConfig{PlayerLimit: 0, MCQCount: 1, QuestionTimeSeconds: 10})
	if err != domain.ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartMovesToFirstQuestion(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 2, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)

	q, err := s.start(a.ID, questions(2))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if q.QNum != 1 || q.Total != 2 {
		t.Fatalf("unexpected question numbering: %+v", q)
	}
	want := testClock()().Add(30 * time.Second).Unix()
	if q.EndTime != want {
		t.Fatalf("expected endTime %d, got %d", want, q.EndTime)
	}
}

func TestStartRejectsStaleQuestionSet(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 3, QuestionTimeSeconds: 10})
	a := join(t, s, "a", "Alice", domain.RolePlayer)

	// A set generated before the admin raised mcqCount must not start.
	if _, err := s.start(a.ID, questions(2)); err != domain.ErrValidation {
		t.Fatalf("expected validation error for stale set, got %v", err)
	}
	if s.phase != domain.PhaseWaiting {
		t.Fatalf("failed start must leave the session waiting, got %s", s.phase)
	}
	if _, err := s.start(a.ID, questions(3)); err != nil {
		t.Fatalf("start with matching set: %v", err)
	}
}

func TestStartRequiresAdmin(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 10})
	if _, err := s.start("nobody", questions(1)); err != domain.ErrRoleForbidden {
		t.Fatalf("expected role error for unknown requester, got %v", err)
	}
}

func TestFirstSubmissionWins(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	s.setConnected(a.ID, true)
	if _, err := s.start(a.ID, questions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.submit(a.ID, "wrong"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := s.submit(a.ID, "right"); err != domain.ErrAlreadyAnswered {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	_, over, err := s.grade()
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if over.Leaderboard[0].Score != 0 {
		t.Fatalf("second submission must not score, got %d", over.Leaderboard[0].Score)
	}
}

func TestSpectatorAndDisconnectedCannotSubmit(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "sam", "Sam", domain.RoleSpectator)
	s.setConnected(a.ID, true)
	s.setConnected("sam", true)
	if _, err := s.start(a.ID, questions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.submit("sam", "right"); err != domain.ErrRoleForbidden {
		t.Fatalf("expected role error for spectator, got %v", err)
	}

	s.setConnected(a.ID, false)
	if err := s.submit(a.ID, "right"); err == nil {
		t.Fatalf("expected rejection for disconnected player")
	}
}

func TestGradeScoresFlatAndMovesToBreak(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 3, MCQCount: 2, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)
	s.setConnected(a.ID, true)
	s.setConnected("b", true)
	if _, err := s.start(a.ID, questions(2)); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.submit(a.ID, "right"); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if err := s.submit("b", "wrong"); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	round, over, err := s.grade()
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if over != nil {
		t.Fatalf("expected break, not game over")
	}
	if s.phase != domain.PhaseBreak {
		t.Fatalf("expected BREAK, got %s", s.phase)
	}
	if round.Leaderboard[0].ID != a.ID || round.Leaderboard[0].Score != 1 {
		t.Fatalf("expected Alice leading with 1, got %+v", round.Leaderboard[0])
	}
	if round.Leaderboard[1].Score != 0 {
		t.Fatalf("wrong answer must not score, got %+v", round.Leaderboard[1])
	}
	if want := testClock()().Add(5 * time.Second).Unix(); round.BreakEnd != want {
		t.Fatalf("expected break end %d, got %d", want, round.BreakEnd)
	}

	// no late answers once grading happened
	if err := s.submit("b", "right"); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error after grading, got %v", err)
	}
}

func TestGradeExactlyOnce(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 2, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	s.setConnected(a.ID, true)
	if _, err := s.start(a.ID, questions(2)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := s.grade(); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if _, _, err := s.grade(); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error on double grade, got %v", err)
	}
}

func TestLastQuestionFinishesWithWinners(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 3, MCQCount: 1, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)
	s.setConnected(a.ID, true)
	s.setConnected("b", true)
	if _, err := s.start(a.ID, questions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.submit(a.ID, "right"); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if err := s.submit("b", "right"); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	round, over, err := s.grade()
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if round != nil || over == nil {
		t.Fatalf("expected game over on last question")
	}
	if s.phase != domain.PhaseFinished {
		t.Fatalf("expected FINISHED, got %s", s.phase)
	}
	if len(over.Winners) != 2 {
		t.Fatalf("expected both tied players as winners, got %+v", over.Winners)
	}
	// leaderboard tie-break is join order
	if over.Leaderboard[0].ID != a.ID || over.Leaderboard[1].ID != "b" {
		t.Fatalf("expected join-order tie-break, got %+v", over.Leaderboard)
	}
	// the review reveals correct answers
	if over.Questions[0].Correct != "right" {
		t.Fatalf("expected revealed correct answer, got %+v", over.Questions[0])
	}
}

func TestAdvanceMovesToNextQuestion(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 2, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	s.setConnected(a.ID, true)
	if _, err := s.start(a.ID, questions(2)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.submit(a.ID, "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := s.grade(); err != nil {
		t.Fatalf("grade: %v", err)
	}

	q, err := s.advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if q.QNum != 2 || s.phase != domain.PhaseQuestion {
		t.Fatalf("expected question 2 active, got %+v phase=%s", q, s.phase)
	}
	// fresh round accepts a new submission from the same player
	if err := s.submit(a.ID, "wrong"); err != nil {
		t.Fatalf("submit next round: %v", err)
	}
}

func TestEarlyGradingIgnoresDisconnected(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 3, MCQCount: 1, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)
	s.setConnected(a.ID, true) // Bob never connects
	if _, err := s.start(a.ID, questions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	if s.allConnectedPlayersAnswered() {
		t.Fatalf("nobody answered yet")
	}
	if err := s.submit(a.ID, "right"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !s.allConnectedPlayersAnswered() {
		t.Fatalf("disconnected players must not block early grading")
	}

	s.setConnected(a.ID, false)
	if s.allConnectedPlayersAnswered() {
		t.Fatalf("zero connected players must not trigger early grading")
	}
}

func TestCancelIsAdminOnlyAndTerminal(t *testing.T) {
	s := testSession(t, domain.SessionConfig{PlayerLimit: 2, MCQCount: 1, QuestionTimeSeconds: 30})
	a := join(t, s, "a", "Alice", domain.RolePlayer)
	join(t, s, "b", "Bob", domain.RolePlayer)

	if err := s.cancel("b"); err != domain.ErrRoleForbidden {
		t.Fatalf("expected role error, got %v", err)
	}
	if err := s.cancel(a.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.cancel(a.ID); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error on double cancel, got %v", err)
	}
	if _, err := s.join("c", "Carol", domain.RolePlayer); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error joining cancelled session, got %v", err)
	}
	if _, err := s.reconnect(a.ID); err != domain.ErrInvalidPhase {
		t.Fatalf("expected phase error reconnecting to cancelled session, got %v", err)
	}
}
