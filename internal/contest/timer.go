package contest

import (
	"time"

	"mentora-contest-service/internal/domain"
)

// timerToken captures the phase and question index a timer was armed for.
// The firing re-fetches current state and compares, so a timer superseded by
// early grading or cancellation becomes a silent no-op instead of a stale
// closure acting on moved-on state.
type timerToken struct {
	phase domain.Phase
	index int
}

// armTimer replaces the session's single active timer. Only one of the
// question timer and the break timer is ever pending.
func (a *Actor) armTimer(d time.Duration, tok timerToken) {
	a.stopTimer()
	a.timer = time.AfterFunc(d, func() {
		// Re-enter the actor loop; the token check happens there.
		_ = a.dispatch(func() { a.timerFired(tok) })
	})
}

func (a *Actor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// timerFired runs on the actor goroutine.
func (a *Actor) timerFired(tok timerToken) {
	if tok.phase != a.sess.phase || tok.index != a.sess.current {
		return // superseded
	}
	switch tok.phase {
	case domain.PhaseQuestion:
		a.gradeNow()
	case domain.PhaseBreak:
		a.advanceNow()
	}
}

func (a *Actor) untilRoundEnd() time.Duration {
	return a.sess.roundEnd.Sub(a.sess.now())
}

func (a *Actor) untilBreakEnd() time.Duration {
	return a.sess.breakEnd.Sub(a.sess.now())
}
