package contest

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mentora-contest-service/internal/domain"
)

// Actor owns one session. Every inbound command and timer firing is executed
// as a single step on the actor's goroutine, so events for the same session
// never interleave while separate sessions stay fully concurrent.
type Actor struct {
	id  string
	log zerolog.Logger

	sess    *session
	clients map[string]*client

	events chan func()
	done   chan struct{}
	stop   sync.Once

	timer *time.Timer

	// onTerminal fires once when the session reaches FINISHED or CANCELLED;
	// the service uses it to schedule removal from the store.
	onTerminal   func(phase domain.Phase)
	terminalOnce sync.Once
}

func newActor(id, docID string, cfg domain.SessionConfig, breakSeconds int, now func() time.Time, log zerolog.Logger) *Actor {
	a := &Actor{
		id:      id,
		log:     log.With().Str("session", id).Logger(),
		sess:    newSession(id, docID, cfg, breakSeconds, now),
		clients: make(map[string]*client),
		events:  make(chan func(), 64),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	for {
		select {
		case fn := <-a.events:
			fn()
		case <-a.done:
			return
		}
	}
}

// Stop terminates the event loop. Commands arriving afterwards fail with
// ErrSessionNotFound, matching the session's removal from the store.
func (a *Actor) Stop() {
	a.stop.Do(func() {
		close(a.done)
	})
}

func (a *Actor) dispatch(fn func()) error {
	select {
	case a.events <- fn:
		return nil
	case <-a.done:
		return domain.ErrSessionNotFound
	}
}

// call runs fn on the actor goroutine and waits for its result.
func call[T any](a *Actor, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	if err := a.dispatch(func() {
		v, err := fn()
		ch <- result{v, err}
	}); err != nil {
		var zero T
		return zero, err
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-a.done:
		// The command may have completed just as the actor stopped.
		select {
		case r := <-ch:
			return r.v, r.err
		default:
		}
		var zero T
		return zero, domain.ErrSessionNotFound
	}
}

// ID returns the session identifier.
func (a *Actor) ID() string { return a.id }

// DocumentID returns the source document whose bank seeds the questions.
func (a *Actor) DocumentID() string { return a.sess.docID }

// Config returns a copy of the current session config.
func (a *Actor) Config() (domain.SessionConfig, error) {
	return call(a, func() (domain.SessionConfig, error) {
		return a.sess.cfg, nil
	})
}

// Join admits a new participant under a server-minted uid.
func (a *Actor) Join(uid, name string, role domain.Role) (domain.Participant, error) {
	return call(a, func() (domain.Participant, error) {
		p, err := a.sess.join(uid, name, role)
		if err != nil {
			return domain.Participant{}, err
		}
		return *p, nil
	})
}

// Reconnect restores an existing participant by uid.
func (a *Actor) Reconnect(uid string) (domain.Participant, error) {
	return call(a, func() (domain.Participant, error) {
		p, err := a.sess.reconnect(uid)
		if err != nil {
			return domain.Participant{}, err
		}
		return *p, nil
	})
}

// Leave drops the participant's channel and marks it disconnected. The
// record and score survive for a later reconnect.
func (a *Actor) Leave(uid string) error {
	_, err := call(a, func() (struct{}, error) {
		if _, ok := a.sess.participants[uid]; !ok {
			return struct{}{}, domain.ErrParticipantNotFound
		}
		a.unregister(uid, nil)
		return struct{}{}, nil
	})
	return err
}

// ToggleRole flips a participant between player and spectator.
func (a *Actor) ToggleRole(requester, target string) (domain.Participant, error) {
	return call(a, func() (domain.Participant, error) {
		p, err := a.sess.toggleRole(requester, target)
		if err != nil {
			return domain.Participant{}, err
		}
		return *p, nil
	})
}

// ApplyConfigPatch merges a partial update into the current config inside
// the event loop, so the read-modify-write cannot interleave with another
// command.
func (a *Actor) ApplyConfigPatch(requester string, patch ConfigPatch) (domain.SessionConfig, error) {
	return call(a, func() (domain.SessionConfig, error) {
		cfg := a.sess.cfg
		if patch.PlayerLimit != nil {
			cfg.PlayerLimit = *patch.PlayerLimit
		}
		if patch.MCQCount != nil {
			cfg.MCQCount = *patch.MCQCount
		}
		if patch.QuestionTimeSeconds != nil {
			cfg.QuestionTimeSeconds = *patch.QuestionTimeSeconds
		}
		if err := a.sess.updateConfig(requester, cfg); err != nil {
			return domain.SessionConfig{}, err
		}
		return cfg, nil
	})
}

// Start transitions to the first question and broadcasts it. Questions are
// generated by the caller beforehand so the event loop never blocks on the
// provider.
func (a *Actor) Start(requester string, questions []domain.Question) error {
	_, err := call(a, func() (struct{}, error) {
		q, err := a.sess.start(requester, questions)
		if err != nil {
			return struct{}{}, err
		}
		a.log.Info().Int("questions", len(questions)).Msg("contest started")
		a.broadcast(Envelope{Type: MsgNewQuestion, Payload: q})
		a.armTimer(a.untilRoundEnd(), timerToken{phase: domain.PhaseQuestion, index: a.sess.current})
		return struct{}{}, nil
	})
	return err
}

// SubmitAnswer records a player's answer and grades early once every
// connected player has answered.
func (a *Actor) SubmitAnswer(uid, answer string) error {
	_, err := call(a, func() (struct{}, error) {
		if err := a.sess.submit(uid, answer); err != nil {
			return struct{}{}, err
		}
		if a.sess.allConnectedPlayersAnswered() {
			a.gradeNow()
		}
		return struct{}{}, nil
	})
	return err
}

// Cancel terminates the session and notifies every connected participant.
func (a *Actor) Cancel(requester string) error {
	_, err := call(a, func() (struct{}, error) {
		if err := a.sess.cancel(requester); err != nil {
			return struct{}{}, err
		}
		a.stopTimer()
		a.log.Info().Msg("contest cancelled")
		a.broadcast(Envelope{Type: MsgSessionCancelled})
		a.terminal(domain.PhaseCancelled)
		return struct{}{}, nil
	})
	return err
}

// gradeNow runs on the actor goroutine. It grades the active question and
// broadcasts either the round result or the game-over review.
func (a *Actor) gradeNow() {
	a.stopTimer()
	round, over, err := a.sess.grade()
	if err != nil {
		return
	}
	if over != nil {
		a.log.Info().Msg("contest finished")
		a.broadcast(Envelope{Type: MsgGameOver, Payload: *over})
		a.terminal(domain.PhaseFinished)
		return
	}
	a.broadcast(Envelope{Type: MsgRoundResult, Payload: *round})
	a.armTimer(a.untilBreakEnd(), timerToken{phase: domain.PhaseBreak, index: a.sess.current})
}

// advanceNow runs on the actor goroutine when a break timer fires.
func (a *Actor) advanceNow() {
	q, err := a.sess.advance()
	if err != nil {
		return
	}
	a.broadcast(Envelope{Type: MsgNewQuestion, Payload: q})
	a.armTimer(a.untilRoundEnd(), timerToken{phase: domain.PhaseQuestion, index: a.sess.current})
}

func (a *Actor) terminal(phase domain.Phase) {
	a.terminalOnce.Do(func() {
		if a.onTerminal != nil {
			a.onTerminal(phase)
		}
	})
}
