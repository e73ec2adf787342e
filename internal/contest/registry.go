package contest

import "mentora-contest-service/internal/domain"

// client is one registered outbound channel. A participant has at most one
// at a time; a reconnect replaces the previous registration.
type client struct {
	uid  string
	send chan Envelope
}

// Connect registers an outbound channel for a participant and immediately
// sends the INIT snapshot, plus the active question mid-round so the client
// needs no history. The registry closes the channel on replacement, leave,
// disconnect, and actor stop; callers only ever read from it.
func (a *Actor) Connect(uid string, send chan Envelope) error {
	_, err := call(a, func() (struct{}, error) {
		if a.sess.phase == domain.PhaseCancelled {
			return struct{}{}, domain.ErrInvalidPhase
		}
		if _, ok := a.sess.participants[uid]; !ok {
			return struct{}{}, domain.ErrParticipantNotFound
		}
		if prev, ok := a.clients[uid]; ok {
			close(prev.send)
		}
		c := &client{uid: uid, send: send}
		a.clients[uid] = c
		a.sess.setConnected(uid, true)
		a.log.Debug().Str("participant", uid).Msg("channel registered")

		a.push(c, Envelope{Type: MsgInit, Payload: a.sess.initPayload()})
		switch a.sess.phase {
		case domain.PhaseQuestion:
			a.push(c, Envelope{Type: MsgCurrentQuestion, Payload: a.sess.questionPayload()})
		case domain.PhaseFinished:
			a.push(c, Envelope{Type: MsgGameOver, Payload: GameOverPayload{
				Leaderboard: a.sess.leaderboard(),
				Winners:     a.sess.winners(),
				Questions:   a.sess.questions,
			}})
		}
		return struct{}{}, nil
	})
	return err
}

// Disconnect removes the registration if ch still is the participant's
// active channel, so a reconnect that already replaced it is unaffected.
// Losing a player can complete the early-grading condition, so it is
// re-checked here.
func (a *Actor) Disconnect(uid string, ch chan Envelope) {
	_ = a.dispatch(func() {
		a.unregister(uid, ch)
		if a.sess.phase == domain.PhaseQuestion && a.sess.allConnectedPlayersAnswered() {
			a.gradeNow()
		}
	})
}

// unregister runs on the actor goroutine. A nil ch unconditionally drops the
// participant's channel.
func (a *Actor) unregister(uid string, ch chan Envelope) {
	c, ok := a.clients[uid]
	if !ok {
		return
	}
	if ch != nil && c.send != ch {
		return
	}
	close(c.send)
	delete(a.clients, uid)
	a.sess.setConnected(uid, false)
	a.log.Debug().Str("participant", uid).Msg("channel unregistered")
}

// broadcast fans out to every connected participant of the session, from the
// single authoritative post-mutation state, so all participants observe
// transitions in the same order.
func (a *Actor) broadcast(msg Envelope) {
	for uid, c := range a.clients {
		select {
		case c.send <- msg:
		default:
			// Slow consumer: drop the registration rather than block the
			// session's event loop.
			close(c.send)
			delete(a.clients, uid)
			a.sess.setConnected(uid, false)
			a.log.Warn().Str("participant", uid).Msg("send buffer full, dropping channel")
		}
	}
}

// push targets a single client, with the same slow-consumer policy.
func (a *Actor) push(c *client, msg Envelope) {
	select {
	case c.send <- msg:
	default:
		close(c.send)
		delete(a.clients, c.uid)
		a.sess.setConnected(c.uid, false)
	}
}
