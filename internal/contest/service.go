package contest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mentora-contest-service/internal/domain"
)

// Store is the process-scoped session registry. It owns no business logic;
// the service inserts on create and removes once a session goes terminal.
type Store interface {
	Put(id string, a *Actor)
	Get(id string) (*Actor, bool)
	Delete(id string)
}

// QuestionRepository provides generated questions for a source document.
type QuestionRepository interface {
	GenerateQuestions(ctx context.Context, documentID string, count int) ([]domain.Question, error)
}

// ConfigPatch carries the fields of an update-config command; nil fields
// keep their current value.
type ConfigPatch struct {
	PlayerLimit         *int
	MCQCount            *int
	QuestionTimeSeconds *int
}

// Options tunes engine behavior not covered by per-session config.
type Options struct {
	// BreakSeconds is the fixed pause between grading and the next question.
	BreakSeconds int
	// FinishedGrace keeps a finished session around so reconnecting clients
	// can still fetch the game-over review.
	FinishedGrace time.Duration
	// CancelledGrace lets queued commands observe CANCELLED before removal.
	CancelledGrace time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.BreakSeconds <= 0 {
		o.BreakSeconds = 5
	}
	if o.FinishedGrace <= 0 {
		o.FinishedGrace = 2 * time.Minute
	}
	if o.CancelledGrace <= 0 {
		o.CancelledGrace = 2 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Service is the lobby/admin control surface: it validates commands against
// the session registry and delegates to the per-session actor.
type Service struct {
	store     Store
	questions QuestionRepository
	opts      Options
	log       zerolog.Logger
}

func NewService(store Store, questions QuestionRepository, opts Options, log zerolog.Logger) *Service {
	return &Service{store: store, questions: questions, opts: opts.withDefaults(), log: log}
}

// CreateSession registers a new session in WAITING and returns its id.
func (s *Service) CreateSession(documentID string, cfg domain.SessionConfig) (string, error) {
	if documentID == "" {
		return "", domain.ErrValidation
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	a := newActor(id, documentID, cfg, s.opts.BreakSeconds, s.opts.Now, s.log)
	a.onTerminal = func(phase domain.Phase) {
		grace := s.opts.FinishedGrace
		if phase == domain.PhaseCancelled {
			grace = s.opts.CancelledGrace
		}
		time.AfterFunc(grace, func() {
			s.store.Delete(id)
			a.Stop()
		})
	}
	s.store.Put(id, a)
	s.log.Info().Str("session", id).Str("document", documentID).Msg("session created")
	return id, nil
}

// Join admits a participant. An empty uid means a first join and the server
// mints the identity; a supplied uid is strictly a reconnect, restoring the
// existing record with its score and role intact or failing when no such
// record exists.
func (s *Service) Join(sessionID, uid, name string, role domain.Role) (domain.Participant, error) {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.Participant{}, domain.ErrSessionNotFound
	}
	if uid != "" {
		return a.Reconnect(uid)
	}
	return a.Join(uuid.NewString(), name, role)
}

// Leave marks the participant disconnected without deleting the record.
func (s *Service) Leave(sessionID, uid string) error {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return a.Leave(uid)
}

// ToggleRole flips a participant between player and spectator.
func (s *Service) ToggleRole(sessionID, requester, target string) (domain.Participant, error) {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.Participant{}, domain.ErrSessionNotFound
	}
	return a.ToggleRole(requester, target)
}

// UpdateConfig applies a partial config update and returns the new config.
func (s *Service) UpdateConfig(sessionID, requester string, patch ConfigPatch) (domain.SessionConfig, error) {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.SessionConfig{}, domain.ErrSessionNotFound
	}
	return a.ApplyConfigPatch(requester, patch)
}

// Start generates the question set and moves the session into its first
// round. Generation happens before the start event is dispatched so the
// session's event loop never waits on the provider.
func (s *Service) Start(ctx context.Context, sessionID, requester string) error {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	questions, err := s.questions.GenerateQuestions(ctx, a.DocumentID(), cfg.MCQCount)
	if err != nil {
		return err
	}
	return a.Start(requester, questions)
}

// SubmitAnswer records a player's answer for the active question.
func (s *Service) SubmitAnswer(sessionID, uid, answer string) error {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return a.SubmitAnswer(uid, answer)
}

// Cancel terminates a session before completion.
func (s *Service) Cancel(sessionID, requester string) error {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return a.Cancel(requester)
}

// Connect registers an outbound channel for a joined participant.
func (s *Service) Connect(sessionID, uid string, send chan Envelope) error {
	a, ok := s.store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return a.Connect(uid, send)
}

// Disconnect performs leave-style bookkeeping after a transport close.
func (s *Service) Disconnect(sessionID, uid string, send chan Envelope) {
	if a, ok := s.store.Get(sessionID); ok {
		a.Disconnect(uid, send)
	}
}
