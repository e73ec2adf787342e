package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mentora-contest-service/internal/domain"
)

// BankLoader fetches the generated question bank for a source document from
// a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, documentID string) ([]domain.Question, error)
}

// QuestionRepository caches question banks with TTL to avoid re-hitting the
// generator/backing store on every contest start.
type QuestionRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

// GenerateQuestions returns the first count questions of the document's bank.
func (r *QuestionRepository) GenerateQuestions(ctx context.Context, documentID string, count int) ([]domain.Question, error) {
	bank, err := r.loadBank(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return Take(bank, count)
}

func (r *QuestionRepository) loadBank(ctx context.Context, documentID string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[documentID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(documentID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[documentID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadBank(ctx, documentID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[documentID] = cachedBank{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// Take slices count questions off a bank, failing when the bank is smaller.
func Take(bank []domain.Question, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, domain.ErrValidation
	}
	if len(bank) < count {
		return nil, domain.ErrInsufficientQuestions
	}
	out := make([]domain.Question, count)
	copy(out, bank[:count])
	return out, nil
}

// StaticBankLoader serves banks from an in-memory map (tests/demos).
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, documentID string) ([]domain.Question, error) {
	if bank, ok := l.banks[documentID]; ok {
		return bank, nil
	}
	return nil, domain.ErrQuestionBankNotFound
}
