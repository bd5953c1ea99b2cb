// Package session maintains hash-chained transcripts of advisory Q&A.
//
// Each exchange hashes the question and response and folds them into a
// running chain hash; closing a session freezes the transcript and returns
// the final chain hash as its immutable reference. Sessions move
// OPEN → (exchange)* → CLOSED, and CLOSED is terminal.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/caseproof/custody-core/pkg/hashing"
)

var (
	// ErrSessionClosed rejects exchanges against a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrSessionNotFound rejects operations on unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuestionRejected marks questions the content policy refused.
	// Rejected questions are never chained.
	ErrQuestionRejected = errors.New("question rejected by content policy")
)

// ExchangeRecord is one sealed Q&A exchange. Only hashes are kept; the
// transcript never stores question or response text.
type ExchangeRecord struct {
	QuestionHash string    `json:"questionHash"`
	ResponseHash string    `json:"responseHash"`
	Timestamp    time.Time `json:"timestamp"`
}

// Transcript is a point-in-time copy of a session's chained exchanges.
type Transcript struct {
	SessionID string           `json:"sessionId"`
	Exchanges []ExchangeRecord `json:"exchanges"`
	ChainHash string           `json:"chainHash"`
	Closed    bool             `json:"closed"`
}

type session struct {
	mu        sync.Mutex
	id        string
	closed    bool
	exchanges []ExchangeRecord
	chainHash string
	limiter   *rate.Limiter
}

// Manager owns all sessions. Exchanges within a session are applied in
// submission order under the session's own mutex; cross-session operations
// are independent.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	policy   *QuestionPolicy
	clock    func() time.Time
	logger   *slog.Logger

	exchangeRate  rate.Limit
	exchangeBurst int
}

// NewManager creates a session manager with the default question policy and
// a generous per-session exchange limit.
func NewManager() *Manager {
	return &Manager{
		sessions:      make(map[string]*session),
		policy:        NewDefaultQuestionPolicy(),
		clock:         time.Now,
		logger:        slog.Default().With("component", "session"),
		exchangeRate:  rate.Every(100 * time.Millisecond),
		exchangeBurst: 10,
	}
}

// WithPolicy overrides the question policy.
func (m *Manager) WithPolicy(p *QuestionPolicy) *Manager {
	m.policy = p
	return m
}

// WithClock overrides the clock for deterministic testing.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// WithExchangeLimit overrides the per-session exchange rate limit.
func (m *Manager) WithExchangeLimit(r rate.Limit, burst int) *Manager {
	m.exchangeRate = r
	m.exchangeBurst = burst
	return m
}

// Open starts a new session and returns its ID.
func (m *Manager) Open(_ context.Context) string {
	s := &session{
		id:      uuid.New().String(),
		limiter: rate.NewLimiter(m.exchangeRate, m.exchangeBurst),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	return s.id
}

func (m *Manager) get(sessionID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// Exchange chains one Q&A pair into the session transcript:
//
//	chain = Digest(prevChain ‖ questionHash ‖ responseHash)
//
// The question must pass the content policy first; a rejected question is
// not added and does not advance the chain.
func (m *Manager) Exchange(ctx context.Context, sessionID, question, response string) (*ExchangeRecord, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}
	if err := m.policy.Check(question); err != nil {
		m.logger.Warn("question rejected", "session_id", sessionID)
		return nil, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("exchange abandoned: %w", err)
	}

	questionHash := hashing.DigestString(question)
	responseHash := hashing.DigestString(response)
	s.chainHash = hashing.DigestString(s.chainHash + questionHash + responseHash)

	rec := ExchangeRecord{
		QuestionHash: questionHash,
		ResponseHash: responseHash,
		Timestamp:    m.clock(),
	}
	s.exchanges = append(s.exchanges, rec)

	cp := rec
	return &cp, nil
}

// Close freezes the session and returns the final chain hash. Closing an
// already-closed session is an error; the transcript hash does not change.
func (m *Manager) Close(_ context.Context, sessionID string) (string, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}
	s.closed = true

	m.logger.Info("session closed", "session_id", sessionID, "exchanges", len(s.exchanges), "chain_hash", s.chainHash)
	return s.chainHash, nil
}

// Transcript returns a copy of the session's transcript.
func (m *Manager) Transcript(sessionID string) (*Transcript, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := make([]ExchangeRecord, len(s.exchanges))
	copy(exchanges, s.exchanges)

	return &Transcript{
		SessionID: s.id,
		Exchanges: exchanges,
		ChainHash: s.chainHash,
		Closed:    s.closed,
	}, nil
}
