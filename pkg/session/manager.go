package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/Hopsan/hopsan-sub008/internal/logging"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

// ErrNotOpen is returned for operations on a document that has no open session.
var ErrNotOpen = errors.New("document is not open")

// DefaultLockTTL bounds how long a crashed holder can block a document.
const DefaultLockTTL = 30 * time.Second

// Session is one open document and its undo stack.
type Session struct {
	ID       string
	Document ports.Document
	Stack    *undo.Stack
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.HistoryStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks

	sessionsMu sync.RWMutex
	sessions   map[string]*Session

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	stackOpts []undo.Option
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithStackOptions is applied to every stack the Manager creates.
func WithStackOptions(opts ...undo.Option) Option {
	return func(m *Manager) {
		m.stackOpts = append(m.stackOpts, opts...)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager backed by store.
func NewManager(store ports.HistoryStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(documentID) after unlocking.
func (m *Manager) acquire(documentID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		entry = &lockEntry{}
		m.locks[documentID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[documentID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, documentID)
	}
}

// Open starts a session for doc, restoring any stored history. Opening an already open
// document returns the existing session.
//
// A stored history that cannot be restored is dropped with a warning: the document is
// still editable, only its past undo steps are gone.
func (m *Manager) Open(ctx context.Context, documentID string, doc ports.Document) (*Session, error) {
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	var s *Session
	err := m.WithLock(ctx, documentID, func(ctx context.Context) error {
		if existing, ok := m.Get(documentID); ok {
			s = existing
			return nil
		}

		history, err := m.store.Load(ctx, documentID)
		var stack *undo.Stack
		switch {
		case errors.Is(err, domain.ErrHistoryNotFound):
			stack = undo.NewStack(doc, m.stackOpts...)
		case err != nil:
			return fmt.Errorf("failed to load history: %w", err)
		default:
			stack, err = undo.Restore(doc, history, m.stackOpts...)
			if err != nil {
				m.logger.Warn("discarding unreadable undo history",
					"document_id", documentID,
					"err", err,
				)
				stack = undo.NewStack(doc, m.stackOpts...)
			}
		}

		s = &Session{ID: documentID, Document: doc, Stack: stack}
		m.sessionsMu.Lock()
		m.sessions[documentID] = s
		m.sessionsMu.Unlock()

		m.logger.Debug("session opened", "document_id", documentID, "position", stack.Position())
		return nil
	})
	return s, err
}

// Get returns the open session of a document.
func (m *Manager) Get(documentID string) (*Session, bool) {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	s, ok := m.sessions[documentID]
	return s, ok
}

// OpenIDs returns the IDs of the open sessions, sorted.
func (m *Manager) OpenIDs() []string {
	m.sessionsMu.RLock()
	defer m.sessionsMu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Do runs fn with exclusive access to an open session.
func (m *Manager) Do(ctx context.Context, documentID string, fn func(*Session) error) error {
	return m.WithLock(ctx, documentID, func(ctx context.Context) error {
		s, ok := m.Get(documentID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotOpen, documentID)
		}
		return fn(s)
	})
}

// Save persists the history of an open session.
func (m *Manager) Save(ctx context.Context, documentID string) error {
	return m.Do(ctx, documentID, func(s *Session) error {
		return m.save(ctx, s)
	})
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	history, err := s.Stack.History(s.ID)
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}
	if err := m.store.Save(ctx, s.ID, history); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	m.logger.Debug("history saved", "document_id", s.ID, "posts", len(history.Posts)-1)
	return nil
}

// Close saves and ends a session.
func (m *Manager) Close(ctx context.Context, documentID string) error {
	return m.Do(ctx, documentID, func(s *Session) error {
		if err := m.save(ctx, s); err != nil {
			return err
		}
		m.forget(documentID)
		return nil
	})
}

// Discard ends a session, if open, and deletes its stored history.
func (m *Manager) Discard(ctx context.Context, documentID string) error {
	return m.WithLock(ctx, documentID, func(ctx context.Context) error {
		m.forget(documentID)
		return m.store.Delete(ctx, documentID)
	})
}

func (m *Manager) forget(documentID string) {
	m.sessionsMu.Lock()
	delete(m.sessions, documentID)
	m.sessionsMu.Unlock()
	m.logger.Debug("session closed", "document_id", documentID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying history store.
func (m *Manager) Store() ports.HistoryStore {
	return m.store
}

// WithLock executes a function while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, documentID string, fn func(context.Context) error) error {
	entry := m.acquire(documentID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(documentID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, documentID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document_id", documentID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
