package undo

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Hopsan/hopsan-sub008/internal/logging"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// Stack is the undo/redo log of one editing session.
type Stack struct {
	doc ports.Document

	// posts[0] is the sentinel; posts[i+1].Number == i.
	posts    []*Post
	position int
	enabled  bool

	logger   *slog.Logger
	messages ports.MessageHandler
	hooks    domain.LifecycleHooks
}

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stack) {
		s.logger = logger
	}
}

// WithMessageHandler sets where Clear reports its reason.
func WithMessageHandler(h ports.MessageHandler) Option {
	return func(s *Stack) {
		s.messages = h
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Stack) {
		s.hooks = hooks
	}
}

// NewStack creates an empty, enabled stack bound to doc.
func NewStack(doc ports.Document, opts ...Option) *Stack {
	s := &Stack{
		doc:     doc,
		enabled: true,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Stack) reset() {
	s.posts = []*Post{{Number: domain.SentinelPost}}
	s.position = domain.SentinelPost
}

// post returns the post numbered n. n must be in [-1, highest].
func (s *Stack) post(n int) *Post {
	return s.posts[n+1]
}

// highest returns the number of the last post, -1 when only the sentinel exists.
func (s *Stack) highest() int {
	return len(s.posts) - 2
}

// truncate drops every post numbered above keep.
func (s *Stack) truncate(keep int) {
	if keep >= s.highest() {
		return
	}
	dropped := s.highest() - keep
	clear(s.posts[keep+2:])
	s.posts = s.posts[:keep+2]
	s.logger.Debug("discarded redo branch", "posts", dropped, "keep", keep)
}

// Position returns the number of the last applied post, -1 if none.
func (s *Stack) Position() int {
	return s.position
}

// Len returns the number of posts, sentinel excluded.
func (s *Stack) Len() int {
	return s.highest() + 1
}

// Enabled reports whether Register* and BeginTransaction have any effect.
func (s *Stack) Enabled() bool {
	return s.enabled
}

// SetEnabled toggles recording. It is an advisory guard, not a lock.
func (s *Stack) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// suspend disables recording and returns a func restoring the previous flag.
func (s *Stack) suspend() func() {
	prev := s.enabled
	s.enabled = false
	return func() { s.enabled = prev }
}

// CanUndo reports whether Undo would do anything.
func (s *Stack) CanUndo() bool {
	return s.position >= 0
}

// CanRedo reports whether a post exists past the position.
func (s *Stack) CanRedo() bool {
	return s.position < s.highest()
}

// Current returns the post at the position, or nil at -1.
func (s *Stack) Current() *Post {
	if s.position < 0 {
		return nil
	}
	return s.post(s.position)
}

// Entries lists every post, sentinel excluded, oldest first.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, 0, s.Len())
	for _, p := range s.posts[1:] {
		kinds := make([]Kind, len(p.Records))
		for i, r := range p.Records {
			kinds[i] = r.Kind()
		}
		out = append(out, Entry{
			Number:  p.Number,
			Label:   p.Label,
			Kinds:   kinds,
			Applied: p.Number <= s.position,
		})
	}
	return out
}

// BeginTransaction opens a new post at position+1, discarding any redo branch.
//
// It does not always advance: if the post at the position is still empty it is reused
// and relabeled instead, so BeginTransaction("a") followed by BeginTransaction("b")
// leaves the position at 0 with one post labeled "b". A transaction that recorded
// nothing therefore never leaves a dead step for Undo and Redo to walk over.
func (s *Stack) BeginTransaction(label string) {
	if !s.enabled {
		return
	}
	if s.position >= 0 && s.post(s.position).Empty() {
		s.truncate(s.position)
		s.post(s.position).Label = label
		s.logger.Debug("reused empty post", "post", s.position, "label", label)
		return
	}
	s.position++
	s.truncate(s.position - 1)
	s.posts = append(s.posts, &Post{Number: s.position, Label: label})
	s.logger.Debug("began transaction", "post", s.position, "label", label)
}

// Clear wipes all history back to the sentinel. A non-empty reason is reported
// through the message handler.
func (s *Stack) Clear(reason string) {
	discarded := s.Len()
	s.reset()
	if reason != "" {
		s.logger.Warn("undo history cleared", "reason", reason, "discarded", discarded)
		if s.messages != nil {
			s.messages.ReportError(reason)
		}
	} else {
		s.logger.Debug("undo history cleared", "discarded", discarded)
	}
	if s.hooks.OnInvalidate != nil {
		s.hooks.OnInvalidate(&domain.InvalidateEvent{
			Timestamp: time.Now(),
			Reason:    reason,
			Discarded: discarded,
		})
	}
}

// invalidate clears the stack after a failed replay and returns the error for the caller.
func (s *Stack) invalidate(direction string, post *Post, err error) error {
	s.Clear(fmt.Sprintf("%s failed, the undo history has been cleared: %v", direction, err))
	return fmt.Errorf("%s post %d: %w", direction, post.Number, err)
}

func (s *Stack) record(r Record) {
	if !s.enabled {
		return
	}
	if s.position < 0 {
		s.BeginTransaction("")
	}
	s.post(s.position).append(r)
}

func (s *Stack) event(t domain.EventType, post *Post) *domain.ReplayEvent {
	return &domain.ReplayEvent{
		Timestamp: time.Now(),
		Type:      t,
		Post:      post.Number,
		Label:     post.Label,
		Records:   len(post.Records),
		Position:  s.position,
	}
}

// Undo reverts the post at the position.
//
// It returns nil when there is nothing to undo. On divergence between the log and the
// document the history is already cleared and reported when the error comes back.
func (s *Stack) Undo() error {
	if s.position < 0 {
		s.logger.Debug("nothing to undo")
		return nil
	}
	post := s.post(s.position)
	if post.Empty() {
		s.position--
		return nil
	}

	s.logger.Debug("undoing post", "post", post.Number, "label", post.Label, "records", len(post.Records))
	restore := s.suspend()
	err := newReplayer(s.doc, s.logger).undo(post)
	restore()
	if err != nil {
		return s.invalidate("undo", post, err)
	}

	s.position--
	if s.hooks.OnUndo != nil {
		s.hooks.OnUndo(s.event(domain.EventUndo, post))
	}
	return nil
}

// Redo reapplies the post after the position.
func (s *Stack) Redo() error {
	if s.position >= s.highest() {
		s.logger.Debug("nothing to redo", "position", s.position)
		return nil
	}
	post := s.post(s.position + 1)
	if post.Empty() {
		return nil
	}

	s.logger.Debug("redoing post", "post", post.Number, "label", post.Label, "records", len(post.Records))
	restore := s.suspend()
	err := newReplayer(s.doc, s.logger).redo(post)
	restore()
	if err != nil {
		return s.invalidate("redo", post, err)
	}

	s.position++
	if s.hooks.OnRedo != nil {
		s.hooks.OnRedo(s.event(domain.EventRedo, post))
	}
	return nil
}
