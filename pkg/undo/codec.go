package undo

import (
	"fmt"
	"maps"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// EncodeRecord converts a record to its persisted form.
func EncodeRecord(rec Record) (domain.RecordEntry, error) {
	if u, ok := rec.(*Unknown); ok {
		return maps.Clone(u.Entry), nil
	}
	out := map[string]any{}
	if err := mapstructure.Decode(rec, &out); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	for k, v := range out {
		out[k] = plain(v)
	}
	out[domain.KeyWhat] = string(rec.Kind())
	return domain.RecordEntry(out), nil
}

// plain strips named types so stores see only maps, slices, strings and numbers.
func plain(v any) any {
	switch t := v.(type) {
	case domain.Snapshot:
		return string(t)
	case []domain.Alias:
		out := make([]any, len(t))
		for i, a := range t {
			out[i] = map[string]any{"alias": a.Alias, "full_name": a.FullName}
		}
		return out
	case map[string]any:
		for k, e := range t {
			t[k] = plain(e)
		}
		return t
	default:
		return v
	}
}

// DecodeRecord converts a persisted entry back into a record. It returns (nil, nil)
// for discriminators it does not know; Load keeps those as *Unknown.
func DecodeRecord(entry domain.RecordEntry) (Record, error) {
	rec := newRecord(Kind(entry.What()))
	if rec == nil {
		return nil, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           rec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(entry)); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCorruptHistory, rec.Kind(), err)
	}
	return rec, nil
}

// History serializes the sentinel and every applied post. Posts past the position are
// a redo branch that a reload cannot reach, so they are left out.
func (s *Stack) History(documentID string) (*domain.History, error) {
	h := &domain.History{
		DocumentID: documentID,
		Posts:      make([]domain.PostEntry, 0, s.position+2),
		SavedAt:    time.Now().UTC(),
	}
	for _, p := range s.posts[:s.position+2] {
		entry := domain.PostEntry{Number: p.Number, Type: p.Label}
		for _, rec := range p.Records {
			e, err := EncodeRecord(rec)
			if err != nil {
				return nil, err
			}
			entry.Records = append(entry.Records, e)
		}
		h.Posts = append(h.Posts, entry)
	}
	return h, nil
}

// Load replaces the stack content with a persisted history and sets the position to
// the number of its last post. Records of unknown kinds are kept as *Unknown so the
// post they belong to still counts as a step. The stack is left untouched when the history is invalid.
func (s *Stack) Load(h *domain.History) error {
	if h == nil {
		return fmt.Errorf("%w: nil history", domain.ErrCorruptHistory)
	}
	if h.Sealed != "" {
		return fmt.Errorf("%w: history is sealed with %q", domain.ErrCorruptHistory, h.Encoding)
	}

	entries := h.Posts
	if len(entries) > 0 && entries[0].Number == domain.SentinelPost {
		entries = entries[1:]
	}

	posts := []*Post{{Number: domain.SentinelPost}}
	skipped := 0
	for i, e := range entries {
		if e.Number != i {
			return fmt.Errorf("%w: post %d is numbered %d", domain.ErrCorruptHistory, i, e.Number)
		}
		post := &Post{Number: e.Number, Label: e.Type}
		for _, re := range e.Records {
			rec, err := DecodeRecord(re)
			if err != nil {
				return err
			}
			if rec == nil {
				skipped++
				s.logger.Warn("keeping unknown undo record as a no-op", "post", e.Number, "what", re.What())
				rec = &Unknown{Entry: maps.Clone(re)}
			}
			post.append(rec)
		}
		posts = append(posts, post)
	}

	s.posts = posts
	s.position = len(posts) - 2
	s.logger.Debug("loaded undo history", "document", h.DocumentID, "posts", len(entries), "position", s.position, "skipped", skipped)
	return nil
}

// Restore creates a stack bound to doc and loads h into it.
func Restore(doc ports.Document, h *domain.History, opts ...Option) (*Stack, error) {
	s := NewStack(doc, opts...)
	if err := s.Load(h); err != nil {
		return nil, err
	}
	return s, nil
}
