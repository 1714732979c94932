package domain

import "time"

// RecordEntry is the persisted form of one action record: a KeyWhat discriminator plus
// kind-specific fields.
type RecordEntry map[string]any

// What returns the record discriminator, or "" when it is missing.
func (r RecordEntry) What() string {
	what, _ := r[KeyWhat].(string)
	return what
}

// PostEntry is the persisted form of one post.
type PostEntry struct {
	Number  int           `json:"number" yaml:"number"`
	Type    string        `json:"type,omitempty" yaml:"type,omitempty"`
	Records []RecordEntry `json:"records,omitempty" yaml:"records,omitempty"`
}

// History is the persisted form of an undo stack.
//
// Posts are ordered; the number of the last post is the stack position on load.
// Sealed and Encoding are only set by persistence middleware that wraps the real
// history in an opaque envelope.
type History struct {
	DocumentID string      `json:"document_id" yaml:"document_id"`
	Posts      []PostEntry `json:"posts,omitempty" yaml:"posts,omitempty"`
	SavedAt    time.Time   `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`

	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Sealed   string `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}

// NewHistory returns an empty history holding only the sentinel post.
func NewHistory(documentID string) *History {
	return &History{
		DocumentID: documentID,
		Posts:      []PostEntry{{Number: SentinelPost}},
	}
}

// Position returns the stack position encoded by the history.
func (h *History) Position() int {
	if h == nil || len(h.Posts) == 0 {
		return SentinelPost
	}
	return h.Posts[len(h.Posts)-1].Number
}

// Clone returns a deep copy; record maps are copied one level deep
// and nested maps recursively.
func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	out := *h
	out.Posts = make([]PostEntry, len(h.Posts))
	for i, p := range h.Posts {
		cp := p
		if p.Records != nil {
			cp.Records = make([]RecordEntry, len(p.Records))
			for j, r := range p.Records {
				cp.Records[j] = RecordEntry(deepCopyMap(r))
			}
		}
		out.Posts[i] = cp
	}
	return &out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case RecordEntry:
		return deepCopyMap(t)
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = deepCopyValue(e)
		}
		return cp
	case []map[string]any:
		cp := make([]map[string]any, len(t))
		for i, e := range t {
			cp[i] = deepCopyMap(e)
		}
		return cp
	default:
		return v
	}
}

// PostSummary describes one persisted post without its record payloads.
type PostSummary struct {
	Number int      `json:"number" yaml:"number"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Kinds  []string `json:"kinds,omitempty" yaml:"kinds,omitempty"`
}

// HistorySummary is an inspection view of a persisted history.
type HistorySummary struct {
	DocumentID string        `json:"document_id" yaml:"document_id"`
	SavedAt    time.Time     `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`
	Encoding   string        `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Sealed     bool          `json:"sealed" yaml:"sealed"`
	Position   int           `json:"position" yaml:"position"`
	Posts      []PostSummary `json:"posts" yaml:"posts"`
}

// Summary lists the posts of h, skipping the sentinel. Sealed histories report no posts.
func (h *History) Summary() HistorySummary {
	s := HistorySummary{
		DocumentID: h.DocumentID,
		SavedAt:    h.SavedAt,
		Encoding:   h.Encoding,
		Sealed:     h.Sealed != "",
		Position:   h.Position(),
		Posts:      []PostSummary{},
	}
	for _, p := range h.Posts {
		if p.Number == SentinelPost {
			continue
		}
		ps := PostSummary{Number: p.Number, Label: p.Type}
		for _, r := range p.Records {
			ps.Kinds = append(ps.Kinds, r.What())
		}
		s.Posts = append(s.Posts, ps)
	}
	return s
}
