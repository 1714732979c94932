package undo

// Post is one undoable user step: an ordered batch of records.
type Post struct {
	// Number is the stack position the post was created at.
	Number int
	// Label groups the records under one user-facing item, e.g. "Paste".
	Label   string
	Records []Record
}

// Empty reports whether the post holds no records.
func (p *Post) Empty() bool {
	return len(p.Records) == 0
}

func (p *Post) append(r Record) {
	p.Records = append(p.Records, r)
}

// Entry is a read-only view of a post, for undo-history widgets.
type Entry struct {
	Number  int    `json:"number"`
	Label   string `json:"label,omitempty"`
	Kinds   []Kind `json:"kinds"`
	Applied bool   `json:"applied"`
}

// Title returns the label or, for unlabeled single-kind posts, the record kind.
func (e Entry) Title() string {
	if e.Label != "" {
		return e.Label
	}
	if len(e.Kinds) == 0 {
		return ""
	}
	first := e.Kinds[0]
	for _, k := range e.Kinds[1:] {
		if k != first {
			return "multiple changes"
		}
	}
	return string(first)
}
