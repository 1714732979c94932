package graph

import (
	"fmt"
	"strings"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of an undo history: one node per post,
// linked in stack order from the empty start.
//
// Shapes:
// - Start: ((Circle))
// - Labeled post: [Rectangle]
// - Unlabeled post: [/Parallelogram/]
// Posts up to the position are styled applied, the one at the position current and
// anything after it (the redo branch) pending.
func GenerateMermaid(summary domain.HistorySummary) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    start((\"start\"))\n")

	if summary.Sealed {
		sb.WriteString(fmt.Sprintf("    sealed[[\"sealed: %s\"]]\n", escape(summary.Encoding)))
		sb.WriteString("    start -.-> sealed\n")
		return sb.String()
	}

	prev := "start"
	for _, p := range summary.Posts {
		id := postID(p.Number)
		opener, closer := "[", "]"
		if p.Label == "" {
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, postLabel(p), closer))

		arrow := "-->"
		if p.Number > summary.Position {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", prev, arrow, id))
		prev = id
	}

	sb.WriteString("\n    %% Position Styles\n")
	// Force black text (color:#000) for contrast on both light and dark themes
	sb.WriteString("    classDef applied fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef pending fill:#f5f5f5,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
	if summary.Position == domain.SentinelPost {
		sb.WriteString("    class start current;\n")
	}
	for _, p := range summary.Posts {
		class := "applied"
		switch {
		case p.Number == summary.Position:
			class = "current"
		case p.Number > summary.Position:
			class = "pending"
		}
		sb.WriteString(fmt.Sprintf("    class %s %s;\n", postID(p.Number), class))
	}

	return sb.String()
}

func postID(number int) string {
	return fmt.Sprintf("post%d", number)
}

func postLabel(p domain.PostSummary) string {
	title := p.Label
	if title == "" {
		title = strings.Join(uniqueKinds(p.Kinds), ", ")
	}
	return fmt.Sprintf("#%d %s <br/> %d records", p.Number, escape(title), len(p.Kinds))
}

func uniqueKinds(kinds []string) []string {
	seen := make(map[string]bool, len(kinds))
	var out []string
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
