package graph_test

import (
	"strings"
	"testing"

	"github.com/Hopsan/hopsan-sub008/internal/presentation/graph"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	posts := []domain.PostSummary{
		{Number: 0, Label: "Add pump", Kinds: []string{"addedobject"}},
		{Number: 1, Kinds: []string{"movedobject", "movedobject", "rename"}},
		{Number: 2, Label: `Set "p"`, Kinds: []string{"changedparameters"}},
	}

	tests := []struct {
		name     string
		summary  domain.HistorySummary
		contains []string
		excludes []string
	}{
		{
			name:    "Empty History",
			summary: domain.HistorySummary{Position: -1},
			contains: []string{
				`start(("start"))`,
				"class start current;",
			},
		},
		{
			name:    "Post Shapes",
			summary: domain.HistorySummary{Position: 2, Posts: posts},
			contains: []string{
				`post0["#0 Add pump <br/> 1 records"]`,
				`post1[/"#1 movedobject, rename <br/> 3 records"/]`,
				"start --> post0",
				"post0 --> post1",
			},
		},
		{
			name:    "Label Escaping",
			summary: domain.HistorySummary{Position: 2, Posts: posts},
			contains: []string{
				`#2 Set 'p'`,
			},
		},
		{
			name:    "Redo Branch",
			summary: domain.HistorySummary{Position: 0, Posts: posts},
			contains: []string{
				"start --> post0",
				"post0 -.-> post1",
				"post1 -.-> post2",
				"class post0 current;",
				"class post1 pending;",
				"class post2 pending;",
			},
			excludes: []string{
				"class start current;",
			},
		},
		{
			name:    "Sealed",
			summary: domain.HistorySummary{Sealed: true, Encoding: "aes-gcm", Position: -1},
			contains: []string{
				`sealed[["sealed: aes-gcm"]]`,
				"start -.-> sealed",
			},
			excludes: []string{
				"classDef",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.summary)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
		})
	}
}
