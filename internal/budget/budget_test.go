package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/docsmith-ai/docsmith/internal/rag"
)

func TestEstimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := Estimate(tc.text); got != tc.want {
			t.Errorf("Estimate(%d chars) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}

func TestEstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.SystemMessage(strings.Repeat("s", 40)),
		schema.UserMessage(strings.Repeat("u", 80)),
		nil,
	}
	want := 10 + 20 + 2*perMessageOverhead
	if got := EstimateMessages(msgs); got != want {
		t.Errorf("EstimateMessages = %d, want %d", got, want)
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()
	hits := []rag.Hit{
		{ID: "a_0", Text: strings.Repeat("a", 40)}, // 10 tokens
		{ID: "b_0", Text: strings.Repeat("b", 40)},
		{ID: "c_0", Text: strings.Repeat("c", 40)},
	}

	if got := Trim(hits, 0); len(got) != 3 {
		t.Errorf("Trim disabled: got %d hits, want all", len(got))
	}
	if got := Trim(hits, 100); len(got) != 3 {
		t.Errorf("Trim under budget: got %d hits, want all", len(got))
	}
	if got := Trim(hits, 25); len(got) != 2 || got[1].ID != "b_0" {
		t.Errorf("Trim to 25 tokens: got %v", got)
	}
	// a single oversized hit survives trimming
	if got := Trim(hits, 3); len(got) != 1 || got[0].ID != "a_0" {
		t.Errorf("Trim below first hit: got %v", got)
	}
	if got := Trim(nil, 10); got != nil {
		t.Errorf("Trim(nil) = %v", got)
	}
}
