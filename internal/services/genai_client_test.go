package services

import (
	"strings"
	"testing"
)

func TestParseTopicDrafts_PlainJSON(t *testing.T) {
	drafts, err := parseTopicDrafts(`[{"day":1,"topic":"Basics","description":"d","estimated_minutes":60,"importance":5,"splittable":false}]`)
	if err != nil {
		t.Fatalf("parseTopicDrafts: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Title != "Basics" || drafts[0].EstimatedMinutes != 60 {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestParseTopicDrafts_StripsMarkdownFences(t *testing.T) {
	text := "```json\n[{\"day\":1,\"topic\":\"Basics\",\"estimated_minutes\":45}]\n```"
	drafts, err := parseTopicDrafts(text)
	if err != nil {
		t.Fatalf("parseTopicDrafts: %v", err)
	}
	if len(drafts) != 1 || drafts[0].EstimatedMinutes != 45 {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestParseTopicDrafts_ExtractsArrayFromProse(t *testing.T) {
	text := `Here is your plan: [{"day":1,"topic":"Basics"},{"day":2,"topic":"Structs"}] Hope it helps!`
	drafts, err := parseTopicDrafts(text)
	if err != nil {
		t.Fatalf("parseTopicDrafts: %v", err)
	}
	if len(drafts) != 2 || drafts[1].Title != "Structs" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestParseTopicDrafts_RejectsNonJSON(t *testing.T) {
	if _, err := parseTopicDrafts("I cannot help with that."); err == nil {
		t.Fatalf("expected an error for output without a JSON array")
	}
}

func TestRuleBasedTopics_CoversExactlyTargetDays(t *testing.T) {
	for _, days := range []int{1, 3, 10, 30} {
		drafts := ruleBasedTopics(TopicRequest{SkillName: "Go", TargetDays: days, SkillBudgetMinutes: 60})
		if len(drafts) != days {
			t.Fatalf("target %d days, got %d drafts", days, len(drafts))
		}
		for i, d := range drafts {
			if d.Day != i+1 {
				t.Fatalf("expected day %d, got %d", i+1, d.Day)
			}
			if d.EstimatedMinutes != 60 {
				t.Fatalf("expected 60 estimated minutes, got %d", d.EstimatedMinutes)
			}
		}
	}
}

func TestRuleBasedTopics_StartsWithFundamentals(t *testing.T) {
	drafts := ruleBasedTopics(TopicRequest{SkillName: "Go", TargetDays: 10, SkillBudgetMinutes: 60})
	if !strings.Contains(drafts[0].Title, "Fundamentals") {
		t.Fatalf("expected the plan to open with fundamentals, got %q", drafts[0].Title)
	}
}

func TestRuleBasedTopics_CapsDailyMinutes(t *testing.T) {
	drafts := ruleBasedTopics(TopicRequest{SkillName: "Go", TargetDays: 2, SkillBudgetMinutes: 300})
	for _, d := range drafts {
		if d.EstimatedMinutes > 120 {
			t.Fatalf("daily estimate must be capped at 120, got %d", d.EstimatedMinutes)
		}
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		if got := isRetryableHTTP(tc.code); got != tc.want {
			t.Fatalf("isRetryableHTTP(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
