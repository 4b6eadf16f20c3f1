package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skillpath/skillpath-backend/internal/logger"
)

// TopicDraft is one candidate work item returned by the content generator.
// Durations are clamped to the admissible budget and defaults applied before
// anything is persisted; the generator's output is never trusted as-is.
type TopicDraft struct {
	Day              int    `json:"day"`
	Title            string `json:"topic"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	Importance       int    `json:"importance"`
	Splittable       *bool  `json:"splittable"`
}

type TopicRequest struct {
	SkillName          string
	TargetDays         int
	DailyBudgetMinutes int
	SkillBudgetMinutes int
	ExistingSkills     []string
}

// TopicGenerator produces a day-by-day curriculum for a skill within a time
// budget. It is a black box to the scheduling core.
type TopicGenerator interface {
	GenerateTopics(ctx context.Context, req TopicRequest) ([]TopicDraft, error)
}

type genaiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewGenAIClient(log *logger.Logger) (TopicGenerator, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash"
	}

	timeoutSec := 120
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &genaiClient{
		log:        log.With("service", "GenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type genaiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *genaiHTTPError) Error() string {
	return fmt.Sprintf("genai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *genaiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}

func (c *genaiClient) GenerateTopics(ctx context.Context, req TopicRequest) ([]TopicDraft, error) {
	prompt := buildTopicPrompt(req)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitterSleep(time.Duration(attempt) * time.Second)):
			}
		}
		text, err := c.generateContent(ctx, prompt)
		if err != nil {
			lastErr = err
			if isRetryableErr(err) && ctx.Err() == nil {
				continue
			}
			return nil, err
		}
		drafts, err := parseTopicDrafts(text)
		if err != nil {
			lastErr = err
			continue
		}
		return drafts, nil
	}
	return nil, fmt.Errorf("generate topics failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *genaiClient) generateContent(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &genaiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode genai response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("genai response has no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func buildTopicPrompt(req TopicRequest) string {
	existing := "None specified"
	if len(req.ExistingSkills) > 0 {
		existing = strings.Join(req.ExistingSkills, ", ")
	}
	return fmt.Sprintf(`You are an expert curriculum designer. Create a structured learning plan for the skill: %q.

User context:
- Available days: %d
- Daily minutes for THIS skill: %d (strict limit, do not exceed)
- User's total daily free minutes: %d
- Existing skills: %s

Generate a day-by-day plan. For each day provide a concise topic name, a brief
description, estimated minutes (<= %d), an importance score (1-5, 5 = foundational),
and whether the topic can be split across days.

Respond ONLY with a valid JSON array in this exact format (no markdown, no code
blocks, just pure JSON):
[{"day": 1, "topic": "Topic Name", "description": "What the learner will cover", "estimated_minutes": %d, "importance": 5, "splittable": false}]

Generate exactly %d entries.`,
		req.SkillName, req.TargetDays, req.SkillBudgetMinutes, req.DailyBudgetMinutes,
		existing, req.SkillBudgetMinutes, min(120, req.SkillBudgetMinutes), req.TargetDays)
}

// parseTopicDrafts tolerates markdown fences and surrounding prose around the
// JSON array.
func parseTopicDrafts(text string) ([]TopicDraft, error) {
	content := strings.TrimSpace(text)
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var drafts []TopicDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in generator output")
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &drafts); err != nil {
			return nil, fmt.Errorf("decode generator output: %w", err)
		}
	}
	return drafts, nil
}

// ruleBasedTopics is the offline fallback when the generator is unreachable:
// a phased split of the target days across fundamentals, core concepts,
// advanced topics and practice.
func ruleBasedTopics(req TopicRequest) []TopicDraft {
	phases := []struct {
		name  string
		ratio float64
	}{
		{"Fundamentals", 0.3},
		{"Core Concepts", 0.4},
		{"Advanced Topics", 0.2},
		{"Practice & Projects", 0.1},
	}

	perDay := min(req.SkillBudgetMinutes, 120)
	if perDay <= 0 {
		perDay = 60
	}

	var drafts []TopicDraft
	day := 1
	for _, phase := range phases {
		daysInPhase := int(float64(req.TargetDays)*phase.ratio + 0.5)
		if daysInPhase < 1 {
			daysInPhase = 1
		}
		for i := 0; i < daysInPhase && day <= req.TargetDays; i++ {
			drafts = append(drafts, TopicDraft{
				Day:              day,
				Title:            fmt.Sprintf("%s - %s Part %d", req.SkillName, phase.name, i+1),
				Description:      fmt.Sprintf("Learn %s of %s. Focus on understanding and practice.", strings.ToLower(phase.name), req.SkillName),
				EstimatedMinutes: perDay,
			})
			day++
		}
	}
	for len(drafts) < req.TargetDays {
		drafts = append(drafts, TopicDraft{
			Day:              len(drafts) + 1,
			Title:            fmt.Sprintf("%s - Review & Practice", req.SkillName),
			Description:      "Review learned concepts and practice through exercises.",
			EstimatedMinutes: perDay,
		})
	}
	return drafts[:req.TargetDays]
}
