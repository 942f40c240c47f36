package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

const draftSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "description", "estimate"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "title": { "type": "string", "minLength": 1 },
          "description": { "type": "string" },
          "estimate": { "type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?\\s*[mhdw]$" },
          "priority": { "enum": ["low", "medium", "high", "critical"] },
          "depends_on": { "type": "array", "items": { "type": "string" } }
        }
      }
    }
  }
}`

var draftSchemaLoader = gojsonschema.NewStringLoader(draftSchemaJSON)

const decomposeSystem = "You are a planning assistant. You break a goal into concrete, verifiable tasks and return only JSON."

// DecompositionService asks a model for draft tasks and hands them to the
// graph builder. The model's wording is kept as is; timing always comes
// from the engine.
type DecompositionService struct {
	env      Env
	goals    *GoalService
	provider ai.Provider
	limiter  *rate.Limiter
}

// NewDecompositionService wires a provider. A nil limiter allows one call
// every two seconds with no burst.
func NewDecompositionService(env Env, goals *GoalService, provider ai.Provider, limiter *rate.Limiter) *DecompositionService {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(2*time.Second), 1)
	}
	return &DecompositionService{env: env.WithDefaults(), goals: goals, provider: provider, limiter: limiter}
}

// Draft asks the provider for a draft task list for a stored goal. One retry
// is made when the answer does not match the draft schema.
func (s *DecompositionService) Draft(ctx context.Context, userID, goalID, userContext string) ([]planning.DraftTask, error) {
	if s.provider == nil {
		return nil, ErrAIUnavailable
	}
	goal, err := s.goals.Goal(userID, goalID)
	if err != nil {
		return nil, err
	}

	prompt := decomposePrompt(goal, userContext, s.env.Engine.Actionability())
	drafts, err := s.complete(ctx, goalID, prompt, 1)
	if err != nil {
		s.env.Logger.WarnContext(ctx, "draft rejected, retrying", "goal_id", goalID, "error", err)
		retry := prompt + "\n\nIMPORTANT: your previous answer was invalid (" + err.Error() + "). Return ONLY the JSON object described above."
		drafts, err = s.complete(ctx, goalID, retry, 2)
		if err != nil {
			return nil, err
		}
	}
	return drafts, nil
}

// Decompose drafts tasks for a goal and stores the validated task graph.
func (s *DecompositionService) Decompose(ctx context.Context, userID, goalID, userContext string) (*graph.TaskGraph, error) {
	drafts, err := s.Draft(ctx, userID, goalID, userContext)
	if err != nil {
		return nil, err
	}
	return s.goals.ImportDrafts(ctx, userID, goalID, drafts)
}

func (s *DecompositionService) complete(ctx context.Context, goalID, prompt string, attempt int) ([]planning.DraftTask, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("AI rate limit: %w", err)
	}
	resp, err := s.provider.Complete(ctx, ai.CompletionRequest{
		Prompt:      prompt,
		System:      decomposeSystem,
		Temperature: 0.2,
		MaxTokens:   4000,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("AI decomposition failed: %w", err)
	}
	s.env.Logger.DebugContext(ctx, "decomposition completed",
		"goal_id", goalID, "provider", s.provider.ID(), "attempt", attempt,
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return ParseDrafts(resp.Text)
}

// ParseDrafts validates a model answer against the draft schema and decodes it.
// A bare JSON array of tasks is accepted as well as the {"tasks": [...]} form.
func ParseDrafts(text string) ([]planning.DraftTask, error) {
	payload := extractJSON(text)
	if strings.HasPrefix(payload, "[") {
		payload = `{"tasks":` + payload + `}`
	}

	result, err := gojsonschema.Validate(draftSchemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(issues, "; "))
	}

	var doc struct {
		Tasks []planning.DraftTask `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if len(doc.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", ErrInvalidDraft)
	}
	return doc.Tasks, nil
}

func decomposePrompt(goal *planning.Goal, userContext string, policy graph.Actionability) string {
	lo, hi := goal.Complexity.TaskRange()
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal.Title)
	fmt.Fprintf(&b, "Deadline: %s\n", goal.Deadline.Format(time.RFC3339))
	if userContext = strings.TrimSpace(userContext); userContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", userContext)
	}
	fmt.Fprintf(&b, "\nBreak this goal into %d to %d tasks.\n", lo, hi)
	b.WriteString("Rules:\n")
	b.WriteString("1. Each task has a short unique id (t1, t2, ...), a title and a description.\n")
	if policy.Enabled() {
		b.WriteString("2. Start every title with an action verb. Each description must say how to tell the task is done, with a measurable condition.\n")
	} else {
		b.WriteString("2. Each description says what done looks like.\n")
	}
	b.WriteString("3. estimate is effort, not calendar time: 30m, 2h, 1d (8 hours) or 1w.\n")
	fmt.Fprintf(&b, "4. priority is one of %s.\n", joinPriorities(planning.AllTaskPriorities()))
	b.WriteString("5. depends_on lists ids of tasks that must finish first. No cycles.\n")
	b.WriteString("\nReturn ONLY a JSON object of the form {\"tasks\": [{\"id\": \"t1\", \"title\": \"...\", \"description\": \"...\", \"estimate\": \"2h\", \"priority\": \"medium\", \"depends_on\": []}]} with no markdown.\n")
	return b.String()
}

// extractJSON strips code fences and surrounding prose from a model answer.
func extractJSON(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	start := strings.IndexAny(clean, "[{")
	if start == -1 {
		return clean
	}
	closer := byte('}')
	if clean[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(clean, closer)
	if end <= start {
		return clean
	}
	return strings.TrimSpace(clean[start : end+1])
}

func joinPriorities(ps []planning.TaskPriority) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
