package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// MinPoints and MaxPoints bound every suggestion.
	MinPoints = -100
	MaxPoints = 100
)

const systemPrompt = `You score daily habits for a self-improvement app.
Given a task and the person the user wants to embody, answer with a JSON object {"points": n}.
n is an integer between -100 and 100. Positive values move the user toward their goal,
negative values move them away from it. Use 0 for neutral tasks.`

// OpenAIProvider implements PointsSuggester using OpenAI's chat completions API.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

var _ PointsSuggester = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a provider that logs requests when debugMode is set.
func NewOpenAIProviderWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		option.WithMaxRetries(0),
	)
	if logger != nil {
		logger.Info("points_suggester_configured",
			zap.String("provider", "openai"),
			zap.String("model", model),
			zap.String("base_url", baseURL),
			zap.String("api_key", SanitizeAPIKey(apiKey)),
		)
	}
	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// SuggestPoints asks the model for a point value and clamps the answer.
func (p *OpenAIProvider) SuggestPoints(ctx context.Context, label, embodyGoal string) (int, error) {
	prompt := buildPointsPrompt(label, embodyGoal)
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	userHash := HashUserID(userIDFrom(ctx))
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "suggest_points"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", preview(prompt)),
			zap.String("user_hash", userHash),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "suggest_points"),
				zap.Error(err),
				zap.String("user_hash", userHash),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return 0, fmt.Errorf("failed to suggest points: %w", classifyError(err))
	}
	if len(resp.Choices) == 0 {
		return 0, ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "suggest_points"),
			zap.String("response_preview", preview(content)),
			zap.String("user_hash", userHash),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return ParsePointsResponse(content)
}

func buildPointsPrompt(label, embodyGoal string) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(strings.TrimSpace(label))
	b.WriteString("\n")
	goal := strings.TrimSpace(embodyGoal)
	if goal == "" {
		goal = "a healthier, more focused version of themselves"
	}
	b.WriteString("The user wants to embody: ")
	b.WriteString(goal)
	return b.String()
}

// ParsePointsResponse extracts {"points": n} from a model answer and clamps n.
// Answers wrapped in prose are tolerated as long as they contain one JSON object.
func ParsePointsResponse(content string) (int, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "}"); end != -1 && end < len(content)-1 {
		content = content[:end+1]
	}
	var parsed struct {
		Points *float64 `json:"points"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse points response: %w", err)
	}
	if parsed.Points == nil {
		return 0, errors.New("points missing from response")
	}
	return ClampPoints(int(math.Round(*parsed.Points))), nil
}

// ClampPoints bounds n to [MinPoints, MaxPoints].
func ClampPoints(n int) int {
	if n < MinPoints {
		return MinPoints
	}
	if n > MaxPoints {
		return MaxPoints
	}
	return n
}
