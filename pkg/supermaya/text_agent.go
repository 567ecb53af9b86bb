package supermaya

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultGroqModel      = "llama3-70b-8192"
	defaultAnthropicModel = "claude-sonnet-4-0"
)

// TextModelClient is the narrow contract for a hosted language model that can
// return structured JSON output.
type TextModelClient interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

const textSystemPromptTemplate = `You are a world-class data visualization expert and research assistant. **Your most powerful skill is generating Vega-Lite JSON specifications.** When a user asks for a 'chart', 'graph', 'plot', 'diagram', or any other data visualization, you MUST generate a valid Vega-Lite spec in the 'visualization_spec' field.
- You can create bar charts, pie charts, scatter plots, etc.
- ALWAYS provide a primary text response to accompany the visualization.
- You MUST respond with a JSON object with these fields: "primary_response" (string, required), "image_url" (string or null), "reference_links" (array of strings or null), "visualization_spec" (Vega-Lite object or null). Do not output Markdown or extra text.
- User Persona: %s`

// textAgent forwards the query plus persona to a hosted language model and
// parses the structured reply. The model alone decides whether a chart is
// produced; nothing is built locally.
type textAgent struct {
	client TextModelClient
	logger *slog.Logger
}

func newTextAgent(client TextModelClient, logger *slog.Logger) *textAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &textAgent{client: client, logger: logger}
}

// Run never returns an error; network, quota and shape-validation failures
// all degrade to an apologetic TextResponse with optional fields absent.
func (a *textAgent) Run(ctx context.Context, query, persona string) TextResponse {
	if a.client == nil {
		return textErrorResponse(NewError(ErrCodeProvider, "text model is not configured"))
	}

	a.logger.Info("text agent running")

	raw, err := a.client.Complete(ctx, fmt.Sprintf(textSystemPromptTemplate, persona), query)
	if err != nil {
		a.logger.Warn("text agent degraded", "err", err)
		return textErrorResponse(err)
	}

	parsed, err := parseTextResponse(raw)
	if err != nil {
		a.logger.Warn("text agent output rejected", "err", err)
		return textErrorResponse(err)
	}
	return parsed
}

func textErrorResponse(err error) TextResponse {
	return TextResponse{PrimaryResponse: fmt.Sprintf("Sorry, an error occurred: %v", err)}
}

func parseTextResponse(raw string) (TextResponse, error) {
	cleaned := cleanupModelJSON(raw)
	var parsed TextResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return TextResponse{}, WrapError(ErrCodeValidation, "model returned invalid JSON", err)
	}
	if strings.TrimSpace(parsed.PrimaryResponse) == "" {
		return TextResponse{}, NewError(ErrCodeValidation, "model response is missing primary_response")
	}
	return parsed, nil
}

// groqClient is a TextModelClient backed by Groq's OpenAI-compatible API.
type groqClient struct {
	client openai.Client
	model  string
}

func newGroqClient(apiKey, baseURL, model string) *groqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	if model == "" {
		model = defaultGroqModel
	}
	return &groqClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

func (g *groqClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", WrapError(ErrCodeProvider, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", NewError(ErrCodeProvider, "chat completion returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", NewError(ErrCodeProvider, "chat completion content is empty")
	}
	return content, nil
}

// anthropicClient is a TextModelClient backed by the Anthropic messages API.
type anthropicClient struct {
	client anthropic.Client
	model  string
}

func newAnthropicClient(apiKey, model string) *anthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *anthropicClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		return "", WrapError(ErrCodeProvider, "message request failed", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", NewError(ErrCodeProvider, "message response content is empty")
	}
	return content, nil
}
