package supermaya

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// Image is a decoded in-memory image ready for a multimodal provider. The
// request layer validates raw upload bytes before constructing one.
type Image struct {
	Data     []byte
	MIMEType string
}

// VisionModelClient is the narrow contract for a hosted multimodal model
// returning raw JSON text for a prompt plus image.
type VisionModelClient interface {
	Analyze(ctx context.Context, prompt string, image Image) (string, error)
}

const visionPromptTemplate = `You are an expert multi-modal AI assistant. Analyze the user's image and their query.
- User's Persona: %s
- User's Query: "%s"
- **If the user asks to 'ocr', 'read', or 'extract text'**, perform OCR and list the extracted text in the 'user_query_answer' field.
- **For all other queries**, describe the image and answer the question.
- You MUST respond with a JSON object that strictly follows this schema:
{"image_description": "A detailed description of the image content.", "user_query_answer": "The specific answer to the user's query, containing the analysis or extracted text.", "identified_objects": ["A list of key objects or concepts identified."]}`

// Sentinel values substituted when vision analysis fails. The response
// contract requires all three fields populated, so failures never surface
// as a partial or missing envelope.
const visionErrorDescription = "A critical error occurred while analyzing the image."

// visionAgent answers image queries via a hosted multimodal model.
type visionAgent struct {
	client VisionModelClient
	logger *slog.Logger
}

func newVisionAgent(client VisionModelClient, logger *slog.Logger) *visionAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &visionAgent{client: client, logger: logger}
}

// Run never returns an error. Provider failures and shape-validation
// failures alike produce the sentinel VisionResponse.
func (a *visionAgent) Run(ctx context.Context, query string, image Image, persona string) VisionResponse {
	if a.client == nil {
		return visionErrorResponse(NewError(ErrCodeProvider, "vision model is not configured"))
	}

	a.logger.Info("vision agent running", "mime_type", image.MIMEType, "image_bytes", len(image.Data))

	prompt := fmt.Sprintf(visionPromptTemplate, persona, query)
	raw, err := a.client.Analyze(ctx, prompt, image)
	if err != nil {
		a.logger.Warn("vision agent degraded", "err", err)
		return visionErrorResponse(err)
	}

	parsed, err := parseVisionResponse(raw)
	if err != nil {
		a.logger.Warn("vision agent output rejected", "err", err)
		return visionErrorResponse(err)
	}
	return parsed
}

func visionErrorResponse(err error) VisionResponse {
	return VisionResponse{
		ImageDescription:  visionErrorDescription,
		UserQueryAnswer:   fmt.Sprintf("I was unable to process this request. The specific error was: %v", err),
		IdentifiedObjects: []string{"Error"},
	}
}

func parseVisionResponse(raw string) (VisionResponse, error) {
	cleaned := cleanupModelJSON(raw)
	var parsed VisionResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return VisionResponse{}, WrapError(ErrCodeValidation, "model returned invalid JSON", err)
	}
	if strings.TrimSpace(parsed.ImageDescription) == "" || strings.TrimSpace(parsed.UserQueryAnswer) == "" {
		return VisionResponse{}, NewError(ErrCodeValidation, "model response is missing required fields")
	}
	if parsed.IdentifiedObjects == nil {
		parsed.IdentifiedObjects = []string{}
	}
	return parsed, nil
}

// geminiClient is a VisionModelClient backed by the Gemini API.
type geminiClient struct {
	apiKey string
	model  string
}

func newGeminiClient(apiKey, model string) *geminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClient{apiKey: apiKey, model: model}
}

func (g *geminiClient) Analyze(ctx context.Context, prompt string, image Image) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", WrapError(ErrCodeProvider, "create gemini client failed", err)
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: image.Data, MIMEType: image.MIMEType}},
		},
	}}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
	}

	response, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", WrapError(ErrCodeProvider, "gemini generate content failed", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return "", NewError(ErrCodeProvider, "gemini response content is empty")
	}
	return content, nil
}
