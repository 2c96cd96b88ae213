package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Abra-CatAbra/foodsync-ai/internal/prompts"
)

// VisionService detects food in photos and generates recipes using an
// OpenAI-compatible chat-completions endpoint.
type VisionService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// VisionConfig holds configuration for the vision service.
type VisionConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewVisionService creates a new vision service client.
func NewVisionService(cfg *VisionConfig) *VisionService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &VisionService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Model returns the model name being used.
func (s *VisionService) Model() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type chatTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatImageContent struct {
	Type     string       `json:"type"`
	ImageURL chatImageURL `json:"image_url"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AnalyzeImage runs food detection on an analysis-ready JPEG. It returns
// the detected food name, or an empty string and nil error when the model
// answers the no-food sentinel: no food is a normal outcome, not an error.
func (s *VisionService) AnalyzeImage(ctx context.Context, jpegData []byte) (string, error) {
	base64Image := base64.StdEncoding.EncodeToString(jpegData)
	dataURL := "data:image/jpeg;base64," + base64Image

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: prompts.FoodDetectionSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					chatTextContent{
						Type: "text",
						Text: prompts.FoodDetectionUserPrompt,
					},
					chatImageContent{
						Type: "image_url",
						ImageURL: chatImageURL{
							URL:    dataURL,
							Detail: "auto",
						},
					},
				},
			},
		},
		MaxTokens: 150,
	}

	content, err := s.complete(ctx, req)
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(content)
	if strings.EqualFold(answer, prompts.NoFoodSentinel) {
		return "", nil
	}
	return answer, nil
}

// GenerateRecipe generates a short recipe for the detected food.
func (s *VisionService) GenerateRecipe(ctx context.Context, foodName string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: prompts.RecipeSystemPrompt,
			},
			{
				Role:    "user",
				Content: fmt.Sprintf(prompts.RecipeUserPromptTemplate, foodName),
			},
		},
		MaxTokens: 300,
	}

	content, err := s.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// complete sends a chat-completions request and returns the first choice.
func (s *VisionService) complete(ctx context.Context, req chatRequest) (string, error) {
	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call vision API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("vision API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("vision API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}
