// Package extract pulls answer text out of submitted PDFs using a vision
// model. Extraction is best-effort by contract: it never returns an error,
// only a text result that may describe the failure, so a broken OCR upstream
// cannot block submission intake.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const extractionPrompt = "Extract all the text from this document, maintaining paragraph structure and formatting as much as possible."

// Extractor converts a stored answer file into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, fileURL string) string
}

// Config holds vision extraction settings.
type Config struct {
	APIKey string
	Model  string
}

// Service implements Extractor against the OpenAI vision API.
type Service struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// New builds the extraction service. A missing API key is tolerated; the
// service then reports the misconfiguration in its output instead of failing.
func New(cfg Config, logger zerolog.Logger) *Service {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}

	return &Service{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// ExtractText downloads and transcribes the document at fileURL. On any
// failure the returned string describes the problem.
func (s *Service) ExtractText(ctx context.Context, fileURL string) string {
	if s.client == nil {
		return "Error: text extraction is not configured (missing API key)."
	}

	if strings.TrimSpace(fileURL) == "" {
		return "Error: no file reference supplied for text extraction."
	}

	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: fileURL},
					},
				},
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		s.logger.Error().Err(err).Str("file_url", fileURL).Msg("text extraction failed")
		return fmt.Sprintf("Error extracting text from PDF: %s", err)
	}

	if len(resp.Choices) == 0 {
		return "Error extracting text from PDF: empty model response."
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "No text found in the document."
	}

	return text
}
