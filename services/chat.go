package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postal-prediction-api/config"
)

// ChatService is a string-in/string-out delegation to an external
// text-generation API. The assistant receives the table schemas as context
// and answers in prose; its output is returned verbatim and never executed
// against live data.
type ChatService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// ChatResult is the reply shown to the user. External failures are folded
// into Reply as a readable message; the chat path never surfaces a fault.
type ChatResult struct {
	Reply string `json:"reply"`
}

func NewChatService(cfg config.ChatConfig) *ChatService {
	return &ChatService{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Ask sends the user's question to the assistant together with the dataset
// schemas. Any transport or API failure comes back as an error message in
// the reply, never as a fault.
func (s *ChatService) Ask(ctx context.Context, question string, referenceColumns, predictionColumns []string) ChatResult {
	predCols := "No predictions logged yet."
	if len(predictionColumns) > 0 {
		predCols = strings.Join(predictionColumns, ", ")
	}

	prompt := fmt.Sprintf(`You are a data assistant for a national postal operator.
Data available to the operations team:
1. Historical scan events. Columns: %s
2. Logged route-duration predictions. Columns: %s

User question: %q

Answer in plain language for a postal operations analyst. Do not return code.`,
		strings.Join(referenceColumns, ", "), predCols, question)

	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return ChatResult{Reply: fmt.Sprintf("Assistant error: %v", err)}
	}
	return ChatResult{Reply: reply}
}

func (s *ChatService) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
