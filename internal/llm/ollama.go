package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StreamResponse is one fragment of a streamed generation.
type StreamResponse struct {
	Content string
	Done    bool
	Error   string
}

// Provider defines the interface for interacting with a language model.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	// GenerateStream sends fragments on ch and closes it when done.
	GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error
}

type ollamaProvider struct {
	client *http.Client
	url    string
}

func NewOllamaProvider(url string) Provider {
	return &ollamaProvider{
		client: &http.Client{},
		url:    url,
	}
}

type GenerateRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaChatChunk struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (p *ollamaProvider) post(ctx context.Context, req *GenerateRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

func (p *ollamaProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	resp, err := p.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chunk ollamaChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	if chunk.Error != "" {
		return nil, fmt.Errorf("model error: %s", chunk.Error)
	}
	return &GenerateResponse{Model: chunk.Model, Response: chunk.Message.Content, Done: chunk.Done}, nil
}

func (p *ollamaProvider) GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error {
	defer close(ch)
	req.Stream = true
	resp, err := p.post(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		out := StreamResponse{}
		if err := json.Unmarshal(line, &chunk); err != nil {
			out.Error = "failed to decode stream chunk"
		} else {
			out.Content, out.Done, out.Error = chunk.Message.Content, chunk.Done, chunk.Error
		}

		select {
		case ch <- out:
		case <-ctx.Done():
			return ctx.Err()
		}
		if out.Done {
			return nil
		}
	}
	return scanner.Err()
}
