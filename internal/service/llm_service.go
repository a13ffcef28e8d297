package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"receipt-ledger/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
)

var errUnauthorized = errors.New("access token rejected")

// Completion is the part of a chat completion response the extractor looks at.
type Completion struct {
	Choices []CompletionChoice
}

type CompletionChoice struct {
	Text         string
	FinishReason string
}

// LLMService talks to the GigaChat REST API: OAuth token, file upload, and
// chat completion with the uploaded image attached.
type LLMService struct {
	config     *config.GigaChatConfig
	logger     *zap.Logger
	httpClient *http.Client
	oauthURL   string
	baseURL    string

	mu          sync.Mutex
	accessToken string
}

func NewLLMService(cfg *config.GigaChatConfig, logger *zap.Logger) *LLMService {
	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	return &LLMService{
		config:     cfg,
		logger:     logger,
		httpClient: httpClient,
		oauthURL:   defaultOAuthURL,
		baseURL:    defaultBaseURL,
	}
}

// WithEndpoints points the client at other OAuth and API base URLs.
func (s *LLMService) WithEndpoints(oauthURL, baseURL string, client *http.Client) *LLMService {
	s.oauthURL = oauthURL
	s.baseURL = baseURL
	if client != nil {
		s.httpClient = client
	}
	return s
}

// Vision uploads the image, asks the model about it, and removes the upload afterwards.
func (s *LLMService) Vision(ctx context.Context, image []byte, fileName, mimeType, prompt string) (*Completion, error) {
	fileID, err := s.UploadFile(ctx, image, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	defer s.deleteFile(fileID)

	return s.CompleteWithAttachment(ctx, fileID, prompt)
}

// UploadFile uploads a file with purpose "general" and returns its id.
// Endpoint: POST /files
func (s *LLMService) UploadFile(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	var uploadResp struct {
		ID string `json:"id"`
	}

	err := s.withToken(ctx, func(token string) error {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		if err := writer.WriteField("purpose", "general"); err != nil {
			return fmt.Errorf("failed to write purpose field: %w", err)
		}
		part, err := writer.CreatePart(map[string][]string{
			"Content-Type":        {mimeType},
			"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
		})
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return fmt.Errorf("failed to copy file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to close writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files", &body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)

		return s.doJSON(req, &uploadResp)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	s.logger.Debug("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// CompleteWithAttachment runs a single-turn chat completion with the file attached.
// Endpoint: POST /chat/completions, attachments format [["file_id"]]
func (s *LLMService) CompleteWithAttachment(ctx context.Context, fileID, prompt string) (*Completion, error) {
	requestBody := map[string]interface{}{
		"model": s.config.Model,
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature":        0.1,
		"stream":             false,
		"repetition_penalty": 1.0,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}

	err = s.withToken(ctx, func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return s.doJSON(req, &visionResp)
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}

	completion := &Completion{}
	for _, c := range visionResp.Choices {
		completion.Choices = append(completion.Choices, CompletionChoice{
			Text:         c.Message.Content,
			FinishReason: c.FinishReason,
		})
	}
	return completion, nil
}

// deleteFile is best-effort cleanup of an uploaded file.
func (s *LLMService) deleteFile(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.withToken(ctx, func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files/"+url.PathEscape(fileID)+"/delete", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return s.doJSON(req, nil)
	})
	if err != nil {
		s.logger.Debug("Failed to delete uploaded file", zap.String("file_id", fileID), zap.Error(err))
	}
}

// withToken runs fn with a cached access token, refreshing it once on 401.
func (s *LLMService) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := s.token(ctx, false)
	if err != nil {
		return err
	}
	err = fn(token)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	s.logger.Info("GigaChat access token expired, refreshing")
	token, err = s.token(ctx, true)
	if err != nil {
		return err
	}
	return fn(token)
}

func (s *LLMService) token(ctx context.Context, refresh bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && !refresh {
		return s.accessToken, nil
	}
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return "", err
	}
	s.accessToken = token
	return token, nil
}

// getAccessToken obtains an access token from the GigaChat OAuth endpoint.
// The API key is expected to be Base64-encoded already.
func (s *LLMService) getAccessToken(ctx context.Context) (string, error) {
	rqUID := uuid.New().String()

	formData := url.Values{}
	formData.Set("scope", s.config.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+s.config.APIKey)

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := s.doJSON(req, &oauthResp); err != nil {
		s.logger.Error("OAuth request failed", zap.String("rq_uid", rqUID), zap.Error(err))
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	s.logger.Info("Access token obtained", zap.Int64("expires_at", oauthResp.ExpiresAt))
	return oauthResp.AccessToken, nil
}

func (s *LLMService) doJSON(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return errUnauthorized
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
