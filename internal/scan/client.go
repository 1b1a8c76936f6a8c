// Package scan is a small client for a VirusTotal v3 compatible malware-scanning API.
// It submits files and polls analyses; it never retries on its own.
package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	serviceName    = "scan"
	apiKeyHeader   = "x-apikey"
	DefaultBaseURL = "https://www.virustotal.com/api/v3"
)

// Config holds the connection settings for the scan service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to the scan service.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	apiKey     string
}

type submitResponse struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string               `json:"status"`
			Stats  models.AnalysisStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a Client. A single failed request is returned to the caller as is.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("scan API key must be provided")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid scan base URL %q: %w", baseURL, err)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.Logger != nil {
		httpClient.Logger = cfg.Logger
	} else {
		httpClient.Logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

// Submit uploads content as a single multipart request and returns the analysis handle.
func (c *Client) Submit(ctx context.Context, content io.Reader, filename string) (models.AnalysisHandle, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return models.AnalysisHandle{}, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return models.AnalysisHandle{}, fmt.Errorf("failed to read %s for submission: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return models.AnalysisHandle{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", body.Bytes())
	if err != nil {
		return models.AnalysisHandle{}, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return models.AnalysisHandle{}, err
	}
	if out.Data.ID == "" {
		return models.AnalysisHandle{}, &models.ServiceError{Service: serviceName, StatusCode: http.StatusOK, Message: "response carried no analysis id"}
	}
	return models.AnalysisHandle{ID: out.Data.ID}, nil
}

// Poll fetches the current state of an analysis once.
func (c *Client) Poll(ctx context.Context, analysisID string) (models.AnalysisVerdict, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyses/"+url.PathEscape(analysisID), nil)
	if err != nil {
		return models.AnalysisVerdict{}, fmt.Errorf("failed to build poll request: %w", err)
	}

	var out analysisResponse
	if err := c.do(req, &out); err != nil {
		return models.AnalysisVerdict{}, err
	}
	raw := out.Data.Attributes.Status
	return models.AnalysisVerdict{
		Status:    models.ParseAnalysisStatus(raw),
		RawStatus: raw,
		Stats:     out.Data.Attributes.Stats,
	}, nil
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.NetworkError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.NetworkError{Service: serviceName, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.ServiceError{Service: serviceName, StatusCode: resp.StatusCode, Message: errorMessage(payload, resp.Status)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &models.ServiceError{Service: serviceName, StatusCode: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	return nil
}

func errorMessage(payload []byte, fallback string) string {
	var e errorResponse
	if err := json.Unmarshal(payload, &e); err == nil && e.Error.Message != "" {
		if e.Error.Code != "" {
			return e.Error.Code + ": " + e.Error.Message
		}
		return e.Error.Message
	}
	return fallback
}
