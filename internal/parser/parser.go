// Package parser turns a PDF file into markdown-ish text, via an external
// upload→poll→result HTTP service, falling back to local text extraction
// when the service is unavailable for any reason other than an auth
// failure, which is fatal process-wide.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/internal/resilience"
)

const pollInterval = 2 * time.Second
const pollTimeout = 5 * time.Minute

// Client is the external parser's HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fallback   *LocalParser
}

// New builds a Client from configuration.
func New(cfg config.ParserConfiguration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		fallback:   &LocalParser{},
	}
}

// Parse uploads the PDF at path, polls for job completion, and returns the
// extracted text. On a transient or quota failure from the external
// service, it falls back to LocalParser rather than failing the whole
// pipeline run.
func (c *Client) Parse(ctx context.Context, path string) (string, error) {
	text, err := c.parseRemote(ctx, path)
	if err == nil {
		return text, nil
	}

	if apperr.KindOf(err) == apperr.KindAuth {
		return "", err
	}

	return c.fallback.Parse(path)
}

func (c *Client) parseRemote(ctx context.Context, path string) (string, error) {
	jobID, err := c.upload(ctx, path)
	if err != nil {
		return "", err
	}
	return c.pollResult(ctx, jobID)
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", apperr.Wrap("open pdf", apperr.KindValidation, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return "", apperr.Wrap("build upload request", apperr.KindUnknown, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", apperr.Wrap("read pdf", apperr.KindUnknown, err)
	}
	writer.Close()

	var jobID string
	err = resilience.WithRetry(ctx, "parser upload", resilience.Options{}, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
		if err != nil {
			return apperr.Wrap("build upload request", apperr.KindUnknown, err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperr.Classify("parser upload", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return apperr.ClassifyStatus("parser upload", resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
		}

		var decoded struct {
			JobID string `json:"jobId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return apperr.Wrap("decode upload response", apperr.KindValidation, err)
		}
		jobID = decoded.JobID
		return nil
	})
	return jobID, err
}

func (c *Client) pollResult(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(pollTimeout)

	for time.Now().Before(deadline) {
		status, text, err := c.checkJob(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch status {
		case "complete":
			return text, nil
		case "failed":
			return "", apperr.Wrap("parser job failed", apperr.KindTransient, fmt.Errorf("job %s failed", jobID))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return "", apperr.Wrap("parser job", apperr.KindTransient, fmt.Errorf("job %s timed out", jobID))
}

func (c *Client) checkJob(ctx context.Context, jobID string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return "", "", apperr.Wrap("build poll request", apperr.KindUnknown, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", apperr.Classify("parser poll", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", apperr.ClassifyStatus("parser poll", resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", apperr.Wrap("decode poll response", apperr.KindValidation, err)
	}
	return decoded.Status, decoded.Text, nil
}
