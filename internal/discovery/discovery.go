// Package discovery implements the paper-discovery external interface:
// search, citations, and PDF-URL resolution against OpenAlex, falling back
// to arXiv when OpenAlex lacks a PDF URL for a given work.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/paperkg/paperkg/internal/apperr"
	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/internal/resilience"
)

// Paper is the discovery result shape the agentic controller's tools deal
// in.
type Paper struct {
	ID             string
	Title          string
	CitationCount  int
	PDFURL         string
}

// Client queries OpenAlex primarily and arXiv as a PDF-URL fallback. It
// rate-limits outbound requests per host to stay within each API's
// documented etiquette.
type Client struct {
	httpClient      *http.Client
	openAlexBaseURL string
	arxivBaseURL    string
	openAlexLimiter *rate.Limiter
	arxivLimiter    *rate.Limiter
}

// New builds a Client. Limiters default to 10 requests/second for OpenAlex
// (its documented polite-pool rate) and 1 request/3s for arXiv (its
// documented etiquette).
func New(cfg config.DiscoveryConfiguration) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		openAlexBaseURL: cfg.OpenAlexBaseURL,
		arxivBaseURL:    cfg.ArxivBaseURL,
		openAlexLimiter: rate.NewLimiter(rate.Limit(10), 1),
		arxivLimiter:    rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

// SearchPapers searches OpenAlex's works endpoint by free-text query.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) ([]Paper, error) {
	var results []Paper
	err := resilience.WithRetry(ctx, "discovery search", resilience.Options{}, func(ctx context.Context) error {
		if err := c.openAlexLimiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("%s/works?search=%s&per_page=%d", c.openAlexBaseURL, query, limit)
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var decoded openAlexWorksResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return apperr.Wrap("decode openalex search response", apperr.KindValidation, err)
		}
		results = decoded.papers()
		return nil
	})
	return results, err
}

// GetCitations returns papers that cite paperID.
func (c *Client) GetCitations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	var results []Paper
	err := resilience.WithRetry(ctx, "discovery citations", resilience.Options{}, func(ctx context.Context) error {
		if err := c.openAlexLimiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("%s/works?filter=cites:%s&per_page=%d", c.openAlexBaseURL, paperID, limit)
		resp, err := c.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var decoded openAlexWorksResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return apperr.Wrap("decode openalex citations response", apperr.KindValidation, err)
		}
		results = decoded.papers()
		return nil
	})
	return results, err
}

// ResolvePDFURL returns a downloadable PDF URL for paperID, trying OpenAlex
// first and falling back to arXiv when OpenAlex's record lacks one.
func (c *Client) ResolvePDFURL(ctx context.Context, paperID string) (string, error) {
	var url string
	err := resilience.WithRetry(ctx, "discovery resolve pdf", resilience.Options{}, func(ctx context.Context) error {
		if err := c.openAlexLimiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.get(ctx, fmt.Sprintf("%s/works/%s", c.openAlexBaseURL, paperID))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var decoded openAlexWork
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return apperr.Wrap("decode openalex work response", apperr.KindValidation, err)
		}
		url = decoded.BestOALocation.PDFURL
		return nil
	})
	if err != nil {
		return "", err
	}
	if url != "" {
		return url, nil
	}

	return c.resolveFromArxiv(ctx, paperID)
}

func (c *Client) resolveFromArxiv(ctx context.Context, paperID string) (string, error) {
	var url string
	err := resilience.WithRetry(ctx, "discovery resolve pdf from arxiv", resilience.Options{}, func(ctx context.Context) error {
		if err := c.arxivLimiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.get(ctx, fmt.Sprintf("%s/abs/%s", c.arxivBaseURL, paperID))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return apperr.Wrap("resolve pdf from arxiv", apperr.KindNotFound, fmt.Errorf("no arxiv record for %s", paperID))
		}
		url = fmt.Sprintf("%s/pdf/%s", c.arxivBaseURL, paperID)
		return nil
	})
	return url, err
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap("build discovery request", apperr.KindUnknown, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Classify("discovery request", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, apperr.ClassifyStatus("discovery request", resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

type openAlexWork struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	CitedByCount     int    `json:"cited_by_count"`
	BestOALocation   struct {
		PDFURL string `json:"pdf_url"`
	} `json:"best_oa_location"`
}

type openAlexWorksResponse struct {
	Results []openAlexWork `json:"results"`
}

func (r openAlexWorksResponse) papers() []Paper {
	out := make([]Paper, len(r.Results))
	for i, w := range r.Results {
		out[i] = Paper{
			ID:            w.ID,
			Title:         w.DisplayName,
			CitationCount: w.CitedByCount,
			PDFURL:        w.BestOALocation.PDFURL,
		}
	}
	return out
}
