package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/paperkg/paperkg/internal/apperr"
)

// DownloadPDF fetches url and writes it to destDir, named after paperID.
// Returns the path written.
func (c *Client) DownloadPDF(ctx context.Context, url, paperID, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperr.Wrap("build download request", apperr.KindUnknown, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Classify("download pdf", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.ClassifyStatus("download pdf", resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", apperr.Wrap("create download directory", apperr.KindUnknown, err)
	}

	path := filepath.Join(destDir, paperID+".pdf")
	f, err := os.Create(path)
	if err != nil {
		return "", apperr.Wrap("create pdf file", apperr.KindUnknown, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", apperr.Wrap("write pdf file", apperr.KindUnknown, err)
	}

	return path, nil
}
