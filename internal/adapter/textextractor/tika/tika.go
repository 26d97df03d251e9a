// Package tika provides Apache Tika integration for text extraction.
//
// It extracts text content from various document formats including
// PDF, Word, and plain text files.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/pkg/textx"
)

// maxRemoteDocBytes bounds URL fetches so a hostile link cannot exhaust memory.
const maxRemoteDocBytes = 20 << 20

// Client is a minimal Apache Tika HTTP client implementing domain.TextExtractor.
// It performs PUT /tika with Accept: text/plain to retrieve extracted text.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client with a default timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExtractPath uploads the file at path to the Tika server and returns plain text.
// Paths are constrained to the temp dir or working dir; uploads are staged
// under the system temp dir.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	openPath, err := constrainPath(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(openPath)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractPath read: %w", err)
	}
	ct := contentTypeFromExt(filepath.Ext(fileName))
	if ct == "" {
		ct = mimetype.Detect(b).String()
	}
	return c.extract(ctx, b, ct)
}

// ExtractURL fetches a remote document and extracts its text.
func (c *Client) ExtractURL(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("%w: unsupported url scheme", domain.ErrInvalidArgument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractURL request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractURL fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: fetch status %d", domain.ErrInvalidArgument, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocBytes))
	if err != nil {
		return "", fmt.Errorf("op=tika.ExtractURL read: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(b).String()
	}
	return c.extract(ctx, b, ct)
}

func (c *Client) extract(ctx context.Context, body []byte, contentType string) (string, error) {
	u := c.baseURL
	if u == "" {
		u = "http://localhost:9998"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u+"/tika", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tika status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	// Sanitize control characters, then collapse whitespace to single spaces
	sanitized := textx.SanitizeText(string(b))
	return strings.Join(strings.Fields(sanitized), " "), nil
}

// constrainPath rejects paths outside the temp dir and working dir.
func constrainPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	tmp := filepath.Clean(os.TempDir())
	wd, _ := os.Getwd()
	wd = filepath.Clean(wd)
	for _, base := range []string{tmp, wd} {
		if abs == base || strings.HasPrefix(abs, base+string(os.PathSeparator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: disallowed path %s", domain.ErrInvalidArgument, abs)
}

func contentTypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		if ext != "" {
			return mime.TypeByExtension(ext)
		}
	}
	return ""
}
