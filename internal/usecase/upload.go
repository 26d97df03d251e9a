// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/pkg/textx"
)

// IngestService resolves CV and job-description sources (pasted text,
// uploaded file, or URL) into sanitized plain-text uploads.
type IngestService struct {
	Repo        domain.UploadRepository
	Extractor   domain.TextExtractor
	MaxUploadMB int64
}

// NewIngestService constructs an IngestService.
func NewIngestService(r domain.UploadRepository, e domain.TextExtractor, maxUploadMB int64) IngestService {
	return IngestService{Repo: r, Extractor: e, MaxUploadMB: maxUploadMB}
}

// DocumentSource is one ingestable document: exactly one of Text, File, or
// URL must be set.
type DocumentSource struct {
	Text string
	File *multipart.FileHeader
	URL  string
}

func (s DocumentSource) setCount() int {
	n := 0
	if s.Text != "" {
		n++
	}
	if s.File != nil {
		n++
	}
	if s.URL != "" {
		n++
	}
	return n
}

// IngestDocument resolves one source into a stored upload and returns its id.
func (s IngestService) IngestDocument(ctx context.Context, kind string, src DocumentSource) (string, error) {
	if kind != domain.DocumentKindCV && kind != domain.DocumentKindJob {
		return "", fmt.Errorf("%w: unknown document kind %q", domain.ErrInvalidArgument, kind)
	}
	if src.setCount() != 1 {
		return "", fmt.Errorf("%w: exactly one of text, file, or url must be provided", domain.ErrInvalidArgument)
	}

	var (
		text       string
		sourceName string
		mime       string
		err        error
	)
	switch {
	case src.Text != "":
		text = src.Text
		mime = "text/plain"
	case src.File != nil:
		text, sourceName, mime, err = s.extractFile(ctx, src.File)
		if err != nil {
			return "", err
		}
	default:
		text, err = s.Extractor.ExtractURL(ctx, src.URL)
		if err != nil {
			return "", fmt.Errorf("op=ingest.url: %w", err)
		}
		sourceName = src.URL
	}

	text = textx.SanitizeText(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty extracted text", domain.ErrInvalidArgument)
	}

	return s.Repo.Create(ctx, domain.Upload{
		Kind:       kind,
		Text:       text,
		SourceName: sourceName,
		MIME:       mime,
		Size:       int64(len(text)),
		CreatedAt:  time.Now().UTC(),
	})
}

// extractFile stages the upload in the temp dir and runs Tika over it.
func (s IngestService) extractFile(ctx context.Context, fh *multipart.FileHeader) (text, name, mime string, err error) {
	if s.MaxUploadMB > 0 && fh.Size > s.MaxUploadMB<<20 {
		return "", "", "", fmt.Errorf("%w: file exceeds %d MB", domain.ErrInvalidArgument, s.MaxUploadMB)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", "", fmt.Errorf("op=ingest.file open: %w", err)
	}
	defer func() { _ = f.Close() }()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", "", "", fmt.Errorf("op=ingest.file stage: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.ReadFrom(f); err != nil {
		_ = tmp.Close()
		return "", "", "", fmt.Errorf("op=ingest.file copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", "", fmt.Errorf("op=ingest.file close: %w", err)
	}

	head, _ := os.ReadFile(tmp.Name())
	mime = mimetype.Detect(head).String()

	text, err = s.Extractor.ExtractPath(ctx, fh.Filename, tmp.Name())
	if err != nil {
		return "", "", "", fmt.Errorf("op=ingest.file extract: %w", err)
	}
	return text, fh.Filename, mime, nil
}
