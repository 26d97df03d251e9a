package usecase_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

type fakeExtractor struct {
	pathText string
	urlText  string
	fail     error
}

func (e *fakeExtractor) ExtractPath(_ context.Context, _, _ string) (string, error) {
	if e.fail != nil {
		return "", e.fail
	}
	return e.pathText, nil
}

func (e *fakeExtractor) ExtractURL(_ context.Context, _ string) (string, error) {
	if e.fail != nil {
		return "", e.fail
	}
	return e.urlText, nil
}

// multipartFileHeader builds a real FileHeader by round-tripping a form.
func multipartFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func TestIngestDocumentFromText(t *testing.T) {
	repo := newFakeUploadRepo()
	svc := usecase.NewIngestService(repo, &fakeExtractor{}, 8)

	id, err := svc.IngestDocument(context.Background(), domain.DocumentKindCV, usecase.DocumentSource{
		Text: "  Jordan Doe\x00, Go engineer  ",
	})
	require.NoError(t, err)

	up, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.DocumentKindCV, up.Kind)
	require.Equal(t, "Jordan Doe, Go engineer", up.Text)
	require.Equal(t, "text/plain", up.MIME)
}

func TestIngestDocumentFromFile(t *testing.T) {
	repo := newFakeUploadRepo()
	ex := &fakeExtractor{pathText: "extracted resume text"}
	svc := usecase.NewIngestService(repo, ex, 8)

	fh := multipartFileHeader(t, "resume.txt", []byte("raw bytes"))
	id, err := svc.IngestDocument(context.Background(), domain.DocumentKindCV, usecase.DocumentSource{File: fh})
	require.NoError(t, err)

	up, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "extracted resume text", up.Text)
	require.Equal(t, "resume.txt", up.SourceName)
}

func TestIngestDocumentFromURL(t *testing.T) {
	repo := newFakeUploadRepo()
	ex := &fakeExtractor{urlText: "job description from the web"}
	svc := usecase.NewIngestService(repo, ex, 8)

	id, err := svc.IngestDocument(context.Background(), domain.DocumentKindJob, usecase.DocumentSource{
		URL: "https://example.com/jd",
	})
	require.NoError(t, err)

	up, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "job description from the web", up.Text)
	require.Equal(t, "https://example.com/jd", up.SourceName)
}

func TestIngestDocumentRejectsBadInput(t *testing.T) {
	svc := usecase.NewIngestService(newFakeUploadRepo(), &fakeExtractor{}, 8)
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, "poem", usecase.DocumentSource{Text: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.IngestDocument(ctx, domain.DocumentKindCV, usecase.DocumentSource{})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.IngestDocument(ctx, domain.DocumentKindCV, usecase.DocumentSource{
		Text: "x", URL: "https://example.com",
	})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.IngestDocument(ctx, domain.DocumentKindCV, usecase.DocumentSource{Text: "\x00\x01"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIngestDocumentFileTooLarge(t *testing.T) {
	svc := usecase.NewIngestService(newFakeUploadRepo(), &fakeExtractor{pathText: "text"}, 0)
	svc.MaxUploadMB = 1

	fh := multipartFileHeader(t, "big.pdf", bytes.Repeat([]byte("a"), 2<<20))
	_, err := svc.IngestDocument(context.Background(), domain.DocumentKindCV, usecase.DocumentSource{File: fh})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIngestDocumentExtractionFailurePropagates(t *testing.T) {
	svc := usecase.NewIngestService(newFakeUploadRepo(), &fakeExtractor{fail: domain.ErrUpstreamTimeout}, 8)

	_, err := svc.IngestDocument(context.Background(), domain.DocumentKindJob, usecase.DocumentSource{
		URL: "https://example.com/jd",
	})
	require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}
