package genapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultDownloadTimeout bounds one image download. Downloads are short
// compared to generation calls.
const DefaultDownloadTimeout = 60 * time.Second

// DefaultExtension is used when the image URL carries no format hint.
const DefaultExtension = ".jpeg"

// Downloader saves a generated image URL to disk. Tests substitute a
// recording fake.
type Downloader interface {
	Download(ctx context.Context, imageURL, savePath string) error
}

// HTTPDownloader fetches image URLs with a plain GET and streams the body
// to the target path, creating parent directories and overwriting any
// existing file.
type HTTPDownloader struct {
	httpClient *http.Client
}

// NewDownloader creates an HTTPDownloader. A zero timeout uses
// DefaultDownloadTimeout.
func NewDownloader(timeout time.Duration) *HTTPDownloader {
	if timeout == 0 {
		timeout = DefaultDownloadTimeout
	}
	return &HTTPDownloader{httpClient: &http.Client{Timeout: timeout}}
}

// Download fetches imageURL and writes the bytes to savePath.
func (d *HTTPDownloader) Download(ctx context.Context, imageURL, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", imageURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	out, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", savePath, err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", savePath, err)
	}
	return nil
}

// validExtension constrains the format hint to a plain extension. The
// hint comes from the remote response, so anything outside this shape
// (path separators, dots, percent escapes) must not reach a file path.
var validExtension = regexp.MustCompile(`^[A-Za-z0-9]{1,8}$`)

// ExtensionFromURL derives the image file extension from a format query
// hint embedded in the URL, falling back to DefaultExtension. The hint is
// read from the first "format" query parameter; malformed URLs and hints
// that are not a plain extension fall back too, so filename derivation
// never fails and never produces a path component.
func ExtensionFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return DefaultExtension
	}
	format := strings.TrimPrefix(u.Query().Get("format"), ".")
	if !validExtension.MatchString(format) {
		return DefaultExtension
	}
	return "." + format
}
