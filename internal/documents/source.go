package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/Epistemic-Technology/zotero/zotero"
	"github.com/avast/retry-go/v4"

	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// ErrNoSource is returned when a fetch request names no source
var ErrNoSource = errors.New("no data provided")

// FetchConfig controls how remote documents are retrieved
type FetchConfig struct {
	// Attempts is the number of tries for a URL download
	Attempts uint
	// Timeout bounds a single download attempt
	Timeout time.Duration
	// MaxBytes caps the size of a downloaded document; 0 means no cap
	MaxBytes int64

	ZoteroAPIKey    string
	ZoteroLibraryID string
}

// Fetcher retrieves document bytes from a URL or a Zotero library
type Fetcher struct {
	config FetchConfig
	client *http.Client
}

// NewFetcher creates a fetcher using the default HTTP client
func NewFetcher(config FetchConfig) *Fetcher {
	if config.Attempts == 0 {
		config.Attempts = 1
	}
	return &Fetcher{config: config, client: http.DefaultClient}
}

// GetData retrieves document data from a source and returns it together with
// a filename derived from the source.
func (f *Fetcher) GetData(ctx context.Context, sourceInfo models.SourceInfo) ([]byte, string, error) {
	var data []byte
	var filename string
	var err error

	if sourceInfo.ZoteroID != "" {
		data, err = f.GetFromZotero(ctx, sourceInfo.ZoteroID)
		filename = sourceInfo.ZoteroID + ".pdf"
	} else if sourceInfo.URL != "" {
		data, err = f.GetFromURL(ctx, sourceInfo.URL)
		filename = path.Base(sourceInfo.URL)
	} else {
		return nil, "", ErrNoSource
	}
	if err != nil {
		return nil, "", err
	}

	if len(data) == 0 {
		return nil, "", errors.New("no data retrieved")
	}

	return data, filename, nil
}

// GetFromURL downloads a document, retrying transport failures and 5xx responses
func (f *Fetcher) GetFromURL(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := retry.Do(
		func() error {
			attemptCtx := ctx
			if f.config.Timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, f.config.Timeout)
				defer cancel()
			}

			req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("unexpected status %d", resp.StatusCode))
			}

			var body io.Reader = resp.Body
			if f.config.MaxBytes > 0 {
				body = io.LimitReader(resp.Body, f.config.MaxBytes+1)
			}
			data, err = io.ReadAll(body)
			if err != nil {
				return err
			}
			if f.config.MaxBytes > 0 && int64(len(data)) > f.config.MaxBytes {
				return retry.Unrecoverable(fmt.Errorf("document exceeds %d bytes", f.config.MaxBytes))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(f.config.Attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return data, nil
}

// GetFromZotero fetches an attachment from the configured Zotero library
func (f *Fetcher) GetFromZotero(ctx context.Context, zoteroID string) ([]byte, error) {
	if f.config.ZoteroAPIKey == "" || f.config.ZoteroLibraryID == "" {
		return nil, errors.New("zotero credentials not configured")
	}
	client := zotero.NewClient(f.config.ZoteroLibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.config.ZoteroAPIKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zotero attachment %s: %w", zoteroID, err)
	}
	return data, nil
}
