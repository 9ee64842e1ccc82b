package repositories

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

type MediaRepository struct {
	client *http.Client
}

func NewMediaRepository(client *http.Client) *MediaRepository {
	return &MediaRepository{client: defaultClient(client)}
}

// DownloadToFile streams mediaURL into a new file at path. It returns only after
// the file has been synced and closed. The file must not exist yet; on failure
// any partial file is removed.
func (r *MediaRepository) DownloadToFile(ctx context.Context, mediaURL, path string) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create media request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to download media %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        mediaURL,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create local file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, "", fmt.Errorf("failed to write media to %s: %w", path, err)
	}

	return written, resp.Header.Get("Content-Type"), nil
}
