package cpf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultArchiveURL = "https://edc.dgfi.tum.de/pub/slr/cpf_predicts/current/"

// maxFetchBytes caps the response body size. CPF files are a few hundred
// kilobytes; anything larger is not a prediction file.
const maxFetchBytes = 10 * 1024 * 1024

// Fetcher retrieves raw CPF documents from a remote prediction archive.
type Fetcher struct {
	archiveURL string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given archive URL.
func NewFetcher(archiveURL string) *Fetcher {
	if archiveURL == "" {
		archiveURL = defaultArchiveURL
	}
	return &Fetcher{
		archiveURL: archiveURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ArchiveURL returns the configured archive URL.
func (f *Fetcher) ArchiveURL() string {
	return f.archiveURL
}

// Fetch performs an HTTP GET for the named prediction file and returns the
// raw document text. An empty name fetches the archive URL itself.
func (f *Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := f.archiveURL
	if name != "" {
		url += name
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching CPF data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxFetchBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", url, maxFetchBytes)
	}

	return body, nil
}
