package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// MaxSize bounds a single download.
const MaxSize = 20 << 20

var ErrTooLarge = errors.New("media exceeds size limit")

type FetcherConfig struct {
	// Basic auth for provider-hosted media URLs.
	Username string
	Password string
	Timeout  time.Duration
	// GCSCredentialsFile is optional; application default credentials are
	// used when empty.
	GCSCredentialsFile string
}

// Fetcher downloads attachments over HTTP or from Cloud Storage.
type Fetcher struct {
	cfg    FetcherConfig
	http   *http.Client
	gcsMu  sync.Mutex
	gcs    *storage.Client
	newGCS func(ctx context.Context) (*storage.Client, error)
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	f := &Fetcher{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	f.newGCS = func(ctx context.Context) (*storage.Client, error) {
		var opts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}
		return storage.NewClient(ctx, opts...)
	}
	return f
}

// Fetch downloads ref. The declared content type wins over the one reported
// by the server.
func (f *Fetcher) Fetch(ctx context.Context, ref Ref) (Media, error) {
	u, err := url.Parse(ref.URL)
	if err != nil {
		return Media{}, fmt.Errorf("parse media url: %w", err)
	}

	var (
		data        []byte
		contentType string
	)
	switch u.Scheme {
	case "gs":
		data, contentType, err = f.fetchGCS(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "http", "https":
		data, contentType, err = f.fetchHTTP(ctx, ref.URL)
	default:
		return Media{}, fmt.Errorf("unsupported media scheme %q", u.Scheme)
	}
	if err != nil {
		return Media{}, err
	}

	if ref.ContentType != "" {
		contentType = ref.ContentType
	}
	return Media{Kind: KindOf(contentType), ContentType: contentType, Data: data}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create media request: %w", err)
	}
	if f.cfg.Username != "" {
		req.SetBasicAuth(f.cfg.Username, f.cfg.Password)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media: status %d", resp.StatusCode)
	}
	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) fetchGCS(ctx context.Context, bucket, object string) ([]byte, string, error) {
	client, err := f.storageClient(ctx)
	if err != nil {
		return nil, "", err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := readLimited(r)
	if err != nil {
		return nil, "", fmt.Errorf("read GCS object: %w", err)
	}
	return data, r.Attrs.ContentType, nil
}

func (f *Fetcher) storageClient(ctx context.Context) (*storage.Client, error) {
	f.gcsMu.Lock()
	defer f.gcsMu.Unlock()
	if f.gcs != nil {
		return f.gcs, nil
	}
	client, err := f.newGCS(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	f.gcs = client
	return client, nil
}

// Close releases the Cloud Storage client if one was opened.
func (f *Fetcher) Close() error {
	f.gcsMu.Lock()
	defer f.gcsMu.Unlock()
	if f.gcs == nil {
		return nil
	}
	err := f.gcs.Close()
	f.gcs = nil
	return err
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
