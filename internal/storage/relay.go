package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sampic/sampic/internal/config"
)

// maxErrorBody bounds how much of a failed relay response is read for its message.
const maxErrorBody = 4 << 10

// Relay forwards raw pixels to a sampic upload server, which stores them in
// object storage. Reads and links go straight to that bucket through an owned
// ObjectStore, so the relay server is assumed to write where this client reads.
type Relay struct {
	endpoint string
	client   *http.Client
	objects  *ObjectStore
	hash     Hasher
	logger   *slog.Logger
}

// NewRelay builds a Relay posting to cfg.SampicEndpoint. API keys are
// optional: without them reads are anonymous, which suffices for public-read
// objects.
func NewRelay(cfg *config.Config, opts ...Option) (*Relay, error) {
	o := buildOptions(opts)

	if cfg.SampicEndpoint == "" {
		return nil, fmt.Errorf("relay: %w: sampic_endpoint is not defined", ErrConfig)
	}
	if _, err := url.ParseRequestURI(cfg.SampicEndpoint); err != nil {
		return nil, fmt.Errorf("relay: %w: %w", ErrConfig, err)
	}

	objects, err := newObjectStore(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &Relay{
		endpoint: cfg.SampicEndpoint,
		client:   &http.Client{Transport: o.transport},
		objects:  objects,
		hash:     o.hash,
		logger:   o.loggerOr().With("component", "storage/relay"),
	}, nil
}

// Save computes the link locally, then posts buf to the relay server.
func (r *Relay) Save(ctx context.Context, buf []byte, extension string, width, height uint32) (string, error) {
	link := r.Link(ObjectName(r, buf, extension))

	target, err := r.uploadURL(extension, width, height)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("relay request: %w: %w", ErrConfig, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	r.logger.Info("uploading", "endpoint", target, "bytes", len(buf))
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay upload: %w: %w", ErrIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("relay upload: %w: %s: %s", ErrUnknown, resp.Status, errorMessage(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("relay response: %w: %w", ErrIO, err)
	}
	if remote := strings.TrimSpace(string(body)); remote != "" && remote != link {
		r.logger.Warn("relay returned a different link", "expected", link, "got", remote)
	}
	r.logger.Info("uploaded", "link", link)
	return link, nil
}

// ReadTo reads name from the bucket the relay server writes to.
func (r *Relay) ReadTo(ctx context.Context, name string, w io.Writer) error {
	return r.objects.ReadTo(ctx, name, w)
}

// Link returns the object storage URL of name.
func (r *Relay) Link(name string) string {
	return r.objects.Link(name)
}

// Hash returns the digest of buf.
func (r *Relay) Hash(buf []byte) string {
	return r.hash(buf)
}

func (r *Relay) uploadURL(extension string, width, height uint32) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", fmt.Errorf("relay endpoint: %w: %w", ErrConfig, err)
	}
	q := u.Query()
	q.Set("extension", extension)
	q.Set("w", strconv.FormatUint(uint64(width), 10))
	q.Set("h", strconv.FormatUint(uint64(height), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// errorMessage extracts the message of a JSON error envelope, falling back to
// the raw body.
func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(raw))
}
