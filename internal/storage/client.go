package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Supported providers
const (
	ProviderMinIO = "minio"
	ProviderS3    = "s3"
	ProviderAzure = "azure"
)

// ErrUnknownProvider is returned for a provider name New does not know
var ErrUnknownProvider = errors.New("unknown storage provider")

// Client saves objects into one bucket
type Client interface {
	// Save uploads r under key and returns what the server recorded
	Save(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (SaveResult, error)
}

// SaveResult is the server's answer to a save
type SaveResult struct {
	Key  string
	ETag string
	Size int64
}

// PutOptions contains options for save operations
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Config contains client configuration
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// Factory builds a new client; each upload worker calls it once
type Factory func(ctx context.Context) (Client, error)

// New creates a client for cfg.Provider
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderMinIO:
		return NewMinIOClient(cfg)
	case ProviderS3:
		return NewS3Client(ctx, cfg)
	case ProviderAzure:
		return NewAzureClient(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFactory returns a Factory building clients from cfg
func NewFactory(cfg Config) Factory {
	return func(ctx context.Context) (Client, error) {
		return New(ctx, cfg)
	}
}

// withScheme prefixes endpoint with http:// or https:// when it has neither
func withScheme(endpoint string, secure bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if secure {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
