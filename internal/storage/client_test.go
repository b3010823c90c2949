package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
		wantErr  bool
	}{
		{"host and port", "localhost:9000", "localhost:9000", false},
		{"https url", "https://s3.example.com", "s3.example.com", false},
		{"http url with port and slash", "http://10.0.0.1:9000/", "10.0.0.1:9000", false},
		{"empty", "", "", true},
		{"path without scheme", "example.com/bucket", "", true},
		{"url with path", "https://example.com/bucket", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithScheme(t *testing.T) {
	assert.Equal(t, "https://s3.local", withScheme("s3.local", true))
	assert.Equal(t, "http://s3.local:9000", withScheme("s3.local:9000", false))
	assert.Equal(t, "http://keep.me", withScheme("http://keep.me", true))
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "ftp"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestNewMinIORequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderMinIO, AccessKey: "k", SecretKey: "s"})
	assert.Error(t, err)
}

func TestFactoryBuildsMinIOClient(t *testing.T) {
	factory := NewFactory(Config{
		Provider:  ProviderMinIO,
		Endpoint:  "localhost:9000",
		Bucket:    "b",
		AccessKey: "k",
		SecretKey: "s",
	})

	client, err := factory(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &MinIOClient{}, client)
}

func TestNewS3ClientWithoutNetwork(t *testing.T) {
	client, err := New(context.Background(), Config{
		Provider:  ProviderS3,
		Endpoint:  "s3.local:9000",
		Bucket:    "b",
		AccessKey: "k",
		SecretKey: "s",
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, client)
}
