package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// AzureClient implements Client on an Azure Blob container.
// The access key is the storage account name and the secret its shared key.
type AzureClient struct {
	client    *azblob.Client
	container string
}

// NewAzureClient creates a new Azure Blob client
func NewAzureClient(cfg Config) (*AzureClient, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccessKey)
	if cfg.Endpoint != "" {
		serviceURL = withScheme(cfg.Endpoint, cfg.Secure)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureClient{client: client, container: cfg.Bucket}, nil
}

// Save uploads the blob with UploadStream and returns the requested key
func (c *AzureClient) Save(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (SaveResult, error) {
	uploadOpts := &azblob.UploadStreamOptions{}
	if opts.ContentType != "" {
		contentType := opts.ContentType
		uploadOpts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if len(opts.Metadata) > 0 {
		uploadOpts.Metadata = make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			v := v
			uploadOpts.Metadata[k] = &v
		}
	}

	resp, err := c.client.UploadStream(ctx, c.container, key, r, uploadOpts)
	if err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{Key: key, Size: size}
	if resp.ETag != nil {
		result.ETag = string(*resp.ETag)
	}
	return result, nil
}
