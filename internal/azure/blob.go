package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const imagePrefix = "images/"

// BlobStorageClient wraps Azure Blob Storage SDK for image operations
type BlobStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client
func NewBlobStorageClient(accountName, accountKey, containerName string, logger *zap.Logger) (*BlobStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobStorageClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// imageBlobName builds the blob name for an image, with an extension
// matching its MIME type
func imageBlobName(name, mimeType string) string {
	ext := ""
	if m := mimetype.Lookup(mimeType); m != nil {
		ext = m.Extension()
	}
	if ext != "" && strings.HasSuffix(name, ext) {
		ext = ""
	}
	return imagePrefix + name + ext
}

// validImageRef reports whether ref points into the image namespace
func validImageRef(ref string) bool {
	return strings.HasPrefix(ref, imagePrefix) && !strings.Contains(ref, "..") && len(ref) > len(imagePrefix)
}

// UploadImage uploads an image and returns its blob name
func (c *BlobStorageClient) UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	blobName := imageBlobName(name, mimeType)

	c.logger.Info("uploading image to blob storage",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: toPtr(mimeType),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload image",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	c.logger.Info("image uploaded successfully", zap.String("blob_name", blobName))
	return blobName, nil
}

// DownloadImage downloads an image and returns its data and MIME type
func (c *BlobStorageClient) DownloadImage(ctx context.Context, ref string) ([]byte, string, error) {
	if !validImageRef(ref) {
		return nil, "", fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(ref)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		c.logger.Error("failed to download image",
			zap.String("blob_name", ref),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		c.logger.Error("failed to read image data",
			zap.String("blob_name", ref),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mimeType := ""
	if downloadResponse.ContentType != nil {
		mimeType = *downloadResponse.ContentType
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	c.logger.Info("image downloaded successfully",
		zap.String("blob_name", ref),
		zap.Int("size_bytes", len(data)),
	)
	return data, mimeType, nil
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}
