package azure

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned when no blob exists under the requested name
var ErrBlobNotFound = errors.New("blob not found")

// BlobStorage stores captured images and returns references to them
type BlobStorage interface {
	UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error)
	DownloadImage(ctx context.Context, ref string) ([]byte, string, error)
}

var (
	_ BlobStorage = (*BlobStorageClient)(nil)
	_ BlobStorage = (*MemoryBlobStorage)(nil)
)
