package azure

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type memoryBlob struct {
	data     []byte
	mimeType string
}

// MemoryBlobStorage keeps images in process memory. It backs image references
// when no storage account is configured.
type MemoryBlobStorage struct {
	mu     sync.RWMutex
	blobs  map[string]memoryBlob
	logger *zap.Logger
}

// NewMemoryBlobStorage creates an empty in-memory blob store
func NewMemoryBlobStorage(logger *zap.Logger) *MemoryBlobStorage {
	return &MemoryBlobStorage{
		blobs:  make(map[string]memoryBlob),
		logger: logger,
	}
}

// UploadImage stores a copy of data and returns its blob name
func (s *MemoryBlobStorage) UploadImage(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	blobName := imageBlobName(name, mimeType)

	s.mu.Lock()
	s.blobs[blobName] = memoryBlob{data: bytes.Clone(data), mimeType: mimeType}
	s.mu.Unlock()

	s.logger.Debug("image stored in memory",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)
	return blobName, nil
}

// DownloadImage returns a copy of the stored image
func (s *MemoryBlobStorage) DownloadImage(ctx context.Context, ref string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[ref]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	return bytes.Clone(b.data), b.mimeType, nil
}

// Len returns the number of stored images
func (s *MemoryBlobStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
