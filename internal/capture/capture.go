// Package capture turns camera and microphone input into blobs for the assistant.
// Devices are scoped: Once acquires a device, produces one blob and releases
// the device on every exit path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vcscsvcscs/medassist/internal/service"
)

// Blob is captured binary data with its MIME type
type Blob = service.Blob

var (
	// ErrEmptyCapture is returned when a device produced no data
	ErrEmptyCapture = errors.New("capture produced no data")
	// ErrTooLarge is returned when captured data exceeds the device limit
	ErrTooLarge = errors.New("captured data is too large")
	// ErrUnsupportedMedia is returned when the captured data is not of the expected kind
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Device is a capture source that must be opened before use and closed after
type Device interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) (data []byte, mimeType string, err error)
	Close() error
}

// Once acquires dev, captures a single blob and releases dev. The MIME type is
// sniffed from the data when the device does not report one.
func Once(ctx context.Context, dev Device) (blob Blob, err error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}
	if err := dev.Open(ctx); err != nil {
		return Blob{}, fmt.Errorf("failed to open capture device: %w", err)
	}
	defer func() {
		if closeErr := dev.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to release capture device: %w", closeErr)
		}
	}()

	data, mimeType, err := dev.Capture(ctx)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to capture: %w", err)
	}
	if len(data) == 0 {
		return Blob{}, ErrEmptyCapture
	}

	return Blob{Data: data, MIMEType: Sniff(data, mimeType)}, nil
}

// Sniff returns declared unless it is empty or generic, in which case the type
// is detected from the content
func Sniff(data []byte, declared string) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected := mimetype.Detect(data).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}

// Expect checks that blob has the given top-level media kind, e.g. "image"
func Expect(blob Blob, kind string) error {
	if !strings.HasPrefix(blob.MIMEType, kind+"/") {
		return fmt.Errorf("%w: expected %s, got %s", ErrUnsupportedMedia, kind, blob.MIMEType)
	}
	return nil
}

// ReaderDevice captures everything a reader yields
type ReaderDevice struct {
	open     func() (io.ReadCloser, error)
	mimeType string
	maxBytes int64
	rc       io.ReadCloser
}

// NewReaderDevice creates a device reading from the stream returned by open.
// maxBytes <= 0 means no limit.
func NewReaderDevice(open func() (io.ReadCloser, error), mimeType string, maxBytes int64) *ReaderDevice {
	return &ReaderDevice{open: open, mimeType: mimeType, maxBytes: maxBytes}
}

// FromMultipart creates a device for an uploaded form file
func FromMultipart(fh *multipart.FileHeader, maxBytes int64) *ReaderDevice {
	return NewReaderDevice(func() (io.ReadCloser, error) {
		return fh.Open()
	}, fh.Header.Get("Content-Type"), maxBytes)
}

func (d *ReaderDevice) Open(ctx context.Context) error {
	rc, err := d.open()
	if err != nil {
		return err
	}
	d.rc = rc
	return nil
}

func (d *ReaderDevice) Capture(ctx context.Context) ([]byte, string, error) {
	if d.rc == nil {
		return nil, "", errors.New("device is not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var r io.Reader = d.rc
	if d.maxBytes > 0 {
		r = io.LimitReader(d.rc, d.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, d.maxBytes)
	}
	return data, d.mimeType, nil
}

func (d *ReaderDevice) Close() error {
	if d.rc == nil {
		return nil
	}
	err := d.rc.Close()
	d.rc = nil
	return err
}
