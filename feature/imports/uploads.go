package imports

import (
	"errors"
	"fmt"
	"io"
)

const (
	// UploadChunkSize is the read granularity for limited uploads.
	UploadChunkSize = 64 * 1024
	// UploadMaxBytes caps every uploaded file before any adapter sees
	// it.
	UploadMaxBytes = 10 * 1024 * 1024
)

// ErrUploadTooLarge is returned when an uploaded file exceeds the
// configured size limit.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// ReadUploadLimited reads at most maxBytes from reader and fails with
// ErrUploadTooLarge as soon as the limit is crossed, without buffering
// the remainder.
func ReadUploadLimited(reader io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes < 0 {
		return nil, fmt.Errorf("maxBytes must be non-negative")
	}

	var buffer []byte
	chunk := make([]byte, UploadChunkSize)
	var total int64
	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxBytes {
				return nil, ErrUploadTooLarge
			}
			buffer = append(buffer, chunk[:n]...)
		}
		if err == io.EOF {
			return buffer, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// DescribeUploadLimit renders a byte limit for user-facing messages.
func DescribeUploadLimit(maxBytes int64) string {
	const mb = 1024 * 1024
	if maxBytes >= mb && maxBytes%mb == 0 {
		return fmt.Sprintf("%d MB", maxBytes/mb)
	}
	if maxBytes == 1 {
		return "1 byte"
	}
	return fmt.Sprintf("%d bytes", maxBytes)
}
