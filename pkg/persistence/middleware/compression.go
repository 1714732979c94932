package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pierrec/lz4"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// EncodingLZ4 marks histories sealed by the compression middleware.
const EncodingLZ4 = "lz4"

type compressionMiddleware struct {
	passthrough
}

// NewCompressionMiddleware creates a middleware that stores histories as lz4-compressed
// JSON. Histories saved before compression was enabled still load.
func NewCompressionMiddleware() Middleware {
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &compressionMiddleware{passthrough{next: next}}
	}
}

func (m *compressionMiddleware) Save(ctx context.Context, documentID string, history *domain.History) error {
	envelope, err := seal(history, EncodingLZ4, compressLZ4)
	if err != nil {
		return err
	}
	return m.next.Save(ctx, documentID, envelope)
}

func (m *compressionMiddleware) Load(ctx context.Context, documentID string) (*domain.History, error) {
	envelope, err := m.next.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if envelope.Encoding != EncodingLZ4 {
		return envelope, nil
	}
	return unseal(envelope, decompressLZ4)
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to compress history: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress history: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("%w: failed to decompress history: %v", domain.ErrCorruptHistory, err)
	}
	return buf.Bytes(), nil
}
