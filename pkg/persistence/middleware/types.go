package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// Middleware allows wrapping a HistoryStore to add behavior.
type Middleware func(ports.HistoryStore) ports.HistoryStore

// Chain wraps store so that the first middleware sees Save calls first.
func Chain(store ports.HistoryStore, mws ...Middleware) ports.HistoryStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// seal encodes a history with transform and wraps it in an opaque envelope that keeps
// only the document ID and save time visible.
func seal(h *domain.History, encoding string, transform func([]byte) ([]byte, error)) (*domain.History, error) {
	plain, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	out, err := transform(plain)
	if err != nil {
		return nil, err
	}
	return &domain.History{
		DocumentID: h.DocumentID,
		SavedAt:    h.SavedAt,
		Encoding:   encoding,
		Sealed:     base64.StdEncoding.EncodeToString(out),
	}, nil
}

// unseal reverses seal.
func unseal(envelope *domain.History, transform func([]byte) ([]byte, error)) (*domain.History, error) {
	data, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s payload: %v", domain.ErrCorruptHistory, envelope.Encoding, err)
	}
	plain, err := transform(data)
	if err != nil {
		return nil, err
	}
	var h domain.History
	if err := json.Unmarshal(plain, &h); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s payload: %v", domain.ErrCorruptHistory, envelope.Encoding, err)
	}
	return &h, nil
}

// passthrough forwards the calls a middleware does not change.
type passthrough struct {
	next ports.HistoryStore
}

func (p passthrough) Delete(ctx context.Context, documentID string) error {
	return p.next.Delete(ctx, documentID)
}

func (p passthrough) List(ctx context.Context) ([]string, error) {
	return p.next.List(ctx)
}
