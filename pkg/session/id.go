package session

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxDocumentIDSize bounds document IDs, which end up in file names and keys.
	DefaultMaxDocumentIDSize = 1024
	// EnvMaxDocumentIDSize is the environment variable to override the default.
	EnvMaxDocumentIDSize = "HOPSAN_UNDO_MAX_ID_SIZE"
)

var (
	ErrInvalidDocumentID = errors.New("invalid document id")
)

// ValidateDocumentID rejects empty, oversized or non-UTF-8 IDs and IDs containing
// control characters.
func ValidateDocumentID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDocumentID)
	}
	if limit := maxDocumentIDSize(); len(id) > limit {
		return fmt.Errorf("%w: size=%d limit=%d", ErrInvalidDocumentID, len(id), limit)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: invalid UTF-8", ErrInvalidDocumentID)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U", ErrInvalidDocumentID, r)
		}
	}
	return nil
}

func maxDocumentIDSize() int {
	if val := os.Getenv(EnvMaxDocumentIDSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxDocumentIDSize
}
