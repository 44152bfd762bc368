package store

import (
	"errors"
	"fmt"

	"foodshare/internal/docstore"
	"foodshare/pkg/types"
)

// storeError translates docstore sentinels into the types taxonomy. Anything
// else is a store failure.
func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", msg, types.ErrNotFound, err)
	case errors.Is(err, docstore.ErrConflict):
		return fmt.Errorf("%s: %w: %w", msg, types.ErrConflict, err)
	}

	return fmt.Errorf("%s: %w: %w", msg, types.ErrStoreFailure, err)
}
