package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed wraps payloads that could not be decoded.
var ErrMalformed = errors.New("malformed state payload")

// LoadJSON decodes the payload at key into dst. It returns ErrNotFound for
// missing keys and an error wrapping ErrMalformed for undecodable payloads.
func LoadJSON(ctx context.Context, store Store, key string, dst any) error {
	payload, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}
