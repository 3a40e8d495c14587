package api

import (
	"context"
	"encoding/json"
	"fmt"
)

type ctxKey string

const idempotencyKeyCtx ctxKey = "idempotency_key"

// WithIdempotencyKey pins the Idempotency-Key sent by CreateOrder.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx).(string)
	return key
}

func decodeInto(op string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(op, KindServerError, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}
	return nil
}
