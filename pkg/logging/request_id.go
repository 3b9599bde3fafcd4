package logging

import (
	"context"
	"unicode"

	"github.com/google/uuid"
)

const maxRequestIDLength = 64

func GetRequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(reqKey).(string)
	return id
}

func MakeContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, reqKey, requestID)
}

func MakeContextWithNewRequestID(ctx context.Context) context.Context {
	return MakeContextWithRequestID(ctx, uuid.NewString())
}

// ValidRequestID reports whether a client-supplied id is safe to log.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
