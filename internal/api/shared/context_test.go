package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	first := GetTraceID(SetTraceID(ctx))
	second := GetTraceID(SetTraceID(ctx))
	assert.Len(t, first, TraceIDLength*2)
	assert.NotEqual(t, first, second)

	assert.Equal(t, "client-trace-42", GetTraceID(WithTraceID(ctx, "client-trace-42")))

	injected := GetTraceID(WithTraceID(ctx, "bad\nvalue"))
	assert.Len(t, injected, TraceIDLength*2)

	assert.Len(t, generateFallbackTraceID(), TraceIDLength*2)
}
