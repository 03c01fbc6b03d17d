package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		code string
	}{
		{KindValidation, "VALIDATION_ERROR"},
		{KindUnauthenticated, "UNAUTHORIZED"},
		{KindForbidden, "FORBIDDEN"},
		{KindNotFound, "NOT_FOUND"},
		{KindInvariant, "INVARIANT_VIOLATION"},
		{Kind("other"), "SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.code, tc.kind.Code())
		})
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	base := NotFound("board")
	wrapped := fmt.Errorf("load board 7: %w", base)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsKind(wrapped, KindForbidden))
	assert.False(t, IsNotFound(errors.New("plain")))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "board not found", appErr.Message)
	assert.Equal(t, "NOT_FOUND: board not found", appErr.Error())
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := Validation("title is required")
	detailed := base.WithDetails(map[string]string{"field": "title"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"field": "title"}, detailed.Details)
	assert.Equal(t, KindValidation, detailed.Kind)
}
