package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeFromError(t *testing.T) {
	req := require.New(t)

	req.Equal(CodeUnauthenticated, CodeFromError(ErrUnauthenticated))
	req.Equal(CodeInvalidPayload, CodeFromError(ErrInvalidPayload))
	req.Equal(CodeForbidden, CodeFromError(ErrForbidden))
	req.Equal(CodeNotFound, CodeFromError(ErrNotFound))
	req.Equal(CodeStoreUnavailable, CodeFromError(ErrStoreUnavailable))

	// wrapped errors keep their code
	wrapped := fmt.Errorf("%w: insert message: connection reset", ErrStoreUnavailable)
	req.Equal(CodeStoreUnavailable, CodeFromError(wrapped))

	// anything unknown collapses to internal
	req.Equal(CodeInternal, CodeFromError(fmt.Errorf("driver detail")))
}

func TestHTTPStatusFromError(t *testing.T) {
	req := require.New(t)

	req.Equal(http.StatusNotFound, HTTPStatusFromError(ErrNotFound))
	req.Equal(http.StatusUnauthorized, HTTPStatusFromError(ErrUnauthenticated))
	req.Equal(http.StatusForbidden, HTTPStatusFromError(ErrForbidden))
	req.Equal(http.StatusBadRequest, HTTPStatusFromError(ErrInvalidPayload))
	req.Equal(http.StatusBadRequest, HTTPStatusFromError(ErrBadRequest))
	req.Equal(http.StatusInternalServerError, HTTPStatusFromError(ErrStoreUnavailable))
}
