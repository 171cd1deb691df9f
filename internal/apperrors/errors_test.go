package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := apperrors.Newf(apperrors.CodeSessionFull, "session %q already has two participants", "b1")
	assert.True(t, errors.Is(err, apperrors.ErrSessionFull))
	assert.False(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestError_CatalogLookupIsInvalidAction(t *testing.T) {
	err := apperrors.Wrap(apperrors.CodeCatalogLookupFailed, "move missing", errors.New("not found"))
	assert.True(t, errors.Is(err, apperrors.ErrCatalogLookupFailed))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidAction))
	assert.False(t, errors.Is(apperrors.ErrInvalidAction, apperrors.ErrCatalogLookupFailed))
}

func TestError_UnwrapAndCodeOf(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("submitting: %w", apperrors.Wrap(apperrors.CodeEngineInvariant, "missing pending action", cause))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, apperrors.CodeEngineInvariant, apperrors.CodeOf(err))
	assert.Equal(t, "missing pending action", apperrors.MessageOf(err))
	assert.Equal(t, apperrors.CodeUnknown, apperrors.CodeOf(cause))
}

func TestError_GRPCStatus(t *testing.T) {
	err := apperrors.New(apperrors.CodeNotParticipant, "not seated")
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, "not seated", st.Message())
}

func TestError_WithMetadataCopies(t *testing.T) {
	base := apperrors.New(apperrors.CodeInvalidAction, "bad slot")
	withSlot := base.WithMetadata("slot", "7")
	assert.Nil(t, base.Metadata)
	assert.Equal(t, "7", withSlot.Metadata["slot"])
}
