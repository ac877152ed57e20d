package common

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinels_MatchTheirKind(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrGameNotRegistered, ErrNotFound},
		{ErrSpecNotFound, ErrNotFound},
		{ErrEntryNotFound, ErrNotFound},
		{ErrIndexOutOfRange, ErrNotFound},
		{ErrBlobNotFound, ErrNotFound},
		{ErrDuplicateGame, ErrDuplicate},
		{ErrDuplicateEntryID, ErrDuplicate},
		{ErrAmbiguousBlob, ErrConsistency},
		{ErrDuplicateBlobName, ErrConsistency},
		{ErrAmbiguousIndex, ErrConsistency},
		{ErrBlobReferenced, ErrConsistency},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestStoreError(t *testing.T) {
	err := NewStoreError("download", "abc", io.ErrUnexpectedEOF)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "download abc")

	again := NewStoreError("upload", "x", err)
	assert.Same(t, err, again, "an existing StoreError must not be double wrapped")

	assert.NoError(t, NewStoreError("delete", "x", nil))
}

func TestParseError(t *testing.T) {
	err := fmt.Errorf("load: %w", &ParseError{Source: "index", Line: 3, Msg: "bad token"})

	assert.ErrorIs(t, err, ErrParse)
	assert.False(t, errors.Is(err, ErrStore))
	assert.Contains(t, err.Error(), "index:3: bad token")
}

func TestConsistencyError(t *testing.T) {
	err := &ConsistencyError{Name: "a.zip", Count: 2, Err: ErrAmbiguousBlob}

	assert.ErrorIs(t, err, ErrAmbiguousBlob)
	assert.ErrorIs(t, err, ErrConsistency)

	var ce *ConsistencyError
	require.ErrorAs(t, fmt.Errorf("wrap: %w", err), &ce)
	assert.Equal(t, 2, ce.Count)
}
