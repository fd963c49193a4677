package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mycelica/folio/internal/apperr"
)

type partialErr struct{ done []string }

func (p partialErr) Error() string             { return "partial" }
func (p partialErr) Category() apperr.Category { return apperr.CategoryPartial }
func (p partialErr) Details() any              { return p.done }

func TestWrap_Success(t *testing.T) {
	r := Wrap("hello", nil)
	require.True(t, r.OK())
	assert.Equal(t, "hello", *r.Data)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":"hello","error":null}`, string(raw))
}

func TestWrap_Error(t *testing.T) {
	sentinel := apperr.New(apperr.CategoryCycle, "circular reference")
	r := Wrap(42, fmt.Errorf("moving page: %w", sentinel))
	require.False(t, r.OK())
	assert.Nil(t, r.Data)
	assert.Equal(t, apperr.CategoryCycle, r.Error.Category)
	assert.Equal(t, "moving page: circular reference", r.Error.Message)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":null,"error":{"category":"circular_reference","message":"moving page: circular reference"}}`, string(raw))
}

func TestFail_Details(t *testing.T) {
	r := Fail[string](fmt.Errorf("dup: %w", partialErr{done: []string{"a", "b"}}))
	assert.Equal(t, apperr.CategoryPartial, r.Error.Category)
	assert.Equal(t, []string{"a", "b"}, r.Error.Details)
}

func TestFail_PlainError(t *testing.T) {
	r := Fail[int](errors.New("boom"))
	assert.Equal(t, apperr.CategoryInternal, r.Error.Category)
	assert.Nil(t, r.Error.Details)
}
