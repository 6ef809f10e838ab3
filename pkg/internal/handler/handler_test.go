package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Message string `json:"message"`
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(nil)
	assert.Error(t, err)

	var typedNil func(context.Context, payload) error
	_, err = NewHandler(typedNil)
	assert.Error(t, err)

	_, err = NewHandler("not a function")
	assert.Error(t, err)

	_, err = NewHandler(func(ctx context.Context, p payload) {})
	assert.Error(t, err, "missing error return")

	_, err = NewHandler(func(a, b, c int) error { return nil })
	assert.Error(t, err, "too many arguments")
}

func TestExecute_DecodesPayload(t *testing.T) {
	var got payload
	h, err := NewHandler(func(ctx context.Context, p payload) error {
		got = p
		return nil
	})
	require.NoError(t, err)
	assert.True(t, h.HasContext)

	require.NoError(t, h.Execute(context.Background(), []byte(`{"message":"hello"}`)))
	assert.Equal(t, "hello", got.Message)
}

func TestExecute_NoPayloadArg(t *testing.T) {
	called := false
	h, err := NewHandler(func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, h.PayloadType)

	require.NoError(t, h.Execute(context.Background(), nil))
	assert.True(t, called)
}

func TestExecute_NoContextArg(t *testing.T) {
	var got payload
	h, err := NewHandler(func(p payload) error {
		got = p
		return nil
	})
	require.NoError(t, err)
	assert.False(t, h.HasContext)

	require.NoError(t, h.Execute(context.Background(), []byte(`{"message":"hi"}`)))
	assert.Equal(t, "hi", got.Message)
}

func TestExecute_EmptyPayloadYieldsZeroValue(t *testing.T) {
	var got payload
	h, err := NewHandler(func(ctx context.Context, p payload) error {
		got = p
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.Execute(context.Background(), nil))
	assert.Empty(t, got.Message)
}

func TestExecute_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	h, err := NewHandler(func(ctx context.Context, p payload) error {
		return boom
	})
	require.NoError(t, err)

	assert.ErrorIs(t, h.Execute(context.Background(), []byte(`{}`)), boom)
}

func TestExecute_MalformedPayload(t *testing.T) {
	h, err := NewHandler(func(ctx context.Context, p payload) error { return nil })
	require.NoError(t, err)

	assert.Error(t, h.Execute(context.Background(), []byte(`{not json`)))
}
