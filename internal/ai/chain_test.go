package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCompleter struct {
	enabled bool
	text    string
	err     error
	calls   int
}

func (f *fixedCompleter) Enabled() bool { return f.enabled }

func (f *fixedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainEnabled(t *testing.T) {
	assert.False(t, WithFallback(nil, nil).Enabled())
	assert.False(t, WithFallback(&fixedCompleter{}, nil).Enabled())
	assert.True(t, WithFallback(&fixedCompleter{enabled: true}, nil).Enabled())
	assert.True(t, WithFallback(nil, &fixedCompleter{enabled: true}).Enabled())
}

func TestChainPrimarySucceeds(t *testing.T) {
	primary := &fixedCompleter{enabled: true, text: `{"ok":true}`}
	fallback := &fixedCompleter{enabled: true, text: `{"fallback":true}`}

	text, err := WithFallback(primary, fallback).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestChainFallsBackOnError(t *testing.T) {
	primary := &fixedCompleter{enabled: true, err: errors.New("rate limited")}
	fallback := &fixedCompleter{enabled: true, text: `{"fallback":true}`}

	text, err := WithFallback(primary, fallback).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"fallback":true}`, text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChainFallsBackOnBlankOutput(t *testing.T) {
	primary := &fixedCompleter{enabled: true, text: "  "}
	fallback := &fixedCompleter{enabled: true, text: `{"fallback":true}`}

	text, err := WithFallback(primary, fallback).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"fallback":true}`, text)
}

func TestChainReturnsPrimaryErrorWithoutFallback(t *testing.T) {
	primary := &fixedCompleter{enabled: true, err: errors.New("rate limited")}

	_, err := WithFallback(primary, nil).Complete(context.Background(), "sys", "user")
	require.EqualError(t, err, "rate limited")
}

func TestChainRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fixedCompleter{enabled: true, err: ctx.Err()}
	fallback := &fixedCompleter{enabled: true, text: `{"fallback":true}`}

	_, err := WithFallback(primary, fallback).Complete(ctx, "sys", "user")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.calls)
}

func TestChainDisabledEverywhere(t *testing.T) {
	_, err := WithFallback(&fixedCompleter{}, &fixedCompleter{}).Complete(context.Background(), "sys", "user")
	require.ErrorIs(t, err, ErrDisabled)
}
