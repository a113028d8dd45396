package globalcontext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-module-gateway/gateway/globalcontext"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected globalcontext.Mode
		wantErr  bool
	}{
		{input: "", expected: globalcontext.ModeRequest},
		{input: "request", expected: globalcontext.ModeRequest},
		{input: " GLOBAL ", expected: globalcontext.ModeGlobal},
		{input: "thread", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := globalcontext.ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSlotFor(t *testing.T) {
	assert.Same(t, globalcontext.Global(), globalcontext.SlotFor(globalcontext.ModeGlobal))
	assert.Equal(t, globalcontext.RequestSlot{}, globalcontext.SlotFor(globalcontext.ModeRequest))
	assert.Equal(t, globalcontext.RequestSlot{}, globalcontext.SlotFor(""))
}

func TestRequestSlot(t *testing.T) {
	slot := globalcontext.RequestSlot{}

	t.Run("fresh_scope_is_empty", func(t *testing.T) {
		ctx := globalcontext.WithRequestScope(context.Background())
		v, ok := slot.Load(ctx)
		assert.True(t, ok)
		assert.Empty(t, v)
		assert.True(t, globalcontext.HasRequestScope(ctx))
	})

	t.Run("publish_without_scope_is_noop", func(t *testing.T) {
		assert.False(t, slot.Publish(context.Background(), globalcontext.Values{"a": 1}))
		_, ok := slot.Load(context.Background())
		assert.False(t, ok)
	})

	t.Run("scopes_are_independent", func(t *testing.T) {
		a := globalcontext.WithRequestScope(context.Background())
		b := globalcontext.WithRequestScope(context.Background())

		require.True(t, slot.Publish(a, globalcontext.Values{"who": "a"}))
		require.True(t, slot.Publish(b, globalcontext.Values{"who": "b"}))

		va, _ := slot.Load(a)
		vb, _ := slot.Load(b)
		assert.Equal(t, "a", va["who"])
		assert.Equal(t, "b", vb["who"])
	})

	t.Run("derived_contexts_share_the_scope", func(t *testing.T) {
		ctx := globalcontext.WithRequestScope(context.Background())
		child, cancel := context.WithCancel(ctx)
		defer cancel()

		slot.Publish(child, globalcontext.Values{"x": 1})
		v, _ := slot.Load(ctx)
		assert.Equal(t, 1, v["x"])
	})
}

func TestWithScope(t *testing.T) {
	g := globalcontext.Global()
	g.Reset()
	t.Cleanup(g.Reset)
	g.Publish(context.Background(), globalcontext.Values{"from": "global"})

	tests := []struct {
		name         string
		mode         globalcontext.Mode
		requestScope bool
		expected     globalcontext.Values
	}{
		{name: "request", mode: globalcontext.ModeRequest, requestScope: true, expected: globalcontext.Values{}},
		{name: "default_is_request", requestScope: true, expected: globalcontext.Values{}},
		{name: "global_reads_through", mode: globalcontext.ModeGlobal, expected: globalcontext.Values{"from": "global"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := globalcontext.WithScope(context.Background(), tt.mode)
			assert.Equal(t, tt.requestScope, globalcontext.HasRequestScope(ctx))
			assert.Equal(t, tt.expected, globalcontext.Current(ctx))
			assert.Equal(t, tt.requestScope, globalcontext.RequestSlot{}.Publish(ctx, globalcontext.Values{"x": 1}))
		})
	}
}

func TestGlobalSlot_LastWriterWins(t *testing.T) {
	g := globalcontext.Global()
	g.Reset()
	t.Cleanup(g.Reset)

	g.Publish(context.Background(), globalcontext.Values{"n": 1})
	g.Publish(context.Background(), globalcontext.Values{"n": 2})

	v, ok := g.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, v["n"])
}

func TestValuesAndLookup(t *testing.T) {
	globalcontext.Global().Reset()

	ctx := globalcontext.WithRequestScope(context.Background())
	globalcontext.RequestSlot{}.Publish(ctx, globalcontext.Values{"fromSlot": "slot", "shared": "slot"})
	ctx = globalcontext.WithValues(ctx, globalcontext.Values{"shared": "explicit"})

	v, ok := globalcontext.ValuesFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "explicit", v["shared"])

	got, found := globalcontext.Lookup(ctx, "shared")
	assert.True(t, found)
	assert.Equal(t, "explicit", got)

	got, found = globalcontext.Lookup(ctx, "fromSlot")
	assert.True(t, found)
	assert.Equal(t, "slot", got)

	_, found = globalcontext.Lookup(ctx, "missing")
	assert.False(t, found)

	_, ok = globalcontext.ValuesFrom(context.Background())
	assert.False(t, ok)
}
