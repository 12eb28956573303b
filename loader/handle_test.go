package loader

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_LookupAndRelease(t *testing.T) {
	var (
		mu     sync.Mutex
		closed []string
	)
	m := &fakeModule{
		name:    "/p",
		symbols: map[string]any{"Create": func(string) {}},
		closed:  &closed,
		mu:      &mu,
	}
	h := NewHandle("/p", m)
	assert.NotEqual(t, [16]byte{}, [16]byte(h.ID))
	assert.False(t, h.LoadedAt.IsZero())

	sym, ok := h.Lookup("Create")
	assert.True(t, ok)
	assert.NotNil(t, sym)

	_, ok = h.Lookup("Missing")
	assert.False(t, ok)

	released, err := h.release()
	require.NoError(t, err)
	assert.True(t, released)

	released, err = h.release()
	require.NoError(t, err)
	assert.False(t, released, "second release is a no-op")
	assert.Equal(t, []string{"/p"}, closed)

	_, ok = h.Lookup("Create")
	assert.False(t, ok)
}

func TestHandle_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewHandle("/plugins/auth.so", &fakeModule{})

	logger.Info("loaded", "handle", h)

	out := buf.String()
	assert.Contains(t, out, "handle.path=/plugins/auth.so")
	assert.Contains(t, out, "handle.id="+h.ID.String())
}

func TestGoPluginOpener_MissingFile(t *testing.T) {
	_, err := GoPluginOpener{}.Open("/no/such/module.so")
	assert.Error(t, err)
}
