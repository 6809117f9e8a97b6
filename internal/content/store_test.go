package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	s := NewStore()
	s.Put("/index.html", []byte("hello"))

	f, ok := s.Get("/index.html")
	require.True(t, ok)
	require.Equal(t, "hello", string(f.Data))
	require.Equal(t, 1, s.Len())

	s.Delete("/index.html")
	_, ok = s.Get("/index.html")
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestStoreGetMissing(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("/missing.html")
	require.False(t, ok)
}

func TestPutCopiesData(t *testing.T) {
	s := NewStore()
	data := []byte("original")
	s.Put("/a", data)
	data[0] = 'X'

	f, _ := s.Get("/a")
	require.Equal(t, "original", string(f.Data))
}
