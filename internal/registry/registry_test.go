package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookupCaseInsensitive(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Register("Epoll", "epoll-factory"))

	f, err := r.Lookup("EPOLL")
	require.NoError(t, err)
	assert.Equal(t, "epoll-factory", f)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Register("epoll", 1))
	err := r.Register("EPOLL", 2)
	assert.IsType(t, ErrExists{}, err)
}

func TestRegisterFullTableFails(t *testing.T) {
	r := New(2)
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	err := r.Register("c", 3)
	assert.IsType(t, ErrFull{}, err)
}

func TestLookupBumpsRefCount(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Register("iouring", 1))

	_, err := r.Lookup("iouring")
	require.NoError(t, err)

	count, ok := r.RefCount("iouring")
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestDeregisterReleasesSlotAtZero(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Register("tls", 1))

	require.NoError(t, r.Deregister("tls"))
	_, err := r.Lookup("tls")
	assert.IsType(t, ErrNotFound{}, err)
}

func TestDeregisterUnknownFails(t *testing.T) {
	r := New(4)
	err := r.Deregister("missing")
	assert.IsType(t, ErrNotFound{}, err)
}

func TestListNames(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	assert.ElementsMatch(t, []string{"a", "b"}, r.ListNames())
}
