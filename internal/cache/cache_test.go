package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndGet(t *testing.T) {
	c, err := New(t.TempDir(), 30)
	require.NoError(t, err)

	require.NoError(t, c.Store("counties/34017", []byte("<html>data</html>")))

	got := c.Get("counties/34017")
	assert.Equal(t, []byte("<html>data</html>"), got)
}

func TestGetMissingKey(t *testing.T) {
	c, err := New(t.TempDir(), 30)
	require.NoError(t, err)

	assert.Nil(t, c.Get("never-stored"))
}

func TestStoreOverwrites(t *testing.T) {
	c, err := New(t.TempDir(), 30)
	require.NoError(t, err)

	require.NoError(t, c.Store("key", []byte("first")))
	require.NoError(t, c.Store("key", []byte("second")))

	assert.Equal(t, []byte("second"), c.Get("key"))
}

func TestGetExpiredEntryDeletesFile(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 1)
	require.NoError(t, err)

	// Write an entry with a timestamp older than the TTL.
	data, err := json.Marshal(entry{
		Key:       "old",
		Timestamp: time.Now().Add(-48 * time.Hour),
		Content:   []byte("stale"),
	})
	require.NoError(t, err)
	path := c.path("old")
	require.NoError(t, os.WriteFile(path, data, 0644))

	assert.Nil(t, c.Get("old"))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "expired entry should be deleted")
}

func TestGetCorruptEntryDeletesFile(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 30)
	require.NoError(t, err)

	path := c.path("bad")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	assert.Nil(t, c.Get("bad"))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupt entry should be deleted")
}

func TestClearExpired(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 1)
	require.NoError(t, err)

	require.NoError(t, c.Store("fresh", []byte("keep")))

	stale, err := json.Marshal(entry{
		Key:       "stale",
		Timestamp: time.Now().Add(-72 * time.Hour),
		Content:   []byte("drop"),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path("stale"), stale, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{"), 0644))

	count := c.ClearExpired()
	assert.Equal(t, 2, count)
	assert.NotNil(t, c.Get("fresh"))
}

func TestClearAll(t *testing.T) {
	c, err := New(t.TempDir(), 30)
	require.NoError(t, err)

	require.NoError(t, c.Store("a", []byte("1")))
	require.NoError(t, c.Store("b", []byte("2")))

	assert.Equal(t, 2, c.ClearAll())
	assert.Nil(t, c.Get("a"))
	assert.Nil(t, c.Get("b"))
}

func TestHashKeyIsStable(t *testing.T) {
	assert.Equal(t, hashKey("counties/34017"), hashKey("counties/34017"))
	assert.NotEqual(t, hashKey("counties/34017"), hashKey("counties/34013"))
	assert.Len(t, hashKey("anything"), 32)
}
