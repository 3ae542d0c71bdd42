package geocode

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeCSV(t, "Main St 1,55.75,37.62\n")
	ix := NewIndex(path)
	require.Equal(t, 1, ix.Len())

	w, err := NewWatcher(ix, 50*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("Main St 1,55.75,37.62\nOther 2,1,2\n"), 0o644))

	assert.Eventually(t, func() bool {
		return w.Reloads() > 0 && ix.Len() == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeCSV(t, "Main St 1,55.75,37.62\n")
	ix := NewIndex(path)

	w, err := NewWatcher(ix, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path+".bak", []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, w.Reloads())

	w.Stop()
}

func TestNewWatcher_RequiresFile(t *testing.T) {
	_, err := NewWatcher(FromRecords(nil), 0, nil)
	assert.Error(t, err)
}
