package tasklog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openMemory(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	require.NoError(t, s.Record("t1", "u1", "Готово!", "report.xlsx"))
	require.NoError(t, s.Record("t2", "u2", "Ошибка: load source: bad zip", "macro.xlsm"))
	require.NoError(t, s.Record("t3", "u1", "Готово!", "report.xlsx"))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].TaskID)
	assert.Equal(t, "t1", all[2].TaskID)
	assert.Equal(t, base.Add(3*time.Second).UnixMilli(), all[0].CreatedAt)
	assert.True(t, all[0].Created().Equal(base.Add(3*time.Second)))

	top, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Ошибка: load source: bad zip", top[1].Status)
	assert.Equal(t, "macro.xlsm", top[1].TemplateName)
	assert.Equal(t, "u2", top[1].OwnerID)
}

func TestForTask(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Record("t1", "u1", "Готово!", "a.xlsx"))
	require.NoError(t, s.Record("t2", "u1", "Готово!", "b.xlsx"))

	entries, err := s.ForTask("t2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.xlsx", entries[0].TemplateName)

	entries, err = s.ForTask("missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record("t1", "", "Готово!", ""))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.List(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
