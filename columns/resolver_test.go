package columns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var geoWanted = map[string]string{"lat": "Широта", "lon": "Долгота", "addr": "Адрес"}

func TestFindColumns_PlainLabels(t *testing.T) {
	r := NewResolver(nil)
	got := r.FindColumns([]string{"№", " адрес ", "ШИРОТА", "Долгота"}, geoWanted)
	assert.Equal(t, map[string]int{"addr": 2, "lat": 3, "lon": 4}, got)
}

func TestFindColumns_Missing(t *testing.T) {
	r := NewResolver(nil)
	got := r.FindColumns([]string{"Адрес", "Широта"}, geoWanted)
	assert.Equal(t, map[string]int{"addr": 1, "lat": 2}, got)
}

func TestFindColumns_Synonyms(t *testing.T) {
	dict := FromEntries(map[string][]string{
		"Широта":  {"lat", "Latitude"},
		"Долгота": {"lon", "lng"},
		"Адрес":   {"Адрес объекта"},
	})
	r := NewResolver(dict)
	got := r.FindColumns([]string{"Адрес объекта", "Latitude", "LNG"}, geoWanted)
	assert.Equal(t, map[string]int{"addr": 1, "lat": 2, "lon": 3}, got)
}

func TestFindColumns_FirstMatchWins(t *testing.T) {
	r := NewResolver(nil)
	got := r.FindColumns([]string{"Адрес", "адрес"}, map[string]string{"addr": "Адрес"})
	assert.Equal(t, 1, got["addr"])
}

func TestDictionary_LoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Широта": ["lat"]}`), 0o644))

	d := LoadDictionary(path, nil)
	assert.Equal(t, "Широта", d.Canonical("LAT"))
	assert.Equal(t, "Широта", d.Canonical("широта"))
	assert.Equal(t, "", d.Canonical("lon"))

	require.NoError(t, d.Add("Долгота", []string{" lon ", "", "lng"}))
	assert.Equal(t, []string{"lon", "lng"}, d.Synonyms("Долгота"))

	reloaded := LoadDictionary(path, nil)
	assert.Equal(t, []string{"Долгота", "Широта"}, reloaded.Names())
	assert.Equal(t, "Долгота", reloaded.Canonical("LNG"))

	require.NoError(t, reloaded.Delete("Широта"))
	assert.Equal(t, []string{"Долгота"}, LoadDictionary(path, nil).Names())
}

func TestDictionary_MissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, LoadDictionary(filepath.Join(dir, "none.json"), nil).Names())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Empty(t, LoadDictionary(bad, nil).Names())
}

func TestDictionary_AddRejectsEmptyName(t *testing.T) {
	assert.Error(t, FromEntries(nil).Add("  ", nil))
}
