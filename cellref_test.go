package xlmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCellRef(t *testing.T) {
	tests := []struct {
		in   string
		want CellRef
	}{
		{"A1", CellRef{Row: 1, Col: 1}},
		{"b5", CellRef{Row: 5, Col: 2}},
		{"$AA$10", CellRef{Row: 10, Col: 27}},
		{"Лист1!C3", CellRef{Sheet: "Лист1", Row: 3, Col: 3}},
		{"'My Sheet'!XFD2", CellRef{Sheet: "My Sheet", Row: 2, Col: 16384}},
	}
	for _, tt := range tests {
		got, err := ParseCellRef(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCellRef_Invalid(t *testing.T) {
	for _, in := range []string{"", "1A", "A", "A0", "A-1", "ABCD1", "A1B"} {
		_, err := ParseCellRef(in)
		assert.ErrorIs(t, err, ErrInvalidCellRef, in)
	}
}

func TestCellRef_String(t *testing.T) {
	assert.Equal(t, "B4", NewCellRef("", 4, 2).String())
	assert.Equal(t, "Data!AB12", NewCellRef("Data", 12, 28).String())
}

func TestColumnNames(t *testing.T) {
	for col, name := range map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA", 16384: "XFD"} {
		assert.Equal(t, name, ColToName(col))
		got, err := NameToCol(name)
		require.NoError(t, err)
		assert.Equal(t, col, got)
	}
	got, err := NameToCol(" ab ")
	require.NoError(t, err)
	assert.Equal(t, 28, got)

	for _, bad := range []string{"", "A1", "ABCD", "Я"} {
		_, err := NameToCol(bad)
		assert.ErrorIs(t, err, ErrInvalidColumn, bad)
	}
}

func TestColumnOfRowOf(t *testing.T) {
	assert.Equal(t, "B", ColumnOf("b12"))
	assert.Equal(t, "AC", ColumnOf("$AC$3"))
	assert.Equal(t, "D", ColumnOf("D"))
	assert.Equal(t, "", ColumnOf("12"))

	assert.Equal(t, 12, RowOf("B12"))
	assert.Equal(t, 3, RowOf("$A$3"))
	assert.Equal(t, 0, RowOf("C"))
}
