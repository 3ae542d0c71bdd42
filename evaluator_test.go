package xlmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSheet is a SheetReader over a map of cell name to value.
type mapSheet map[string]any

func (m mapSheet) Value(ref CellRef) (any, error) {
	return m[ref.CellName()], nil
}

func TestEvaluate_RowPlaceholder(t *testing.T) {
	ev := Evaluate("=A{row}*2", 5, mapSheet{"A5": 10.0})
	assert.Equal(t, 20.0, ev.Value)
	assert.Empty(t, ev.Warning)
}

func TestEvaluate_NonNumericOperand(t *testing.T) {
	ev := Evaluate("=A{row}*2", 5, mapSheet{"A5": "x"})
	assert.Equal(t, "#VALUE! (ссылка: A5)", ev.Value)
	assert.Equal(t, "Ошибка в формуле (ячейка A5): Не удалось получить число (значение: 'x')", ev.Warning)
}

func TestEvaluate_NotFiniteText(t *testing.T) {
	for _, text := range []string{"NaN", "Inf", "-Infinity"} {
		ev := Evaluate("=A{row}+1", 1, mapSheet{"A1": text})
		assert.Equal(t, "#VALUE! (ссылка: A1)", ev.Value, text)
	}
	_, ok := toNumber("nan")
	assert.False(t, ok)
}

func TestEvaluate_MissingCell(t *testing.T) {
	ev := Evaluate("=B{row}+1", 3, mapSheet{})
	assert.Equal(t, "#VALUE! (ссылка: B3)", ev.Value)
	assert.Contains(t, ev.Warning, "B3")
}

func TestEvaluate_StopsAtFirstBadReference(t *testing.T) {
	ev := Evaluate("=A{row}+B{row}+C{row}", 2, mapSheet{"A2": 1.0, "B2": "bad", "C2": "worse"})
	assert.Equal(t, "#VALUE! (ссылка: B2)", ev.Value)
	assert.NotContains(t, ev.Warning, "C2")
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	ev := Evaluate("=A{row}/B{row}", 4, mapSheet{"A4": 1.0, "B4": 0.0})
	assert.Equal(t, SentinelNum, ev.Value)
	assert.Equal(t, "Ошибка вычисления (A{row}/B{row}): division by zero", ev.Warning)
}

func TestEvaluate_PassThrough(t *testing.T) {
	ev := Evaluate("plain text", 1, mapSheet{})
	assert.Equal(t, "plain text", ev.Value)
	assert.Empty(t, ev.Warning)

	ev = Evaluate("", 1, mapSheet{})
	assert.Equal(t, "", ev.Value)
}

func TestEvaluate_References(t *testing.T) {
	sheet := mapSheet{"A7": 3.0, "B7": "4", "C1": 100.0, "AB7": true}
	tests := []struct {
		formula string
		want    float64
	}{
		{"=a{row}+A{row}", 6},
		{"=(A{row} + B{row}) * 2", 14},
		{"=C1 - A{row}", 97},
		{"=AB{row} + 1", 2},
		{"=-A{row}", -3},
		{"=B{row}/A{row}*3", 4},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			ev := Evaluate(tt.formula, 7, sheet)
			require.Empty(t, ev.Warning)
			assert.InDelta(t, tt.want, ev.Value, 1e-9)
		})
	}
}

func TestEvaluate_NegativeOperand(t *testing.T) {
	ev := Evaluate("=10-A{row}", 1, mapSheet{"A1": -2.5})
	assert.Equal(t, 12.5, ev.Value)
}

func TestEvaluate_SyntaxError(t *testing.T) {
	ev := Evaluate("=A{row}*", 1, mapSheet{"A1": 1.0})
	assert.Equal(t, SentinelNum, ev.Value)
	assert.NotEmpty(t, ev.Warning)
}

type panicSheet struct{}

func (panicSheet) Value(CellRef) (any, error) { panic("boom") }

func TestEvaluate_Panic(t *testing.T) {
	ev := Evaluate("=A{row}", 1, panicSheet{})
	assert.Equal(t, SentinelError, ev.Value)
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10/4", 2.5},
		{"-(2+3)", -5},
		{"--4", 4},
		{"1.5e2 + .5", 150.5},
		{" 7 ", 7},
		{"2*-3", -6},
	}
	for _, tt := range tests {
		got, err := EvalArithmetic(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestEvalArithmetic_Errors(t *testing.T) {
	_, err := EvalArithmetic("1/0")
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = EvalArithmetic("1e400")
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = EvalArithmetic("1e308*10")
	assert.ErrorIs(t, err, ErrNotFinite)

	for _, in := range []string{"", "2+", "(1+2", "1 2", "abs(1)", "__import__", "2**3", "1..2"} {
		_, err := EvalArithmetic(in)
		assert.ErrorIs(t, err, ErrSyntax, in)
	}
}
