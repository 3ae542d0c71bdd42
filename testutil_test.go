package xlmap

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// newBook creates a workbook whose sheets carry the given names, in order.
func newBook(t *testing.T, sheets ...string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	if len(sheets) == 0 {
		return f
	}
	require.NoError(t, f.SetSheetName("Sheet1", sheets[0]))
	for _, name := range sheets[1:] {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	return f
}

// setColumn writes values down a column starting at the given row.
func setColumn(t *testing.T, f *excelize.File, sheet, col string, fromRow int, values ...any) {
	t.Helper()
	c, err := NameToCol(col)
	require.NoError(t, err)
	for i, v := range values {
		require.NoError(t, f.SetCellValue(sheet, NewCellRef(sheet, fromRow+i, c).CellName(), v))
	}
}

func bookBytes(t *testing.T, f *excelize.File) []byte {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func openResult(t *testing.T, data []byte) *Workbook {
	t.Helper()
	wb, err := OpenWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

// cellAt reads a typed value by cell name.
func cellAt(t *testing.T, wb *Workbook, sheet, cell string) any {
	t.Helper()
	ref, err := ParseCellRef(cell)
	require.NoError(t, err)
	v, err := wb.Value(sheet, ref)
	require.NoError(t, err)
	return v
}

// recorder collects status events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Report(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) last() Event {
	evs := r.all()
	if len(evs) == 0 {
		return Event{}
	}
	return evs[len(evs)-1]
}

// memStore is a TaskStore keeping the last state of every task.
type memStore struct {
	mu       sync.Mutex
	owners   map[string]string
	statuses []string
	outcomes map[string]Outcome
	pruned   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		owners:   map[string]string{},
		outcomes: map[string]Outcome{},
		pruned:   map[string]bool{},
	}
}

func (s *memStore) Owner(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[id]
}

func (s *memStore) SetStatus(_, status string, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *memStore) Finish(id string, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[id] = out
}

func (s *memStore) Prune(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned[id] = true
}

// logLine is one task log record.
type logLine struct {
	taskID, owner, status, template string
}

type memLog struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *memLog) Record(taskID, ownerID, status, templateName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{taskID, ownerID, status, templateName})
	return nil
}

// stubGeocoder answers from fixed tables.
type stubGeocoder struct {
	coords  map[string][2]string
	nearest string
}

func (g stubGeocoder) Coords(address string) (string, string, bool) {
	c, ok := g.coords[address]
	return c[0], c[1], ok
}

func (g stubGeocoder) Address(lat, lon float64) (string, bool) {
	return g.nearest, g.nearest != ""
}
