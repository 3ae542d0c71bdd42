// Package geocode resolves free-text addresses to coordinates and back,
// using a local address database loaded once per process.
package geocode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultThreshold is the minimum fuzzy score accepted for a match.
const DefaultThreshold = 85

// State describes what the index currently holds.
type State int

const (
	StateUnloaded State = iota // nothing read yet
	StateLoaded                // database loaded, possibly with zero records
	StateMissing               // database file does not exist
	StateFailed                // database could not be read
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateMissing:
		return "missing"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Record is one address database entry.
type Record struct {
	Address string
	Lat     string
	Lon     string
}

type coords struct {
	lat, lon string
}

// snapshot is an immutable view of the database. Readers use it without
// locking; a reload swaps in a new one.
type snapshot struct {
	state     State
	coords    map[string]coords // normalized address -> coordinates
	keys      []string          // normalized addresses in load order
	addresses []string          // original addresses, by point index
	tree      *kdtree.Tree
}

func (s *snapshot) empty() bool {
	return s == nil || len(s.keys) == 0
}

// Index is the address index shared by every task of the process. The first
// lookup loads the database; concurrent lookups during the load wait for it.
// After that, lookups take no lock.
type Index struct {
	path      string
	threshold int
	log       *zap.Logger

	mu   sync.Mutex // serializes loads
	snap atomic.Pointer[snapshot]
}

// Option configures an Index.
type Option func(*Index)

// WithThreshold sets the minimum fuzzy score, 0..100 (default 85).
func WithThreshold(n int) Option {
	return func(ix *Index) {
		if n >= 0 && n <= 100 {
			ix.threshold = n
		}
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// NewIndex creates an index over the CSV file at path. Nothing is read until
// the first lookup. Each CSV line holds address, latitude, longitude; other
// lines are skipped.
func NewIndex(path string, opts ...Option) *Index {
	ix := &Index{path: path, threshold: DefaultThreshold, log: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// FromRecords creates an index already loaded with the given records.
func FromRecords(records []Record, opts ...Option) *Index {
	ix := NewIndex("", opts...)
	ix.snap.Store(build(records))
	return ix
}

// State reports the load state without triggering a load.
func (ix *Index) State() State {
	if s := ix.snap.Load(); s != nil {
		return s.state
	}
	return StateUnloaded
}

// Len returns the number of indexed addresses, loading the database if needed.
func (ix *Index) Len() int {
	return len(ix.load().keys)
}

// Path returns the database file the index reads.
func (ix *Index) Path() string {
	return ix.path
}

// Coords returns the coordinates of an address: an exact match on the
// normalized address first, then the best fuzzy match scoring at least the
// threshold.
func (ix *Index) Coords(address string) (lat, lon string, ok bool) {
	if strings.TrimSpace(address) == "" {
		return "", "", false
	}
	s := ix.load()
	if s.empty() {
		return "", "", false
	}
	query := Normalize(address)
	if c, found := s.coords[query]; found {
		return c.lat, c.lon, true
	}
	best, score := "", -1
	for _, key := range s.keys {
		if sc := Similarity(query, key); sc > score {
			best, score = key, sc
		}
	}
	if score < ix.threshold {
		return "", "", false
	}
	c := s.coords[best]
	return c.lat, c.lon, true
}

// Address returns the indexed address nearest to the coordinates. NaN and
// infinite coordinates match nothing.
func (ix *Index) Address(lat, lon float64) (string, bool) {
	if !finite(lat) || !finite(lon) {
		return "", false
	}
	s := ix.load()
	if s.empty() || s.tree == nil {
		return "", false
	}
	got, _ := s.tree.Nearest(geoPoint{lat: lat, lon: lon})
	p, ok := got.(geoPoint)
	if !ok {
		return "", false
	}
	return s.addresses[p.idx], true
}

// Reload rereads the database file and swaps it in. Lookups running
// meanwhile keep using the previous snapshot. When the file cannot be read
// the previous snapshot stays in place, unless there was none yet.
func (ix *Index) Reload() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, err := ix.read()
	if err != nil && ix.snap.Load() != nil {
		return err
	}
	ix.snap.Store(s)
	return err
}

func (ix *Index) load() *snapshot {
	if s := ix.snap.Load(); s != nil {
		return s
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if s := ix.snap.Load(); s != nil {
		return s
	}
	s, err := ix.read()
	if err != nil {
		ix.log.Error("address database not loaded", zap.String("path", ix.path), zap.Error(err))
	}
	ix.snap.Store(s)
	return s
}

// read loads the database file. It always returns a usable snapshot; on
// failure the snapshot is empty and its state says why.
func (ix *Index) read() (*snapshot, error) {
	if ix.path == "" {
		return &snapshot{state: StateMissing}, nil
	}
	f, err := os.Open(ix.path)
	if errors.Is(err, os.ErrNotExist) {
		ix.log.Warn("address database not found", zap.String("path", ix.path))
		return &snapshot{state: StateMissing}, nil
	}
	if err != nil {
		return &snapshot{state: StateFailed}, fmt.Errorf("open address database: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return &snapshot{state: StateFailed}, err
	}
	s := build(records)
	ix.log.Info("address database loaded", zap.String("path", ix.path), zap.Int("addresses", len(s.keys)))
	return s, nil
}

// ReadRecords parses address database CSV. Lines without exactly three
// fields are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read address database: %w", err)
		}
		if len(row) != 3 {
			continue
		}
		records = append(records, Record{
			Address: strings.TrimPrefix(row[0], "\ufeff"),
			Lat:     row[1],
			Lon:     row[2],
		})
	}
}

// build indexes records. Records with unparsable coordinates are dropped. A
// later record with the same normalized address replaces the coordinates of
// the earlier one; both stay in the spatial index.
func build(records []Record) *snapshot {
	s := &snapshot{state: StateLoaded, coords: make(map[string]coords, len(records))}
	points := make(geoPoints, 0, len(records))
	for _, rec := range records {
		address := strings.TrimSpace(rec.Address)
		latText, lonText := strings.TrimSpace(rec.Lat), strings.TrimSpace(rec.Lon)
		lat, err := strconv.ParseFloat(latText, 64)
		if err != nil || !finite(lat) {
			continue
		}
		lon, err := strconv.ParseFloat(lonText, 64)
		if err != nil || !finite(lon) {
			continue
		}
		key := Normalize(address)
		if _, dup := s.coords[key]; !dup {
			s.keys = append(s.keys, key)
		}
		s.coords[key] = coords{lat: latText, lon: lonText}
		points = append(points, geoPoint{lat: lat, lon: lon, idx: len(s.addresses)})
		s.addresses = append(s.addresses, address)
	}
	if len(points) > 0 {
		s.tree = kdtree.New(points, false)
	}
	return s
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
