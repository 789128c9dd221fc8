package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"compras/internal/core"
	"compras/internal/delimited"
	ports "compras/internal/sheets"
)

// Encoding of text exports on disk.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin1"
)

// ErrNoExport is returned when no table exists for a year.
var ErrNoExport = errors.New("no export for year")

// ParseEncoding accepts the usual spellings of UTF-8 and ISO-8859-1.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	default:
		return "", fmt.Errorf("unknown encoding %q", s)
	}
}

// Store serves tables held in memory or read from a directory.
//
// Directory lookups try "<year>.csv" then "<year>.xlsx". Files are read on
// every fetch, so edits show up on the next request.
type Store struct {
	mu       sync.Mutex
	tables   map[int]core.RawTable
	dir      string
	encoding Encoding
	dialect  delimited.Dialect
}

var _ ports.TableSource = (*Store)(nil)

// New returns a store over fixed tables, keyed by year.
func New(tables map[int]core.RawTable) *Store {
	own := make(map[int]core.RawTable, len(tables))
	for y, t := range tables {
		own[y] = t
	}
	return &Store{tables: own, dialect: delimited.DefaultDialect(), encoding: EncodingUTF8}
}

// NewFromDir returns a store reading exports from dir.
func NewFromDir(dir string, enc Encoding, dialect delimited.Dialect) *Store {
	if enc == "" {
		enc = EncodingUTF8
	}
	return &Store{tables: map[int]core.RawTable{}, dir: dir, encoding: enc, dialect: dialect}
}

func (s *Store) Name() string {
	if s.dir != "" {
		return "file"
	}
	return "memory"
}

// Put replaces the in-memory table for year.
func (s *Store) Put(year int, table core.RawTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[year] = table
}

func (s *Store) FetchTable(ctx context.Context, year int) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	t, ok := s.tables[year]
	s.mu.Unlock()
	if ok {
		return t, nil
	}
	if s.dir == "" {
		return nil, fmt.Errorf("%w %d", ErrNoExport, year)
	}

	base := filepath.Join(s.dir, strconv.Itoa(year))
	if _, err := os.Stat(base + ".csv"); err == nil {
		return s.readText(base + ".csv")
	}
	if _, err := os.Stat(base + ".xlsx"); err == nil {
		return readWorkbook(base + ".xlsx")
	}
	return nil, fmt.Errorf("%w %d in %s", ErrNoExport, year, s.dir)
}

func (s *Store) readText(path string) (core.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.encoding == EncodingLatin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", filepath.Base(path), err)
	}
	return delimited.ParseWith(string(b), s.dialect), nil
}

// readWorkbook reads the first sheet of an .xlsx file as formatted text.
func readWorkbook(path string) (core.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", core.ErrMalformedPayload, filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	table := make(core.RawTable, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		table = append(table, cells)
	}
	return table, nil
}
