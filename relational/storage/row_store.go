// Package storage persists rows in BadgerDB and serves them back as join
// inputs in insertion order.
package storage

import (
	"encoding/binary"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/janus-relational/relational"
	"github.com/wbrown/janus-relational/relational/executor"
)

const (
	rowPrefix  = "t/"
	metaPrefix = "m/"

	// insertBatchSize bounds the rows written per badger transaction
	insertBatchSize = 1000
)

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table not found")
	ErrArityMismatch = errors.New("row arity does not match table")
)

// RowStore keeps named tables of fixed-arity rows
type RowStore struct {
	db *badger.DB

	mu     sync.RWMutex
	tables map[string]*tableMeta
}

type tableMeta struct {
	arity   int
	nextSeq uint64
}

// Open opens (or creates) a store at path
func Open(path string) (*RowStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable BadgerDB logs
	return open(opts)
}

// OpenInMemory opens a store that lives only as long as the process
func OpenInMemory() (*RowStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*RowStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open badger")
	}

	s := &RowStore{
		db:     db,
		tables: make(map[string]*tableMeta),
	}
	if err := s.loadMeta(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store
func (s *RowStore) Close() error {
	return s.db.Close()
}

func (s *RowStore) loadMeta() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), metaPrefix)
			err := item.Value(func(val []byte) error {
				meta, err := decodeMeta(val)
				if err != nil {
					return errors.Wrapf(err, "table %q", name)
				}
				s.tables[name] = meta
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTable declares a table whose rows all have arity fields
func (s *RowStore) CreateTable(name string, arity int) error {
	if name == "" || strings.Contains(name, "/") {
		return errors.Newf("invalid table name %q", name)
	}
	if arity <= 0 {
		return errors.Newf("table %q: arity must be positive, got %d", name, arity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; ok {
		return errors.Wrapf(ErrTableExists, "%q", name)
	}
	meta := &tableMeta{arity: arity}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(name), meta.encode())
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create table %q", name)
	}
	s.tables[name] = meta
	return nil
}

// Insert appends rows to a table. Rows keep their insertion order.
func (s *RowStore) Insert(table string, rows ...relational.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.tables[table]
	if !ok {
		return errors.Wrapf(ErrTableNotFound, "%q", table)
	}
	for i, row := range rows {
		if len(row) != meta.arity {
			return errors.Wrapf(ErrArityMismatch, "table %q row %d has %d fields, want %d",
				table, i, len(row), meta.arity)
		}
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		next := meta.nextSeq
		err := s.db.Update(func(txn *badger.Txn) error {
			for i, row := range rows[start:end] {
				data, err := relational.EncodeRow(row)
				if err != nil {
					return errors.Wrapf(err, "table %q row %d", table, start+i)
				}
				if err := txn.Set(rowKey(table, next), data); err != nil {
					return err
				}
				next++
			}
			updated := tableMeta{arity: meta.arity, nextSeq: next}
			return txn.Set(metaKey(table), updated.encode())
		})
		if err != nil {
			return errors.Wrapf(err, "failed to insert into %q", table)
		}
		meta.nextSeq = next
	}
	return nil
}

// Arity returns a table's arity
func (s *RowStore) Arity(table string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.tables[table]
	if !ok {
		return 0, errors.Wrapf(ErrTableNotFound, "%q", table)
	}
	return meta.arity, nil
}

// Tables returns the table names in sorted order
func (s *RowStore) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count counts a table's rows without fetching values
func (s *RowStore) Count(table string) (int64, error) {
	if _, err := s.Arity(table); err != nil {
		return 0, err
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false // KEY ONLY - no values!
	opts.Prefix = tablePrefix(table)

	it := txn.NewIterator(opts)
	defer it.Close()

	var count int64
	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}
	return count, nil
}

// Source returns the table as a join input. Every iterator reads a
// consistent snapshot in insertion order.
func (s *RowStore) Source(table string) (*TableSource, error) {
	arity, err := s.Arity(table)
	if err != nil {
		return nil, err
	}
	count, err := s.Count(table)
	if err != nil {
		return nil, err
	}
	return &TableSource{
		store: s,
		table: table,
		arity: arity,
		rows:  count,
	}, nil
}

func metaKey(table string) []byte {
	return []byte(metaPrefix + table)
}

func tablePrefix(table string) []byte {
	return []byte(rowPrefix + table + "/")
}

// rowKey appends the big-endian sequence number so keys sort in
// insertion order
func rowKey(table string, seq uint64) []byte {
	prefix := tablePrefix(table)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

func (m *tableMeta) encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(m.arity))
	binary.BigEndian.PutUint64(buf[8:], m.nextSeq)
	return buf
}

func decodeMeta(data []byte) (*tableMeta, error) {
	if len(data) != 16 {
		return nil, errors.Newf("table metadata must be 16 bytes, got %d", len(data))
	}
	return &tableMeta{
		arity:   int(binary.BigEndian.Uint64(data[:8])),
		nextSeq: binary.BigEndian.Uint64(data[8:]),
	}, nil
}

// TableSource is an executor.RowSource over a stored table
type TableSource struct {
	store *RowStore
	table string
	arity int
	rows  int64
}

var _ executor.SizedSource = (*TableSource)(nil)

func (t *TableSource) Arity() int {
	return t.arity
}

// EstimatedRows is the row count when the source was created
func (t *TableSource) EstimatedRows() float64 {
	return float64(t.rows)
}

// Table returns the table name
func (t *TableSource) Table() string {
	return t.table
}

func (t *TableSource) Iterator() executor.Iterator {
	txn := t.store.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 1000
	opts.PrefetchValues = true
	opts.Prefix = tablePrefix(t.table)

	return &tableIterator{
		txn: txn,
		it:  txn.NewIterator(opts),
	}
}

// tableIterator decodes one row per badger item
type tableIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	started bool
	closed  bool
	row     relational.Row
	err     error
}

func (i *tableIterator) Next() bool {
	if i.closed || i.err != nil {
		return false
	}
	if !i.started {
		i.it.Rewind()
		i.started = true
	} else {
		i.it.Next()
	}
	if !i.it.Valid() {
		return false
	}

	item := i.it.Item()
	err := item.Value(func(val []byte) error {
		row, err := relational.DecodeRow(val)
		if err != nil {
			return err
		}
		i.row = row
		return nil
	})
	if err != nil {
		i.err = errors.Wrapf(err, "decoding row at key %x", item.KeyCopy(nil))
		return false
	}
	return true
}

func (i *tableIterator) Row() relational.Row {
	return i.row
}

func (i *tableIterator) Err() error {
	return i.err
}

func (i *tableIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.it.Close()
	i.txn.Discard()
	return nil
}
