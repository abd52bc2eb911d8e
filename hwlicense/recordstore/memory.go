package recordstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements RecordStore in process memory. A single mutex
// serializes conditional updates, which makes them atomic per key.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates a MemoryStore holding a copy of records.
func NewMemoryStore(records ...Record) *MemoryStore {
	m := &MemoryStore{records: make(map[string]Record, len(records))}
	for _, r := range records {
		m.records[r.Key] = copyRecord(r)
	}
	return m
}

// NewMemoryStoreFromFile creates a MemoryStore seeded from a JSON file of
// documents.
func NewMemoryStoreFromFile(path string) (*MemoryStore, error) {
	docs, err := LoadDocuments(path)
	if err != nil {
		return nil, err
	}
	m := NewMemoryStore()
	for _, d := range docs {
		if err := m.PutDocument(d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put inserts or replaces a record.
func (m *MemoryStore) Put(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Key] = copyRecord(r)
}

// PutDocument inserts or replaces a record given in its persisted shape.
func (m *MemoryStore) PutDocument(d Document) error {
	if d.Key == "" {
		return fmt.Errorf("document without key")
	}
	r, err := d.Record()
	if err != nil {
		return err
	}
	m.Put(*r)
	return nil
}

// Insert adds a document, failing if its key already exists.
func (m *MemoryStore) Insert(_ context.Context, d Document) error {
	if d.Key == "" {
		return fmt.Errorf("insert record: document without key")
	}
	r, err := d.Record()
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[d.Key]; exists {
		return fmt.Errorf("insert record: key %q already exists", d.Key)
	}
	m.records[d.Key] = copyRecord(*r)
	return nil
}

func (m *MemoryStore) Find(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	c := copyRecord(r)
	return &c, nil
}

func (m *MemoryStore) UpdateIfFieldEmpty(_ context.Context, key string, field Field, value string) (bool, error) {
	if value == "" {
		return false, fmt.Errorf("update %s: %w", field, ErrEmptyValue)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return false, nil
	}
	switch field {
	case FieldHWID:
		if r.HWID.State != BindingOpen {
			return false, nil
		}
		r.HWID = BoundTo(value)
	case FieldActivationDate:
		if r.ActivationDate != nil {
			return false, nil
		}
		t, err := ParseDate(value)
		if err != nil {
			return false, err
		}
		r.ActivationDate = &t
	default:
		return false, fmt.Errorf("update %s: unsupported field", field)
	}
	m.records[key] = r
	return true, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}

func copyRecord(r Record) Record {
	c := r
	if r.DurationDays != nil {
		d := *r.DurationDays
		c.DurationDays = &d
	}
	if r.ActivationDate != nil {
		t := *r.ActivationDate
		c.ActivationDate = &t
	}
	return c
}
