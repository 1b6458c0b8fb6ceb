package database

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

var errBadToken = errors.New("the input authorization token can't serve the request")

// MemoryStore is an in-process container used for dry runs and tests. It
// answers like the service does: operations before EnsureContainer fail
// with 404 and a rejected credential fails every call with 401.
type MemoryStore struct {
	mu          sync.RWMutex
	ready       bool
	docs        map[string]Document
	order       []string
	presented   string
	accepted    string
	checkAccess bool
}

type MemoryOption func(*MemoryStore)

// WithAcceptedKey makes the store reject any presented key other than key.
func WithAcceptedKey(key string) MemoryOption {
	return func(m *MemoryStore) {
		m.accepted = key
		m.checkAccess = true
	}
}

func WithPresentedKey(key string) MemoryOption {
	return func(m *MemoryStore) {
		m.presented = key
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{docs: make(map[string]Document)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) authorize() error {
	if m.checkAccess && m.presented != m.accepted {
		return &ServiceError{StatusCode: http.StatusUnauthorized, Code: "Unauthorized", Err: errBadToken}
	}
	return nil
}

func (m *MemoryStore) check() error {
	if err := m.authorize(); err != nil {
		return err
	}
	if !m.ready {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: errors.New("container not found")}
	}
	return nil
}

func (m *MemoryStore) EnsureDatabase(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authorize()
}

func (m *MemoryStore) EnsureContainer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authorize(); err != nil {
		return err
	}
	m.ready = true
	return nil
}

func (m *MemoryStore) Insert(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	id := doc.ID()
	if id == "" {
		return &ServiceError{StatusCode: http.StatusBadRequest, Code: "BadRequest", Err: errors.New("document id is required")}
	}
	if _, ok := m.docs[id]; ok {
		return &ServiceError{StatusCode: http.StatusConflict, Code: "Conflict", Err: ErrConflict}
	}
	m.docs[id] = doc.Clone()
	m.order = append(m.order, id)
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	id := doc.ID()
	if id == "" {
		return &ServiceError{StatusCode: http.StatusBadRequest, Code: "BadRequest", Err: errors.New("document id is required")}
	}
	if _, ok := m.docs[id]; !ok {
		m.order = append(m.order, id)
	}
	m.docs[id] = doc.Clone()
	return nil
}

func (m *MemoryStore) Replace(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	id := doc.ID()
	if _, ok := m.docs[id]; !ok {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: ErrNotFound}
	}
	m.docs[id] = doc.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: ErrNotFound}
	}
	return d.Clone(), nil
}

func (m *MemoryStore) Query(ctx context.Context, f Filter) ([]Document, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	var out []Document
	err := m.Scan(ctx, func(d Document) error {
		if f.Match(d) {
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

func (m *MemoryStore) Scan(ctx context.Context, fn func(Document) error) error {
	m.mu.RLock()
	if err := m.check(); err != nil {
		m.mu.RUnlock()
		return err
	}
	docs := make([]Document, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, m.docs[id].Clone())
	}
	m.mu.RUnlock()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.docs[id]; !ok {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: ErrNotFound}
	}
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) DropContainer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authorize(); err != nil {
		return err
	}
	m.docs = make(map[string]Document)
	m.order = nil
	m.ready = true
	return nil
}

func (m *MemoryStore) DeleteContainer(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.docs = make(map[string]Document)
	m.order = nil
	m.ready = false
	return nil
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
