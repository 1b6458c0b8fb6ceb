package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PartitionKeyPath is the partition key every container is created with.
const PartitionKeyPath = "/id"

const (
	APISQL    = "sql"
	APIMongo  = "mongo"
	APIMemory = "memory"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrConflict     = errors.New("document already exists")
	ErrUnauthorized = errors.New("unauthorized")
)

// Document is a schemaless item. The "id" field is mandatory and unique
// within a container.
type Document map[string]any

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Store is a single container inside a database service.
type Store interface {
	// EnsureDatabase creates the database when missing. Services that create
	// databases implicitly treat it as a connectivity and credential check.
	EnsureDatabase(ctx context.Context) error
	// EnsureContainer creates the database and the container when missing.
	EnsureContainer(ctx context.Context) error
	Insert(ctx context.Context, doc Document) error
	// Upsert creates doc or replaces the document with the same id.
	Upsert(ctx context.Context, doc Document) error
	// Replace overwrites an existing document and fails with ErrNotFound when
	// there is none.
	Replace(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	Query(ctx context.Context, f Filter) ([]Document, error)
	// Scan calls fn for every document in the container.
	Scan(ctx context.Context, fn func(Document) error) error
	Delete(ctx context.Context, id string) error
	// DropContainer removes the container with all of its documents and
	// creates it again.
	DropContainer(ctx context.Context) error
	// DeleteContainer removes the container with all of its documents.
	DeleteContainer(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options selects and configures a Store backend.
type Options struct {
	API              string
	Endpoint         string
	Key              string
	ConnectionString string
	Database         string
	Container        string
	InsecureTLS      bool
	Timeout          time.Duration
}

func (o Options) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// eachPage calls next until it reports no more pages. Each call gets its own
// operation deadline so long result sets are not cut off by a single timeout.
func (o Options) eachPage(ctx context.Context, next func(context.Context) (bool, error)) error {
	for {
		pageCtx, cancel := o.opContext(ctx)
		more, err := next(pageCtx)
		cancel()
		if err != nil || !more {
			return err
		}
	}
}

// Open returns the Store for opts.API.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Database == "" || opts.Container == "" {
		return nil, fmt.Errorf("database and container names are required")
	}
	switch strings.ToLower(opts.API) {
	case APISQL, "":
		return NewCosmosStore(opts)
	case APIMongo:
		return NewMongoStore(ctx, opts)
	case APIMemory:
		return NewMemoryStore(WithPresentedKey(opts.Key)), nil
	}
	return nil, fmt.Errorf("unknown api %q: use sql, mongo or memory", opts.API)
}

// ServiceError is an error reported by the database service itself, as
// opposed to a local failure such as a bad configuration value.
type ServiceError struct {
	StatusCode int
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error (status %d, %s): %v", e.StatusCode, e.Code, e.Err)
	}
	return fmt.Sprintf("service error (status %d): %v", e.StatusCode, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// IsServiceError reports whether err carries a service-reported failure.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
