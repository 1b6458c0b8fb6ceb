package database

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	log "github.com/sirupsen/logrus"
)

// CosmosStore talks to the Cosmos DB SQL API (or its emulator).
type CosmosStore struct {
	client    *azcosmos.Client
	container *azcosmos.ContainerClient
	opts      Options
}

func NewCosmosStore(opts Options) (*CosmosStore, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("an account key is required for the sql api")
	}
	cred, err := azcosmos.NewKeyCredential(opts.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create key credential: %w", err)
	}

	clientOpts := &azcosmos.ClientOptions{}
	if opts.InsecureTLS {
		// The emulator serves a self-signed certificate.
		clientOpts.Transport = &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		}
	}

	client, err := azcosmos.NewClientWithKey(opts.Endpoint, cred, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client: %w", err)
	}
	container, err := client.NewContainer(opts.Database, opts.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to create container client: %w", err)
	}

	log.WithField("endpoint", opts.Endpoint).Debug("cosmos client created")
	return &CosmosStore{client: client, container: container, opts: opts}, nil
}

func (s *CosmosStore) EnsureDatabase(ctx context.Context) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	if _, err := s.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: s.opts.Database}, nil); err != nil {
		if !isCosmosConflict(err) {
			return cosmosError("create database", err)
		}
	}
	return nil
}

func (s *CosmosStore) EnsureContainer(ctx context.Context) error {
	if err := s.EnsureDatabase(ctx); err != nil {
		return err
	}

	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	db, err := s.client.NewDatabase(s.opts.Database)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}

	props := azcosmos.ContainerProperties{
		ID: s.opts.Container,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{PartitionKeyPath},
		},
	}
	if _, err := db.CreateContainer(ctx, props, nil); err != nil {
		if !isCosmosConflict(err) {
			return cosmosError("create container", err)
		}
	}
	return nil
}

func (s *CosmosStore) Insert(ctx context.Context, doc Document) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	id, body, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	if _, err := s.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(id), body, nil); err != nil {
		return cosmosError("create item "+id, err)
	}
	return nil
}

func (s *CosmosStore) Upsert(ctx context.Context, doc Document) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	id, body, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	if _, err := s.container.UpsertItem(ctx, azcosmos.NewPartitionKeyString(id), body, nil); err != nil {
		return cosmosError("upsert item "+id, err)
	}
	return nil
}

func (s *CosmosStore) Replace(ctx context.Context, doc Document) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	id, body, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	if _, err := s.container.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(id), id, body, nil); err != nil {
		return cosmosError("replace item "+id, err)
	}
	return nil
}

func marshalDocument(doc Document) (string, []byte, error) {
	id := doc.ID()
	if id == "" {
		return "", nil, fmt.Errorf("document id is required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal document %s: %w", id, err)
	}
	return id, body, nil
}

func (s *CosmosStore) Get(ctx context.Context, id string) (Document, error) {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	resp, err := s.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	if err != nil {
		return nil, cosmosError("read item "+id, err)
	}
	return decodeJSONDocument(resp.Value)
}

func (s *CosmosStore) Query(ctx context.Context, f Filter) ([]Document, error) {
	query, params, err := cosmosQuery(f)
	if err != nil {
		return nil, err
	}
	var out []Document
	err = s.query(ctx, query, params, func(d Document) error {
		out = append(out, d)
		return nil
	})
	return out, err
}

func (s *CosmosStore) Scan(ctx context.Context, fn func(Document) error) error {
	return s.query(ctx, "SELECT * FROM c", nil, fn)
}

// query runs a cross-partition query and pages through every result. The
// operation timeout applies to each page.
func (s *CosmosStore) query(ctx context.Context, query string, params []azcosmos.QueryParameter, fn func(Document) error) error {
	pager := s.container.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &azcosmos.QueryOptions{
		QueryParameters: params,
	})
	return s.opts.eachPage(ctx, func(pageCtx context.Context) (bool, error) {
		if !pager.More() {
			return false, nil
		}
		page, err := pager.NextPage(pageCtx)
		if err != nil {
			return false, cosmosError("query items", err)
		}
		for _, item := range page.Items {
			doc, err := decodeJSONDocument(item)
			if err != nil {
				return false, err
			}
			if err := fn(doc); err != nil {
				return false, err
			}
		}
		return pager.More(), nil
	})
}

func (s *CosmosStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	if _, err := s.container.DeleteItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil); err != nil {
		return cosmosError("delete item "+id, err)
	}
	return nil
}

func (s *CosmosStore) DeleteContainer(ctx context.Context) error {
	ctx, cancel := s.opts.opContext(ctx)
	defer cancel()

	if _, err := s.container.Delete(ctx, nil); err != nil {
		return cosmosError("delete container", err)
	}
	return nil
}

func (s *CosmosStore) DropContainer(ctx context.Context) error {
	if err := s.DeleteContainer(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.EnsureContainer(ctx)
}

func (s *CosmosStore) Close(ctx context.Context) error {
	return nil
}

// cosmosQuery renders f as a parameterized SQL query.
func cosmosQuery(f Filter) (string, []azcosmos.QueryParameter, error) {
	if err := f.validate(); err != nil {
		return "", nil, err
	}
	field := fmt.Sprintf(`c["%s"]`, f.Field)
	value := f.Value
	var cond string
	switch f.Op {
	case OpPrefix:
		cond = field + " LIKE @value"
		value = escapeLike(f.Value.(string)) + "%"
	case OpGreaterThan:
		cond = field + " > @value"
	case OpLessOrEqual:
		cond = field + " <= @value"
	default:
		cond = field + " = @value"
	}
	return "SELECT * FROM c WHERE " + cond, []azcosmos.QueryParameter{{Name: "@value", Value: value}}, nil
}

var likeEscaper = strings.NewReplacer("[", "[[]", "%", "[%]", "_", "[_]")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func decodeJSONDocument(b []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	for _, k := range systemProperties {
		delete(doc, k)
	}
	return doc, nil
}

// systemProperties are set by the service on every item.
var systemProperties = []string{"_rid", "_self", "_etag", "_attachments", "_ts"}

func isCosmosConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

// The SDK flattens some response errors into text, e.g. the account
// properties lookup done before the first request.
var (
	responseStatus = regexp.MustCompile(`RESPONSE (\d{3})`)
	responseCode   = regexp.MustCompile(`ERROR CODE: (\S+)`)
)

func cosmosError(op string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		err = &ServiceError{StatusCode: respErr.StatusCode, Code: respErr.ErrorCode, Err: err}
	} else if se := serviceErrorFromText(err); se != nil {
		err = se
	}
	if op == "" {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func serviceErrorFromText(err error) *ServiceError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	msg := err.Error()
	m := responseStatus.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return nil
	}
	se := &ServiceError{StatusCode: status, Err: err}
	if c := responseCode.FindStringSubmatch(msg); c != nil {
		se.Code = c[1]
	}
	return se
}
