package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Server error codes the Mongo API answers with.
const (
	codeUnauthorized     = 13
	codeAuthFailed       = 18
	codeNamespaceExists  = 48
	codeNamespaceMissing = 26
)

// MongoStore talks to the Cosmos DB API for MongoDB (or any MongoDB server).
// Documents keep their "id" in "_id".
type MongoStore struct {
	Client   *mongo.Client
	Database *mongo.Database
	opts     Options
}

func NewMongoStore(ctx context.Context, opts Options) (*MongoStore, error) {
	if opts.ConnectionString == "" {
		return nil, fmt.Errorf("a connection string is required for the mongo api")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(opts.ConnectionString)
	if opts.InsecureTLS && clientOpts.TLSConfig != nil {
		// The emulator serves a self-signed certificate.
		clientOpts.TLSConfig.InsecureSkipVerify = true
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", mongoError(err))
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", mongoError(err))
	}

	log.WithField("database", opts.Database).Info("Connected to MongoDB API")

	return &MongoStore{
		Client:   client,
		Database: client.Database(opts.Database),
		opts:     opts,
	}, nil
}

func (m *MongoStore) collection() *mongo.Collection {
	return m.Database.Collection(m.opts.Container)
}

func (m *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// EnsureDatabase pings the server. Databases are created with their first
// collection.
func (m *MongoStore) EnsureDatabase(ctx context.Context) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	if err := m.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to reach database %s: %w", m.opts.Database, mongoError(err))
	}
	return nil
}

func (m *MongoStore) EnsureContainer(ctx context.Context) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	err := m.Database.CreateCollection(ctx, m.opts.Container)
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.HasErrorCode(codeNamespaceExists) {
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", m.opts.Container, mongoError(err))
	}
	return nil
}

func (m *MongoStore) Insert(ctx context.Context, doc Document) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	if _, err := m.collection().InsertOne(ctx, toMongo(doc)); err != nil {
		return fmt.Errorf("failed to insert document %s: %w", id, mongoError(err))
	}
	return nil
}

func (m *MongoStore) Upsert(ctx context.Context, doc Document) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection().ReplaceOne(ctx, bson.M{"_id": id}, toMongo(doc), opts); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, mongoError(err))
	}
	return nil
}

func (m *MongoStore) Replace(ctx context.Context, doc Document) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document id is required")
	}
	res, err := m.collection().ReplaceOne(ctx, bson.M{"_id": id}, toMongo(doc))
	if err != nil {
		return fmt.Errorf("failed to replace document %s: %w", id, mongoError(err))
	}
	if res.MatchedCount == 0 {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: ErrNotFound}
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (Document, error) {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	var raw bson.M
	if err := m.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to find document %s: %w", id, mongoError(err))
	}
	return fromMongo(raw), nil
}

func (m *MongoStore) Query(ctx context.Context, f Filter) ([]Document, error) {
	filter, err := mongoFilter(f)
	if err != nil {
		return nil, err
	}
	var out []Document
	err = m.find(ctx, filter, func(d Document) error {
		out = append(out, d)
		return nil
	})
	return out, err
}

func (m *MongoStore) Scan(ctx context.Context, fn func(Document) error) error {
	return m.find(ctx, bson.D{}, fn)
}

func (m *MongoStore) find(ctx context.Context, filter any, fn func(Document) error) error {
	findCtx, cancel := m.opts.opContext(ctx)
	cursor, err := m.collection().Find(findCtx, filter)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", mongoError(err))
	}
	defer cursor.Close(ctx)

	// Next only goes to the server when the current batch is used up.
	return m.opts.eachPage(ctx, func(nextCtx context.Context) (bool, error) {
		if !cursor.Next(nextCtx) {
			if err := cursor.Err(); err != nil {
				return false, fmt.Errorf("cursor error: %w", mongoError(err))
			}
			return false, nil
		}
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return false, fmt.Errorf("failed to decode document: %w", err)
		}
		return true, fn(fromMongo(raw))
	})
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	res, err := m.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, mongoError(err))
	}
	if res.DeletedCount == 0 {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: ErrNotFound}
	}
	return nil
}

func (m *MongoStore) DeleteContainer(ctx context.Context) error {
	ctx, cancel := m.opts.opContext(ctx)
	defer cancel()

	if err := m.collection().Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", m.opts.Container, mongoError(err))
	}
	return nil
}

func (m *MongoStore) DropContainer(ctx context.Context) error {
	if err := m.DeleteContainer(ctx); err != nil {
		return err
	}
	return m.EnsureContainer(ctx)
}

func toMongo(doc Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "id" {
			k = "_id"
		}
		out[k] = v
	}
	return out
}

func fromMongo(raw bson.M) Document {
	out := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			k = "id"
			if oid, ok := v.(primitive.ObjectID); ok {
				v = oid.Hex()
			}
		}
		out[k] = v
	}
	return out
}

func mongoFilter(f Filter) (bson.M, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	field := f.Field
	if field == "id" {
		field = "_id"
	}
	switch f.Op {
	case OpPrefix:
		prefix := f.Value.(string)
		return bson.M{field: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}, nil
	case OpGreaterThan:
		return bson.M{field: bson.M{"$gt": f.Value}}, nil
	case OpLessOrEqual:
		return bson.M{field: bson.M{"$lte": f.Value}}, nil
	}
	return bson.M{field: f.Value}, nil
}

// mongoError classifies driver errors the server reported as ServiceError.
func mongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &ServiceError{StatusCode: http.StatusNotFound, Code: "NotFound", Err: err}
	}
	if mongo.IsDuplicateKeyError(err) {
		return &ServiceError{StatusCode: http.StatusConflict, Code: "DuplicateKey", Err: err}
	}
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return err
	}
	status := http.StatusBadRequest
	code := ""
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		code = strconv.Itoa(int(cmdErr.Code))
		if cmdErr.Name != "" {
			code = cmdErr.Name
		}
	}
	switch {
	case se.HasErrorCode(codeUnauthorized), se.HasErrorCode(codeAuthFailed):
		status = http.StatusUnauthorized
	case se.HasErrorCode(codeNamespaceMissing):
		status = http.StatusNotFound
	}
	return &ServiceError{StatusCode: status, Code: code, Err: err}
}
