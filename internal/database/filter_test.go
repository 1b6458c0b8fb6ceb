package database

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestFilterMatch(t *testing.T) {
	doc := Document{"id": "x", "name": "Test Item 7", "age": int32(36), "size": json.Number("50"), "score": 1.5}

	assert.True(t, Prefix("name", "Test Item").Match(doc))
	assert.False(t, Prefix("name", "Item").Match(doc))
	assert.False(t, Prefix("age", "3").Match(doc))
	assert.True(t, GreaterThan("age", 35).Match(doc))
	assert.False(t, GreaterThan("age", 36).Match(doc))
	assert.True(t, LessOrEqual("size", 50).Match(doc))
	assert.False(t, LessOrEqual("size", 49.5).Match(doc))
	assert.True(t, Equal("id", "x").Match(doc))
	assert.True(t, Equal("score", 1.5).Match(doc))
	assert.False(t, Equal("missing", 1).Match(doc))
	assert.False(t, GreaterThan("name", 1).Match(doc))
}

func TestFilterString(t *testing.T) {
	assert.Equal(t, "name LIKE 'Test Item%'", Prefix("name", "Test Item").String())
	assert.Equal(t, "age > 35", GreaterThan("age", 35).String())
	assert.Equal(t, "size <= 50", LessOrEqual("size", 50).String())
	assert.Equal(t, "id = a", Equal("id", "a").String())
}

func TestMongoFilter(t *testing.T) {
	f, err := mongoFilter(Prefix("name", "Test Item"))
	require.NoError(t, err)
	require.Equal(t, bson.M{"name": primitive.Regex{Pattern: `^Test Item`}}, f)

	f, err = mongoFilter(Prefix("name", "a.b"))
	require.NoError(t, err)
	require.Equal(t, bson.M{"name": primitive.Regex{Pattern: `^a\.b`}}, f)

	f, err = mongoFilter(GreaterThan("age", 35))
	require.NoError(t, err)
	require.Equal(t, bson.M{"age": bson.M{"$gt": 35}}, f)

	f, err = mongoFilter(LessOrEqual("size", 50))
	require.NoError(t, err)
	require.Equal(t, bson.M{"size": bson.M{"$lte": 50}}, f)

	f, err = mongoFilter(Equal("id", "abc"))
	require.NoError(t, err)
	require.Equal(t, bson.M{"_id": "abc"}, f)

	_, err = mongoFilter(Filter{Field: "name", Op: OpPrefix, Value: 3})
	require.Error(t, err)
}

func TestMongoDocumentMapping(t *testing.T) {
	doc := Document{"id": "abc", "name": "n"}
	m := toMongo(doc)
	require.Equal(t, bson.M{"_id": "abc", "name": "n"}, m)
	require.Equal(t, doc, fromMongo(m))

	oid := primitive.NewObjectID()
	require.Equal(t, oid.Hex(), fromMongo(bson.M{"_id": oid}).ID())
}

func TestMongoErrorClassification(t *testing.T) {
	err := mongoError(mongo.ErrNoDocuments)
	require.ErrorIs(t, err, ErrNotFound)

	err = mongoError(mongo.CommandError{Code: 18, Name: "AuthenticationFailed", Message: "auth failed"})
	require.True(t, IsServiceError(err))
	require.ErrorIs(t, err, ErrUnauthorized)

	err = mongoError(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}})
	require.ErrorIs(t, err, ErrConflict)

	var se *ServiceError
	err = mongoError(mongo.CommandError{Code: 2, Name: "BadValue"})
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.Equal(t, "BadValue", se.Code)

	plain := mongoError(assert.AnError)
	require.False(t, IsServiceError(plain))
}
