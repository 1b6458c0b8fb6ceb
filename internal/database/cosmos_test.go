package database

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/require"
)

// Well-known key of the local emulator.
const emulatorKey = "C2y6yDjf5/R+ob0N8A7Cgv30VRDJIWEHLM+4QDU5DE2nQ9nDuVTqobD4b8mGGyPMbIZnqyMsEcaGQy67XIw/Jw=="

func TestCosmosQuery(t *testing.T) {
	q, params, err := cosmosQuery(Prefix("name", "Test Item"))
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM c WHERE c["name"] LIKE @value`, q)
	require.Len(t, params, 1)
	require.Equal(t, "@value", params[0].Name)
	require.Equal(t, "Test Item%", params[0].Value)

	q, params, err = cosmosQuery(GreaterThan("age", 35))
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM c WHERE c["age"] > @value`, q)
	require.Equal(t, 35, params[0].Value)

	q, _, err = cosmosQuery(LessOrEqual("size", 50))
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM c WHERE c["size"] <= @value`, q)

	q, _, err = cosmosQuery(Equal("id", "abc"))
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM c WHERE c["id"] = @value`, q)

	_, _, err = cosmosQuery(Equal(`x"] OR true`, 1))
	require.Error(t, err)
	_, _, err = cosmosQuery(Prefix("name", ""))
	require.NoError(t, err)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, "Test Item", escapeLike("Test Item"))
	require.Equal(t, "50[%] off[_]now [[]x]", escapeLike("50% off_now [x]"))
}

func TestDecodeJSONDocument(t *testing.T) {
	doc, err := decodeJSONDocument([]byte(`{"id":"a","age":36,"_rid":"x","_ts":1,"_etag":"e","_self":"s","_attachments":"t"}`))
	require.NoError(t, err)
	require.Equal(t, Document{"id": "a", "age": json.Number("36")}, doc)
	require.True(t, GreaterThan("age", 35).Match(doc))

	_, err = decodeJSONDocument([]byte(`not json`))
	require.Error(t, err)
}

func TestCosmosErrorClassification(t *testing.T) {
	conflict := &azcore.ResponseError{StatusCode: http.StatusConflict, ErrorCode: "Conflict"}
	require.True(t, isCosmosConflict(conflict))

	err := cosmosError("create item", conflict)
	require.True(t, IsServiceError(err))
	require.ErrorIs(t, err, ErrConflict)

	err = cosmosError("", &azcore.ResponseError{StatusCode: http.StatusForbidden})
	require.ErrorIs(t, err, ErrUnauthorized)

	flattened := errors.New("failed to retrieve account properties: GET https://localhost:8081/\n" +
		"--------------------------------------------------------------------------------\n" +
		"RESPONSE 401: 401 Unauthorized\n" +
		"ERROR CODE: Unauthorized\n" +
		"--------------------------------------------------------------------------------\n")
	err = cosmosError("create database", flattened)
	require.True(t, IsServiceError(err))
	require.ErrorIs(t, err, ErrUnauthorized)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "Unauthorized", se.Code)

	err = cosmosError("create database", errors.New("dial tcp 127.0.0.1:8081: connect: connection refused"))
	require.False(t, IsServiceError(err))

	err = cosmosError("read", context.DeadlineExceeded)
	require.False(t, IsServiceError(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewCosmosStore(t *testing.T) {
	_, err := NewCosmosStore(Options{Endpoint: "https://localhost:8081/", Database: "db", Container: "c"})
	require.Error(t, err)

	_, err = NewCosmosStore(Options{Endpoint: "https://localhost:8081/", Key: "%%%not-base64", Database: "db", Container: "c"})
	require.Error(t, err)

	s, err := NewCosmosStore(Options{Endpoint: "https://localhost:8081/", Key: emulatorKey, Database: "db", Container: "c", InsecureTLS: true})
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))
}

func TestCosmosStoreUnauthorized(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"Unauthorized","message":"The input authorization token can't serve the request."}`))
	}))
	defer srv.Close()

	s, err := NewCosmosStore(Options{
		Endpoint:    srv.URL + "/",
		Key:         emulatorKey,
		Database:    "db",
		Container:   "c",
		InsecureTLS: true,
		Timeout:     10 * time.Second,
	})
	require.NoError(t, err)

	err = s.EnsureContainer(context.Background())
	require.Error(t, err)
	require.True(t, IsServiceError(err))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCosmosStoreUnauthorizedOnEveryEntryPoint(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"Unauthorized","message":"bad token"}`))
	}))
	defer srv.Close()

	s, err := NewCosmosStore(Options{
		Endpoint:    srv.URL + "/",
		Key:         emulatorKey,
		Database:    "db",
		Container:   "c",
		InsecureTLS: true,
		Timeout:     10 * time.Second,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorIs(t, s.EnsureDatabase(ctx), ErrUnauthorized)
	require.ErrorIs(t, s.Insert(ctx, Document{"id": "1"}), ErrUnauthorized)
	require.ErrorIs(t, s.Upsert(ctx, Document{"id": "1"}), ErrUnauthorized)
	_, err = s.Query(ctx, GreaterThan("age", 35))
	require.True(t, IsServiceError(err))
}
