package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/models"
)

func newTestRouter(t *testing.T, store database.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(store)
	require.NoError(t, svc.Init(context.Background()))
	return NewRouter(svc)
}

func TestNotesHandler_CRUD(t *testing.T) {
	g := newTestRouter(t, database.NewMemoryStore())

	// health
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())

	// create
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var created models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "hello", created.Content)

	// get
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes/"+created.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, created, got)

	// list
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Note
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, []models.Note{created}, list)

	// delete
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notes/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes/"+created.ID, nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notes/"+created.ID, nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotesHandler_EmptyListAndBadBody(t *testing.T) {
	g := newTestRouter(t, database.NewMemoryStore())

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotesHandler_ServiceFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// container never provisioned: every call fails on the service side
	g := NewRouter(NewService(database.NewMemoryStore()))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
