// Package testsupport provides shared helpers for tests: a throwaway sqlite
// database, a fully wired API router and small JSON request utilities.
package testsupport

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"kanbanmusic/api"
	"kanbanmusic/database"
	"kanbanmusic/internal/blobstore"
	"kanbanmusic/internal/events"
)

// MustOpenDB opens a migrated sqlite database in a temp dir and registers
// cleanup.
func MustOpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewServer wires a handler with a temp database, a broker and a disk blob
// store, and returns the router serving it.
func NewServer(t testing.TB) (*gin.Engine, *api.Handler) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	db := MustOpenDB(t)
	broker := events.NewBroker()
	blobs := blobstore.NewDisk(t.TempDir(), "/uploads")

	h := api.NewHandler(db, broker, blobs, nil, nil)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return router, h
}

// DoJSON performs a request against the router with an optional JSON body.
func DoJSON(t testing.TB, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a recorded JSON response body.
func Decode(t testing.TB, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
