package kv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/pkg/log"
)

func newRouter(store *gossip.Store[kv.Value]) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(store, log.NewNopLogger()).Register(router.Group("/kv"))
	return router
}

func TestHandler(t *testing.T) {
	t.Run("put then get", func(t *testing.T) {
		store := gossip.NewStore[kv.Value]()
		router := newRouter(store)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(
			http.MethodPut, "/kv/foo", strings.NewReader("bar"),
		))
		require.Equal(t, http.StatusOK, w.Code)

		var v kv.Value
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
		assert.Equal(t, kv.Value{Data: "bar", Revision: 1}, v)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kv/foo", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
		assert.Equal(t, kv.Value{Data: "bar", Revision: 1}, v)
	})

	t.Run("put after merge", func(t *testing.T) {
		store := gossip.NewStore[kv.Value]()
		store.Merge("foo", kv.Value{Data: "remote", Revision: 7})
		router := newRouter(store)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(
			http.MethodPut, "/kv/foo", strings.NewReader("local"),
		))
		require.Equal(t, http.StatusOK, w.Code)

		v, _ := store.Get("foo")
		assert.Equal(t, kv.Value{Data: "local", Revision: 8}, v)
	})

	t.Run("get not found", func(t *testing.T) {
		router := newRouter(gossip.NewStore[kv.Value]())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kv/foo", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error": "not found"}`, w.Body.String())
	})

	t.Run("value too large", func(t *testing.T) {
		store := gossip.NewStore[kv.Value]()
		router := newRouter(store)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(
			http.MethodPut,
			"/kv/foo",
			strings.NewReader(strings.Repeat("a", maxValueSize+1)),
		))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, 0, store.Len())
	})
}
