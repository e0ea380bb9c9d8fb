package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	files map[string][]byte
}

func (f *fakeArchive) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.files {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeArchive) Read(_ context.Context, key string, out io.Writer) error {
	data, ok := f.files[key]
	if !ok {
		return fmt.Errorf("no such key %s", key)
	}
	_, err := out.Write(data)
	return err
}

func newRouter(archive Archive) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r.Group("/api"), archive)
	return r
}

func archiveWithTwoAgencies() *fakeArchive {
	return &fakeArchive{files: map[string][]byte{
		"sandata/sunrise/2025-08-28T02-00-00.json":  []byte(`{"agency":"sunrise"}`),
		"sandata/lakeside/2025-08-28T02-00-00.json": []byte(`{"agency":"lakeside"}`),
	}}
}

func TestListScopedToRequestAgency(t *testing.T) {
	router := newRouter(archiveWithTwoAgencies())

	req := httptest.NewRequest(http.MethodGet, "/api/evv/submissions", nil)
	req.Host = "sunrise.careloop.health"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "sandata/sunrise/2025-08-28T02-00-00.json", body.Data[0])
}

func TestDownloadStreamsOwnBatch(t *testing.T) {
	router := newRouter(archiveWithTwoAgencies())

	req := httptest.NewRequest(http.MethodGet,
		"/api/evv/submissions/download?key=sandata/sunrise/2025-08-28T02-00-00.json", nil)
	req.Host = "sunrise.careloop.health"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agency":"sunrise"}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "2025-08-28T02-00-00.json")
}

func TestDownloadRefusesForeignKey(t *testing.T) {
	router := newRouter(archiveWithTwoAgencies())

	for _, key := range []string{
		"sandata/lakeside/2025-08-28T02-00-00.json",
		"sandata/sunrise/../lakeside/2025-08-28T02-00-00.json",
		"other/place.json",
		"",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/evv/submissions/download?key="+key, nil)
		req.Host = "sunrise.careloop.health"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, "key %q", key)
	}
}
