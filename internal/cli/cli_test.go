package cli

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoints = `
endpoints:
  - name: GetUser
    method: GET
    path: /users/{id}
    params:
      - name: id
        kind: path
        required: true
  - name: ListUsers
    method: GET
    path: /users
    params:
      - name: active
        kind: query
  - name: UploadAvatar
    method: POST
    path: /avatar
    params:
      - name: avatar
        kind: form
        fields: [file, label]
`

func setupEnv(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testEndpoints), 0o644))

	t.Setenv("BASE_URL", srv.URL)
	t.Setenv("ENDPOINTS_FILE", path)
	t.Setenv("LOG_LEVEL", "error")
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func TestCallPrintsDecodedJSON(t *testing.T) {
	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42", r.URL.Path)
		assert.Equal(t, "cli", r.Header.Get("X-Client"))
		_, _ = w.Write([]byte(`{"id":42,"name":"ada"}`))
	}))

	out, err := execute(t, "call", "GetUser", "-p", "id=42", "-H", "X-Client=cli")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "ada"`)
}

func TestCallAppliesJQ(t *testing.T) {
	var hits atomic.Int32
	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "active=true", r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"name":"ada"},{"name":"linus"}]`))
	}))

	out, err := execute(t, "call", "ListUsers", "-p", "active=true", "--jq", ".[].name")
	require.NoError(t, err)
	assert.Contains(t, out, `"ada"`)
	assert.Contains(t, out, `"linus"`)
	require.EqualValues(t, 1, hits.Load())

	_, err = execute(t, "call", "ListUsers", "-p", "active=true", "--jq", ".[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter expression")
	assert.EqualValues(t, 1, hits.Load(), "invalid filter must not reach the server")
}

func TestCallRawOutputAndErrorStatus(t *testing.T) {
	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`not here`))
	}))

	out, err := execute(t, "call", "GetUser", "-p", "id=1", "-o", "raw")
	require.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, "not here", out)
}

func TestCallUploadsFormFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(file, []byte("PNG"), 0o644))

	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if !assert.NoError(t, err) {
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])

		part, err := mr.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "file", part.FormName())
		assert.Equal(t, "avatar.png", part.FileName())
		data, _ := io.ReadAll(part)
		assert.Equal(t, "PNG", string(data))

		part, err = mr.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "label", part.FormName())
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	out, err := execute(t, "call", "UploadAvatar", "-p", "file=@"+file, "-p", "label=me")
	require.NoError(t, err)
	assert.Contains(t, out, `"ok": true`)
}

func TestCallArgumentErrors(t *testing.T) {
	setupEnv(t, http.NotFoundHandler())

	_, err := execute(t, "call")
	require.Error(t, err)

	_, err = execute(t, "call", "GetUser", "-p", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want key=value")

	_, err = execute(t, "call", "GetUser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required argument "id"`)

	_, err = execute(t, "call", "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown endpoint")

	_, err = execute(t, "call", "GetUser", "-p", "id=1", "-o", "yaml")
	require.Error(t, err)
}

func TestEndpointsList(t *testing.T) {
	setupEnv(t, http.NotFoundHandler())

	out, err := execute(t, "endpoints")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "GetUser")
	assert.Contains(t, lines[1], "path:id*")

	out, err = execute(t, "ls", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "UploadAvatar"`)
}

func TestCallPrintsMetrics(t *testing.T) {
	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Setenv("METRICS_ENABLED", "true")

	var out, errOut bytes.Buffer
	err := Execute(context.Background(), []string{"call", "GetUser", "-p", "id=1", "--metrics"}, &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "retrofit_requests_total endpoint=GetUser method=GET status=200 1")
}

func TestCachePurge(t *testing.T) {
	var calls atomic.Int32
	setupEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	t.Setenv("STORAGE_TYPE", "bbolt")
	t.Setenv("BBOLT_PATH", filepath.Join(t.TempDir(), "responses.db"))

	_, err := execute(t, "call", "GetUser", "-p", "id=1")
	require.NoError(t, err)
	_, err = execute(t, "call", "GetUser", "-p", "id=1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	out, err := execute(t, "cache", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 cached responses")

	_, err = execute(t, "call", "GetUser", "-p", "id=1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
