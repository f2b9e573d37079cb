package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ssargent/rowcodec/pkg/compress"
	"github.com/ssargent/rowcodec/pkg/schema"
	"github.com/ssargent/rowcodec/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

type testServer struct {
	server  *Server
	handler http.Handler
	store   *storage.RowStorage
	metrics *Metrics
}

// setupTestServer creates a server over an in-memory row store
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	s := schema.NewBuilder().
		AddInt32Field("f0").
		AddDoubleField("f1").
		AddByteArrayField("f2").
		Build()

	st, err := storage.NewRowStorage(s, storage.Options{
		Path:       "db",
		FS:         vfs.NewMem(),
		Compressor: compress.Snappy{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	metrics := NewMetrics(prometheus.NewRegistry())
	server, err := NewServer(st, ServerConfig{APIKey: testAPIKey}, metrics)
	require.NoError(t, err)

	return &testServer{server: server, handler: NewRouter(server), store: st, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	var resp APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// dataAs re-decodes the generic data field into v.
func dataAs(t *testing.T, resp APIResponse, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestNewServer_UnknownStrategy(t *testing.T) {
	ts := setupTestServer(t)
	_, err := NewServer(ts.store, ServerConfig{Strategy: "fuzzy"}, ts.metrics)
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.authRequestsTotal.WithLabelValues(statusError)))

	w, resp := ts.do(t, "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.healthChecksTotal.WithLabelValues(statusSuccess)))
}

func TestHandleSchema(t *testing.T) {
	ts := setupTestServer(t)

	w, resp := ts.do(t, "GET", "/api/v1/schema", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got SchemaResponse
	dataAs(t, resp, &got)
	assert.Equal(t, []FieldResponse{
		{Name: "f0", Type: "int32"},
		{Name: "f1", Type: "double"},
		{Name: "f2", Type: "bytes"},
	}, got.Fields)
	assert.Equal(t, ts.store.Schema().String(), got.Schema)
}

func TestBytesEncodeDecode(t *testing.T) {
	ts := setupTestServer(t)

	// "qw==" is base64 for 0xab
	w, resp := ts.do(t, "POST", "/api/v1/bytes/encode", `{"data":"qw=="}`)
	require.Equal(t, http.StatusOK, w.Code)
	var enc EncodedResponse
	dataAs(t, resp, &enc)
	assert.Equal(t, []byte{0x01, 0xab}, enc.Encoded)
	assert.Equal(t, 2, enc.Size)

	body, err := json.Marshal(EncodedRequest{Encoded: enc.Encoded})
	require.NoError(t, err)
	w, resp = ts.do(t, "POST", "/api/v1/bytes/decode", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	var dec DecodedResponse
	dataAs(t, resp, &dec)
	assert.Equal(t, []byte{0xab}, dec.Data)
	assert.Equal(t, 1, dec.Size)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.codecOperationsTotal.WithLabelValues("encode", statusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.codecBytesTotal.WithLabelValues("decode")))
}

func TestBytesEncode_Empty(t *testing.T) {
	ts := setupTestServer(t)

	w, resp := ts.do(t, "POST", "/api/v1/bytes/encode", `{"data":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	var enc EncodedResponse
	dataAs(t, resp, &enc)
	assert.Equal(t, []byte{0x00}, enc.Encoded)
}

func TestBytesEncode_Absent(t *testing.T) {
	ts := setupTestServer(t)

	for _, body := range []string{`{}`, `{"data":null}`} {
		t.Run(body, func(t *testing.T) {
			w, resp := ts.do(t, "POST", "/api/v1/bytes/encode", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Data)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.codecOperationsTotal.WithLabelValues("encode", statusError)))
}

func TestBytesDecode_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		encoded []byte
	}{
		{"empty", []byte{}},
		{"negative length", []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{"truncated", []byte{0x03, 0x01}},
		{"trailing bytes", []byte{0x01, 0xab, 0xcd}},
	}

	ts := setupTestServer(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(EncodedRequest{Encoded: tc.encoded})
			require.NoError(t, err)
			w, resp := ts.do(t, "POST", "/api/v1/bytes/decode", string(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, float64(len(testCases)),
		testutil.ToFloat64(ts.metrics.codecOperationsTotal.WithLabelValues("decode", statusError)))
}

func TestRowLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	w, resp := ts.do(t, "POST", "/api/v1/rows", `{"f0":1,"f1":2.5,"f2":"qw=="}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created RowResponse
	dataAs(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.JSONEq(t, `{"f0":1,"f1":2.5,"f2":"qw=="}`, string(created.Row))

	w, resp = ts.do(t, "GET", "/api/v1/rows/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got RowResponse
	dataAs(t, resp, &got)
	assert.JSONEq(t, `{"f0":1,"f1":2.5,"f2":"qw=="}`, string(got.Row))

	w, _ = ts.do(t, "PUT", "/api/v1/rows/"+created.ID, `{"f0":2,"f1":null,"f2":"AQI="}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = ts.do(t, "GET", "/api/v1/rows/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	dataAs(t, resp, &got)
	assert.JSONEq(t, `{"f0":2,"f1":null,"f2":"AQI="}`, string(got.Row))

	ts.server.updateRowCount()
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.dbRowsTotal))

	w, _ = ts.do(t, "DELETE", "/api/v1/rows/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = ts.do(t, "GET", "/api/v1/rows/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Row not found", resp.Error)

	w, _ = ts.do(t, "DELETE", "/api/v1/rows/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRowErrors(t *testing.T) {
	ts := setupTestServer(t)

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid id", "GET", "/api/v1/rows/not-an-id", "", http.StatusBadRequest},
		{"unknown field", "POST", "/api/v1/rows", `{"nope":1}`, http.StatusBadRequest},
		{"wrong type", "POST", "/api/v1/rows", `{"f0":"x"}`, http.StatusBadRequest},
		{"not an object", "POST", "/api/v1/rows", `[1,2]`, http.StatusBadRequest},
		{"update missing row", "PUT", "/api/v1/rows/0ujsswThIGTUYm2K8FjOOfXtY1K", `{"f0":1}`, http.StatusNotFound},
		{"update invalid id", "PUT", "/api/v1/rows/x", `{"f0":1}`, http.StatusBadRequest},
		{"delete invalid id", "DELETE", "/api/v1/rows/x", "", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := ts.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.False(t, resp.Success)
		})
	}
}

func TestCompareRows(t *testing.T) {
	ts := setupTestServer(t)

	w, resp := ts.do(t, "POST", "/api/v1/rows", `{"f0":1,"f1":2.5,"f2":"qw=="}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created RowResponse
	dataAs(t, resp, &created)

	testCases := []struct {
		name string
		body string
		want CompareResponse
	}{
		{
			name: "inline rows equal",
			body: `{"left":{"f0":1,"f1":2.5,"f2":"qw=="},"right":{"f2":"qw==","f1":2.5,"f0":1}}`,
			want: CompareResponse{Equal: true, Strategy: "deep"},
		},
		{
			name: "bytes differ",
			body: `{"left":{"f2":"qw=="},"right":{"f2":"qg=="}}`,
			want: CompareResponse{Equal: false, Strategy: "deep"},
		},
		{
			name: "stored against inline",
			body: `{"left":"` + created.ID + `","right":{"f0":1,"f1":2.5,"f2":"qw=="}}`,
			want: CompareResponse{Equal: true, Strategy: "deep"},
		},
		{
			name: "storage strategy with byte arrays",
			body: `{"left":"` + created.ID + `","right":"` + created.ID + `","strategy":"storage"}`,
			want: CompareResponse{Equal: true, Strategy: "storage"},
		},
		{
			name: "null versus value",
			body: `{"left":{"f1":null},"right":{"f1":0}}`,
			want: CompareResponse{Equal: false, Strategy: "deep"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := ts.do(t, "POST", "/api/v1/rows/compare", tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var got CompareResponse
			dataAs(t, resp, &got)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.comparisonsTotal.WithLabelValues("deep", "equal")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.comparisonsTotal.WithLabelValues("deep", "unequal")))
}

func TestCompareRows_Errors(t *testing.T) {
	ts := setupTestServer(t)

	testCases := []struct {
		name string
		body string
		want int
	}{
		{"unknown strategy", `{"left":{},"right":{},"strategy":"fuzzy"}`, http.StatusBadRequest},
		{"missing side", `{"left":{}}`, http.StatusBadRequest},
		{"bad id", `{"left":"x","right":{}}`, http.StatusBadRequest},
		{"unknown id", `{"left":"0ujsswThIGTUYm2K8FjOOfXtY1K","right":{}}`, http.StatusNotFound},
		{"bad row", `{"left":{"f9":1},"right":{}}`, http.StatusBadRequest},
		{"unknown request field", `{"left":{},"right":{},"extra":1}`, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := ts.do(t, "POST", "/api/v1/rows/compare", tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.False(t, resp.Success)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, "GET", "/api/v1/health", "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rowcodec_http_requests_total")
	assert.Contains(t, w.Body.String(), `endpoint="/api/v1/health"`)
}

func TestSwaggerDoc(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest("GET", "/swagger/swagger.json", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc["basePath"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/rows/compare")

	req = httptest.NewRequest("GET", "/swagger/index.html", nil)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte("swagger-ui")))

	req = httptest.NewRequest("GET", "/swagger/other", nil)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartServer_ListenFailure(t *testing.T) {
	ts := setupTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	config := ServerConfig{
		Bind:   "127.0.0.1",
		Port:   ln.Addr().(*net.TCPAddr).Port,
		APIKey: testAPIKey,
	}

	done := make(chan error, 1)
	go func() {
		done <- StartServer(context.Background(), ts.store, config, ts.metrics)
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("StartServer did not return after the listen failed")
	}
}
