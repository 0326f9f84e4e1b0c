package catalog_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ProductStore/internal/auth"
	"ProductStore/internal/catalog"
)

const testSecret = "test-secret"

func newCatalogTS(t *testing.T, guarded bool) *httptest.Server {
	t.Helper()

	store, err := catalog.OpenFileStore(filepath.Join(t.TempDir(), "products.json"), zap.NewNop())
	require.NoError(t, err)

	s := &catalog.Server{Store: store, Log: zap.NewNop()}
	if guarded {
		s.Guard = auth.RequireRole(auth.NewTokenMaker(testSecret), auth.RoleAdmin)
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "catalog",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func productBody(code string) map[string]any {
	return map[string]any{
		"code":        code,
		"title":       "iPhone X | 64gb",
		"description": "Apple smartphone, 64 GB",
		"price":       "250",
		"thumbnail":   "https://example.com/iphone-x.jpg",
		"stock":       3,
	}
}

func TestHTTP_ProductLifecycle(t *testing.T) {
	ts := newCatalogTS(t, false)

	var created catalog.Product
	{
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1111"), nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
		require.NoError(t, json.Unmarshal(raw, &created))
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, "250", created.Price.String())
		assert.True(t, created.Stock.IsNumber())
	}

	{
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1111"), nil)
		require.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))
	}

	{
		resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list []catalog.Product
		require.NoError(t, json.Unmarshal(raw, &list))
		require.Len(t, list, 1)
	}

	{
		resp, raw := doJSON(t, http.MethodPatch, ts.URL+"/products/1", map[string]any{"id": 99, "price": "290"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var got catalog.Product
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, "290", got.Price.String())
		assert.Equal(t, "1111", got.Code)
	}

	{
		resp, _ := doJSON(t, http.MethodGet, ts.URL+"/products/1", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	{
		resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/products/1", nil, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	{
		resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products/1", nil, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var er struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(raw, &er))
		assert.Equal(t, "not found", er.Error)
	}

	{
		resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/products/1", nil, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}

func TestHTTP_CreateReportsMissingFields(t *testing.T) {
	ts := newCatalogTS(t, false)

	body := productBody("1112")
	body["price"] = ""
	delete(body, "thumbnail")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/products", body, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))

	var er struct {
		Details struct {
			Missing []string `json:"missing"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &er))
	assert.Equal(t, []string{"price", "thumbnail"}, er.Details.Missing)
}

func TestHTTP_BadInput(t *testing.T) {
	ts := newCatalogTS(t, false)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/products/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products/0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/products", bytes.NewBufferString("{"))
	require.NoError(t, err)
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestHTTP_RejectsOversizedAmounts(t *testing.T) {
	ts := newCatalogTS(t, false)

	body := `{"code":"big","title":"T","description":"D","price":1e50000000,"thumbnail":"u","stock":1}`
	resp, err := http.Post(ts.URL+"/products", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestHTTP_UnknownRoutesAnswerJSON(t *testing.T) {
	ts := newCatalogTS(t, false)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Contains(t, string(raw), `"no such route"`)

	resp, raw = doJSON(t, http.MethodPut, ts.URL+"/products", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, string(raw), `"method not allowed"`)
}

func TestHTTP_ListIsCompressed(t *testing.T) {
	ts := newCatalogTS(t, false)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1114"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Uncompressed, "transport saw a gzip body")

	var list []catalog.Product
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
}

func TestHTTP_GuardProtectsMutations(t *testing.T) {
	ts := newCatalogTS(t, true)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1113"), nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "reads stay public")

	tm := auth.NewTokenMaker(testSecret)

	userTok, err := tm.New("viewer@example.com", "user", time.Minute)
	require.NoError(t, err)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1113"), map[string]string{
		"Authorization": "Bearer " + userTok,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminTok, err := tm.New("admin@example.com", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)
	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/products", productBody("1113"), map[string]string{
		"Authorization": "Bearer " + adminTok,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
}

func TestHTTP_HealthAndReady(t *testing.T) {
	ts := newCatalogTS(t, false)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_MetricsEndpointNeedsToken(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := catalog.Instrument(catalog.NewMemStore(zap.NewNop()), reg)

	h := catalog.NewHandler(&catalog.Server{Store: store}, catalog.HTTPDeps{
		Service:        "catalog",
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "scrape",
		Extra: func(r chi.Router) {
			r.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		},
	})
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{"Authorization": "Bearer scrape"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `product_store_operations_total{op="list",result="ok"} 1`)
	assert.Contains(t, string(raw), `http_requests_total{`)
	assert.Contains(t, string(raw), `product_store_products{service="catalog"} 0`)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/extra", nil, nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
