package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]interface{}
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(`{"version":{"number":"7.17.10","build_flavor":"default"},"tagline":"You Know, for Search"}`))
			return
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"},"status":400}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"created","_id":"42"}`))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func testSummary() models.ChallanSummary {
	return models.ChallanSummary{
		ID:           42,
		CustomerName: "Acme Corp",
		ChallanNo:    "CH-001",
		CreatedAt:    time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
		TotalItems:   decimal.NewFromInt(3),
		TotalPrice:   decimal.RequireFromString("12.5"),
		DownloadURL:  models.DownloadURL(42),
	}
}

func TestIndexChallan(t *testing.T) {
	server, requests := newTestServer(t, http.StatusCreated)

	client, err := NewElasticClient(config.ElasticConfig{URL: server.URL, Prefix: "challan", Index: "challans"})
	require.NoError(t, err)

	require.NoError(t, client.IndexChallan(context.Background(), testSummary()))

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/challan-challans/_doc/42", req.path)
	assert.Equal(t, "CH-001", req.body["challan_no"])
	assert.Equal(t, 12.5, req.body["total_price"])
	assert.Equal(t, "/api/download-pdf/42", req.body["download_url"])
}

func TestIndexChallanError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadRequest)

	client, err := NewElasticClient(config.ElasticConfig{URL: server.URL, Index: "challans"})
	require.NoError(t, err)

	err = client.IndexChallan(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Elasticsearch index error")
}
