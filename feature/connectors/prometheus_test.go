package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ipocket/feature/imports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prometheusVector = `{
	"status": "success",
	"data": {
		"resultType": "vector",
		"result": [
			{"metric": {"__name__": "up", "instance": "10.0.0.1:9100", "job": "node"}, "value": [1700000000, "1"]},
			{"metric": {"__name__": "up", "instance": "10.0.0.1:9100"}, "value": [1700000000, "1"]},
			{"metric": {"__name__": "up", "instance": "[::1]:9100"}, "value": [1700000000, "1"]},
			{"metric": {"__name__": "up", "instance": "127.0.0.1:9100"}, "value": [1700000000, "1"]},
			{"metric": {"__name__": "up", "job": "node"}, "value": [1700000000, "1"]},
			{"metric": {"__name__": "up", "instance": "10.0.0.2"}, "value": [1700000000, "0"]}
		]
	}
}`

func TestPrometheusAdapter_Parse(t *testing.T) {
	t.Run("Vector Response", func(t *testing.T) {
		adapter := NewPrometheusAdapter(PrometheusSettings{
			Query:       `up{job="node"}`,
			IPLabel:     "instance",
			DefaultType: "VM",
			ProjectName: "monitoring",
			Tags:        []string{"monitored"},
		})
		model, warnings, err := adapter.Parse(map[string][]byte{InputSamples: []byte(prometheusVector)})
		require.NoError(t, err)

		// Duplicate, IPv6, loopback and missing-label samples warn.
		assert.Len(t, warnings, 4)

		require.Len(t, model.IPAssets, 2)

		first := model.IPAssets[0]
		assert.Equal(t, "10.0.0.1", first.IPAddress)
		assert.Equal(t, "VM", first.Type)
		require.NotNil(t, first.ProjectName)
		assert.Equal(t, "monitoring", *first.ProjectName)
		assert.Equal(t, []string{"monitored"}, first.Tags)
		require.NotNil(t, first.Notes)
		assert.Equal(t,
			`Imported from Prometheus query 'up{job="node"}' using label 'instance' (metric=up, value=1).`,
			*first.Notes)
		assert.Equal(t, imports.Policy{MergeTags: true}, first.Policy)

		second := model.IPAssets[1]
		assert.Equal(t, "10.0.0.2", second.IPAddress)

		// The referenced project resolves in-run.
		require.Len(t, model.Projects, 1)
		assert.Equal(t, "monitoring", model.Projects[0].Name)
		require.Len(t, model.Tags, 1)
		assert.Equal(t, "monitored", model.Tags[0].Name)
	})

	t.Run("Default Type Is Other", func(t *testing.T) {
		adapter := NewPrometheusAdapter(PrometheusSettings{Query: "up", IPLabel: "instance"})
		payload := `{"status": "success", "data": {"resultType": "vector", "result": [
			{"metric": {"instance": "10.0.0.5"}, "value": [1700000000, "1"]}
		]}}`
		model, _, err := adapter.Parse(map[string][]byte{InputSamples: []byte(payload)})
		require.NoError(t, err)
		require.Len(t, model.IPAssets, 1)
		assert.Equal(t, "OTHER", model.IPAssets[0].Type)
	})

	t.Run("Missing IP Label Setting", func(t *testing.T) {
		adapter := NewPrometheusAdapter(PrometheusSettings{Query: "up"})
		_, _, err := adapter.Parse(map[string][]byte{InputSamples: []byte(prometheusVector)})
		var parseErr *imports.ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("Failed Query Status", func(t *testing.T) {
		adapter := NewPrometheusAdapter(PrometheusSettings{Query: "up", IPLabel: "instance"})
		payload := `{"status": "error", "errorType": "bad_data", "error": "parse error"}`
		_, _, err := adapter.Parse(map[string][]byte{InputSamples: []byte(payload)})
		var parseErr *imports.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Message, "bad_data")
	})

	t.Run("Non-Vector Result", func(t *testing.T) {
		adapter := NewPrometheusAdapter(PrometheusSettings{Query: "up", IPLabel: "instance"})
		payload := `{"status": "success", "data": {"resultType": "matrix", "result": []}}`
		_, _, err := adapter.Parse(map[string][]byte{InputSamples: []byte(payload)})
		var parseErr *imports.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestExtractHostCandidate(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"10.0.0.1:9100", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
		{"[::1]:9100", "::1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"host.example.com:9100", "host.example.com"},
		{"10.0.0.1:port", "10.0.0.1:port"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHostCandidate(tt.value))
		})
	}
}

func TestPrometheusClient_Query(t *testing.T) {
	t.Run("Bearer Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/query", r.URL.Path)
			assert.Equal(t, "up", r.URL.Query().Get("query"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"status": "success"}`))
		}))
		defer server.Close()

		client := NewPrometheusClient(0, false)
		payload, err := client.Query(context.Background(), server.URL, "up", "secret")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status": "success"}`, string(payload))
	})

	t.Run("Basic Credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Equal(t, "hunter2", pass)
			_, _ = w.Write([]byte(`{"status": "success"}`))
		}))
		defer server.Close()

		client := NewPrometheusClient(0, false)
		_, err := client.Query(context.Background(), server.URL, "up", "admin:hunter2")
		require.NoError(t, err)
	})

	t.Run("HTTP Error Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "permission denied", http.StatusForbidden)
		}))
		defer server.Close()

		client := NewPrometheusClient(0, false)
		_, err := client.Query(context.Background(), server.URL, "up", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})
}
