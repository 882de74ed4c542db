package records

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contact-sync/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL: url + "/v0",
		APIKey:  "key-abc",
		BaseID:  "appBase",
		TableID: "tblContacts",
		Timeout: 5 * time.Second,
	})
}

func TestClient_ListRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v0/appBase/tblContacts", r.URL.Path)
		assert.Equal(t, "Bearer key-abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"records": [
				{"id": "rec1", "fields": {"Name": "Ada", "PROCESS": "new", "Overdue amount": 10.005}},
				{"id": "rec2", "fields": {"Name": "Bob", "PROCESS": "START", "paylink": "https://pay/x"}}
			],
			"offset": "itrNext"
		}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "rec1", result.Records[0].ID)
	assert.Equal(t, "Ada", result.Records[0].Text(FieldName))
	assert.Equal(t, "10.005", result.Records[0].Text(FieldOverdueAmount))
	assert.IsType(t, json.Number(""), result.Records[0].Fields[FieldOverdueAmount])
	assert.Equal(t, "", result.Records[0].Text(FieldPaylink))
	assert.Equal(t, "https://pay/x", result.Records[1].Text(FieldPaylink))
	assert.Equal(t, "itrNext", result.Offset)
}

func TestClient_ListRecords_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode errors.ErrorCode
		wantMsg  string
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"type":"AUTHENTICATION_REQUIRED"}}`,
			wantCode: errors.ErrCodeUpstreamRejection,
			wantMsg:  "status 401",
		},
		{
			name:     "missing records array",
			status:   http.StatusOK,
			body:     `{"items": []}`,
			wantCode: errors.ErrCodeUpstreamRejection,
			wantMsg:  "unexpected list response",
		},
		{
			name:     "record without id",
			status:   http.StatusOK,
			body:     `{"records": [{"fields": {}}]}`,
			wantCode: errors.ErrCodeUpstreamRejection,
			wantMsg:  "unexpected list response",
		},
		{
			name:     "not json",
			status:   http.StatusOK,
			body:     `<html>maintenance</html>`,
			wantCode: errors.ErrCodeUpstreamRejection,
			wantMsg:  "unreadable list response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).ListRecords(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_ListRecords_Transport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).ListRecords(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransport, errors.CodeOf(err))
}

func TestClient_UpdateRecord(t *testing.T) {
	var received map[string]map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v0/appBase/tblContacts/rec42", r.URL.Path)
		assert.Equal(t, "Bearer key-abc", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &received))
		w.Write([]byte(`{"id":"rec42","fields":{}}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateRecord(context.Background(), "rec42", map[string]interface{}{
		FieldPaylink: "https://buy.example/link",
		FieldProcess: "START",
	})
	require.NoError(t, err)

	require.Contains(t, received, "fields")
	assert.Equal(t, map[string]interface{}{
		FieldPaylink: "https://buy.example/link",
		FieldProcess: "START",
	}, received["fields"])
}

func TestClient_UpdateRecord_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"UNKNOWN_FIELD_NAME"}}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateRecord(context.Background(), "rec42", map[string]interface{}{"x": "y"})
	require.Error(t, err)

	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeUpstreamRejection, stdErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, stdErr.StatusCode)
	assert.Contains(t, stdErr.Details, "UNKNOWN_FIELD_NAME")
}
