package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *MondayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMondayClient(MondayConfig{
		APIURL:  srv.URL + "/v2",
		APIKey:  "board-key",
		BoardID: 1234,
		GroupID: "topics",
	})
}

func sampleItem() Item {
	return Item{
		Serial:         "103441045",
		Latitude:       32.0301,
		Longitude:      34.8512,
		Date:           time.Date(2026, 2, 27, 10, 15, 0, 0, time.UTC),
		Notes:          `pole "B" leaning`,
		PreviousSerial: "103000001",
		SwitchType:     "A",
		Report:         "status: pass",
	}
}

func TestCreateItem(t *testing.T) {
	var got graphQLRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2", r.URL.Path)
		assert.Equal(t, "board-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{"create_item":{"id":"998877"}}}`)
	})

	id, err := c.CreateItem(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.Equal(t, "998877", id)

	assert.Contains(t, got.Query, "create_item(")
	assert.Equal(t, "1234", got.Variables["boardId"])
	assert.Equal(t, "topics", got.Variables["groupId"])
	assert.Equal(t, "103441045", got.Variables["itemName"])

	var cols map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Variables["columnValues"].(string)), &cols))
	assert.Equal(t, `pole "B" leaning`, cols["text4"])
	assert.Equal(t, "103000001", cols["text7"])
	assert.Equal(t, map[string]any{"date": "2026-02-27"}, cols["date4"])
	assert.Equal(t, map[string]any{"label": UnknownLampType}, cols["label3"])
	assert.Equal(t, map[string]any{"label": "A"}, cols["status_1"])
	assert.Equal(t, map[string]any{"lat": "32.0301", "lng": "34.8512", "address": "103441045"}, cols["location"])
	assert.Equal(t, map[string]any{"text": "status: pass"}, cols["long_text"])
}

func TestUpdateItem(t *testing.T) {
	var got graphQLRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{"change_multiple_column_values":{"id":"998877"}}}`)
	})

	item := sampleItem()
	item.SwitchType = ""
	item.LampType = "LED 60W"
	require.NoError(t, c.UpdateItem(context.Background(), "998877", item))

	assert.Contains(t, got.Query, "change_multiple_column_values(")
	assert.Equal(t, "998877", got.Variables["itemId"])

	var cols map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Variables["columnValues"].(string)), &cols))
	assert.NotContains(t, cols, "status_1")
	assert.Equal(t, map[string]any{"label": "LED 60W"}, cols["label3"])

	err := c.UpdateItem(context.Background(), "99; drop", item)
	assert.ErrorIs(t, err, ErrInvalidItemID)
}

func TestGraphQLErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"errors list", http.StatusOK, `{"errors":[{"message":"Column not found"}]}`, "Column not found"},
		{"api error", http.StatusOK, `{"error_code":"InvalidBoardIdException","error_message":"Board not found"}`, "InvalidBoardIdException: Board not found"},
		{"api error with 4xx", http.StatusBadRequest, `{"error_message":"bad"}`, "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.CreateItem(context.Background(), sampleItem())
			assert.ErrorIs(t, err, ErrGraphQL)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := c.CreateItem(context.Background(), sampleItem())
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
	assert.Equal(t, "create_item", serr.Operation)
}

func TestAttachFile(t *testing.T) {
	var (
		query    string
		filename string
		content  []byte
		path     string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		query = r.FormValue("query")
		f, hdr, err := r.FormFile("variables[file]")
		require.NoError(t, err)
		defer f.Close()
		filename = hdr.Filename
		content, _ = io.ReadAll(f)
		_, _ = io.WriteString(w, `{"data":{"add_file_to_column":{"id":"5"}}}`)
	})

	require.NoError(t, c.AttachFile(context.Background(), "998877", "IMG_0001.jpg", []byte("jpegbytes")))

	assert.Equal(t, "/v2/file", path)
	assert.Contains(t, query, "item_id: 998877")
	assert.Contains(t, query, `column_id: "files"`)
	assert.Equal(t, "IMG_0001.jpg", filename)
	assert.Equal(t, []byte("jpegbytes"), content)
}

func TestAttachFile_Rejects(t *testing.T) {
	c := NewMondayClient(MondayConfig{APIURL: "http://127.0.0.1:0"})

	assert.ErrorIs(t, c.AttachFile(context.Background(), "abc", "x.jpg", []byte("x")), ErrInvalidItemID)
	assert.ErrorIs(t, c.AttachFile(context.Background(), "1", "x.jpg", nil), ErrEmptyFile)
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"me":{"id":"42"}}}`)
	})
	assert.NoError(t, c.HealthCheck(context.Background()))
}
