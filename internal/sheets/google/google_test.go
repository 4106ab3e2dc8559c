package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   string
}

func newFakeSheets(t *testing.T) (*Client, *[]recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-123", "",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, &calls
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := NewFromEnv(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportRoster(t *testing.T) {
	c, calls := newFakeSheets(t)
	rows := [][]string{
		{"الاسم", "الغرفة"},
		{"أحمد", "012"},
	}

	require.NoError(t, c.ExportRoster(context.Background(), rows))
	require.Len(t, *calls, 2)

	clear := (*calls)[0]
	assert.Equal(t, http.MethodPost, clear.method)
	assert.True(t, strings.HasSuffix(clear.path, ":clear"), clear.path)
	assert.Contains(t, clear.path, "sheet-123")

	update := (*calls)[1]
	assert.Equal(t, http.MethodPut, update.method)
	assert.Contains(t, update.path, "Roster!A1:B2")
	assert.Contains(t, update.query, "valueInputOption=RAW")

	var vr struct {
		Values [][]string `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(update.body), &vr))
	assert.Equal(t, rows, vr.Values)
}

func TestExportRoster_EmptyOnlyClears(t *testing.T) {
	c, calls := newFakeSheets(t)
	require.NoError(t, c.ExportRoster(context.Background(), nil))
	assert.Len(t, *calls, 1)
}

func TestExportRoster_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Roster"}
	assert.Error(t, c.ExportRoster(context.Background(), [][]string{{"a"}}))
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 8: "H", 26: "Z", 27: "AA", 52: "AZ", 53: "BA"}
	for n, want := range tests {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}
