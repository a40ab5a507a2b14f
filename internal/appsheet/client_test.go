package appsheet

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

	"github.com/JonMunkholm/nvl/internal/config"
)

type row struct {
	ID   string `json:"Mã NVL"`
	Name string `json:"Tên NVL"`
}

func newTestClient(t *testing.T, strict bool, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(config.AppSheetConfig{
		BaseURL:      srv.URL + "/api/v2/",
		AppID:        "app-1",
		AccessKey:    "key-1",
		Locale:       "vi-VN",
		Timeout:      5 * time.Second,
		StrictDecode: strict,
	}, opts...)
}

func TestDo_FindSendsPayloadAndDecodesArray(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("ApplicationAccessKey")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Mã NVL":"NVL001","Tên NVL":"Ván ép"}]`))
	})

	var rows []row
	err := c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionFind, Selector: "Filter(DSNVL, true)"}, &rows)
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/apps/app-1/tables/DSNVL/Action", gotPath)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "Find", gotBody["Action"])
	props, _ := gotBody["Properties"].(map[string]any)
	assert.Equal(t, "vi-VN", props["Locale"])
	assert.Equal(t, "Filter(DSNVL, true)", props["Selector"])
	assert.Equal(t, []any{}, gotBody["Rows"])

	require.Len(t, rows, 1)
	assert.Equal(t, row{ID: "NVL001", Name: "Ván ép"}, rows[0])
}

func TestDo_DecodesRowsWrapper(t *testing.T) {
	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Rows":[{"Mã NVL":"NVL002","Tên NVL":"Keo"}]}`))
	})

	var rows []row
	require.NoError(t, c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionAdd, Rows: []row{{ID: "NVL002"}}}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "NVL002", rows[0].ID)
}

func TestDo_EmptyBody(t *testing.T) {
	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var rows []row
	require.NoError(t, c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionFind}, &rows))
	assert.Empty(t, rows)
}

func TestDo_StrictRejectsUnknownColumn(t *testing.T) {
	body := `[{"Mã NVL":"NVL001","Tên NVL":"Ván","Màu":"đỏ"}]`

	strict := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	var rows []row
	err := strict.Do(context.Background(), Request{Table: "DSNVL", Action: ActionFind}, &rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn), "got %v", err)

	lenient := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	rows = nil
	require.NoError(t, lenient.Do(context.Background(), Request{Table: "DSNVL", Action: ActionFind}, &rows))
	assert.Len(t, rows, 1)
}

func TestDo_APIError(t *testing.T) {
	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Message":"Table 'DSNVL' not found"}`))
	})

	err := c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionDelete}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Table 'DSNVL' not found", apiErr.Message)
}

func TestDo_ObserverSeesOutcome(t *testing.T) {
	var calls []error
	observer := func(table string, action Action, _ time.Duration, err error) {
		assert.Equal(t, "DSNVL", table)
		assert.Equal(t, ActionEdit, action)
		calls = append(calls, err)
	}

	status := http.StatusOK
	c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}, WithObserver(observer))

	require.NoError(t, c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionEdit}, nil))
	status = http.StatusInternalServerError
	require.Error(t, c.Do(context.Background(), Request{Table: "DSNVL", Action: ActionEdit}, nil))

	require.Len(t, calls, 2)
	assert.NoError(t, calls[0])
	assert.Error(t, calls[1])
}

func TestErrorMessage_PlainText(t *testing.T) {
	assert.Equal(t, "bad gateway", errorMessage([]byte(" bad gateway \n")))
}
