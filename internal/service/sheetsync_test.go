package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"letter-log-system/internal/config"
	"letter-log-system/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheet serves the handful of values endpoints the mirror uses and keeps
// the data rows (row 2 onwards) in memory.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]interface{}
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodGet:
		values := [][]interface{}{}
		for _, row := range f.rows {
			if len(row) > 0 {
				values = append(values, row[:1])
			} else {
				values = append(values, []interface{}{})
			}
		}
		writeJSON(w, map[string]interface{}{"range": rng, "values": values})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		writeJSON(w, map[string]interface{}{})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		var n int
		if _, err := fmt.Sscanf(strings.TrimSuffix(rng, ":clear"), "Surat!A%d:", &n); err == nil && n >= 2 {
			f.rows[n-2] = []interface{}{}
		} else {
			f.rows = nil
		}
		writeJSON(w, map[string]interface{}{})

	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		var n int
		fmt.Sscanf(rng, "Surat!A%d:", &n)
		if n == 1 {
			f.rows = vr.Values[1:]
		} else {
			f.rows[n-2] = vr.Values[0]
		}
		writeJSON(w, map[string]interface{}{})

	default:
		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newFakeSheetService(t *testing.T) (*SheetSyncService, *fakeSheet) {
	t.Helper()

	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := sheets.NewService(bg,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	return newSheetSyncService(client, "sheet-123", "Surat", zerolog.Nop()), fake
}

func sheetLetter(id uint, nomor string) *model.Letter {
	return &model.Letter{
		ID:         id,
		NomorSurat: nomor,
		Perihal:    "Undangan rapat",
		Tanggal:    model.NewDate(2024, time.March, 5),
		Jenis:      model.SuratMasuk,
		Status:     model.LetterActive,
		UpdatedAt:  time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
	}
}

func TestSheetUpsertAppendsThenUpdates(t *testing.T) {
	s, fake := newFakeSheetService(t)

	require.NoError(t, s.Upsert(bg, sheetLetter(1, "001")))
	require.NoError(t, s.Upsert(bg, sheetLetter(2, "002")))
	require.NoError(t, s.Upsert(bg, sheetLetter(1, "001-REV")))

	require.Len(t, fake.rows, 2)
	assert.Equal(t, "1", fake.rows[0][0])
	assert.Equal(t, "001-REV", fake.rows[0][1])
	assert.Equal(t, "2024-03-05", fake.rows[0][3])
	assert.Equal(t, "Surat Masuk", fake.rows[0][4])
	assert.Equal(t, "002", fake.rows[1][1])
}

func TestSheetRemoveClearsRow(t *testing.T) {
	s, fake := newFakeSheetService(t)

	require.NoError(t, s.Upsert(bg, sheetLetter(1, "001")))
	require.NoError(t, s.Upsert(bg, sheetLetter(2, "002")))
	require.NoError(t, s.Remove(bg, 1))
	require.NoError(t, s.Remove(bg, 99))

	require.Len(t, fake.rows, 2)
	assert.Empty(t, fake.rows[0])
	assert.Equal(t, "2", fake.rows[1][0])
}

func TestSheetSyncAll(t *testing.T) {
	s, fake := newFakeSheetService(t)
	require.NoError(t, s.Upsert(bg, sheetLetter(9, "stale")))

	require.NoError(t, s.SyncAll(bg, []model.Letter{*sheetLetter(1, "001"), *sheetLetter(2, "002")}))

	require.Len(t, fake.rows, 2)
	assert.Equal(t, "001", fake.rows[0][1])
	assert.Equal(t, "002", fake.rows[1][1])
}

func TestNilSheetSyncServiceIsNoop(t *testing.T) {
	var s *SheetSyncService
	assert.NoError(t, s.Upsert(bg, sheetLetter(1, "001")))
	assert.NoError(t, s.Remove(bg, 1))
	assert.NoError(t, s.SyncAll(bg, nil))
}

func TestNewSheetSyncServiceDisabled(t *testing.T) {
	s, err := NewSheetSyncService(bg, config.SheetsConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewSheetSyncService(bg, config.SheetsConfig{Enabled: true, CredentialsFile: "/nonexistent/creds.json"}, zerolog.Nop())
	assert.Error(t, err)
}
