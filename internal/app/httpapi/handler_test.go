package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	app "github.com/R3E-Network/records_service/internal/app"
	"github.com/R3E-Network/records_service/internal/app/domain/record"
	"github.com/R3E-Network/records_service/internal/httputil"
	"github.com/R3E-Network/records_service/pkg/logger"
	"github.com/R3E-Network/records_service/pkg/testutil"
)

var engines = []string{RouterMux, RouterChi, RouterGin}

func newTestHandler(t *testing.T, engine string) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, logger.NewDiscard(), app.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	h, err := NewHandler(application, WithLogger(logger.NewDiscard()), WithRouter(engine))
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Fields  []struct {
				Field string `json:"field"`
				Rule  string `json:"rule"`
			} `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	fields := make(map[string]string, len(body.Error.Fields))
	for _, f := range body.Error.Fields {
		fields[f.Field] = f.Rule
	}
	return httputil.ErrorDetail{Code: body.Error.Code, Message: body.Error.Message, Fields: fields}
}

func TestRecordsLifecycle(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			h := newTestHandler(t, engine)

			rr := do(h, http.MethodGet, "/records", "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `[]`, rr.Body.String())

			rr = do(h, http.MethodPost, "/records", `{"name":"Alice","email":"alice@example.com","password":"s3cret-pass"}`)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			var alice map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &alice))
			assert.Equal(t, float64(1), alice["id"])
			assert.Equal(t, "Alice", alice["name"])
			assert.Equal(t, "alice@example.com", alice["email"])
			assert.NotEmpty(t, alice["created_at"])
			assert.NotContains(t, alice, "password")
			assert.NotContains(t, rr.Body.String(), "s3cret-pass")
			assert.Equal(t, "/records/1", rr.Header().Get("Location"))

			rr = do(h, http.MethodPost, "/records", `{"name":"Bob","email":"bob@example.com","password":"another-pass"}`)
			require.Equal(t, http.StatusCreated, rr.Code)
			assert.Equal(t, "/records/2", rr.Header().Get("Location"))

			rr = do(h, http.MethodGet, "/records/1", "")
			require.Equal(t, http.StatusOK, rr.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, alice, got)

			rr = do(h, http.MethodGet, "/records", "")
			require.Equal(t, http.StatusOK, rr.Code)
			var list []record.Record
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
			require.Len(t, list, 2)
			assert.Equal(t, "Alice", list[0].Name)
			assert.Equal(t, "Bob", list[1].Name)
		})
	}
}

func TestRecordsErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
		fields map[string]string
	}{
		{"missing record", http.MethodGet, "/records/42", "", http.StatusNotFound, httputil.CodeNotFound, nil},
		{"zero id", http.MethodGet, "/records/0", "", http.StatusNotFound, httputil.CodeNotFound, nil},
		{"non integer id", http.MethodGet, "/records/abc", "", http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"id": "type"}},
		{"missing field", http.MethodPost, "/records", `{"name":"Alice","password":"long-enough"}`, http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"email": "required"}},
		{"wrong type", http.MethodPost, "/records", `{"name":7,"email":"a@b.co","password":"long-enough"}`, http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"name": "type"}},
		{"accumulates", http.MethodPost, "/records", `{"name":"A","email":"nope","password":"short","extra":1}`, http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"name": "min", "email": "email", "password": "min", "extra": "unknown"}},
		{"invalid utf8", http.MethodPost, "/records", "{\"name\":\"\xff\xfe\",\"email\":\"a@b.co\",\"password\":\"long-enough\"}", http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"name": "utf8"}},
		{"malformed json", http.MethodPost, "/records", `{"name":`, http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"body": "json"}},
		{"not an object", http.MethodPost, "/records", `[1,2]`, http.StatusBadRequest, httputil.CodeInvalidInput, map[string]string{"body": "object"}},
		{"method not allowed", http.MethodDelete, "/records", "", http.StatusMethodNotAllowed, httputil.CodeMethodNotAllowed, nil},
		{"method not allowed on item", http.MethodPut, "/records/1", "", http.StatusMethodNotAllowed, httputil.CodeMethodNotAllowed, nil},
		{"unknown path", http.MethodGet, "/nope", "", http.StatusNotFound, httputil.CodeNotFound, nil},
	}

	for _, engine := range engines {
		h := newTestHandler(t, engine)
		for _, tc := range tests {
			t.Run(engine+"/"+tc.name, func(t *testing.T) {
				rr := do(h, tc.method, tc.path, tc.body)
				require.Equal(t, tc.status, rr.Code, rr.Body.String())
				detail := decodeError(t, rr)
				assert.Equal(t, tc.code, detail.Code)
				assert.NotEmpty(t, detail.Message)
				if tc.fields != nil {
					assert.Equal(t, tc.fields, detail.Fields)
				}
			})
		}
	}
}

func TestCreateRejectsOversizedBody(t *testing.T) {
	application, err := app.New(app.Stores{}, logger.NewDiscard(), app.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	h, err := NewHandler(application, WithLogger(logger.NewDiscard()), WithMaxBodyBytes(64))
	require.NoError(t, err)

	body := `{"name":"` + strings.Repeat("x", 100) + `","email":"a@b.co","password":"long-enough"}`
	rr := do(h, http.MethodPost, "/records", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, map[string]string{"body": "max"}, decodeError(t, rr).Fields)

	rr = do(h, http.MethodGet, "/records", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			h := newTestHandler(t, engine)
			const n = 50

			var wg sync.WaitGroup
			locations := make(chan string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					body, _ := json.Marshal(map[string]string{
						"name":     "user" + strconv.Itoa(i),
						"email":    "user" + strconv.Itoa(i) + "@example.com",
						"password": "password-" + strconv.Itoa(i),
					})
					req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
					rr := httptest.NewRecorder()
					h.ServeHTTP(rr, req)
					if rr.Code == http.StatusCreated {
						locations <- rr.Header().Get("Location")
					}
				}(i)
			}
			wg.Wait()
			close(locations)

			seen := make(map[string]struct{}, n)
			for loc := range locations {
				seen[loc] = struct{}{}
			}
			assert.Len(t, seen, n)

			rr := do(h, http.MethodGet, "/records", "")
			var list []record.Record
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
			assert.Len(t, list, n)
		})
	}
}

func TestHealthInfoAndMetrics(t *testing.T) {
	h := newTestHandler(t, RouterMux)

	rr := do(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(h, http.MethodPost, "/records", `{"name":"Alice","email":"alice@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var info infoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, app.Version, info.Version)
	assert.Equal(t, 1, info.Records)
	assert.Positive(t, info.Goroutines)
	assert.Equal(t, []string{"records", "records-sampler"}, info.Services)

	rr = do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "records_service_records_creates_total")
}

func TestAuditRecordsMutations(t *testing.T) {
	var sinkBuf bytes.Buffer
	audit := NewAuditLog(2, newZerologSink(&sinkBuf))
	application, err := app.New(app.Stores{}, logger.NewDiscard(), app.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	h, err := NewHandler(application, WithLogger(logger.NewDiscard()), WithAuditLog(audit))
	require.NoError(t, err)

	do(h, http.MethodGet, "/records", "")
	for _, name := range []string{"alice", "bob", "carol"} {
		rr := do(h, http.MethodPost, "/records", `{"name":"`+name+`","email":"`+name+`@example.com","password":"long-enough"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	do(h, http.MethodPost, "/records", `{}`)

	entries := audit.Recent(0)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].RecordID)
	assert.Equal(t, http.StatusBadRequest, entries[1].Status)

	lines := strings.Split(strings.TrimSpace(sinkBuf.String()), "\n")
	require.Len(t, lines, 4)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "POST", first["method"])
	assert.Equal(t, float64(1), first["record_id"])

	rr := do(h, http.MethodGet, "/audit?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var recent []AuditEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recent))
	require.Len(t, recent, 1)
	assert.Equal(t, http.StatusBadRequest, recent[0].Status)

	rr = do(h, http.MethodGet, "/audit?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewHandlerRejectsUnknownRouter(t *testing.T) {
	application, err := app.New(app.Stores{}, logger.NewDiscard())
	require.NoError(t, err)
	_, err = NewHandler(application, WithRouter("httprouter"))
	assert.Error(t, err)
}

func TestGinPattern(t *testing.T) {
	assert.Equal(t, "/records/:id", ginPattern("/records/{id}"))
	assert.Equal(t, "/records", ginPattern("/records"))
}

func TestStoreFailuresAreInternalErrors(t *testing.T) {
	store := testutil.NewMockRecordStore()
	application, err := app.New(app.Stores{Records: store}, logger.NewDiscard(), app.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	h, err := NewHandler(application, WithLogger(logger.NewDiscard()))
	require.NoError(t, err)

	boom := errors.New("connection reset")
	store.FailOn(testutil.OpList, boom)
	store.FailOn(testutil.OpCreate, boom)

	rr := do(h, http.MethodGet, "/records", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	detail := decodeError(t, rr)
	assert.Equal(t, httputil.CodeInternal, detail.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")

	rr = do(h, http.MethodPost, "/records", `{"name":"Alice","email":"alice@example.com","password":"s3cret-pass"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, store.Calls(testutil.OpCreate))
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s blockingSink) Write(AuditEntry) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestAuditSinkDoesNotBlockReaders(t *testing.T) {
	sink := blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	audit := NewAuditLog(10, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		audit.add(AuditEntry{Method: http.MethodPost, Path: "/records", Status: http.StatusCreated})
	}()
	<-sink.entered

	recent := make(chan []AuditEntry, 1)
	go func() { recent <- audit.Recent(0) }()
	select {
	case entries := <-recent:
		assert.Len(t, entries, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Recent blocked while the sink was writing")
	}

	close(sink.release)
	<-done
}
