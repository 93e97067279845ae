package httpapi

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/R3E-Network/records_service/internal/middleware"
)

// AuditEntry records one mutating request.
type AuditEntry struct {
	Time       time.Time `json:"time"`
	TraceID    string    `json:"trace_id,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RecordID   int64     `json:"record_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// AuditSink persists audit entries outside the process.
type AuditSink interface {
	Write(entry AuditEntry) error
}

// AuditLog keeps the most recent entries in memory and forwards every entry
// to an optional sink.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	max     int
	sink    AuditSink
}

// NewAuditLog creates a log retaining at most max entries (default 200).
func NewAuditLog(max int, sink AuditSink) *AuditLog {
	if max <= 0 {
		max = 200
	}
	return &AuditLog{max: max, sink: sink}
}

func (l *AuditLog) add(entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	// Sinks serialise their own writes. Errors are dropped so persistence
	// never fails a request.
	if l.sink != nil {
		_ = l.sink.Write(entry)
	}
}

func (l *AuditLog) list() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns up to limit of the newest entries, oldest first.
func (l *AuditLog) Recent(limit int) []AuditEntry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.list()
	if len(all) <= limit {
		return all
	}
	return all[len(all)-limit:]
}

// Middleware audits non-GET requests.
func (l *AuditLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := AuditEntry{
			Time:       time.Now().UTC(),
			TraceID:    middleware.TraceID(r.Context()),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		}
		if loc := rec.Header().Get("Location"); strings.HasPrefix(loc, "/records/") {
			if id, err := strconv.ParseInt(strings.TrimPrefix(loc, "/records/"), 10, 64); err == nil {
				entry.RecordID = id
			}
		}
		l.add(entry)
	})
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// zerologSink appends audit entries as JSON lines.
type zerologSink struct {
	mu  sync.Mutex
	log zerolog.Logger
}

// NewFileAuditSink opens path for appending. An empty path returns a nil sink.
func NewFileAuditSink(path string) (AuditSink, io.Closer, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, err
	}
	return newZerologSink(f), f, nil
}

func newZerologSink(w io.Writer) *zerologSink {
	return &zerologSink{log: zerolog.New(w)}
}

func (s *zerologSink) Write(entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.log.Log().
		Time("time", entry.Time).
		Str("method", entry.Method).
		Str("path", entry.Path).
		Int("status", entry.Status)
	if entry.TraceID != "" {
		ev = ev.Str("trace_id", entry.TraceID)
	}
	if entry.RecordID != 0 {
		ev = ev.Int64("record_id", entry.RecordID)
	}
	if entry.RemoteAddr != "" {
		ev = ev.Str("remote_addr", entry.RemoteAddr)
	}
	if entry.UserAgent != "" {
		ev = ev.Str("user_agent", entry.UserAgent)
	}
	ev.Send()
	return nil
}
