package httpapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	app "github.com/R3E-Network/records_service/internal/app"
	"github.com/R3E-Network/records_service/internal/httputil"
)

type infoResponse struct {
	Version       string   `json:"version"`
	Uptime        string   `json:"uptime"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Records       int      `json:"records"`
	Goroutines    int      `json:"goroutines"`
	RSSBytes      uint64   `json:"rss_bytes,omitempty"`
	Services      []string `json:"services"`
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	count, err := h.app.Records.Count(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	uptime := h.app.Uptime()
	resp := infoResponse{
		Version:       app.Version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Records:       count,
		Goroutines:    runtime.NumGoroutine(),
		Services:      h.app.Services(),
	}
	// RSS is omitted on platforms gopsutil cannot read.
	if proc, err := process.NewProcessWithContext(r.Context(), int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfoWithContext(r.Context()); err == nil && mem != nil {
			resp.RSSBytes = mem.RSS
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
