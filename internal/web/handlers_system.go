package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/images"
)

// imageOpener is implemented by *images.Service.
type imageOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type storeHealth struct {
	Rows      int        `json:"rows"`
	Loaded    bool       `json:"loaded"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type healthResponse struct {
	Status   string                    `json:"status"`
	Stores   map[string]storeHealth    `json:"stores"`
	Sessions int                       `json:"sessions"`
	Imports  *core.ImportLimiterStatus `json:"imports,omitempty"`
}

func healthOf[T any](st *core.Store[T]) storeHealth {
	h := storeHealth{Rows: st.Len(), Loaded: st.Loaded()}
	if h.Loaded {
		at := st.LoadedAt()
		h.LoadedAt = &at
	}
	if err := st.LastError(); err != nil {
		h.LastError = err.Error()
	}
	return h
}

// handleHealth reports store freshness and import capacity. A failed last
// refresh degrades the status but never fails the health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Stores: map[string]storeHealth{
			s.service.Materials.Name(): healthOf(s.service.Materials),
			s.service.Packages.Name():  healthOf(s.service.Packages),
		},
		Sessions: s.sessions.len(),
	}
	for _, h := range resp.Stores {
		if h.LastError != "" {
			resp.Status = "degraded"
		}
	}
	if lim := s.service.Limiter(); lim != nil {
		st := lim.Status()
		resp.Imports = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleImage streams an uploaded image.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	opener, ok := s.service.Images().(imageOpener)
	if !ok {
		s.respondError(w, r, images.ErrNotFound, http.StatusNotFound)
		return
	}

	rc, mimeType, err := opener.Open(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, rc)
}
