package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/muj89/usdt-p2p-moniter/internal/archive"
	"github.com/muj89/usdt-p2p-moniter/internal/cache"
	"github.com/muj89/usdt-p2p-moniter/internal/drive"
	"github.com/muj89/usdt-p2p-moniter/internal/export"
	"github.com/muj89/usdt-p2p-moniter/internal/history"
	"github.com/muj89/usdt-p2p-moniter/internal/logging"
	"github.com/muj89/usdt-p2p-moniter/internal/mail"
	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

// Deps carries the collaborators the handlers call into. Publisher,
// Mailer and Archive are optional; a nil field disables its endpoint.
type Deps struct {
	Composer  *market.Composer
	History   *history.Store
	Exporter  *export.Builder
	Publisher *drive.Publisher
	Mailer    *mail.Sender
	Archive   *archive.Store
	Cache     cache.SnapshotCache

	Assets        []string
	PrimaryAsset  string
	Fiat          string
	MailRecipient string
}

// Server owns the HTTP surface. Wire encoding and status mapping live
// here; the core packages return typed errors and know nothing about
// HTTP.
type Server struct {
	deps Deps
}

// New builds a server around deps.
func New(deps Deps) *Server {
	if deps.Cache == nil {
		deps.Cache = cache.Disabled()
	}
	return &Server{deps: deps}
}

// Router wires the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLog)
	r.HandleFunc("/api/latest-data", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/multi-asset-data", s.handleMulti).Methods(http.MethodGet)
	r.HandleFunc("/api/price-history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/download-excel", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/upload-to-drive", s.handleDriveUpload).Methods(http.MethodGet)
	r.HandleFunc("/api/send-email", s.handleSendMail).Methods(http.MethodGet)
	r.HandleFunc("/api/archive", s.handleArchive).Methods(http.MethodGet)
	return r
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	asset := queryDefault(r, "asset", s.deps.PrimaryAsset)
	fiat := queryDefault(r, "fiat", s.deps.Fiat)

	if snap, ok, err := s.deps.Cache.Get(r.Context(), asset, fiat); err != nil {
		logging.Errorf("[server] snapshot cache get: %v", err)
	} else if ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	snap, err := s.deps.Composer.Snapshot(r.Context(), asset, fiat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.deps.Cache.Set(r.Context(), snap); err != nil {
		logging.Errorf("[server] snapshot cache set: %v", err)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMulti(w http.ResponseWriter, r *http.Request) {
	multi := s.deps.Composer.MultiSnapshot(r.Context(), s.deps.Assets, s.deps.Fiat, s.deps.PrimaryAsset)
	writeJSON(w, http.StatusOK, multi)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.History.ReadAll())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	window := export.ParseWindow(r.URL.Query().Get("period"))

	snap, err := s.deps.Composer.Snapshot(r.Context(), s.deps.PrimaryAsset, s.deps.Fiat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	path, err := s.deps.Exporter.Build(snap, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Excel file saved to " + path,
		"path":    path,
	})
}

func (s *Server) handleDriveUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Publisher == nil {
		writeErrorMsg(w, http.StatusInternalServerError, "google drive is not configured")
		return
	}
	result, err := s.deps.Publisher.Publish(r.Context(), s.deps.History.Path(), r.URL.Query().Get("folder_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file":    result,
	})
}

func (s *Server) handleSendMail(w http.ResponseWriter, r *http.Request) {
	if s.deps.Mailer == nil {
		writeErrorMsg(w, http.StatusInternalServerError, "mail is not configured")
		return
	}
	recipient := queryDefault(r, "to", s.deps.MailRecipient)
	if recipient == "" {
		writeErrorMsg(w, http.StatusBadRequest, "no recipient configured")
		return
	}
	if err := s.deps.Mailer.SendAttachment(recipient, s.deps.History.Path()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil {
		writeErrorMsg(w, http.StatusInternalServerError, "archive is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snaps, err := s.deps.Archive.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func queryDefault(r *http.Request, key, def string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debugf("[server] %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
