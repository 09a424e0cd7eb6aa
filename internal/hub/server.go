package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/observability"
)

// defaultOfflineAfter is how long a player may go without pinging before
// the fleet listing reports it offline.
const defaultOfflineAfter = 3 * time.Minute

// Server exposes the device API players poll and the operator API that
// manages the fleet.
type Server struct {
	store        *Store
	logger       *slog.Logger
	metrics      *observability.HubMetrics
	mux          *http.ServeMux
	now          func() time.Time
	offlineAfter time.Duration
}

// ServerOption adjusts server construction.
type ServerOption func(*Server)

// WithOfflineAfter overrides the liveness window.
func WithOfflineAfter(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.offlineAfter = d
		}
	}
}

// NewServer wires the HTTP routes over store.
func NewServer(store *Store, logger *slog.Logger, metrics *observability.HubMetrics, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:        store,
		logger:       logger.With("component", "hub"),
		metrics:      metrics,
		mux:          http.NewServeMux(),
		now:          time.Now,
		offlineAfter: defaultOfflineAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Device API.
	s.route("/api/v1/register", s.handleRegister)
	s.route("/api/v1/playlist", s.handleDevicePlaylist)
	s.route("/api/v1/settings", s.handleDeviceSettings)
	s.route("/api/v1/ping", s.handlePing)

	// Operator API.
	s.route("/api/v1/players", s.handlePlayers)
	s.route("/api/v1/players/", s.handlePlayer)

	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

// route registers fn and counts its responses under the route pattern, so
// metric label cardinality stays bounded no matter what IDs requests carry.
func (s *Server) route(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		fn(wrapped, r)
		if s.metrics != nil {
			s.metrics.Requests.WithLabelValues(pattern, strconv.Itoa(wrapped.status)).Inc()
		}
	})
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("hub listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("hub server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("hub shutdown error", "error", err)
	}
	return nil
}

// playerView is the operator-facing player representation.
type playerView struct {
	*Player
	Online bool `json:"online"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Serial      string `json:"serial"`
}

type settingsRequest struct {
	RotationInterval int    `json:"rotation_interval"`
	OnTime           string `json:"on_time"`
	OffTime          string `json:"off_time"`
}

type pingRequest struct {
	Serial string `json:"serial"`
}

// handleRegister handles POST /api/v1/register. A new serial creates a
// player and answers 201; a known serial answers 200 with the existing row.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Serial) == "" {
		s.jsonError(w, "serial is required", http.StatusBadRequest)
		return
	}

	player, created, err := s.store.Register(r.Context(), req.Name, req.Description, req.Serial)
	if err != nil {
		s.logger.Error("register failed", "serial", req.Serial, "error", err)
		s.jsonError(w, "Failed to register player", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.logger.Info("player registered", "serial", player.Serial, "name", player.Name)
		s.refreshPlayerGauge(r.Context())
	}
	s.jsonResponse(w, status, s.view(player))
}

// handleDevicePlaylist handles GET /api/v1/playlist?serial=.
func (s *Server) handleDevicePlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	player, ok := s.playerFromSerial(w, r)
	if !ok {
		return
	}
	entries, err := s.store.Playlist(r.Context(), player.ID)
	if err != nil {
		s.logger.Error("playlist lookup failed", "serial", player.Serial, "error", err)
		s.jsonError(w, "Failed to load playlist", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

// handleDeviceSettings handles GET /api/v1/settings?serial=.
func (s *Server) handleDeviceSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	player, ok := s.playerFromSerial(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, settingsRequest{
		RotationInterval: player.RotationInterval,
		OnTime:           player.OnTime,
		OffTime:          player.OffTime,
	})
}

// handlePing handles POST /api/v1/ping.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	err := s.store.Ping(r.Context(), req.Serial, s.now())
	if errors.Is(err, ErrNotFound) {
		s.jsonError(w, "Unknown serial", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("ping failed", "serial", req.Serial, "error", err)
		s.jsonError(w, "Failed to record ping", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlayers handles GET /api/v1/players.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		s.logger.Error("player list failed", "error", err)
		s.jsonError(w, "Failed to list players", http.StatusInternalServerError)
		return
	}

	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, s.view(p))
	}
	if s.metrics != nil {
		s.metrics.Players.Set(float64(len(players)))
	}
	s.jsonResponse(w, http.StatusOK, views)
}

// handlePlayer routes /api/v1/players/{id} and its settings and playlist
// subresources.
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/players/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		s.jsonError(w, "Invalid player id", http.StatusBadRequest)
		return
	}

	switch sub {
	case "":
		s.handlePlayerItem(w, r, id)
	case "settings":
		s.handlePlayerSettings(w, r, id)
	case "playlist":
		s.handlePlayerPlaylist(w, r, id)
	default:
		s.jsonError(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) handlePlayerItem(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		player, err := s.store.PlayerByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			s.jsonError(w, "Unknown player", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Error("player lookup failed", "id", id, "error", err)
			s.jsonError(w, "Failed to load player", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, http.StatusOK, s.view(player))

	case http.MethodDelete:
		err := s.store.DeletePlayer(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			s.jsonError(w, "Unknown player", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Error("player delete failed", "id", id, "error", err)
			s.jsonError(w, "Failed to delete player", http.StatusInternalServerError)
			return
		}
		s.logger.Info("player deleted", "id", id)
		s.refreshPlayerGauge(r.Context())
		w.WriteHeader(http.StatusNoContent)

	default:
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePlayerSettings(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.RotationInterval <= 0 {
		s.jsonError(w, "rotation_interval must be positive", http.StatusBadRequest)
		return
	}
	if err := validClock(req.OnTime); err != nil {
		s.jsonError(w, fmt.Sprintf("on_time: %v", err), http.StatusBadRequest)
		return
	}
	if err := validClock(req.OffTime); err != nil {
		s.jsonError(w, fmt.Sprintf("off_time: %v", err), http.StatusBadRequest)
		return
	}

	err := s.store.UpdateSettings(r.Context(), id, req.RotationInterval, req.OnTime, req.OffTime)
	if errors.Is(err, ErrNotFound) {
		s.jsonError(w, "Unknown player", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("settings update failed", "id", id, "error", err)
		s.jsonError(w, "Failed to update settings", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, http.StatusOK, req)
}

func (s *Server) handlePlayerPlaylist(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.store.Playlist(r.Context(), id)
		if err != nil {
			s.logger.Error("playlist lookup failed", "id", id, "error", err)
			s.jsonError(w, "Failed to load playlist", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, http.StatusOK, entries)

	case http.MethodPut:
		var entries []config.ContentEntry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			s.jsonError(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		for i, entry := range entries {
			if strings.TrimSpace(entry.Source) == "" {
				s.jsonError(w, fmt.Sprintf("entry %d: source is required", i), http.StatusBadRequest)
				return
			}
			if entry.Duration != nil && *entry.Duration <= 0 {
				s.jsonError(w, fmt.Sprintf("entry %d: duration must be positive", i), http.StatusBadRequest)
				return
			}
		}

		err := s.store.SetPlaylist(r.Context(), id, entries)
		if errors.Is(err, ErrNotFound) {
			s.jsonError(w, "Unknown player", http.StatusNotFound)
			return
		}
		if err != nil {
			s.logger.Error("playlist update failed", "id", id, "error", err)
			s.jsonError(w, "Failed to update playlist", http.StatusInternalServerError)
			return
		}
		s.logger.Info("playlist updated", "id", id, "items", len(entries))
		s.jsonResponse(w, http.StatusOK, entries)

	default:
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// playerFromSerial resolves the ?serial= query parameter, writing the
// error response itself when the lookup fails.
func (s *Server) playerFromSerial(w http.ResponseWriter, r *http.Request) (*Player, bool) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		s.jsonError(w, "serial query parameter is required", http.StatusBadRequest)
		return nil, false
	}
	player, err := s.store.PlayerBySerial(r.Context(), serial)
	if errors.Is(err, ErrNotFound) {
		s.jsonError(w, "Unknown serial", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.logger.Error("player lookup failed", "serial", serial, "error", err)
		s.jsonError(w, "Failed to load player", http.StatusInternalServerError)
		return nil, false
	}
	return player, true
}

func (s *Server) view(p *Player) playerView {
	return playerView{Player: p, Online: p.Online(s.now(), s.offlineAfter)}
}

func (s *Server) refreshPlayerGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if count, err := s.store.CountPlayers(ctx); err == nil {
		s.metrics.Players.Set(float64(count))
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("json encode error", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func validClock(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("%q is not a valid HH:MM time", value)
	}
	return nil
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
