package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	domain "github.com/Doaky/pi-alarm-block/internal/domain/alarm"
	"github.com/Doaky/pi-alarm-block/internal/logger"
	"github.com/Doaky/pi-alarm-block/internal/version"
)

// defaultLogLines is how many trailing log lines the log endpoint returns
// when the request does not say otherwise.
const defaultLogLines = 1000

// AlarmService is the alarm and schedule surface the API exposes.
type AlarmService interface {
	GetAlarms() []*domain.Alarm
	SetAlarm(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error)
	RemoveAlarms(ctx context.Context, ids []string) bool
	GetSchedule() domain.Schedule
	SetSchedule(ctx context.Context, s domain.Schedule) error
}

// AudioService is the playback surface the API exposes.
type AudioService interface {
	PlayAlarm(ctx context.Context) bool
	StopAlarm(ctx context.Context)
	PlayAmbient(ctx context.Context) bool
	StopAmbient(ctx context.Context)
	SetAmbientVolume(ctx context.Context, v int) error
	SetAlarmVolume(ctx context.Context, v int) error
	IsAlarmPlaying() bool
	IsAmbientPlaying() bool
	GetAmbientVolume() int
	GetAlarmVolume() int
}

// Server wires the HTTP routes to the alarm and audio services.
type Server struct {
	alarms AlarmService
	audio  AudioService

	// ws handles the WebSocket upgrade at /ws.
	ws http.Handler
	// staticDir serves the frontend at the root when non-empty.
	staticDir string
	// logPath backs the log tail endpoint when non-empty.
	logPath string
}

// NewServer builds the API server. ws may be nil when no realtime feed is
// wired, staticDir and logPath may be empty.
func NewServer(alarmSvc AlarmService, audioSvc AudioService, ws http.Handler, staticDir, logPath string) *Server {
	return &Server{
		alarms:    alarmSvc,
		audio:     audioSvc,
		ws:        ws,
		staticDir: staticDir,
		logPath:   logPath,
	}
}

// Handler builds the route table. Paths and payload shapes are fixed by the
// frontend.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/alarms", s.handleGetAlarms)
	mux.HandleFunc("PUT /api/v1/alarm", s.handleSetAlarm)
	mux.HandleFunc("DELETE /api/v1/alarms", s.handleRemoveAlarms)

	mux.HandleFunc("GET /api/v1/schedule", s.handleGetSchedule)
	mux.HandleFunc("PUT /api/v1/schedule", s.handleSetSchedule)

	mux.HandleFunc("POST /api/v1/play-alarm", s.handlePlayAlarm)
	mux.HandleFunc("POST /api/v1/stop-alarm", s.handleStopAlarm)
	mux.HandleFunc("GET /api/v1/alarm/status", s.handleAlarmStatus)

	mux.HandleFunc("POST /api/v1/white-noise", s.handleWhiteNoise)
	mux.HandleFunc("GET /api/v1/white-noise/status", s.handleWhiteNoiseStatus)

	mux.HandleFunc("GET /api/v1/volume", s.handleGetVolume)
	mux.HandleFunc("POST /api/v1/volume", s.handleSetVolume)
	mux.HandleFunc("GET /api/v1/alarm-volume", s.handleGetAlarmVolume)
	mux.HandleFunc("POST /api/v1/alarm-volume", s.handleSetAlarmVolume)

	mux.HandleFunc("GET /api/v1/log", s.handleLog)

	mux.HandleFunc("GET /health", s.handleHealth)

	if s.ws != nil {
		mux.Handle("/ws", s.ws)
	}

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return mux
}

// statusResponse is the standard mutation response envelope.
type statusResponse struct {
	Message string         `json:"message"`
	Status  string         `json:"status"`
	Data    map[string]any `json:"data,omitempty"`
}

func successResponse(message string, data map[string]any) statusResponse {
	return statusResponse{Message: message, Status: "success", Data: data}
}

func (s *Server) handleGetAlarms(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.alarms.GetAlarms())
}

func (s *Server) handleSetAlarm(w http.ResponseWriter, r *http.Request) {
	// schedule_tag and active are optional; omitted fields default to
	// schedule "a" and an armed alarm.
	var body struct {
		ID       string           `json:"id"`
		Hour     int              `json:"hour"`
		Minute   int              `json:"minute"`
		Days     []int            `json:"days"`
		Schedule *domain.Schedule `json:"schedule_tag"`
		Active   *bool            `json:"active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid alarm data: %v", err))

		return
	}

	a := domain.Alarm{
		ID:       body.ID,
		Hour:     body.Hour,
		Minute:   body.Minute,
		Days:     body.Days,
		Schedule: domain.ScheduleA,
		Active:   true,
	}

	if body.Schedule != nil {
		a.Schedule = *body.Schedule
	}

	if body.Active != nil {
		a.Active = *body.Active
	}

	stored, err := s.alarms.SetAlarm(r.Context(), &a)
	if err != nil {
		writeServiceError(r.Context(), w, err, "failed to set alarm")

		return
	}

	writeJSON(r.Context(), w, http.StatusOK,
		successResponse("Alarm set successfully", map[string]any{"alarm": stored}))
}

func (s *Server) handleRemoveAlarms(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid alarm ID list: %v", err))

		return
	}

	removedAll := s.alarms.RemoveAlarms(r.Context(), ids)

	message := "Alarms removed successfully"
	if !removedAll {
		message = "Some alarms could not be removed"
	}

	writeJSON(r.Context(), w, http.StatusOK,
		successResponse(message, map[string]any{"removed_all": removedAll, "alarm_ids": ids}))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"schedule": s.alarms.GetSchedule()})
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Schedule *domain.Schedule `json:"schedule"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Schedule == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "missing schedule data")

		return
	}

	if err := s.alarms.SetSchedule(r.Context(), *body.Schedule); err != nil {
		writeServiceError(r.Context(), w, err, "failed to update schedule")

		return
	}

	writeJSON(r.Context(), w, http.StatusOK,
		map[string]any{"message": "Schedule updated successfully", "schedule": *body.Schedule})
}

func (s *Server) handlePlayAlarm(w http.ResponseWriter, r *http.Request) {
	if !s.audio.PlayAlarm(r.Context()) {
		writeError(r.Context(), w, http.StatusInternalServerError, "failed to play alarm")

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, successResponse("Alarm playing", nil))
}

func (s *Server) handleStopAlarm(w http.ResponseWriter, r *http.Request) {
	s.audio.StopAlarm(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, successResponse("Alarm stopped", nil))
}

func (s *Server) handleAlarmStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"is_playing": s.audio.IsAlarmPlaying()})
}

func (s *Server) handleWhiteNoise(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid white noise action: %v", err))

		return
	}

	switch body.Action {
	case "play":
		if !s.audio.PlayAmbient(r.Context()) {
			writeError(r.Context(), w, http.StatusInternalServerError, "failed to play white noise")

			return
		}

		writeJSON(r.Context(), w, http.StatusOK, successResponse("White noise playing", nil))
	case "stop":
		s.audio.StopAmbient(r.Context())
		writeJSON(r.Context(), w, http.StatusOK, successResponse("White noise stopped", nil))
	default:
		writeError(r.Context(), w, http.StatusBadRequest,
			fmt.Sprintf("action must be play or stop, got %q", body.Action))
	}
}

func (s *Server) handleWhiteNoiseStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"is_playing": s.audio.IsAmbientPlaying()})
}

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"volume": s.audio.GetAmbientVolume()})
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	s.setVolume(w, r, s.audio.SetAmbientVolume)
}

func (s *Server) handleGetAlarmVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"volume": s.audio.GetAlarmVolume()})
}

func (s *Server) handleSetAlarmVolume(w http.ResponseWriter, r *http.Request) {
	s.setVolume(w, r, s.audio.SetAlarmVolume)
}

func (s *Server) setVolume(w http.ResponseWriter, r *http.Request, apply func(context.Context, int) error) {
	var body struct {
		Volume *int `json:"volume"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Volume == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "missing volume data")

		return
	}

	if err := apply(r.Context(), *body.Volume); err != nil {
		writeServiceError(r.Context(), w, err, "failed to set volume")

		return
	}

	writeJSON(r.Context(), w, http.StatusOK,
		successResponse(fmt.Sprintf("Volume set to %d", *body.Volume), nil))
}

// handleHealth reports which components are wired, for probes and the
// frontend's connection check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Short(),
		"components": map[string]bool{
			"alarms":    s.alarms != nil,
			"audio":     s.audio != nil,
			"websocket": s.ws != nil,
		},
	})
}

// handleLog returns the trailing lines of the service log as plain text.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.logPath == "" {
		writeError(r.Context(), w, http.StatusNotFound, "log file not configured")

		return
	}

	lines := defaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid lines value %q", raw))

			return
		}

		lines = parsed
	}

	content, err := os.ReadFile(s.logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(r.Context(), w, http.StatusNotFound, "log file not found")

			return
		}

		logger.ErrorKV(r.Context(), "Failed to read log file", "path", s.logPath, "error", err)
		writeError(r.Context(), w, http.StatusInternalServerError, "failed to read log file")

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(tailLines(string(content), lines)))
}

// tailLines returns the last n lines of text.
func tailLines(text string, n int) string {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return ""
	}

	split := strings.Split(trimmed, "\n")
	if len(split) > n {
		split = split[len(split)-n:]
	}

	return strings.Join(split, "\n") + "\n"
}

// writeServiceError maps validation failures to 400 and everything else
// to 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeError(ctx, w, http.StatusBadRequest, verr.Error())

		return
	}

	logger.ErrorKV(ctx, "Request failed", "error", err)
	writeError(ctx, w, http.StatusInternalServerError, fallback)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WarnKV(ctx, "Failed to encode response", "error", err)
	}
}

// writeError mirrors the {"detail": ...} error shape the frontend expects.
func writeError(ctx context.Context, w http.ResponseWriter, status int, detail string) {
	writeJSON(ctx, w, status, map[string]any{"detail": detail})
}
