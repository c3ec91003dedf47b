// Package httpapi serves the web chat UI and its JSON/WebSocket API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/easeaico/utbot/internal/chatbot"
	"github.com/easeaico/utbot/internal/finance"
	"github.com/easeaico/utbot/internal/observability"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/storage"
	"github.com/easeaico/utbot/internal/types"
)

// BotFactory creates a bot for a chosen persona.
type BotFactory func(profile personality.Profile) (*chatbot.Bot, error)

// Options wires the server's collaborators. Archive and Analyzer are
// optional; their routes answer 501 when unset.
type Options struct {
	Bots           *chatbot.Registry
	NewBot         BotFactory
	Picker         personality.Picker
	Archive        storage.Archive
	Analyzer       *finance.Analyzer
	FinanceDir     string
	Metrics        *observability.Metrics
	FailureDisplay string
	AllowAnyOrigin bool
}

type Server struct {
	opts     Options
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(opts Options) *Server {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics("utbot")
	}
	return &Server{
		opts:    opts,
		metrics: metrics,
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if opts.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Get("/v1/personalities", s.handleListPersonalities)
	r.Post("/v1/bots", s.handleCreateBot)
	r.Delete("/v1/bots/{id}", s.handleDeleteBot)
	r.Post("/v1/bots/{id}/messages", s.handleMessage)
	r.Post("/v1/bots/{id}/reset", s.handleReset)
	r.Post("/v1/bots/{id}/personality", s.handleChangePersonality)
	r.Get("/v1/bots/{id}/history", s.handleHistory)
	r.Get("/v1/bots/{id}/transcript", s.handleTranscript)
	r.Get("/v1/bots/{id}/ws", s.handleBotWS)
	r.Post("/v1/finance/report", s.handleFinanceReport)

	return r
}

// ExpireHook keeps the active bot gauge in line with janitor removals.
func (s *Server) ExpireHook(string) {
	s.metrics.ActiveBots.Set(float64(s.opts.Bots.Count()))
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_bots":  s.opts.Bots.Count(),
		"archive_mode": s.archiveMode(),
	})
}

type personalityInfo struct {
	Choice      string `json:"choice"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	DefaultName string `json:"default_name"`
	NeedsConfig bool   `json:"needs_subject"`
}

func (s *Server) handleListPersonalities(w http.ResponseWriter, _ *http.Request) {
	kinds := []personality.Kind{personality.Friendly, personality.Teacher, personality.Funny}
	out := make([]personalityInfo, 0, len(kinds))
	for i, k := range kinds {
		out = append(out, personalityInfo{
			Choice:      strconv.Itoa(i + 1),
			Kind:        k.String(),
			Description: k.Description(),
			DefaultName: k.DefaultName(),
			NeedsConfig: k == personality.Teacher,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"personalities": out})
}

type personaRequest struct {
	Personality string `json:"personality"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
}

// profile resolves a menu choice (1, 2, 3, random) or a kind name.
func (s *Server) profile(req personaRequest) (personality.Profile, error) {
	choice := strings.TrimSpace(req.Personality)
	var (
		kind personality.Kind
		err  error
	)
	switch choice {
	case "1", "2", "3", personality.RandomChoice:
		kind, err = personality.Select(choice, s.opts.Picker)
	default:
		kind, err = personality.ParseKind(choice)
	}
	if err != nil {
		return personality.Profile{}, err
	}

	name := strings.TrimSpace(req.Name)
	if kind == personality.Teacher && name != "" && !strings.HasPrefix(name, "Professor ") {
		name = "Professor " + name
	}
	return personality.NewProfile(kind, name, req.Subject)
}

type botResponse struct {
	BotID       string `json:"bot_id"`
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Subject     string `json:"subject,omitempty"`
	Greeting    string `json:"greeting,omitempty"`
	Error       string `json:"error,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	profile, err := s.profile(req)
	if err != nil {
		respondPersonaError(w, err)
		return
	}

	bot, err := s.opts.NewBot(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "bot_create_failed", err.Error())
		return
	}
	s.opts.Bots.Add(bot)
	s.metrics.ActiveBots.Set(float64(s.opts.Bots.Count()))

	resp := botResponse{
		BotID:       bot.ID(),
		Name:        bot.Name(),
		Personality: profile.Kind.String(),
		Subject:     profile.Subject,
	}
	err = s.opts.Bots.Do(bot.ID(), func(b *chatbot.Bot) error {
		text, err := b.Greet(r.Context(), nil)
		s.fillReply(&resp.Greeting, &resp.Error, &resp.Failed, text, err)
		return ignoreFailure(err)
	})
	if err != nil {
		_ = s.opts.Bots.Remove(bot.ID())
		s.metrics.ActiveBots.Set(float64(s.opts.Bots.Count()))
		respondError(w, http.StatusBadGateway, "greeting_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleChangePersonality(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	profile, err := s.profile(req)
	if err != nil {
		respondPersonaError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	resp := botResponse{BotID: id, Personality: profile.Kind.String(), Subject: profile.Subject}
	err = s.opts.Bots.Do(id, func(b *chatbot.Bot) error {
		b.ChangePersonality(profile)
		resp.Name = b.Name()
		text, err := b.Greet(r.Context(), nil)
		s.fillReply(&resp.Greeting, &resp.Error, &resp.Failed, text, err)
		return ignoreFailure(err)
	})
	if err != nil {
		respondBotError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Bots.Remove(chi.URLParam(r, "id")); err != nil {
		respondBotError(w, err)
		return
	}
	s.metrics.ActiveBots.Set(float64(s.opts.Bots.Count()))
	w.WriteHeader(http.StatusNoContent)
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply  string `json:"reply,omitempty"`
	Error  string `json:"error,omitempty"`
	Failed bool   `json:"failed"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "text is required")
		return
	}

	var resp messageResponse
	err := s.opts.Bots.Do(chi.URLParam(r, "id"), func(b *chatbot.Bot) error {
		text, err := b.GenerateResponse(r.Context(), req.Text)
		s.fillReply(&resp.Reply, &resp.Error, &resp.Failed, text, err)
		return ignoreFailure(err)
	})
	if err != nil {
		respondBotError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := s.opts.Bots.Do(chi.URLParam(r, "id"), func(b *chatbot.Bot) error {
		b.Reset()
		return nil
	})
	if err != nil {
		respondBotError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	err := s.opts.Bots.Do(chi.URLParam(r, "id"), func(b *chatbot.Bot) error {
		body = map[string]any{
			"bot_id":   b.ID(),
			"name":     b.Name(),
			"policy":   b.Policy().String(),
			"messages": b.History(),
			"text":     b.HistoryText(),
		}
		return nil
	})
	if err != nil {
		respondBotError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "transcript archive not configured")
		return
	}
	id := chi.URLParam(r, "id")
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		turns []types.TurnRecord
		err   error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		turns, err = s.opts.Archive.Search(r.Context(), id, q, limit)
	} else {
		turns, err = s.opts.Archive.Recent(r.Context(), id, limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bot_id": id, "turns": turns})
}

func (s *Server) handleFinanceReport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Analyzer == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "finance mode not configured")
		return
	}
	var req finance.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	dir, err := resolveFinanceDir(s.opts.FinanceDir, req.Dir)
	if err != nil {
		s.metrics.FinanceReports.WithLabelValues("invalid").Inc()
		respondError(w, http.StatusBadRequest, "invalid_finance_request", err.Error())
		return
	}
	req.Dir = dir

	report, err := s.opts.Analyzer.Run(r.Context(), req)
	switch {
	case err == nil:
		s.metrics.FinanceReports.WithLabelValues("ok").Inc()
		respondJSON(w, http.StatusOK, report)
	case errors.Is(err, finance.ErrInvalidDate), errors.Is(err, finance.ErrDateOrder),
		errors.Is(err, finance.ErrInvalidTickers), errors.Is(err, finance.ErrInvalidPath):
		s.metrics.FinanceReports.WithLabelValues("invalid").Inc()
		respondError(w, http.StatusBadRequest, "invalid_finance_request", err.Error())
	case errors.Is(err, finance.ErrNoData):
		s.metrics.FinanceReports.WithLabelValues("no_data").Inc()
		respondJSON(w, http.StatusNotFound, map[string]any{
			"error":  err.Error(),
			"code":   "no_data",
			"report": report,
		})
	default:
		s.metrics.FinanceReports.WithLabelValues("failed").Inc()
		respondError(w, http.StatusInternalServerError, "finance_failed", err.Error())
	}
}

// resolveFinanceDir maps a client supplied directory onto the configured
// finance directory. Only relative paths that stay inside base are allowed.
func resolveFinanceDir(base, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return base, nil
	}
	if filepath.IsAbs(requested) || filepath.VolumeName(requested) != "" {
		return "", fmt.Errorf("%w: dir must be relative to the finance data directory", finance.ErrInvalidPath)
	}
	dir := filepath.Join(base, requested)
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: dir escapes the finance data directory", finance.ErrInvalidPath)
	}
	return dir, nil
}

// fillReply places a turn result according to the failure display mode:
// inline keeps the error text as the reply, banner moves it to error.
func (s *Server) fillReply(reply, errText *string, failed *bool, text string, err error) {
	if err == nil {
		*reply = text
		return
	}
	if !errors.Is(err, chatbot.ErrLLMFailure) {
		return
	}
	*failed = true
	if s.opts.FailureDisplay == "banner" {
		*errText = text
		return
	}
	*reply = text
}

// ignoreFailure drops LLM failures, which are reported in the body.
func ignoreFailure(err error) error {
	if errors.Is(err, chatbot.ErrLLMFailure) {
		return nil
	}
	return err
}

func (s *Server) archiveMode() string {
	switch s.opts.Archive.(type) {
	case nil:
		return "disabled"
	case *storage.InMemoryArchive:
		return "in-memory"
	default:
		return "postgres"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func respondPersonaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, personality.ErrInvalidChoice):
		respondError(w, http.StatusBadRequest, "invalid_choice", err.Error())
	case errors.Is(err, personality.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, "invalid_config", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func respondBotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrNotFound):
		respondError(w, http.StatusNotFound, "bot_not_found", err.Error())
	case errors.Is(err, chatbot.ErrBusy):
		respondError(w, http.StatusConflict, "bot_busy", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "cancelled", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
