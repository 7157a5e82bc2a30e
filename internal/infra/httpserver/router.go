package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/rdflg/rdflg/internal/application/analysis"
	"github.com/rdflg/rdflg/internal/application/community"
	domai "github.com/rdflg/rdflg/internal/domain/ai"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/domain/narration"
	"github.com/rdflg/rdflg/internal/infra/tts/elevenlabs"
	"github.com/rdflg/rdflg/internal/middleware"
)

const maxBodyBytes = 2 << 20

// Analyzer is the analysis use-case surface the router needs.
type Analyzer interface {
	Analyze(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error)
	Compare(ctx context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Comparison, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Record, error)
	Community(ctx context.Context, k int) community.Report
}

// Narrator turns summaries into speech.
type Narrator interface {
	Narrate(ctx context.Context, text, voiceID string) (*narration.Audio, error)
}

type Options struct {
	CORSOrigins []string
	// RateCapacity of 0 disables rate limiting.
	RateCapacity        int
	RateRefillPerMinute int
	Checkers            map[string]middleware.HealthChecker
	Metrics             *middleware.Metrics
	Log                 *zap.Logger
}

type Router struct {
	analyzer Analyzer
	narrator Narrator
	metrics  *middleware.Metrics
	log      *zap.Logger
}

func NewRouter(analyzer Analyzer, narrator Narrator, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	r := &Router{analyzer: analyzer, narrator: narrator, metrics: opts.Metrics, log: opts.Log}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.UserIDHeader},
		ExposedHeaders: []string{"x-elevenlabs-character-count", "x-elevenlabs-request-id", "x-audio-url"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Identity)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(opts.Metrics.Middleware)
	if opts.RateCapacity > 0 {
		mux.Use(middleware.NewRateLimiter(opts.RateCapacity, opts.RateRefillPerMinute).Middleware)
	}

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.HealthHandler(opts.Checkers))
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze-tos", r.wrap(r.handleAnalyze))
		rt.Post("/enterprise-compare", r.wrap(r.handleCompare))
		rt.Post("/voice-summary", r.wrap(r.handleVoiceSummary))
		rt.Get("/analyses", r.wrap(r.handleListAnalyses))
		rt.Get("/community", r.wrap(r.handleCommunity))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError is a handler-level failure with a fixed status and message.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, message: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, body := r.classify(err)
		if status >= http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Int("status", status), zap.Error(err))
		}
		writeJSON(w, status, body)
	}
}

func (r *Router) classify(err error) (int, middleware.ErrorBody) {
	var he *httpError
	var tts *elevenlabs.APIError
	switch {
	case errors.As(err, &he):
		return he.status, middleware.ErrorBody{Error: he.message}
	case errors.Is(err, domain.ErrEmptyText):
		return http.StatusBadRequest, middleware.ErrorBody{Error: "No text provided"}
	case errors.Is(err, narration.ErrEmptyText):
		return http.StatusBadRequest, middleware.ErrorBody{Error: "text is required"}
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, middleware.ErrorBody{Error: "ai quota exceeded", Details: "try again later"}
	case errors.Is(err, domai.ErrTimeout):
		return http.StatusGatewayTimeout, middleware.ErrorBody{Error: "LLM request timed out"}
	case errors.Is(err, domai.ErrEmptyResponse):
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "empty response"}
	case errors.Is(err, domai.ErrRequestFailed):
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "LLM request failed"}
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "failed to parse AI response"}
	case errors.Is(err, narration.ErrTimeout):
		return http.StatusGatewayTimeout, middleware.ErrorBody{Error: "Voice synthesis failed", Details: "timed out"}
	case errors.As(err, &tts):
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "Voice synthesis failed", Details: fmt.Sprintf("upstream status %d", tts.StatusCode)}
	case errors.Is(err, narration.ErrSynthesisFailed):
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "Voice synthesis failed", Details: "voice service unavailable"}
	default:
		return http.StatusInternalServerError, middleware.ErrorBody{Error: "Internal Server Error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// analyzeBody accepts both the camelCase keys of the web client and the
// snake_case keys of older callers.
type analyzeBody struct {
	TosText          string  `json:"tosText"`
	TosTextSnake     string  `json:"tos_text"`
	ServiceName      string  `json:"serviceName"`
	ServiceNameSnake string  `json:"service_name"`
	UserID           *string `json:"userId"`
}

func (r *Router) decodeAnalyze(w http.ResponseWriter, req *http.Request) (appanalysis.AnalyzeCommand, error) {
	var body analyzeBody
	if err := decode(w, req, &body); err != nil {
		return appanalysis.AnalyzeCommand{}, err
	}
	cmd := appanalysis.AnalyzeCommand{
		Text:        firstNonEmpty(body.TosText, body.TosTextSnake),
		ServiceName: middleware.SanitizeString(firstNonEmpty(body.ServiceName, body.ServiceNameSnake)),
	}
	uid := middleware.UserIDFromContext(req.Context())
	if body.UserID != nil {
		uid = middleware.SanitizeString(*body.UserID)
	}
	if uid != "" {
		if err := middleware.ValidateUserID(uid); err != nil {
			return cmd, badRequest(err.Error())
		}
		cmd.UserID = &uid
	}
	return cmd, nil
}

// POST /api/analyze-tos
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.decodeAnalyze(w, req)
	if err != nil {
		return err
	}
	rec, err := r.analyzer.Analyze(req.Context(), cmd)
	middleware.Outcome(&r.metrics.AnalysesTotal, &r.metrics.AnalysesFailed, err)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// POST /api/enterprise-compare
func (r *Router) handleCompare(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.decodeAnalyze(w, req)
	if err != nil {
		return err
	}
	cmp, err := r.analyzer.Compare(req.Context(), cmd)
	middleware.Outcome(&r.metrics.ComparisonsTotal, &r.metrics.ComparisonsFailed, err)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, cmp)
	return nil
}

// POST /api/voice-summary
// Body: {"text": "...", "voiceId": "<optional>"}
func (r *Router) handleVoiceSummary(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text    string `json:"text"`
		VoiceID string `json:"voiceId"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateVoiceID(strings.TrimSpace(body.VoiceID)); err != nil {
		return badRequest(err.Error())
	}

	audio, err := r.narrator.Narrate(req.Context(), body.Text, body.VoiceID)
	middleware.Outcome(&r.metrics.NarrationsTotal, &r.metrics.NarrationsFailed, err)
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Content-Length", strconv.Itoa(len(audio.Data)))
	h.Set("Cache-Control", "no-store")
	h.Set("x-elevenlabs-character-count", audio.CharacterCount)
	h.Set("x-elevenlabs-request-id", audio.RequestID)
	if audio.URL != "" {
		h.Set("x-audio-url", audio.URL)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
	return nil
}

// GET /api/analyses?userId=&limit=20
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	uid := middleware.SanitizeString(q.Get("userId"))
	if uid == "" {
		uid = middleware.UserIDFromContext(req.Context())
	}
	if err := middleware.ValidateUserID(uid); err != nil {
		return badRequest("userId is required")
	}

	list, err := r.analyzer.ListByUser(req.Context(), uid, middleware.ParseLimit(q.Get("limit")))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /api/community?limit=10
func (r *Router) handleCommunity(w http.ResponseWriter, req *http.Request) error {
	k, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if k > 100 {
		k = 100
	}
	writeJSON(w, http.StatusOK, r.analyzer.Community(req.Context(), k))
	return nil
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &httpError{status: http.StatusRequestEntityTooLarge, message: "request body too large"}
		}
		return badRequest("invalid request body")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
