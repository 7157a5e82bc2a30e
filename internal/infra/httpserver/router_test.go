package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appanalysis "github.com/rdflg/rdflg/internal/application/analysis"
	"github.com/rdflg/rdflg/internal/application/community"
	domai "github.com/rdflg/rdflg/internal/domain/ai"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/domain/narration"
	"github.com/rdflg/rdflg/internal/infra/httpserver"
	"github.com/rdflg/rdflg/internal/infra/tts/elevenlabs"
	"github.com/rdflg/rdflg/internal/middleware"
)

func post(h http.Handler, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		Expect(json.NewEncoder(&buf).Encode(b)).To(Succeed())
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorOf(w *httptest.ResponseRecorder) map[string]string {
	var resp map[string]string
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("Router", func() {
	var (
		router   http.Handler
		analyzer *mockAnalyzer
		narrator *mockNarrator
		metrics  *middleware.Metrics
	)

	BeforeEach(func() {
		analyzer = &mockAnalyzer{}
		narrator = &mockNarrator{}
		metrics = middleware.NewMetrics()
		router = httpserver.NewRouter(analyzer, narrator, httpserver.Options{
			CORSOrigins: []string{"https://rd-flg.tech"},
			Metrics:     metrics,
		})
	})

	Describe("POST /api/analyze-tos", func() {
		It("returns the normalized record", func() {
			var got appanalysis.AnalyzeCommand
			analyzer.analyzeFn = func(_ context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error) {
				got = cmd
				return &domain.Record{ID: "r1", Service: "Acme", RiskScore: 70, RedFlags: []string{"Forced arbitration"}}, nil
			}

			w := post(router, "/api/analyze-tos", map[string]any{
				"tosText":     "You waive your right to a jury trial.",
				"serviceName": "Acme",
				"userId":      "auth0|u1",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got.Text).To(Equal("You waive your right to a jury trial."))
			Expect(got.ServiceName).To(Equal("Acme"))
			Expect(got.UserID).NotTo(BeNil())
			Expect(*got.UserID).To(Equal("auth0|u1"))

			var rec domain.Record
			Expect(json.Unmarshal(w.Body.Bytes(), &rec)).To(Succeed())
			Expect(rec.RiskScore).To(Equal(70))
			Expect(rec.RedFlags).To(ConsistOf("Forced arbitration"))
			Expect(metrics.AnalysesTotal.Load()).To(BeEquivalentTo(1))
		})

		It("accepts snake_case keys and the identity header", func() {
			var got appanalysis.AnalyzeCommand
			analyzer.analyzeFn = func(_ context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error) {
				got = cmd
				return &domain.Record{}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/api/analyze-tos",
				bytes.NewBufferString(`{"tos_text":"terms","service_name":"Legacy"}`))
			req.Header.Set(middleware.UserIDHeader, "u-42")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got.Text).To(Equal("terms"))
			Expect(got.ServiceName).To(Equal("Legacy"))
			Expect(*got.UserID).To(Equal("u-42"))
		})

		It("leaves anonymous submissions without an owner", func() {
			var got appanalysis.AnalyzeCommand
			analyzer.analyzeFn = func(_ context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Record, error) {
				got = cmd
				return &domain.Record{}, nil
			}
			Expect(post(router, "/api/analyze-tos", map[string]any{"tosText": "terms"}).Code).To(Equal(http.StatusOK))
			Expect(got.UserID).To(BeNil())
		})

		It("returns 400 on invalid request body", func() {
			w := post(router, "/api/analyze-tos", `{`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(w)["error"]).To(Equal("invalid request body"))
		})

		It("maps empty text to 400 No text provided", func() {
			analyzer.analyzeFn = func(context.Context, appanalysis.AnalyzeCommand) (*domain.Record, error) {
				return nil, domain.ErrEmptyText
			}
			w := post(router, "/api/analyze-tos", map[string]any{"tosText": "   "})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(w)["error"]).To(Equal("No text provided"))
		})

		DescribeTable("maps pipeline failures to the error envelope",
			func(err error, status int, message string) {
				analyzer.analyzeFn = func(context.Context, appanalysis.AnalyzeCommand) (*domain.Record, error) {
					return nil, err
				}
				w := post(router, "/api/analyze-tos", map[string]any{"tosText": "terms"})
				Expect(w.Code).To(Equal(status))
				Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
				Expect(errorOf(w)["error"]).To(Equal(message))
				Expect(metrics.AnalysesFailed.Load()).To(BeEquivalentTo(1))
			},
			Entry("quota", fmt.Errorf("analyze: %w", domai.ErrQuotaExceeded), http.StatusTooManyRequests, "ai quota exceeded"),
			Entry("timeout", fmt.Errorf("analyze: %w", domai.ErrTimeout), http.StatusGatewayTimeout, "LLM request timed out"),
			Entry("transport", fmt.Errorf("analyze: %w", domai.ErrRequestFailed), http.StatusInternalServerError, "LLM request failed"),
			Entry("empty", fmt.Errorf("analyze: %w", domai.ErrEmptyResponse), http.StatusInternalServerError, "empty response"),
			Entry("malformed", fmt.Errorf("analyze: %w", domain.ErrMalformedResponse), http.StatusInternalServerError, "failed to parse AI response"),
			Entry("unknown", errors.New("secret provider body"), http.StatusInternalServerError, "Internal Server Error"),
		)
	})

	Describe("POST /api/enterprise-compare", func() {
		It("returns the comparison", func() {
			analyzer.compareFn = func(_ context.Context, cmd appanalysis.AnalyzeCommand) (*domain.Comparison, error) {
				return &domain.Comparison{
					Service:   cmd.ServiceName,
					RiskScore: 45,
					CommunityInsights: domain.CommunityInsights{
						TopComplaint:     "Forced arbitration",
						TotalUserReports: 12,
					},
				}, nil
			}
			w := post(router, "/api/enterprise-compare", map[string]any{"tosText": "terms", "serviceName": "BigCo"})
			Expect(w.Code).To(Equal(http.StatusOK))

			var cmp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &cmp)).To(Succeed())
			Expect(cmp["service"]).To(Equal("BigCo"))
			Expect(cmp["riskScore"]).To(BeEquivalentTo(45))
			Expect(metrics.ComparisonsTotal.Load()).To(BeEquivalentTo(1))
		})
	})

	Describe("POST /api/voice-summary", func() {
		It("streams mpeg audio with the provider headers", func() {
			var voice string
			narrator.narrateFn = func(_ context.Context, _, voiceID string) (*narration.Audio, error) {
				voice = voiceID
				return &narration.Audio{Data: []byte("ID3audio"), ContentType: "audio/mpeg", CharacterCount: "11", RequestID: "req-1"}, nil
			}
			w := post(router, "/api/voice-summary", map[string]any{"text": "hello world", "voiceId": "abc123"})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(voice).To(Equal("abc123"))
			Expect(w.Header().Get("Content-Type")).To(Equal("audio/mpeg"))
			Expect(w.Header().Get("Content-Length")).To(Equal("8"))
			Expect(w.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(w.Header().Get("x-elevenlabs-character-count")).To(Equal("11"))
			Expect(w.Header().Get("x-elevenlabs-request-id")).To(Equal("req-1"))
			Expect(w.Body.String()).To(Equal("ID3audio"))
		})

		It("returns 400 text is required", func() {
			narrator.narrateFn = func(context.Context, string, string) (*narration.Audio, error) {
				return nil, narration.ErrEmptyText
			}
			w := post(router, "/api/voice-summary", map[string]any{"text": ""})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(w)["error"]).To(Equal("text is required"))
		})

		It("rejects malformed voice ids before calling the provider", func() {
			called := false
			narrator.narrateFn = func(context.Context, string, string) (*narration.Audio, error) {
				called = true
				return &narration.Audio{}, nil
			}
			w := post(router, "/api/voice-summary", map[string]any{"text": "hi", "voiceId": "../../admin"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(called).To(BeFalse())
		})

		It("reports provider failures without leaking the body", func() {
			narrator.narrateFn = func(context.Context, string, string) (*narration.Audio, error) {
				return nil, &elevenlabs.APIError{StatusCode: 401, Message: "invalid api key sk-123"}
			}
			w := post(router, "/api/voice-summary", map[string]any{"text": "hi"})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			resp := errorOf(w)
			Expect(resp["error"]).To(Equal("Voice synthesis failed"))
			Expect(resp["details"]).To(Equal("upstream status 401"))
			Expect(w.Body.String()).NotTo(ContainSubstring("sk-123"))
		})

		It("maps synthesis timeouts to 504", func() {
			narrator.narrateFn = func(context.Context, string, string) (*narration.Audio, error) {
				return nil, fmt.Errorf("%w: %w", narration.ErrTimeout, context.DeadlineExceeded)
			}
			w := post(router, "/api/voice-summary", map[string]any{"text": "hi"})
			Expect(w.Code).To(Equal(http.StatusGatewayTimeout))
		})
	})

	Describe("GET /api/analyses", func() {
		It("lists the owner's records with a clamped limit", func() {
			var gotUser string
			var gotLimit int
			analyzer.listFn = func(_ context.Context, userID string, limit int) ([]*domain.Record, error) {
				gotUser, gotLimit = userID, limit
				return []*domain.Record{{ID: "a"}, {ID: "b"}}, nil
			}
			w := get(router, "/api/analyses?userId=u1&limit=500")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotUser).To(Equal("u1"))
			Expect(gotLimit).To(Equal(100))

			var list []domain.Record
			Expect(json.Unmarshal(w.Body.Bytes(), &list)).To(Succeed())
			Expect(list).To(HaveLen(2))
		})

		It("falls back to the identity header", func() {
			var gotUser string
			analyzer.listFn = func(_ context.Context, userID string, _ int) ([]*domain.Record, error) {
				gotUser = userID
				return []*domain.Record{}, nil
			}
			w := get(router, "/api/analyses", middleware.UserIDHeader, "u9")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotUser).To(Equal("u9"))
			Expect(w.Body.String()).To(MatchJSON(`[]`))
		})

		It("requires a user", func() {
			w := get(router, "/api/analyses")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(w)["error"]).To(Equal("userId is required"))
		})
	})

	Describe("GET /api/community", func() {
		It("returns the report", func() {
			analyzer.communityFn = func(_ context.Context, k int) community.Report {
				Expect(k).To(Equal(5))
				return community.Report{
					TotalReports: 3,
					RedFlags:     []domain.IssueCount{{Label: "Forced arbitration", Count: 2}},
					Cautions:     []domain.IssueCount{},
					Positives:    []domain.IssueCount{},
				}
			}
			w := get(router, "/api/community?limit=5")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{
				"totalReports": 3,
				"redFlags": [{"label": "Forced arbitration", "count": 2}],
				"cautions": [],
				"positives": []
			}`))
		})
	})

	Describe("operational endpoints", func() {
		It("serves liveness and health", func() {
			Expect(get(router, "/health").Body.String()).To(Equal("ok"))
			Expect(get(router, "/livez").Code).To(Equal(http.StatusOK))
			Expect(get(router, "/readyz").Code).To(Equal(http.StatusOK))
		})

		It("serves metrics as JSON", func() {
			w := get(router, "/metrics")
			Expect(w.Code).To(Equal(http.StatusOK))
			var snap map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap).To(HaveKey("analyses_total"))
		})

		It("answers CORS preflight for the allowed origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/analyze-tos", nil)
			req.Header.Set("Origin", "https://rd-flg.tech")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://rd-flg.tech"))
		})
	})
})
