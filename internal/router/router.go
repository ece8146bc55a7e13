package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mcq-mastery-backend/internal/handlers"
	"mcq-mastery-backend/internal/middleware"
	"mcq-mastery-backend/internal/services"
	"mcq-mastery-backend/internal/websocket"
)

type Handlers struct {
	State      *handlers.StateHandler
	Dashboard  *handlers.DashboardHandler
	Question   *handlers.QuestionHandler
	Quiz       *handlers.QuizHandler
	Attempt    *handlers.AttemptHandler
	Research   *handlers.ResearchHandler
	Extraction *handlers.ExtractionHandler
}

func New(h Handlers, aiLimiter *middleware.RateLimiter, wsHub *websocket.Hub, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(middleware.AdminPath)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── App State ────
		r.Get("/state", h.State.Get)
		r.Post("/state/actions", h.State.Dispatch)

		// ──── Dashboard ────
		r.Get("/dashboard/stats", h.Dashboard.Stats)

		// ──── Question Library ────
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", h.Question.List)
			r.Get("/slug/{slug}", h.Question.GetBySlug)
			r.Get("/{id}", h.Question.Get)

			r.Get("/{id}/facts", h.Research.Get(services.ResearchFacts))
			r.Delete("/{id}/facts", h.Research.Dismiss(services.ResearchFacts))
			r.Get("/{id}/explain", h.Research.Get(services.ResearchExplain))
			r.Delete("/{id}/explain", h.Research.Dismiss(services.ResearchExplain))

			r.Group(func(r chi.Router) {
				r.Use(aiLimiter.Middleware)
				r.Post("/{id}/facts", h.Research.Start(services.ResearchFacts))
				r.Post("/{id}/explain", h.Research.Start(services.ResearchExplain))
			})
		})

		r.With(aiLimiter.Middleware).Post("/explain", h.Research.QuickExplain)

		// ──── Quiz Session ────
		r.Route("/quiz", func(r chi.Router) {
			r.Get("/", h.Quiz.Get)
			r.Post("/start", h.Quiz.Start)
			r.Post("/select", h.Quiz.Select)
			r.Post("/mark", h.Quiz.Mark)
			r.Post("/jump", h.Quiz.Jump)
			r.Post("/next", h.Quiz.Next)
			r.Post("/prev", h.Quiz.Prev)
			r.Post("/finish", h.Quiz.Finish)
			r.Post("/exit", h.Quiz.Exit)
		})

		// ──── Attempt History ────
		r.Route("/attempts", func(r chi.Router) {
			r.Get("/", h.Attempt.List)
			r.Get("/{id}", h.Attempt.Get)
			r.Post("/{id}/review", h.Attempt.Review)
		})

		// ──── Extraction Jobs ────
		r.Get("/jobs/{id}", h.Extraction.GetJob)

		// ──── Admin ────
		r.Route("/admin", func(r chi.Router) {
			r.Get("/state", h.State.Get)
			r.Post("/state/actions", h.State.Dispatch)

			r.Group(func(r chi.Router) {
				r.Use(aiLimiter.Middleware)
				r.Post("/uploads", h.Extraction.Upload)
				r.Post("/analyze", h.Extraction.Analyze)
			})

			r.Delete("/questions/{id}", h.Question.Delete)

			r.Route("/jobs/{id}", func(r chi.Router) {
				r.Get("/", h.Extraction.GetJob)
				r.Delete("/", h.Extraction.Cancel)
				r.Post("/confirm", h.Extraction.Confirm)
				r.Put("/questions/{qid}", h.Extraction.UpdatePending)
				r.Delete("/questions/{qid}", h.Extraction.RemovePending)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
