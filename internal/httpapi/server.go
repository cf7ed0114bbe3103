package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/repository"
	"habit-tracker/internal/service"
)

// Server exposes the recurring-task engine over HTTP. All routes under
// /api/v1 require Bearer token auth.
type Server struct {
	users     *repository.UserRepository
	templates *service.TemplateService
	tasks     *service.TaskService
	logger    *slog.Logger
	aheadDays int
}

func NewServer(users *repository.UserRepository, templates *service.TemplateService, tasks *service.TaskService, logger *slog.Logger, aheadDays int) *Server {
	if aheadDays <= 0 {
		aheadDays = 7
	}
	return &Server{users: users, templates: templates, tasks: tasks, logger: logger, aheadDays: aheadDays}
}

// Handler builds the full route tree with auth, CORS and request logging.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/recurring-tasks", s.handleCreateRecurringTask)
	mux.HandleFunc("GET /api/v1/recurring-tasks", s.handleListRecurringTasks)
	mux.HandleFunc("GET /api/v1/recurring-tasks/{id}", s.handleGetRecurringTask)
	mux.HandleFunc("PATCH /api/v1/recurring-tasks/{id}", s.handlePatchRecurringTask)
	mux.HandleFunc("DELETE /api/v1/recurring-tasks/{id}", s.handleDeleteRecurringTask)

	mux.HandleFunc("GET /api/v1/tasks/today", s.handleListToday)
	mux.HandleFunc("GET /api/v1/tasks/upcoming", s.handleListUpcoming)
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}", s.handlePatchTask)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/v1/tasks/{id}/toggle", s.handleToggleTask)

	var handler http.Handler = requireAuth(s.users, mux)
	handler = s.logRequests(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(handler)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// today resolves the caller's current date. Clients in other timezones
// pass ?date=YYYY-MM-DD; otherwise the server's UTC date applies. A
// malformed value falls back to UTC rather than failing the request.
func (s *Server) today(r *http.Request) recurrence.Date {
	if raw := r.URL.Query().Get("date"); raw != "" {
		if d, err := recurrence.ParseDate(raw); err == nil {
			return d
		}
	}
	return recurrence.DateOf(time.Now().UTC())
}
