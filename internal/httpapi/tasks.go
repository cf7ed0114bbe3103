package httpapi

import (
	"encoding/json"
	"net/http"

	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/service"
)

func (s *Server) handleListToday(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	today := s.today(r)

	tasks, err := s.tasks.ListToday(r.Context(), user.ID, today, s.aheadDays)
	if err != nil {
		s.logger.Error("list today", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "date": today.String()})
}

func (s *Server) handleListUpcoming(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	from := s.today(r)

	to := from.AddDays(s.aheadDays)
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, err := recurrence.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = d
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before the window start")
		return
	}

	tasks, err := s.tasks.ListUpcoming(r.Context(), user.ID, from, to)
	if err != nil {
		s.logger.Error("list upcoming", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "from": from.String(), "to": to.String()})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	task, err := s.tasks.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, "get task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	scope := service.EditScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = service.ScopeThis
	}
	if !service.ValidScope(scope) {
		writeError(w, http.StatusBadRequest, "scope must be this, following, or all")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	patch, details := req.validate()
	if details != nil {
		writeFieldErrors(w, details)
		return
	}

	task, err := s.tasks.UpdateWithScope(r.Context(), user.ID, r.PathValue("id"), scope, patch)
	if err != nil {
		s.respondServiceError(w, "update task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	scope := service.EditScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = service.ScopeThis
	}
	if !service.ValidScope(scope) {
		writeError(w, http.StatusBadRequest, "scope must be this, following, or all")
		return
	}

	if err := s.tasks.DeleteWithScope(r.Context(), user.ID, r.PathValue("id"), scope); err != nil {
		s.respondServiceError(w, "delete task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	task, err := s.tasks.Toggle(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, "toggle task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}
