package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/service"
)

// templateEnvelope wraps a single template with a human-readable schedule
// summary.
func templateEnvelope(tpl *model.RecurringTemplate) map[string]any {
	return map[string]any{
		"recurring_task": tpl,
		"schedule":       recurrence.Describe(tpl.RecurrenceRule.Rule),
	}
}

func (s *Server) handleCreateRecurringTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	input, details := req.validate()
	if details != nil {
		writeFieldErrors(w, details)
		return
	}

	tpl, err := s.templates.Create(r.Context(), user, input)
	if err != nil {
		s.logger.Error("create recurring task", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, templateEnvelope(tpl))
}

func (s *Server) handleListRecurringTasks(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidTemplateStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}

	templates, err := s.templates.List(r.Context(), user.ID, status)
	if err != nil {
		s.logger.Error("list recurring tasks", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring_tasks": templates})
}

func (s *Server) handleGetRecurringTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	tpl, err := s.templates.Get(r.Context(), user.ID, id)
	if err != nil {
		s.respondServiceError(w, "get recurring task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, templateEnvelope(tpl))
}

// handlePatchRecurringTask serves both lifecycle quick actions and field
// patches. An action arrives as the `action` query param with no body; a
// field patch is a plain JSON body without an action.
func (s *Server) handlePatchRecurringTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	var (
		tpl *model.RecurringTemplate
		err error
	)
	switch r.URL.Query().Get("action") {
	case "pause":
		tpl, err = s.templates.Pause(r.Context(), user.ID, id)
	case "resume":
		tpl, err = s.templates.Resume(r.Context(), user.ID, id, s.today(r))
	case "":
		var req updateTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		patch, details := req.validate()
		if details != nil {
			writeFieldErrors(w, details)
			return
		}
		tpl, err = s.templates.Update(r.Context(), user.ID, id, patch)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	if err != nil {
		s.respondServiceError(w, "update recurring task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, templateEnvelope(tpl))
}

func (s *Server) handleDeleteRecurringTask(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	if err := s.templates.Delete(r.Context(), user.ID, id, s.today(r)); err != nil {
		s.respondServiceError(w, "delete recurring task", user.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// respondServiceError maps service errors onto HTTP statuses, logging
// only the unexpected ones.
func (s *Server) respondServiceError(w http.ResponseWriter, op, userID string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrArchivedTemplate):
		writeError(w, http.StatusConflict, "Archived recurring tasks cannot be modified")
	case errors.Is(err, service.ErrNotRecurringInstance):
		writeError(w, http.StatusBadRequest, "Task is not a recurring instance")
	default:
		s.logger.Error(op, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
