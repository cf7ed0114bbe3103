package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"habit-tracker/internal/model"
	"habit-tracker/internal/repository"
	"habit-tracker/internal/service"
)

type apiEnv struct {
	handler http.Handler
	users   *repository.UserRepository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	templates := repository.NewTemplateRepository(db)
	tasks := repository.NewTaskRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	generator := service.NewGeneratorService(db, templates, tasks, logger)
	templateSvc := service.NewTemplateService(db, templates, tasks, generator, 7)
	taskSvc := service.NewTaskService(db, tasks, templates, generator)

	server := NewServer(users, templateSvc, taskSvc, logger, 7)
	return &apiEnv{handler: server.Handler(nil), users: users}
}

func (e *apiEnv) createUser(t *testing.T) *model.User {
	t.Helper()
	user := &model.User{
		ID:       uuid.NewString(),
		Email:    uuid.NewString() + "@example.com",
		APIToken: uuid.NewString(),
		Name:     "Test User",
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *apiEnv) do(t *testing.T, user *model.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+user.APIToken)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func validCreateBody() map[string]any {
	return map[string]any{
		"title":      "Morning run",
		"priority":   2,
		"category":   "personal",
		"start_date": "2026-06-01",
		"recurrence_rule": map[string]any{
			"frequency": "daily",
			"interval":  1,
		},
	}
}

func TestAuthRequired(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(t, nil, http.MethodGet, "/api/v1/recurring-tasks", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recurring-tasks", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCreateRecurringTask(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, "every day", payload["schedule"])
	tpl, ok := payload["recurring_task"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, tpl["id"])
	require.Equal(t, "active", tpl["status"])
	require.Equal(t, "2026-06-01", tpl["start_date"])
	// The initial window materialized through start_date plus seven days.
	require.EqualValues(t, 8, tpl["instances_generated"])
	require.Equal(t, "2026-06-09", tpl["next_generate_date"])
}

func TestCreateRecurringTaskValidation(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	body := validCreateBody()
	body["start_date"] = "01-06-2026"
	body["title"] = ""
	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decode(t, rec)
	require.Equal(t, "Validation failed", payload["error"])
	details, ok := payload["details"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, details, "start_date")
	require.Contains(t, details, "title")
}

func TestCreateRejectsUnknownFrequency(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	body := validCreateBody()
	body["recurrence_rule"] = map[string]any{"frequency": "hourly", "interval": 1}
	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decode(t, rec)
	details := payload["details"].(map[string]any)
	require.Contains(t, details, "recurrence_rule")
}

func TestPauseResumeActions(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["recurring_task"].(map[string]any)["id"].(string)

	// Quick actions ride the query string and carry no body.
	rec = e.do(t, user, http.MethodPatch, "/api/v1/recurring-tasks/"+id+"?action=pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "paused", decode(t, rec)["recurring_task"].(map[string]any)["status"])

	rec = e.do(t, user, http.MethodPatch, "/api/v1/recurring-tasks/"+id+"?action=resume&date=2026-06-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", decode(t, rec)["recurring_task"].(map[string]any)["status"])

	// An action wins over any body that tags along.
	rec = e.do(t, user, http.MethodPatch, "/api/v1/recurring-tasks/"+id+"?action=pause",
		map[string]any{"title": "Ignored"})
	require.Equal(t, http.StatusOK, rec.Code)
	paused := decode(t, rec)["recurring_task"].(map[string]any)
	require.Equal(t, "paused", paused["status"])
	require.Equal(t, "Morning run", paused["title"])

	rec = e.do(t, user, http.MethodPatch, "/api/v1/recurring-tasks/"+id+"?action=defrost", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchRecurringTaskFieldUpdate(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["recurring_task"].(map[string]any)["id"].(string)

	rec = e.do(t, user, http.MethodPatch, "/api/v1/recurring-tasks/"+id,
		map[string]any{"title": "Evening run", "priority": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	tpl := decode(t, rec)["recurring_task"].(map[string]any)
	require.Equal(t, "Evening run", tpl["title"])
	require.EqualValues(t, 3, tpl["priority"])
	require.Equal(t, "active", tpl["status"])
}

func TestCrossTenantLookupIsNotFound(t *testing.T) {
	e := newAPIEnv(t)
	owner := e.createUser(t)
	intruder := e.createUser(t)

	rec := e.do(t, owner, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["recurring_task"].(map[string]any)["id"].(string)

	rec = e.do(t, intruder, http.MethodGet, "/api/v1/recurring-tasks/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, intruder, http.MethodDelete, "/api/v1/recurring-tasks/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodayViewMaterializesInstances(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, user, http.MethodGet, "/api/v1/tasks/today?date=2026-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	require.Equal(t, "2026-06-01", payload["date"])
	tasks := payload["tasks"].([]any)
	require.Len(t, tasks, 1)
	first := tasks[0].(map[string]any)
	require.Equal(t, "Morning run", first["title"])
	require.Equal(t, "2026-06-01", first["due_date"])
}

func TestToggleAndScopeDelete(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, user, http.MethodGet, "/api/v1/tasks/upcoming?date=2026-06-01&to=2026-06-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode(t, rec)["tasks"].([]any)
	require.Len(t, tasks, 8)
	firstID := tasks[0].(map[string]any)["id"].(string)
	thirdID := tasks[2].(map[string]any)["id"].(string)

	rec = e.do(t, user, http.MethodPost, "/api/v1/tasks/"+firstID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["task"].(map[string]any)["is_completed"])

	// Deleting from the third onward leaves the first two; the completed
	// first instance survives regardless.
	rec = e.do(t, user, http.MethodDelete, "/api/v1/tasks/"+thirdID+"?scope=following", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, user, http.MethodGet, "/api/v1/tasks/upcoming?date=2026-06-01&to=2026-06-08", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["tasks"].([]any), 2)

	rec = e.do(t, user, http.MethodDelete, "/api/v1/tasks/"+thirdID+"?scope=everything", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchTaskScopeThis(t *testing.T) {
	e := newAPIEnv(t)
	user := e.createUser(t)

	rec := e.do(t, user, http.MethodPost, "/api/v1/recurring-tasks", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, user, http.MethodGet, "/api/v1/tasks/upcoming?date=2026-06-01&to=2026-06-08", nil)
	id := decode(t, rec)["tasks"].([]any)[0].(map[string]any)["id"].(string)

	rec = e.do(t, user, http.MethodPatch, "/api/v1/tasks/"+id,
		map[string]any{"title": "Long run"})
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode(t, rec)["task"].(map[string]any)
	require.Equal(t, "Long run", task["title"])
	require.Equal(t, true, task["is_exception"])
}
