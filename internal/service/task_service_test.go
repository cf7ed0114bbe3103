package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
)

// seedSeries creates a daily template with an eight-day instance window
// and returns the template plus its instances ordered by date.
func seedSeries(e *testEnv, t *testing.T, user *model.User) (*model.RecurringTemplate, []model.Task) {
	t.Helper()
	tpl, err := e.template.Create(context.Background(), user, TemplateInput{
		Title:     "Workout",
		Rule:      recurrence.Daily{Interval: 1},
		StartDate: mustDate(t, "2026-05-01"),
		EndType:   recurrence.EndNever,
	})
	require.NoError(t, err)

	rows, err := e.tasks.ListByTemplate(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	return tpl, rows
}

func taskByDate(t *testing.T, rows []model.Task, date string) model.Task {
	t.Helper()
	for _, row := range rows {
		if row.OriginalDate != nil && *row.OriginalDate == date {
			return row
		}
	}
	t.Fatalf("no instance for %s", date)
	return model.Task{}
}

func TestUpdateScopeThisMarksException(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, rows := seedSeries(e, t, user)

	target := taskByDate(t, rows, "2026-05-03")
	updated, err := e.task.UpdateWithScope(context.Background(), user.ID, target.ID, ScopeThis,
		TaskPatch{Title: strPtr("Leg day")})
	require.NoError(t, err)
	require.Equal(t, "Leg day", updated.Title)
	require.True(t, updated.IsException)

	// Siblings are untouched.
	other, err := e.task.Get(context.Background(), user.ID, taskByDate(t, rows, "2026-05-04").ID)
	require.NoError(t, err)
	require.Equal(t, "Workout", other.Title)

	// A later series-wide edit skips the exception.
	_, err = e.task.UpdateWithScope(context.Background(), user.ID, other.ID, ScopeAll,
		TaskPatch{Title: strPtr("Training")})
	require.NoError(t, err)

	exception, err := e.task.Get(context.Background(), user.ID, target.ID)
	require.NoError(t, err)
	require.Equal(t, "Leg day", exception.Title)

	stored, err := e.templates.FindByID(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, "Training", stored.Title)
}

func TestUpdateScopeFollowingSplitsAtDate(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, rows := seedSeries(e, t, user)

	target := taskByDate(t, rows, "2026-05-05")
	_, err := e.task.UpdateWithScope(context.Background(), user.ID, target.ID, ScopeFollowing,
		TaskPatch{Title: strPtr("Evening workout")})
	require.NoError(t, err)

	after, err := e.tasks.ListByTemplate(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	for _, row := range after {
		if *row.OriginalDate < "2026-05-05" {
			require.Equal(t, "Workout", row.Title, "date %s", *row.OriginalDate)
		} else {
			require.Equal(t, "Evening workout", row.Title, "date %s", *row.OriginalDate)
		}
	}

	// The template carries the edit so future generations follow suit.
	stored, err := e.templates.FindByID(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, "Evening workout", stored.Title)
}

func TestUpdateScopeSkipsCompletedInstances(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	_, rows := seedSeries(e, t, user)

	done := taskByDate(t, rows, "2026-05-02")
	_, err := e.task.Toggle(context.Background(), user.ID, done.ID)
	require.NoError(t, err)

	_, err = e.task.UpdateWithScope(context.Background(), user.ID, taskByDate(t, rows, "2026-05-01").ID,
		ScopeAll, TaskPatch{Title: strPtr("Renamed")})
	require.NoError(t, err)

	kept, err := e.task.Get(context.Background(), user.ID, done.ID)
	require.NoError(t, err)
	require.Equal(t, "Workout", kept.Title)
}

func TestUpdateSeriesScopeRequiresInstance(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)

	due := "2026-05-01"
	oneOff := &model.Task{ID: "one-off", UserID: user.ID, Title: "Errand", DueDate: &due}
	require.NoError(t, e.tasks.Save(context.Background(), oneOff))

	_, err := e.task.UpdateWithScope(context.Background(), user.ID, oneOff.ID, ScopeFollowing,
		TaskPatch{Title: strPtr("x")})
	require.ErrorIs(t, err, ErrNotRecurringInstance)
	err = e.task.DeleteWithScope(context.Background(), user.ID, oneOff.ID, ScopeAll)
	require.ErrorIs(t, err, ErrNotRecurringInstance)

	// Scope "this" still works on plain tasks without marking exceptions.
	updated, err := e.task.UpdateWithScope(context.Background(), user.ID, oneOff.ID, ScopeThis,
		TaskPatch{Title: strPtr("Post office")})
	require.NoError(t, err)
	require.Equal(t, "Post office", updated.Title)
	require.False(t, updated.IsException)
}

func TestSeriesScopeRequiresOriginalDate(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, _ := seedSeries(e, t, user)

	// A template link without an original date cannot anchor a following
	// split; it must be rejected, not dereferenced.
	due := "2026-05-09"
	orphan := &model.Task{ID: "orphan", UserID: user.ID, Title: "Detached",
		DueDate: &due, RecurringTemplateID: &tpl.ID}
	require.NoError(t, e.tasks.Save(context.Background(), orphan))

	_, err := e.task.UpdateWithScope(context.Background(), user.ID, orphan.ID, ScopeFollowing,
		TaskPatch{Title: strPtr("x")})
	require.ErrorIs(t, err, ErrNotRecurringInstance)
	err = e.task.DeleteWithScope(context.Background(), user.ID, orphan.ID, ScopeFollowing)
	require.ErrorIs(t, err, ErrNotRecurringInstance)
}

func TestDeleteScopeFollowingTrimsSeriesEnd(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, rows := seedSeries(e, t, user)

	target := taskByDate(t, rows, "2026-05-05")
	require.NoError(t, e.task.DeleteWithScope(context.Background(), user.ID, target.ID, ScopeFollowing))

	dates := instanceDates(t, e, user.ID, tpl.ID)
	require.Equal(t, []string{"2026-05-01", "2026-05-02", "2026-05-03", "2026-05-04"}, dates)

	// The template end moved to the day before the cut so regeneration
	// cannot refill the tail.
	stored, err := e.templates.FindByID(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, recurrence.EndOnDate, stored.EndType)
	require.NotNil(t, stored.EndDate)
	require.Equal(t, "2026-05-04", *stored.EndDate)
	require.Equal(t, model.StatusActive, stored.Status)
}

func TestDeleteScopeFollowingFromFirstOccurrenceArchives(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, rows := seedSeries(e, t, user)

	target := taskByDate(t, rows, "2026-05-01")
	require.NoError(t, e.task.DeleteWithScope(context.Background(), user.ID, target.ID, ScopeFollowing))

	require.Empty(t, instanceDates(t, e, user.ID, tpl.ID))
	stored, err := e.templates.FindByID(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusArchived, stored.Status)
}

func TestDeleteScopeAllArchivesAndKeepsCompleted(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	tpl, rows := seedSeries(e, t, user)

	done := taskByDate(t, rows, "2026-05-02")
	_, err := e.task.Toggle(context.Background(), user.ID, done.ID)
	require.NoError(t, err)

	require.NoError(t, e.task.DeleteWithScope(context.Background(), user.ID,
		taskByDate(t, rows, "2026-05-06").ID, ScopeAll))

	remaining, err := e.tasks.ListByTemplate(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "2026-05-02", *remaining[0].OriginalDate)

	stored, err := e.templates.FindByID(context.Background(), user.ID, tpl.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusArchived, stored.Status)
}

func TestToggleCompletesIndependently(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t)
	_, rows := seedSeries(e, t, user)

	first := taskByDate(t, rows, "2026-05-01")
	toggled, err := e.task.Toggle(context.Background(), user.ID, first.ID)
	require.NoError(t, err)
	require.True(t, toggled.IsCompleted)
	require.NotNil(t, toggled.CompletedAt)

	sibling, err := e.task.Get(context.Background(), user.ID, taskByDate(t, rows, "2026-05-02").ID)
	require.NoError(t, err)
	require.False(t, sibling.IsCompleted)

	// Toggle back clears the completion timestamp.
	toggled, err = e.task.Toggle(context.Background(), user.ID, first.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsCompleted)
	require.Nil(t, toggled.CompletedAt)
}
