package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/repository"
)

// EditScope selects how an edit or delete on a recurring instance
// propagates through its series.
type EditScope string

const (
	// ScopeThis touches only the targeted instance and marks it an
	// exception, shielding it from later series edits.
	ScopeThis EditScope = "this"
	// ScopeFollowing touches the instance's template and every incomplete,
	// non-exception instance from the instance's original date onward.
	ScopeFollowing EditScope = "following"
	// ScopeAll touches the template and every incomplete, non-exception
	// instance of the series.
	ScopeAll EditScope = "all"
)

func ValidScope(s EditScope) bool {
	switch s {
	case ScopeThis, ScopeFollowing, ScopeAll:
		return true
	}
	return false
}

// TaskPatch carries a partial task update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Intention   *string
	Priority    *int
	Category    *string
	DueDate     *recurrence.Date
	DueTime     *string
	IsCompleted *bool
}

// TaskService reads and mutates task instances, including scope-aware
// edits on recurring series.
type TaskService struct {
	db        *gorm.DB
	tasks     *repository.TaskRepository
	templates *repository.TemplateRepository
	generator *GeneratorService
}

func NewTaskService(db *gorm.DB, tasks *repository.TaskRepository, templates *repository.TemplateRepository, generator *GeneratorService) *TaskService {
	return &TaskService{db: db, tasks: tasks, templates: templates, generator: generator}
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return task, nil
}

// ListToday returns tasks due today plus overdue incomplete ones, after
// topping up recurring instances through the requested horizon. A failed
// generation pass is logged by the generator and does not block the read.
func (s *TaskService) ListToday(ctx context.Context, userID string, today recurrence.Date, ahead int) ([]model.Task, error) {
	_ = s.generator.EnsureInstances(ctx, userID, today.AddDays(ahead))
	return s.tasks.ListToday(ctx, userID, today.String())
}

// ListUpcoming returns tasks due in [from, to], materializing recurring
// instances through the window end first.
func (s *TaskService) ListUpcoming(ctx context.Context, userID string, from, to recurrence.Date) ([]model.Task, error) {
	_ = s.generator.EnsureInstances(ctx, userID, to)
	return s.tasks.ListWindow(ctx, userID, from.String(), to.String())
}

// Toggle flips a task's completion state. Completion never propagates
// across a series; each instance completes independently.
func (s *TaskService) Toggle(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	task.IsCompleted = !task.IsCompleted
	if task.IsCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateWithScope applies a patch at the given scope. Scope "this" works
// on any task; "following" and "all" require a recurring instance and
// propagate only content fields, never dates or completion.
func (s *TaskService) UpdateWithScope(ctx context.Context, userID, taskID string, scope EditScope, patch TaskPatch) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if scope == ScopeThis {
		updates := taskUpdates(patch)
		if task.IsInstance() {
			// A detached edit: the row no longer follows series edits.
			updates["is_exception"] = true
		}
		if len(updates) == 0 {
			return task, nil
		}
		if err := s.tasks.UpdateFields(ctx, userID, taskID, updates); err != nil {
			return nil, notFoundOr(err)
		}
		return s.Get(ctx, userID, taskID)
	}

	if !task.IsInstance() {
		return nil, ErrNotRecurringInstance
	}
	templateID := *task.RecurringTemplateID

	seriesUpdates := seriesContentUpdates(patch)
	tplUpdates := templateContentUpdates(patch)

	var fromDate *string
	if scope == ScopeFollowing {
		// A template link without an original date cannot anchor a split.
		if task.OriginalDate == nil {
			return nil, ErrNotRecurringInstance
		}
		fromDate = task.OriginalDate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(tplUpdates) > 0 {
			if err := s.templates.WithTx(tx).UpdateFields(ctx, userID, templateID, tplUpdates); err != nil {
				return err
			}
		}
		if len(seriesUpdates) > 0 {
			if err := s.tasks.WithTx(tx).UpdateSeries(ctx, userID, templateID, fromDate, seriesUpdates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	return s.Get(ctx, userID, taskID)
}

// DeleteWithScope deletes at the given scope. "following" trims the
// template's end so regeneration cannot resurrect the deleted tail;
// "all" wipes incomplete instances and archives the template.
func (s *TaskService) DeleteWithScope(ctx context.Context, userID, taskID string, scope EditScope) error {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if scope == ScopeThis {
		return s.tasks.Delete(ctx, userID, taskID)
	}

	if !task.IsInstance() {
		return ErrNotRecurringInstance
	}
	if scope == ScopeFollowing && task.OriginalDate == nil {
		return ErrNotRecurringInstance
	}
	templateID := *task.RecurringTemplateID

	tpl, err := s.templates.FindByID(ctx, userID, templateID)
	if err != nil {
		return notFoundOr(err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch scope {
		case ScopeFollowing:
			target, err := recurrence.ParseDate(*task.OriginalDate)
			if err != nil {
				return err
			}
			start, err := recurrence.ParseDate(tpl.StartDate)
			if err != nil {
				return err
			}
			if err := s.tasks.WithTx(tx).DeleteSeries(ctx, userID, templateID, task.OriginalDate); err != nil {
				return err
			}
			newEnd := target.AddDays(-1)
			updates := map[string]any{
				"end_type": string(recurrence.EndOnDate),
				"end_date": newEnd.String(),
			}
			if newEnd.Before(start) {
				// Nothing can ever occur again; the series is spent.
				updates["status"] = string(model.StatusArchived)
			}
			return s.templates.WithTx(tx).UpdateFields(ctx, userID, templateID, updates)
		case ScopeAll:
			if err := s.tasks.WithTx(tx).DeleteSeries(ctx, userID, templateID, nil); err != nil {
				return err
			}
			return s.templates.WithTx(tx).UpdateFields(ctx, userID, templateID, map[string]any{
				"status": string(model.StatusArchived),
			})
		}
		return nil
	})
}

// taskUpdates builds the full single-row update set for scope "this".
func taskUpdates(p TaskPatch) map[string]any {
	updates := seriesContentUpdates(p)
	if p.DueDate != nil {
		updates["due_date"] = p.DueDate.String()
	}
	if p.IsCompleted != nil {
		updates["is_completed"] = *p.IsCompleted
		if *p.IsCompleted {
			updates["completed_at"] = time.Now().UTC()
		} else {
			updates["completed_at"] = nil
		}
	}
	return updates
}

// seriesContentUpdates restricts a patch to the fields that may propagate
// across instances of a series.
func seriesContentUpdates(p TaskPatch) map[string]any {
	updates := map[string]any{}
	if p.Title != nil {
		updates["title"] = *p.Title
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Intention != nil {
		updates["intention"] = *p.Intention
	}
	if p.Priority != nil {
		updates["priority"] = *p.Priority
	}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.DueTime != nil {
		updates["due_time"] = *p.DueTime
	}
	return updates
}

// templateContentUpdates mirrors the series patch onto the template so
// future generations carry the edit.
func templateContentUpdates(p TaskPatch) map[string]any {
	return seriesContentUpdates(p)
}
