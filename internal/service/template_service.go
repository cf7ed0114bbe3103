package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/repository"
)

// TemplateInput carries validated data for a new recurring template.
type TemplateInput struct {
	Title       string
	Description *string
	Intention   *string
	Priority    int
	Category    *string
	DueTime     *string
	Rule        recurrence.Rule
	StartDate   recurrence.Date
	EndType     recurrence.EndType
	EndDate     *recurrence.Date
	EndCount    *int
}

// TemplatePatch carries a partial update; nil fields are left unchanged.
type TemplatePatch struct {
	Title       *string
	Description *string
	Intention   *string
	Priority    *int
	Category    *string
	DueTime     *string
	Rule        recurrence.Rule
	StartDate   *recurrence.Date
	EndType     *recurrence.EndType
	EndDate     *recurrence.Date
	EndCount    *int
	Status      *model.TemplateStatus
}

// TemplateService manages the recurring-template lifecycle:
// create, pause, resume, update, delete.
type TemplateService struct {
	db        *gorm.DB
	templates *repository.TemplateRepository
	tasks     *repository.TaskRepository
	generator *GeneratorService

	// aheadDays is the rolling generation horizon applied after create
	// and resume.
	aheadDays int
}

func NewTemplateService(db *gorm.DB, templates *repository.TemplateRepository, tasks *repository.TaskRepository, generator *GeneratorService, aheadDays int) *TemplateService {
	if aheadDays <= 0 {
		aheadDays = 7
	}
	return &TemplateService{db: db, templates: templates, tasks: tasks, generator: generator, aheadDays: aheadDays}
}

// Create persists an active template and synchronously materializes the
// initial window through start_date + aheadDays. Generation failure here
// surfaces to the caller: materialization was the point of the call.
func (s *TemplateService) Create(ctx context.Context, user *model.User, input TemplateInput) (*model.RecurringTemplate, error) {
	tpl := &model.RecurringTemplate{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Title:          input.Title,
		Description:    input.Description,
		Intention:      input.Intention,
		Priority:       input.Priority,
		Category:       input.Category,
		DueTime:        input.DueTime,
		RecurrenceRule: model.RuleColumn{Rule: input.Rule},
		StartDate:      input.StartDate.String(),
		EndType:        input.EndType,
		EndCount:       input.EndCount,
		Status:         model.StatusActive,
		// The watermark starts at start_date so the first pass generates
		// from the very first eligible day.
		NextGenerateDate: input.StartDate.String(),
	}
	if input.EndDate != nil {
		str := input.EndDate.String()
		tpl.EndDate = &str
	}

	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	if _, err := s.generator.GenerateForTemplate(ctx, tpl, input.StartDate.AddDays(s.aheadDays)); err != nil {
		return nil, err
	}
	return tpl, nil
}

// List returns the user's templates; status filters when non-empty.
func (s *TemplateService) List(ctx context.Context, userID, status string) ([]model.RecurringTemplate, error) {
	return s.templates.ListByUser(ctx, userID, status)
}

func (s *TemplateService) Get(ctx context.Context, userID, id string) (*model.RecurringTemplate, error) {
	tpl, err := s.templates.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return tpl, nil
}

// Update applies a field patch to the template. Archived templates are
// terminal and reject all updates.
func (s *TemplateService) Update(ctx context.Context, userID, id string, patch TemplatePatch) (*model.RecurringTemplate, error) {
	tpl, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tpl.Status == model.StatusArchived {
		return nil, ErrArchivedTemplate
	}

	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Intention != nil {
		updates["intention"] = *patch.Intention
	}
	if patch.Priority != nil {
		updates["priority"] = *patch.Priority
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.DueTime != nil {
		updates["due_time"] = *patch.DueTime
	}
	if patch.Rule != nil {
		updates["recurrence_rule"] = model.RuleColumn{Rule: patch.Rule}
	}
	if patch.StartDate != nil {
		updates["start_date"] = patch.StartDate.String()
	}
	if patch.EndType != nil {
		updates["end_type"] = string(*patch.EndType)
	}
	if patch.EndDate != nil {
		updates["end_date"] = patch.EndDate.String()
	}
	if patch.EndCount != nil {
		updates["end_count"] = *patch.EndCount
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if len(updates) == 0 {
		return tpl, nil
	}

	if err := s.templates.UpdateFields(ctx, userID, id, updates); err != nil {
		return nil, notFoundOr(err)
	}
	return s.Get(ctx, userID, id)
}

// Pause freezes generation. Existing instances are untouched.
func (s *TemplateService) Pause(ctx context.Context, userID, id string) (*model.RecurringTemplate, error) {
	tpl, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tpl.Status == model.StatusArchived {
		return nil, ErrArchivedTemplate
	}
	if err := s.templates.UpdateFields(ctx, userID, id, map[string]any{"status": model.StatusPaused}); err != nil {
		return nil, notFoundOr(err)
	}
	tpl.Status = model.StatusPaused
	return tpl, nil
}

// Resume reactivates a paused template from today forward. The watermark
// resets to the next occurrence on or after today, deliberately forfeiting
// occurrences missed while paused, then the rolling window is generated.
func (s *TemplateService) Resume(ctx context.Context, userID, id string, today recurrence.Date) (*model.RecurringTemplate, error) {
	tpl, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tpl.Status == model.StatusArchived {
		return nil, ErrArchivedTemplate
	}

	start, err := recurrence.ParseDate(tpl.StartDate)
	if err != nil {
		return nil, err
	}
	watermark := today
	if next, ok := recurrence.NextOccurrence(tpl.RecurrenceRule.Rule, start, today.AddDays(-1)); ok {
		watermark = next
	}

	if err := s.templates.UpdateFields(ctx, userID, id, map[string]any{
		"status":             model.StatusActive,
		"next_generate_date": watermark.String(),
	}); err != nil {
		return nil, notFoundOr(err)
	}
	tpl.Status = model.StatusActive
	tpl.NextGenerateDate = watermark.String()

	if _, err := s.generator.GenerateForTemplate(ctx, tpl, today.AddDays(s.aheadDays)); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete removes the template and its incomplete instances from today
// onward. Past and completed instances survive as historical record.
func (s *TemplateService) Delete(ctx context.Context, userID, id string, today recurrence.Date) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	todayStr := today.String()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tasks.WithTx(tx).DeleteSeries(ctx, userID, id, &todayStr); err != nil {
			return err
		}
		return s.templates.WithTx(tx).Delete(ctx, userID, id)
	})
}
