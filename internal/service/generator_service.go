package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/repository"
)

// GeneratorService materializes task instances from recurring templates.
// Generation is lazy and request-driven: call sites ask for instances to
// exist through a date, and each pass is idempotent, so overlapping or
// retried calls are safe.
type GeneratorService struct {
	db        *gorm.DB
	templates *repository.TemplateRepository
	tasks     *repository.TaskRepository
	logger    *slog.Logger
}

func NewGeneratorService(db *gorm.DB, templates *repository.TemplateRepository, tasks *repository.TaskRepository, logger *slog.Logger) *GeneratorService {
	return &GeneratorService{db: db, templates: templates, tasks: tasks, logger: logger}
}

// EnsureInstances materializes instances for every active template of the
// user whose watermark falls on or before the given date. A failing
// template is logged and skipped so one bad series cannot starve the rest;
// the first error is returned for callers that want to surface it.
func (s *GeneratorService) EnsureInstances(ctx context.Context, userID string, through recurrence.Date) error {
	templates, err := s.templates.ListDueForGeneration(ctx, userID, through.String())
	if err != nil {
		return err
	}
	var firstErr error
	for i := range templates {
		if _, err := s.GenerateForTemplate(ctx, &templates[i], through); err != nil {
			s.logger.Error("instance generation failed", "template_id", templates[i].ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// EnsureAll is the cross-user variant used by the periodic sweep.
func (s *GeneratorService) EnsureAll(ctx context.Context, through recurrence.Date) error {
	templates, err := s.templates.ListAllDueForGeneration(ctx, through.String())
	if err != nil {
		return err
	}
	var firstErr error
	for i := range templates {
		if _, err := s.GenerateForTemplate(ctx, &templates[i], through); err != nil {
			s.logger.Error("instance generation failed", "template_id", templates[i].ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GenerateForTemplate runs one generation pass for a template, creating
// every missing instance from the watermark through the given date, and
// returns how many rows were created.
//
// The inserts, the occurrence counter, and the watermark advance commit in
// one transaction: a reader never observes instances without the matching
// counter, and a failed pass leaves the watermark where it was so a retry
// recomputes the same range.
func (s *GeneratorService) GenerateForTemplate(ctx context.Context, tpl *model.RecurringTemplate, through recurrence.Date) (int, error) {
	if tpl.Status != model.StatusActive {
		return 0, nil
	}

	start, err := recurrence.ParseDate(tpl.StartDate)
	if err != nil {
		return 0, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	from := start
	if tpl.NextGenerateDate != "" {
		if from, err = recurrence.ParseDate(tpl.NextGenerateDate); err != nil {
			return 0, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
	}
	if from.After(through) {
		return 0, nil
	}

	cond, err := tpl.EndCondition()
	if err != nil {
		return 0, err
	}

	// A count limit already reached means the series is finished; archive
	// so future passes skip it entirely.
	if cond.Type == recurrence.EndAfterCount && tpl.InstancesGenerated >= cond.Count {
		if err := s.templates.UpdateFields(ctx, tpl.UserID, tpl.ID, map[string]any{"status": model.StatusArchived}); err != nil {
			return 0, err
		}
		tpl.Status = model.StatusArchived
		return 0, nil
	}

	rangeEnd := through
	if cond.Type == recurrence.EndOnDate && cond.Date.Before(rangeEnd) {
		rangeEnd = cond.Date
	}

	candidates := recurrence.OccurrencesInRange(tpl.RecurrenceRule.Rule, start, from, rangeEnd)

	// Candidates arrive in ascending order; advancing the count
	// hypothetically per accepted date truncates an after_count limit at
	// the right occurrence even inside a single batch.
	accepted := make([]recurrence.Date, 0, len(candidates))
	hypothetical := tpl.InstancesGenerated
	for _, d := range candidates {
		if !cond.Allows(hypothetical, d) {
			break
		}
		accepted = append(accepted, d)
		hypothetical++
	}

	nextWatermark := through.AddDays(1).String()

	created := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		templates := s.templates.WithTx(tx)

		dateStrs := make([]string, len(accepted))
		for i, d := range accepted {
			dateStrs[i] = d.String()
		}
		existing, err := tasks.ExistingInstanceDates(ctx, tpl.ID, dateStrs)
		if err != nil {
			return err
		}
		existingSet := make(map[string]bool, len(existing))
		for _, d := range existing {
			existingSet[d] = true
		}

		var rows []model.Task
		for _, d := range accepted {
			if existingSet[d.String()] {
				continue
			}
			rows = append(rows, tpl.NewInstance(uuid.NewString(), d))
		}

		created, err = tasks.InsertInstances(ctx, rows)
		if err != nil {
			return err
		}

		// The watermark advances to the day after the requested horizon
		// even when nothing was inserted, so the range is never
		// re-examined by future passes.
		return templates.AdvanceGeneration(ctx, tpl.ID, created, nextWatermark)
	})
	if err != nil {
		return 0, fmt.Errorf("generate instances for template %s: %w", tpl.ID, err)
	}

	tpl.InstancesGenerated += created
	tpl.NextGenerateDate = nextWatermark
	return created, nil
}
