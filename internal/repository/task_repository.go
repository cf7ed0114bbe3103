package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-tracker/internal/model"
)

// TaskRepository handles CRUD for tasks and recurring instances.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy bound to the given transaction.
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

// InsertInstances inserts generated instance rows, silently skipping any
// date that already has a row for its template. The unique index on
// (recurring_template_id, original_date) turns a duplicate-date race into
// a no-op instead of an error. Returns the number actually inserted.
func (r *TaskRepository) InsertInstances(ctx context.Context, tasks []model.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tasks)
	if res.Error != nil {
		return 0, fmt.Errorf("insert instances: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ExistingInstanceDates returns which of the given original dates already
// have an instance row for the template.
func (r *TaskRepository) ExistingInstanceDates(ctx context.Context, templateID string, dates []string) ([]string, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	var existing []string
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("recurring_template_id = ? AND original_date IN ?", templateID, dates).
		Pluck("original_date", &existing).Error; err != nil {
		return nil, fmt.Errorf("list existing instance dates: %w", err)
	}
	return existing, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListToday returns incomplete tasks due on or before the given date plus
// everything completed on that date, soonest first.
func (r *TaskRepository) ListToday(ctx context.Context, userID, today string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND due_date <= ? AND (is_completed = ? OR due_date = ?)", userID, today, false, today).
		Order("due_date ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list today tasks: %w", err)
	}
	return tasks, nil
}

// ListWindow returns the user's tasks due within [from, to].
func (r *TaskRepository) ListWindow(ctx context.Context, userID, from, to string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND due_date >= ? AND due_date <= ?", userID, from, to).
		Order("due_date ASC, created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list window tasks: %w", err)
	}
	return tasks, nil
}

// UpdateFields applies a partial update to one task row.
func (r *TaskRepository) UpdateFields(ctx context.Context, userID, taskID string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSeries applies a partial update to a template's incomplete,
// non-exception instances. A non-nil fromDate restricts the update to
// instances scheduled on or after it.
func (r *TaskRepository) UpdateSeries(ctx context.Context, userID, templateID string, fromDate *string, updates map[string]any) error {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND recurring_template_id = ? AND is_completed = ? AND is_exception = ?",
			userID, templateID, false, false)
	if fromDate != nil {
		q = q.Where("original_date >= ?", *fromDate)
	}
	if err := q.Updates(updates).Error; err != nil {
		return fmt.Errorf("update series: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteSeries removes a template's incomplete instances. A non-nil
// fromDate restricts the delete to instances scheduled on or after it;
// completed rows are always preserved as history.
func (r *TaskRepository) DeleteSeries(ctx context.Context, userID, templateID string, fromDate *string) error {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND recurring_template_id = ? AND is_completed = ?", userID, templateID, false)
	if fromDate != nil {
		q = q.Where("original_date >= ?", *fromDate)
	}
	if err := q.Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	return nil
}

// ListByTemplate returns every instance row of a template, oldest first.
func (r *TaskRepository) ListByTemplate(ctx context.Context, userID, templateID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND recurring_template_id = ?", userID, templateID).
		Order("original_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list template instances: %w", err)
	}
	return tasks, nil
}
