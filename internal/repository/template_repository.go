package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"habit-tracker/internal/model"
)

// TemplateRepository handles CRUD for recurring task templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// WithTx returns a copy bound to the given transaction.
func (r *TemplateRepository) WithTx(tx *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: tx}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *model.RecurringTemplate) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// ListByUser returns the user's templates, newest first. An empty status
// means no filter.
func (r *TemplateRepository) ListByUser(ctx context.Context, userID, status string) ([]model.RecurringTemplate, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var templates []model.RecurringTemplate
	if err := q.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, userID, id string) (*model.RecurringTemplate, error) {
	var tpl model.RecurringTemplate
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListDueForGeneration returns a user's active templates whose watermark is
// at or before the given date. Lexicographic comparison is safe for
// YYYY-MM-DD.
func (r *TemplateRepository) ListDueForGeneration(ctx context.Context, userID, through string) ([]model.RecurringTemplate, error) {
	var templates []model.RecurringTemplate
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND next_generate_date <= ?", userID, model.StatusActive, through).
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates due for generation: %w", err)
	}
	return templates, nil
}

// ListAllDueForGeneration is the cross-user variant used by the sweep job.
func (r *TemplateRepository) ListAllDueForGeneration(ctx context.Context, through string) ([]model.RecurringTemplate, error) {
	var templates []model.RecurringTemplate
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_generate_date <= ?", model.StatusActive, through).
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates due for generation: %w", err)
	}
	return templates, nil
}

// UpdateFields applies a partial update to the user's template.
func (r *TemplateRepository) UpdateFields(ctx context.Context, userID, id string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.RecurringTemplate{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdvanceGeneration records the outcome of a successful generation pass:
// the counter increment and the new watermark, in one update.
func (r *TemplateRepository) AdvanceGeneration(ctx context.Context, id string, created int, nextGenerateDate string) error {
	if err := r.db.WithContext(ctx).Model(&model.RecurringTemplate{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"instances_generated": gorm.Expr("instances_generated + ?", created),
			"next_generate_date":  nextGenerateDate,
		}).Error; err != nil {
		return fmt.Errorf("advance generation state: %w", err)
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, userID, id string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).
		Delete(&model.RecurringTemplate{}).Error; err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
