package model

import "time"

// Task is one concrete, datable, completable item. Rows generated from a
// recurring template carry provenance in RecurringTemplateID and
// OriginalDate; the unique index on that pair is the authoritative defense
// against duplicate occurrences.
type Task struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	UserID      string  `gorm:"index" json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Intention   *string `json:"intention"`
	Priority    int     `json:"priority"`
	Category    *string `json:"category"`
	DueDate     *string `gorm:"index" json:"due_date"`
	DueTime     *string `json:"due_time"`

	IsCompleted bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`

	RecurringTemplateID *string `gorm:"index:idx_task_template_original,unique" json:"recurring_template_id"`
	OriginalDate        *string `gorm:"index:idx_task_template_original,unique" json:"original_date"`

	// IsException marks an instance edited with scope "this": series-wide
	// edits skip it from then on, though the template link is kept for
	// attribution.
	IsException bool `gorm:"default:false" json:"is_exception"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsInstance reports whether the task belongs to a recurring series.
func (t *Task) IsInstance() bool {
	return t.RecurringTemplateID != nil
}
