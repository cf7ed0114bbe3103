package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"habit-tracker/internal/recurrence"
)

// TemplateStatus is the lifecycle state of a recurring template.
// Lifecycle: active <-> paused -> archived; archived is terminal.
type TemplateStatus string

const (
	StatusActive   TemplateStatus = "active"
	StatusPaused   TemplateStatus = "paused"
	StatusArchived TemplateStatus = "archived"
)

// ValidTemplateStatus reports whether s names a known lifecycle state.
func ValidTemplateStatus(s string) bool {
	switch TemplateStatus(s) {
	case StatusActive, StatusPaused, StatusArchived:
		return true
	}
	return false
}

// Priority levels: 0=none, 1=low, 2=medium, 3=high.
const MaxPriority = 3

// Categories are a fixed content enum, mirrored onto instances.
var Categories = map[string]bool{
	"work":     true,
	"personal": true,
	"shopping": true,
	"other":    true,
}

// RuleColumn stores a recurrence.Rule as JSON text in a single column and
// round-trips it on the API as the raw rule object.
type RuleColumn struct {
	Rule recurrence.Rule
}

func (c RuleColumn) GormDataType() string { return "text" }

func (c RuleColumn) Value() (driver.Value, error) {
	data, err := json.Marshal(c.Rule)
	if err != nil {
		return nil, fmt.Errorf("encode recurrence rule: %w", err)
	}
	return string(data), nil
}

func (c *RuleColumn) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan recurrence rule: unsupported type %T", src)
	}
	rule, err := recurrence.ParseRule(data)
	if err != nil {
		return fmt.Errorf("scan recurrence rule: %w", err)
	}
	c.Rule = rule
	return nil
}

func (c RuleColumn) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Rule)
}

func (c *RuleColumn) UnmarshalJSON(data []byte) error {
	rule, err := recurrence.ParseRule(data)
	if err != nil {
		return err
	}
	c.Rule = rule
	return nil
}

// RecurringTemplate is a user-authored recurrence definition. It is never
// completable itself; completable Task rows are generated from it.
type RecurringTemplate struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	UserID      string  `gorm:"index" json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Intention   *string `json:"intention"`
	Priority    int     `json:"priority"`
	Category    *string `json:"category"`
	DueTime     *string `json:"due_time"`

	RecurrenceRule RuleColumn         `gorm:"type:text" json:"recurrence_rule"`
	StartDate      string             `json:"start_date"`
	EndType        recurrence.EndType `json:"end_type"`
	EndDate        *string            `json:"end_date"`
	EndCount       *int               `json:"end_count"`

	Status TemplateStatus `gorm:"index;default:active" json:"status"`

	// InstancesGenerated counts occurrences materialized so far; it only
	// ever increases. NextGenerateDate is the generation watermark: the
	// earliest date not yet considered by a generation pass.
	InstancesGenerated int    `gorm:"default:0" json:"instances_generated"`
	NextGenerateDate   string `json:"next_generate_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndCondition builds the template's end policy for the evaluator.
func (t *RecurringTemplate) EndCondition() (recurrence.EndCondition, error) {
	cond := recurrence.EndCondition{Type: t.EndType}
	switch t.EndType {
	case recurrence.EndAfterCount:
		if t.EndCount == nil {
			return cond, fmt.Errorf("template %s: end_count missing for after_count", t.ID)
		}
		cond.Count = *t.EndCount
	case recurrence.EndOnDate:
		if t.EndDate == nil {
			return cond, fmt.Errorf("template %s: end_date missing for on_date", t.ID)
		}
		d, err := recurrence.ParseDate(*t.EndDate)
		if err != nil {
			return cond, fmt.Errorf("template %s: %w", t.ID, err)
		}
		cond.Date = d
	}
	return cond, nil
}

// NewInstance snapshots the template's content fields into a Task due on
// the given date. Instances copy, not reference: later template edits only
// reach existing rows through an explicit propagation pass.
func (t *RecurringTemplate) NewInstance(id string, due recurrence.Date) Task {
	dueStr := due.String()
	templateID := t.ID
	return Task{
		ID:                  id,
		UserID:              t.UserID,
		Title:               t.Title,
		Description:         t.Description,
		Intention:           t.Intention,
		Priority:            t.Priority,
		Category:            t.Category,
		DueDate:             &dueStr,
		DueTime:             t.DueTime,
		RecurringTemplateID: &templateID,
		OriginalDate:        &dueStr,
	}
}
