package httpapi

import (
	"encoding/json"
	"regexp"
	"strings"

	"habit-tracker/internal/model"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/service"
)

var timeRx = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

// createTemplateRequest is the POST /recurring-tasks body.
type createTemplateRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Intention   *string         `json:"intention"`
	Priority    *int            `json:"priority"`
	Category    *string         `json:"category"`
	DueTime     *string         `json:"due_time"`
	Rule        json.RawMessage `json:"recurrence_rule"`
	StartDate   string          `json:"start_date"`
	EndType     string          `json:"end_type"`
	EndDate     *string         `json:"end_date"`
	EndCount    *int            `json:"end_count"`
}

// validate checks the request and converts it to a service input. The
// returned details map is non-empty exactly when validation failed.
func (req *createTemplateRequest) validate() (service.TemplateInput, map[string]string) {
	details := map[string]string{}
	input := service.TemplateInput{
		Description: req.Description,
		Intention:   req.Intention,
		Category:    req.Category,
		DueTime:     req.DueTime,
	}

	input.Title = strings.TrimSpace(req.Title)
	if input.Title == "" {
		details["title"] = "title is required"
	} else if len(input.Title) > maxTitleLen {
		details["title"] = "title must be at most 100 characters"
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		details["description"] = "description must be at most 500 characters"
	}
	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > model.MaxPriority {
			details["priority"] = "priority must be between 0 and 3"
		} else {
			input.Priority = *req.Priority
		}
	}
	if req.Category != nil && !model.Categories[*req.Category] {
		details["category"] = "unknown category"
	}
	if req.DueTime != nil && !timeRx.MatchString(*req.DueTime) {
		details["due_time"] = "due_time must be HH:MM"
	}

	if len(req.Rule) == 0 {
		details["recurrence_rule"] = "recurrence_rule is required"
	} else if rule, err := recurrence.ParseRule(req.Rule); err != nil {
		details["recurrence_rule"] = err.Error()
	} else {
		input.Rule = rule
	}

	if req.StartDate == "" {
		details["start_date"] = "start_date is required"
	} else if d, err := recurrence.ParseDate(req.StartDate); err != nil {
		details["start_date"] = "start_date must be YYYY-MM-DD"
	} else {
		input.StartDate = d
	}

	endType := req.EndType
	if endType == "" {
		endType = string(recurrence.EndNever)
	}
	if !recurrence.ValidEndType(endType) {
		details["end_type"] = "end_type must be never, after_count, or on_date"
	}
	input.EndType = recurrence.EndType(endType)

	switch input.EndType {
	case recurrence.EndAfterCount:
		if req.EndCount == nil {
			details["end_count"] = "end_count is required for after_count"
		} else if *req.EndCount < 1 {
			details["end_count"] = "end_count must be at least 1"
		} else {
			input.EndCount = req.EndCount
		}
	case recurrence.EndOnDate:
		if req.EndDate == nil {
			details["end_date"] = "end_date is required for on_date"
		} else if d, err := recurrence.ParseDate(*req.EndDate); err != nil {
			details["end_date"] = "end_date must be YYYY-MM-DD"
		} else {
			input.EndDate = &d
			if !input.StartDate.IsZero() && d.Before(input.StartDate) {
				details["end_date"] = "end_date must not be before start_date"
			}
		}
	default:
		if req.EndDate != nil {
			details["end_date"] = "end_date only applies to on_date"
		}
		if req.EndCount != nil {
			details["end_count"] = "end_count only applies to after_count"
		}
	}

	if len(details) > 0 {
		return service.TemplateInput{}, details
	}
	return input, nil
}

// updateTemplateRequest is the PATCH /recurring-tasks/{id} body when no
// action is given. Absent fields stay unchanged.
type updateTemplateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Intention   *string         `json:"intention"`
	Priority    *int            `json:"priority"`
	Category    *string         `json:"category"`
	DueTime     *string         `json:"due_time"`
	Rule        json.RawMessage `json:"recurrence_rule"`
	StartDate   *string         `json:"start_date"`
	EndType     *string         `json:"end_type"`
	EndDate     *string         `json:"end_date"`
	EndCount    *int            `json:"end_count"`
}

func (req *updateTemplateRequest) validate() (service.TemplatePatch, map[string]string) {
	details := map[string]string{}
	patch := service.TemplatePatch{
		Description: req.Description,
		Intention:   req.Intention,
		DueTime:     req.DueTime,
		EndCount:    req.EndCount,
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			details["title"] = "title must not be empty"
		} else if len(title) > maxTitleLen {
			details["title"] = "title must be at most 100 characters"
		} else {
			patch.Title = &title
		}
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		details["description"] = "description must be at most 500 characters"
	}
	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > model.MaxPriority {
			details["priority"] = "priority must be between 0 and 3"
		} else {
			patch.Priority = req.Priority
		}
	}
	if req.Category != nil {
		if !model.Categories[*req.Category] {
			details["category"] = "unknown category"
		} else {
			patch.Category = req.Category
		}
	}
	if req.DueTime != nil && !timeRx.MatchString(*req.DueTime) {
		details["due_time"] = "due_time must be HH:MM"
	}
	if len(req.Rule) > 0 {
		if rule, err := recurrence.ParseRule(req.Rule); err != nil {
			details["recurrence_rule"] = err.Error()
		} else {
			patch.Rule = rule
		}
	}
	if req.StartDate != nil {
		if d, err := recurrence.ParseDate(*req.StartDate); err != nil {
			details["start_date"] = "start_date must be YYYY-MM-DD"
		} else {
			patch.StartDate = &d
		}
	}
	if req.EndType != nil {
		if !recurrence.ValidEndType(*req.EndType) {
			details["end_type"] = "end_type must be never, after_count, or on_date"
		} else {
			et := recurrence.EndType(*req.EndType)
			patch.EndType = &et
			if et == recurrence.EndAfterCount && req.EndCount == nil {
				details["end_count"] = "end_count is required for after_count"
			}
			if et == recurrence.EndOnDate && req.EndDate == nil {
				details["end_date"] = "end_date is required for on_date"
			}
		}
	}
	if req.EndDate != nil {
		if d, err := recurrence.ParseDate(*req.EndDate); err != nil {
			details["end_date"] = "end_date must be YYYY-MM-DD"
		} else {
			patch.EndDate = &d
		}
	}
	if req.EndCount != nil && *req.EndCount < 1 {
		details["end_count"] = "end_count must be at least 1"
	}

	if len(details) > 0 {
		return service.TemplatePatch{}, details
	}
	return patch, nil
}

// updateTaskRequest is the PATCH /tasks/{id} body.
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Intention   *string `json:"intention"`
	Priority    *int    `json:"priority"`
	Category    *string `json:"category"`
	DueDate     *string `json:"due_date"`
	DueTime     *string `json:"due_time"`
	IsCompleted *bool   `json:"is_completed"`
}

func (req *updateTaskRequest) validate() (service.TaskPatch, map[string]string) {
	details := map[string]string{}
	patch := service.TaskPatch{
		Description: req.Description,
		Intention:   req.Intention,
		DueTime:     req.DueTime,
		IsCompleted: req.IsCompleted,
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			details["title"] = "title must not be empty"
		} else if len(title) > maxTitleLen {
			details["title"] = "title must be at most 100 characters"
		} else {
			patch.Title = &title
		}
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		details["description"] = "description must be at most 500 characters"
	}
	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > model.MaxPriority {
			details["priority"] = "priority must be between 0 and 3"
		} else {
			patch.Priority = req.Priority
		}
	}
	if req.Category != nil {
		if !model.Categories[*req.Category] {
			details["category"] = "unknown category"
		} else {
			patch.Category = req.Category
		}
	}
	if req.DueTime != nil && !timeRx.MatchString(*req.DueTime) {
		details["due_time"] = "due_time must be HH:MM"
	}
	if req.DueDate != nil {
		if d, err := recurrence.ParseDate(*req.DueDate); err != nil {
			details["due_date"] = "due_date must be YYYY-MM-DD"
		} else {
			patch.DueDate = &d
		}
	}

	if len(details) > 0 {
		return service.TaskPatch{}, details
	}
	return patch, nil
}
