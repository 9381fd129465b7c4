package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
// It contains the field name and a description of the issue.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the results of a configuration validation.
type ValidationResult struct {
	// Errors contains all validation errors found.
	Errors []ValidationError
	// Warnings contains non-fatal issues.
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// Error returns a combined error message if there are errors, nil otherwise.
func (vr *ValidationResult) Error() error {
	if len(vr.Errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, e.Error())
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// AddError adds a validation error.
func (vr *ValidationResult) AddError(field, message string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (vr *ValidationResult) AddWarning(field, message string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Message: message})
}

// Merge combines another ValidationResult into this one.
func (vr *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	vr.Errors = append(vr.Errors, other.Errors...)
	vr.Warnings = append(vr.Warnings, other.Warnings...)
}

// Limits applied by the Validator.
const (
	// MinInterval is the smallest accepted widget update interval.
	MinInterval = 100 * time.Millisecond
	// MaxFontSize is the largest accepted font size.
	MaxFontSize = 200.0
	// MaxBarHeight is the largest accepted bar height.
	MaxBarHeight = 1024
)

// Validator checks a Config for values that cannot produce a working bar.
type Validator struct {
	// strictMode turns warnings into errors.
	strictMode bool
	// statFile is used to check that font and widget files exist.
	statFile func(string) (os.FileInfo, error)
}

// NewValidator creates a new Validator with default settings.
func NewValidator() *Validator {
	return &Validator{statFile: os.Stat}
}

// WithStrictMode makes warnings fail validation.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strictMode = strict
	return v
}

// Validate performs validation of a Config.
func (v *Validator) Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		result.AddError("config", "configuration is nil")
		return result
	}

	v.validateBar(&cfg.Bar, result)
	v.validateWidgets(cfg.Widgets, result)

	if v.strictMode && len(result.Warnings) > 0 {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	return result
}

func (v *Validator) validateBar(bc *BarConfig, result *ValidationResult) {
	if bc.Width < 0 {
		result.AddError("bar.width", fmt.Sprintf("must not be negative, got %d", bc.Width))
	}
	if bc.Height < 0 {
		result.AddError("bar.height", fmt.Sprintf("must not be negative, got %d", bc.Height))
	} else if bc.Height > MaxBarHeight {
		result.AddError("bar.height", fmt.Sprintf("must be at most %d, got %d", MaxBarHeight, bc.Height))
	}
	if bc.OffsetX < 0 || bc.OffsetY < 0 {
		result.AddError("bar.offset", fmt.Sprintf("must not be negative, got (%d, %d)", bc.OffsetX, bc.OffsetY))
	}
	if bc.Head < 0 {
		result.AddError("bar.head", fmt.Sprintf("must not be negative, got %d", bc.Head))
	}
	if bc.FontSize <= 0 || bc.FontSize > MaxFontSize {
		result.AddError("bar.font_size", fmt.Sprintf("must be in (0, %g], got %g", MaxFontSize, bc.FontSize))
	}
	if bc.FontFile != "" {
		if _, err := v.statFile(bc.FontFile); err != nil {
			result.AddError("bar.font_file", err.Error())
		}
	}
	if bc.CoalesceWindow < 0 {
		result.AddError("bar.coalesce", "must not be negative")
	} else if bc.CoalesceWindow > time.Second {
		result.AddWarning("bar.coalesce", fmt.Sprintf("%s delays every update noticeably", bc.CoalesceWindow))
	}
	if bc.MaxPaintRate < 0 {
		result.AddError("bar.max_paint_rate", "must not be negative")
	}
	if bc.Background.A < 0xff {
		result.AddWarning("bar.background", "translucent backgrounds need a running compositor")
	}
}

func (v *Validator) validateWidgets(widgets []WidgetConfig, result *ValidationResult) {
	if len(widgets) == 0 {
		result.AddWarning("widgets", "no widgets configured, the bar will be empty")
	}

	names := make(map[string]int, len(widgets))
	for i, w := range widgets {
		field := fmt.Sprintf("widgets[%d]", i)
		if prev, ok := names[w.Name]; ok {
			result.AddError(field+".name", fmt.Sprintf("%q already used by widgets[%d]", w.Name, prev))
		} else {
			names[w.Name] = i
		}
		v.validateWidget(field, w, result)
	}
}

func (v *Validator) validateWidget(field string, w WidgetConfig, result *ValidationResult) {
	if !w.Type.Known() {
		result.AddError(field+".type", fmt.Sprintf("unknown widget type %q", w.Type))
		return
	}

	p := w.Attributes.Padding
	if p.Left < 0 || p.Right < 0 || p.Top < 0 || p.Bottom < 0 {
		result.AddError(field+".padding", "must not be negative")
	}
	if w.Interval < 0 {
		result.AddError(field+".interval", "must not be negative")
	} else if w.Interval > 0 && w.Interval < MinInterval {
		result.AddWarning(field+".interval", fmt.Sprintf("%s is shorter than %s", w.Interval, MinInterval))
	}

	switch w.Type {
	case WidgetCommand:
		if strings.TrimSpace(w.Command) == "" {
			result.AddError(field+".command", "command widget needs a command")
		}
	case WidgetFile:
		if w.Path == "" {
			result.AddError(field+".path", "file widget needs a path")
		} else if _, err := v.statFile(w.Path); err != nil {
			result.AddWarning(field+".path", err.Error())
		}
	case WidgetText:
		if w.Text == "" {
			result.AddWarning(field+".text", "text widget is empty")
		}
	case WidgetClock, WidgetTitle, WidgetPager:
	}
}

// ValidateConfig validates cfg with default settings.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg).Error()
}

// ValidateConfigStrict validates cfg, treating warnings as errors.
func ValidateConfigStrict(cfg *Config) error {
	return NewValidator().WithStrictMode(true).Validate(cfg).Error()
}
