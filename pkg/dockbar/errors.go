package dockbar

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotRunning is returned by operations that need a running bar.
var ErrNotRunning = errors.New("dockbar instance not running")

// ErrNoFrame is returned by Snapshot before the bar has painted.
var ErrNoFrame = errors.New("no frame painted yet")

// ErrorCategory classifies errors for metrics and alerting.
type ErrorCategory int

const (
	// ErrorCategoryUnknown is the default category for uncategorized errors.
	ErrorCategoryUnknown ErrorCategory = iota
	// ErrorCategoryConfig is for configuration parsing and validation errors.
	ErrorCategoryConfig
	// ErrorCategoryWidget is for widget construction and widget failures.
	ErrorCategoryWidget
	// ErrorCategoryRender is for font loading and painting errors.
	ErrorCategoryRender
	// ErrorCategoryWindow is for X connection, dock window and strut errors.
	ErrorCategoryWindow
	// ErrorCategoryIO is for file watching and other I/O errors.
	ErrorCategoryIO

	numCategories
)

// String returns the category name used in logs and metric labels.
func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryConfig:
		return "config"
	case ErrorCategoryWidget:
		return "widget"
	case ErrorCategoryRender:
		return "render"
	case ErrorCategoryWindow:
		return "window"
	case ErrorCategoryIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrorSeverity indicates how urgent an error is.
type ErrorSeverity int

const (
	// SeverityInfo is for messages that need no action.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for problems the bar works around, such as a
	// failed widget.
	SeverityWarning
	// SeverityError is for errors that stop an operation but leave the bar
	// usable, such as a rejected configuration reload.
	SeverityError
	// SeverityCritical is for errors that stop the bar.
	SeverityCritical
)

// String returns a human-readable name for the severity level.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category, severity and context.
type CategorizedError struct {
	Err       error
	Category  ErrorCategory
	Severity  ErrorSeverity
	Timestamp time.Time
	// Context holds extra key-value metadata such as the widget name.
	Context map[string]string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s/%s] (no error)", e.Severity, e.Category)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Severity, e.Category, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorizedError creates a CategorizedError stamped with the current time.
func NewCategorizedError(err error, category ErrorCategory, severity ErrorSeverity) *CategorizedError {
	return &CategorizedError{
		Err:       err,
		Category:  category,
		Severity:  severity,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
	}
}

// WithContext adds a key-value pair to the error context and returns the error.
func (e *CategorizedError) WithContext(key, value string) *CategorizedError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// categorize returns err as a CategorizedError, keeping the category of an
// error that already has one.
func categorize(err error, category ErrorCategory, severity ErrorSeverity) *CategorizedError {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce
	}
	return NewCategorizedError(err, category, severity)
}

// AlertCondition defines when an alert is raised.
type AlertCondition struct {
	// Category restricts the condition to one category.
	// ErrorCategoryUnknown matches every category.
	Category ErrorCategory
	// MinSeverity is the lowest severity counted.
	MinSeverity ErrorSeverity
	// Threshold is the number of matching errors within Window that
	// raises the alert.
	Threshold int
	Window    time.Duration
}

// AlertHandler is called when an alert condition is met. It runs on its own
// goroutine.
type AlertHandler func(condition AlertCondition, errorCount int, recentErrors []CategorizedError)

// ErrorTrackerConfig configures an ErrorTracker.
type ErrorTrackerConfig struct {
	// MaxErrors is the number of errors retained (default 1000).
	MaxErrors int
	// RetentionTime is how long errors are retained (default 1 hour).
	RetentionTime time.Duration
	// AlertCooldown is the minimum time between two alerts of the same
	// condition (default 5 minutes).
	AlertCooldown time.Duration
}

// DefaultErrorTrackerConfig returns the default tracker configuration.
func DefaultErrorTrackerConfig() ErrorTrackerConfig {
	return ErrorTrackerConfig{
		MaxErrors:     1000,
		RetentionTime: time.Hour,
		AlertCooldown: 5 * time.Minute,
	}
}

// ErrorTracker keeps a window of recent errors and raises alerts when a
// condition's threshold is reached. It is safe for concurrent use.
type ErrorTracker struct {
	mu            sync.RWMutex
	errors        []CategorizedError
	maxErrors     int
	retentionTime time.Duration
	alertCooldown time.Duration
	conditions    []AlertCondition
	handlers      []AlertHandler
	lastAlert     map[int]time.Time

	totals [numCategories]atomic.Int64
	now    func() time.Time
}

// NewErrorTracker creates an ErrorTracker. Zero fields of cfg take their
// defaults.
func NewErrorTracker(cfg ErrorTrackerConfig) *ErrorTracker {
	def := DefaultErrorTrackerConfig()
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = def.MaxErrors
	}
	if cfg.RetentionTime <= 0 {
		cfg.RetentionTime = def.RetentionTime
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = def.AlertCooldown
	}
	return &ErrorTracker{
		maxErrors:     cfg.MaxErrors,
		retentionTime: cfg.RetentionTime,
		alertCooldown: cfg.AlertCooldown,
		lastAlert:     make(map[int]time.Time),
		now:           time.Now,
	}
}

// AddCondition registers an alert condition.
func (t *ErrorTracker) AddCondition(cond AlertCondition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conditions = append(t.conditions, cond)
}

// SetAlertHandler registers a handler called for every alert. Calling it
// again adds another handler.
func (t *ErrorTracker) SetAlertHandler(handler AlertHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Record adds an error and checks the alert conditions.
func (t *ErrorTracker) Record(err *CategorizedError) {
	if err == nil {
		return
	}
	if err.Category >= 0 && err.Category < numCategories {
		t.totals[err.Category].Add(1)
	}

	t.mu.Lock()
	t.errors = append(t.errors, *err)
	if len(t.errors) > t.maxErrors {
		t.errors = t.errors[len(t.errors)-t.maxErrors:]
	}
	t.pruneExpired()

	now := t.now()
	type alert struct {
		cond     AlertCondition
		count    int
		matching []CategorizedError
	}
	var alerts []alert
	for i, cond := range t.conditions {
		if last, ok := t.lastAlert[i]; ok && now.Sub(last) < t.alertCooldown {
			continue
		}
		count, matching := t.match(cond, now)
		if cond.Threshold > 0 && count >= cond.Threshold {
			t.lastAlert[i] = now
			alerts = append(alerts, alert{cond, count, matching})
		}
	}
	handlers := append([]AlertHandler(nil), t.handlers...)
	t.mu.Unlock()

	for _, a := range alerts {
		for _, h := range handlers {
			go func() {
				defer func() { _ = recover() }()
				h(a.cond, a.count, a.matching)
			}()
		}
	}
}

// match counts the errors matching cond and keeps up to ten of them.
// Must be called with mu held.
func (t *ErrorTracker) match(cond AlertCondition, now time.Time) (int, []CategorizedError) {
	cutoff := now.Add(-cond.Window)
	var count int
	var matching []CategorizedError
	for _, e := range t.errors {
		if e.Timestamp.Before(cutoff) || e.Severity < cond.MinSeverity {
			continue
		}
		if cond.Category != ErrorCategoryUnknown && e.Category != cond.Category {
			continue
		}
		count++
		if len(matching) < 10 {
			matching = append(matching, e)
		}
	}
	return count, matching
}

// pruneExpired drops errors older than the retention time.
// Must be called with mu held.
func (t *ErrorTracker) pruneExpired() {
	cutoff := t.now().Add(-t.retentionTime)
	start := 0
	for start < len(t.errors) && !t.errors[start].Timestamp.After(cutoff) {
		start++
	}
	t.errors = t.errors[start:]
}

// ErrorRate returns errors per second within window.
func (t *ErrorTracker) ErrorRate(window time.Duration) float64 {
	return t.countRate(window, func(CategorizedError) bool { return true })
}

// ErrorRateByCategory returns errors of one category per second within window.
func (t *ErrorTracker) ErrorRateByCategory(category ErrorCategory, window time.Duration) float64 {
	return t.countRate(window, func(e CategorizedError) bool { return e.Category == category })
}

func (t *ErrorTracker) countRate(window time.Duration, keep func(CategorizedError) bool) float64 {
	if window <= 0 {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := t.now().Add(-window)
	count := 0
	for _, e := range t.errors {
		if e.Timestamp.After(cutoff) && keep(e) {
			count++
		}
	}
	return float64(count) / window.Seconds()
}

// ErrorStats summarizes the tracked errors.
type ErrorStats struct {
	// TotalErrors is the number of errors currently retained.
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	ErrorsBySeverity map[ErrorSeverity]int
	// TotalByCategory holds lifetime totals, including pruned errors.
	TotalByCategory map[ErrorCategory]int64
}

// Stats returns a snapshot of the error statistics.
func (t *ErrorTracker) Stats() ErrorStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := ErrorStats{
		TotalErrors:      len(t.errors),
		ErrorsByCategory: make(map[ErrorCategory]int),
		ErrorsBySeverity: make(map[ErrorSeverity]int),
		TotalByCategory:  make(map[ErrorCategory]int64),
	}
	for _, e := range t.errors {
		stats.ErrorsByCategory[e.Category]++
		stats.ErrorsBySeverity[e.Severity]++
	}
	for i := range t.totals {
		if n := t.totals[i].Load(); n > 0 {
			stats.TotalByCategory[ErrorCategory(i)] = n
		}
	}
	return stats
}

// RecentErrors returns up to limit of the most recent errors, oldest first.
func (t *ErrorTracker) RecentErrors(limit int) []CategorizedError {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit <= 0 || len(t.errors) == 0 {
		return nil
	}
	start := max(len(t.errors)-limit, 0)
	return append([]CategorizedError(nil), t.errors[start:]...)
}

// Clear removes all tracked errors and alert cooldowns.
func (t *ErrorTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = nil
	t.lastAlert = make(map[int]time.Time)
}
