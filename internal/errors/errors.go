package errors

import (
	"fmt"
	"sync"
	"time"
)

// Warning is a non-fatal build event: a skipped transform, an overwritten
// filter, an omitted optional copy.
type Warning struct {
	Component string
	Subject   string
	Message   string
	Cause     error
	Timestamp time.Time
}

// String renders the warning for terminal output.
func (w Warning) String() string {
	if w.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", w.Component, w.Subject, w.Message, w.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", w.Component, w.Subject, w.Message)
}

// WarningCollector collects warnings raised during one build pass. It is
// safe for concurrent use by bundle and copy workers.
type WarningCollector struct {
	warnings []Warning
	mutex    sync.RWMutex
}

// NewWarningCollector creates a new warning collector
func NewWarningCollector() *WarningCollector {
	return &WarningCollector{
		warnings: make([]Warning, 0),
	}
}

// Add adds a warning to the collector
func (wc *WarningCollector) Add(w Warning) {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()
	if w.Timestamp.IsZero() {
		w.Timestamp = time.Now()
	}
	wc.warnings = append(wc.warnings, w)
}

// Warnings returns a copy of all collected warnings
func (wc *WarningCollector) Warnings() []Warning {
	wc.mutex.RLock()
	defer wc.mutex.RUnlock()
	result := make([]Warning, len(wc.warnings))
	copy(result, wc.warnings)
	return result
}

// HasWarnings returns true if anything was collected
func (wc *WarningCollector) HasWarnings() bool {
	wc.mutex.RLock()
	defer wc.mutex.RUnlock()
	return len(wc.warnings) > 0
}

// ByComponent returns warnings raised by one component
func (wc *WarningCollector) ByComponent(component string) []Warning {
	wc.mutex.RLock()
	defer wc.mutex.RUnlock()
	var out []Warning
	for _, w := range wc.warnings {
		if w.Component == component {
			out = append(out, w)
		}
	}
	return out
}

// Clear clears all warnings
func (wc *WarningCollector) Clear() {
	wc.mutex.Lock()
	defer wc.mutex.Unlock()
	wc.warnings = wc.warnings[:0]
}
