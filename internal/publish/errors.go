package publish

import (
	"fmt"
	"sync"
	"time"
)

// PageError records one page's failure during a bulk operation.
type PageError struct {
	PageID    int64
	Title     string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.PageID, e.Title, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PageError) Unwrap() error { return e.Err }

// ErrorCollector accumulates per-page errors so a bulk rebuild can
// report every failure instead of aborting on the first one.
type ErrorCollector struct {
	mu     sync.RWMutex
	errors []*PageError
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{errors: make([]*PageError, 0)}
}

// Add records a page failure.
func (ec *ErrorCollector) Add(pageID int64, title string, err error) {
	if err == nil {
		return
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errors = append(ec.errors, &PageError{
		PageID:    pageID,
		Title:     title,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Errors returns a copy of the collected errors.
func (ec *ErrorCollector) Errors() []*PageError {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	result := make([]*PageError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors reports whether any page failed.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return len(ec.errors) > 0
}

// Count returns the number of failed pages.
func (ec *ErrorCollector) Count() int {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return len(ec.errors)
}
