package filter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter remembers every short code ever allocated by this process or
// loaded at startup. A negative answer means the code definitely does not
// exist; a positive answer may be a false positive. Deleted codes stay in
// the filter, which only costs an extra store lookup.
type CodeFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewCodeFilter sizes the filter for capacity codes at the given false positive rate
func NewCodeFilter(capacity uint, fpRate float64) *CodeFilter {
	return &CodeFilter{
		filter: bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Add records a short code
func (f *CodeFilter) Add(shortCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(shortCode)
}

// AddAll records a batch of short codes
func (f *CodeFilter) AddAll(shortCodes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range shortCodes {
		f.filter.AddString(code)
	}
}

// MightContain is false only when the code was never added
func (f *CodeFilter) MightContain(shortCode string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(shortCode)
}
