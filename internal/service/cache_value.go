package service

import (
	"KanariaGo/internal/model"
	"KanariaGo/pkg/json"
)

// CacheValue adapts arbitrary payloads to the lru.Value interface.
type CacheValue struct {
	Data interface{}
	size int
}

// NewCacheValue wraps data, estimating its size from the JSON encoding.
func NewCacheValue(data interface{}) *CacheValue {
	jsonData, _ := json.Marshal(data)
	return &CacheValue{
		Data: data,
		size: len(jsonData),
	}
}

// Len returns the estimated size in bytes.
func (cv *CacheValue) Len() int {
	return cv.size
}

// GetReport unwraps a cached validation report.
func (cv *CacheValue) GetReport() (*model.ValidationReport, bool) {
	if report, ok := cv.Data.(*model.ValidationReport); ok {
		return report, true
	}
	return nil, false
}
