package service

import (
	"crypto/md5"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"KanariaGo/internal/cache/lru"
	"KanariaGo/internal/dataset"
	"KanariaGo/internal/model"
	"KanariaGo/internal/validator"
	"KanariaGo/pkg/json"

	"github.com/sirupsen/logrus"
)

// ValidationService runs before/after comparisons against database files and
// caches the resulting reports. Reports only live in the LRU cache; nothing
// is written back to disk.
type ValidationService struct {
	cache          *lru.Cache
	defaultDriver  string
	maxProblemRows int
	cacheHits      int64
	cacheMiss      int64
}

// NewValidationService builds the service. cacheSize below 16MB is bumped to
// a 64MB default.
func NewValidationService(cacheSize int64, defaultDriver string, maxProblemRows int) *ValidationService {
	if cacheSize < 16*1024*1024 {
		cacheSize = 64 * 1024 * 1024
	}
	if defaultDriver == "" {
		defaultDriver = "sqlite"
	}
	if maxProblemRows <= 0 {
		maxProblemRows = 1000
	}

	logrus.Infof("Initializing ValidationService with cache size: %.2f MB", float64(cacheSize)/(1024*1024))

	cache := lru.NewCache(cacheSize, func(key string, value lru.Value) {
		logrus.Debugf("Cache evicted: %s", key)
	})

	return &ValidationService{
		cache:          cache,
		defaultDriver:  defaultDriver,
		maxProblemRows: maxProblemRows,
	}
}

// Validate runs a comparison and returns its report. Identical requests are
// answered from the cache while the entry is live.
func (s *ValidationService) Validate(req *model.ValidateRequest) (*model.ValidateResponse, error) {
	if msg := s.normalize(req); msg != "" {
		return &model.ValidateResponse{StatusCode: 400, StatusMsg: msg}, nil
	}

	cacheKey := s.generateCacheKey("report", req)

	if cached, ok := s.cache.Get(cacheKey); ok {
		atomic.AddInt64(&s.cacheHits, 1)
		if cacheValue, ok := cached.(*CacheValue); ok {
			if report, ok := cacheValue.GetReport(); ok {
				logrus.Debugf("Cache hit: %s", cacheKey)
				return &model.ValidateResponse{StatusCode: 0, StatusMsg: "success", Data: report}, nil
			}
		}
	}
	atomic.AddInt64(&s.cacheMiss, 1)
	logrus.Debugf("Cache miss: %s", cacheKey)

	v, db, err := s.runValidator(req)
	if err != nil {
		return &model.ValidateResponse{
			StatusCode: statusForError(err),
			StatusMsg:  fmt.Sprintf("validation error: %v", err),
		}, nil
	}
	defer db.Close()

	report := &model.ValidationReport{
		OriginalRows:    v.OriginalRowCount(),
		OriginalColumns: v.OriginalColumnCount(),
		ProblemRows:     v.BadRowCount(),
		ProblemColumns:  v.BadColumnCount(),
		Differences:     v.DivergentColumns(),
	}

	s.cache.Add(cacheKey, NewCacheValue(report))

	return &model.ValidateResponse{StatusCode: 0, StatusMsg: "success", Data: report}, nil
}

// ProblemRows materializes the offending rows from one side of the
// comparison. Row payloads are not cached; a huge problem set is exactly the
// case where caching them would hurt.
func (s *ValidationService) ProblemRows(req *model.ProblemRowsRequest) (*model.ProblemRowsResponse, error) {
	if msg := s.normalize(&req.ValidateRequest); msg != "" {
		return &model.ProblemRowsResponse{StatusCode: 400, StatusMsg: msg}, nil
	}

	v, db, err := s.runValidator(&req.ValidateRequest)
	if err != nil {
		return &model.ProblemRowsResponse{
			StatusCode: statusForError(err),
			StatusMsg:  fmt.Sprintf("validation error: %v", err),
		}, nil
	}
	defer db.Close()

	var rows dataset.Dataset
	if req.Side == model.SideConverted {
		rows, err = v.ConvertedProblemRows(req.FullRow)
	} else {
		rows, err = v.OriginalProblemRows(req.FullRow)
	}
	if err != nil {
		return &model.ProblemRowsResponse{
			StatusCode: 500,
			StatusMsg:  fmt.Sprintf("problem rows error: %v", err),
		}, nil
	}

	collected, err := rows.Collect()
	if err != nil {
		return &model.ProblemRowsResponse{
			StatusCode: 500,
			StatusMsg:  fmt.Sprintf("problem rows error: %v", err),
		}, nil
	}

	limit := s.maxProblemRows
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	total := int64(len(collected))
	if len(collected) > limit {
		collected = collected[:limit]
	}

	out := make([]map[string]any, 0, len(collected))
	for _, r := range collected {
		out = append(out, map[string]any(r))
	}

	return &model.ProblemRowsResponse{
		StatusCode: 0,
		StatusMsg:  "success",
		Data: &model.ProblemRowSet{
			Columns: rows.Columns(),
			Rows:    out,
			Total:   total,
		},
	}, nil
}

// runValidator opens the sources and runs the comparison quietly. The caller
// owns the returned connection.
func (s *ValidationService) runValidator(req *model.ValidateRequest) (*validator.Validator, *sql.DB, error) {
	db, before, after, err := dataset.OpenPair(req.Driver, req.BeforePath, req.AfterPath, req.BeforeTable, req.AfterTable)
	if err != nil {
		return nil, nil, err
	}

	v, err := validator.New(before, after, req.PrimaryKey, true)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return v, db, nil
}

// normalize fills defaults and returns a message for unusable requests.
func (s *ValidationService) normalize(req *model.ValidateRequest) string {
	if req.Driver == "" {
		req.Driver = s.defaultDriver
	}
	if req.AfterPath == "" {
		req.AfterPath = req.BeforePath
	}
	if req.AfterTable == "" {
		req.AfterTable = req.BeforeTable
	}
	switch {
	case req.BeforePath == "":
		return "before_path is required"
	case req.BeforeTable == "":
		return "before_table is required"
	case req.PrimaryKey == "":
		return "primary_key is required"
	}
	return ""
}

func statusForError(err error) int {
	if errors.Is(err, validator.ErrPrimaryKeyNotFound) {
		return 400
	}
	return 500
}

// generateCacheKey hashes the request JSON under a prefix.
func (s *ValidationService) generateCacheKey(prefix string, req interface{}) string {
	data, _ := json.Marshal(req)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s:%x", prefix, hash)
}

// GetCacheStats reports cache hit/miss counters.
func (s *ValidationService) GetCacheStats() map[string]interface{} {
	hits := atomic.LoadInt64(&s.cacheHits)
	miss := atomic.LoadInt64(&s.cacheMiss)
	total := hits + miss

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":  s.cache.Len(),
		"hits":     hits,
		"misses":   miss,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}
}

// ResetCacheStats zeroes the hit/miss counters.
func (s *ValidationService) ResetCacheStats() {
	atomic.StoreInt64(&s.cacheHits, 0)
	atomic.StoreInt64(&s.cacheMiss, 0)
}
