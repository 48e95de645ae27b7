package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/dimensions"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/hashing"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/metrics"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// ChunkResult summarizes one chunk's disposition.
type ChunkResult struct {
	Attempted     int
	Inserted      int
	Duplicate     int
	Invalid       int
	FactsInserted int
}

// ChunkLoader loads one chunk at a time into the normalized and fact
// tables. Rows are projected onto the star schema first; rows that cannot
// be projected are quarantined without touching either table. The fast
// path for the rest is a single transactional bulk insert; chunks that
// collide with already-loaded data short-circuit on the content-hash
// constraint, and chunks with bad rows fall back to row-at-a-time loading
// so only the offending rows are quarantined.
type ChunkLoader struct {
	trips   warehouse.TripStore
	facts   warehouse.FactStore
	invalid warehouse.InvalidStore
	quality warehouse.QualityStore
	cache   *dimensions.Cache
	runID   string

	// Pickup-date window facts may carry; winMin inclusive, winMax
	// exclusive.
	winMin time.Time
	winMax time.Time
}

func NewChunkLoader(
	trips warehouse.TripStore,
	facts warehouse.FactStore,
	invalid warehouse.InvalidStore,
	quality warehouse.QualityStore,
	cache *dimensions.Cache,
	runID string,
	winMin, winMax time.Time,
) *ChunkLoader {
	return &ChunkLoader{
		trips:   trips,
		facts:   facts,
		invalid: invalid,
		quality: quality,
		cache:   cache,
		runID:   runID,
		winMin:  winMin,
		winMax:  winMax,
	}
}

// Load processes one decoded chunk. The returned error is reserved for
// infrastructure failures that should abort the month; data problems are
// quarantined and reported through the result.
func (l *ChunkLoader) Load(ctx context.Context, sourceFile string, chunkIndex int, rows []domain.TripRecord) (ChunkResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	res := ChunkResult{Attempted: len(rows)}

	// Hash every row, then drop intra-chunk duplicates keeping the first
	// occurrence. Identical rows within one file are repeats of the same
	// trip and must collapse to one stored row.
	seen := make(map[string]struct{}, len(rows))
	unique := make([]domain.TripRecord, 0, len(rows))
	uniqueIdx := make([]int, 0, len(rows))
	for i := range rows {
		rows[i].ContentHash = hashing.Sum(rows[i].HashFields())
		if _, dup := seen[rows[i].ContentHash]; dup {
			res.Duplicate++
			continue
		}
		seen[rows[i].ContentHash] = struct{}{}
		unique = append(unique, rows[i])
		uniqueIdx = append(uniqueIdx, i)
	}

	// Project onto the star schema before anything is written. A row
	// whose dimension keys cannot resolve, or whose pickup date falls
	// outside the supported window, goes straight to quarantine and
	// never reaches the normalized table.
	var (
		valid       []domain.TripRecord
		validIdx    []int
		facts       []domain.FactRecord
		invalids    []domain.InvalidRecord
		errorTypes  = make(map[string]struct{})
		sampleError string
	)
	for i, trip := range unique {
		fact, errType, msg := deriveFact(trip, l.cache, l.winMin, l.winMax)
		if errType != "" {
			errorTypes[errType] = struct{}{}
			if sampleError == "" {
				sampleError = msg
			}
			invalids = append(invalids, domain.InvalidRecord{
				Trip:         trip,
				ErrorType:    errType,
				ErrorMessage: msg,
				SourceFile:   sourceFile,
				ChunkIndex:   chunkIndex,
				RowIndex:     uniqueIdx[i],
			})
			res.Invalid++
			continue
		}
		valid = append(valid, trip)
		validIdx = append(validIdx, uniqueIdx[i])
		facts = append(facts, fact)
	}

	operation := domain.OperationBulkInsert
	metricPath := "bulk"
	var insertedFacts []domain.FactRecord

	err := l.trips.BulkInsert(ctx, valid)
	switch {
	case err == nil:
		res.Inserted = len(valid)
		insertedFacts = facts

	case isContentHashConflict(err):
		// The chunk overlaps data from an earlier run. The bulk
		// transaction rolled back, so nothing from this chunk landed;
		// every row is treated as a duplicate.
		operation = domain.OperationDuplicateChunk
		metricPath = "duplicate_skip"
		res.Duplicate += len(valid)
		log.Debug().Int("chunk", chunkIndex).Msg("chunk already loaded, skipping")

	case warehouse.IsUnavailable(err):
		return res, fmt.Errorf("ChunkLoader.Load: chunk %d: %w", chunkIndex, err)

	default:
		operation = domain.OperationRowFallback
		metricPath = "row_fallback"
		log.Warn().Err(err).Int("chunk", chunkIndex).Msg("bulk insert failed, retrying row by row")

		for i, trip := range valid {
			rowErr := l.trips.Insert(ctx, trip)
			if rowErr == nil {
				res.Inserted++
				insertedFacts = append(insertedFacts, facts[i])
				continue
			}
			if warehouse.IsUnavailable(rowErr) {
				return res, fmt.Errorf("ChunkLoader.Load: chunk %d row %d: %w", chunkIndex, validIdx[i], rowErr)
			}
			if warehouse.IsDuplicate(rowErr) {
				res.Duplicate++
				continue
			}
			errType := errorTypeFor(rowErr)
			errorTypes[errType] = struct{}{}
			if sampleError == "" {
				sampleError = rowErr.Error()
			}
			invalids = append(invalids, domain.InvalidRecord{
				Trip:         trip,
				ErrorType:    errType,
				ErrorMessage: rowErr.Error(),
				SourceFile:   sourceFile,
				ChunkIndex:   chunkIndex,
				RowIndex:     validIdx[i],
			})
			res.Invalid++
		}
	}

	if len(insertedFacts) > 0 {
		if err := l.facts.BulkInsert(ctx, insertedFacts); err != nil {
			return res, fmt.Errorf("ChunkLoader.Load: chunk %d facts: %w", chunkIndex, err)
		}
	}
	res.FactsInserted = len(insertedFacts)

	if len(invalids) > 0 {
		if err := l.invalid.Insert(ctx, invalids); err != nil {
			return res, fmt.Errorf("ChunkLoader.Load: chunk %d quarantine: %w", chunkIndex, err)
		}
	}

	duration := time.Since(start)
	metric := domain.QualityMetric{
		RunID:         l.runID,
		SourceFile:    sourceFile,
		Operation:     operation,
		TargetTable:   warehouse.TableTrips,
		ChunkIndex:    chunkIndex,
		RowsAttempted: res.Attempted,
		RowsInserted:  res.Inserted,
		RowsDuplicate: res.Duplicate,
		RowsInvalid:   res.Invalid,
		Duration:      duration,
		ErrorTypes:    sortedKeys(errorTypes),
		SampleError:   sampleError,
	}
	fillChunkStats(&metric, rows)
	if err := l.quality.Append(ctx, metric); err != nil {
		return res, fmt.Errorf("ChunkLoader.Load: chunk %d quality log: %w", chunkIndex, err)
	}

	metrics.ChunksTotal.WithLabelValues(metricPath).Inc()
	metrics.ChunkDurationSeconds.WithLabelValues(metricPath).Observe(duration.Seconds())
	metrics.RowsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.RowsTotal.WithLabelValues("duplicate").Add(float64(res.Duplicate))
	metrics.RowsTotal.WithLabelValues("invalid").Add(float64(res.Invalid))
	metrics.RowsTotal.WithLabelValues("fact_inserted").Add(float64(res.FactsInserted))

	return res, nil
}

// isContentHashConflict reports whether a bulk insert failed on the
// content-hash uniqueness constraint, which marks the chunk as a replay
// of already-loaded data.
func isContentHashConflict(err error) bool {
	return warehouse.KindOf(err) == warehouse.KindDuplicateKey &&
		warehouse.ConstraintOf(err) == warehouse.TripContentHashConstraint
}

func errorTypeFor(err error) string {
	switch warehouse.KindOf(err) {
	case warehouse.KindDuplicateKey:
		return domain.ErrTypeDuplicateKey
	case warehouse.KindPrimaryKey:
		return domain.ErrTypePrimaryKey
	case warehouse.KindForeignKey:
		return domain.ErrTypeForeignKey
	case warehouse.KindCheckViolation:
		return domain.ErrTypeCheckConstraint
	case warehouse.KindDataType:
		return domain.ErrTypeDataType
	default:
		return domain.ErrTypeUnknown
	}
}

func fillChunkStats(metric *domain.QualityMetric, rows []domain.TripRecord) {
	if len(rows) == 0 {
		return
	}
	min, max := rows[0].PickupTime, rows[0].PickupTime
	var totalSum float64
	for _, r := range rows {
		if r.PickupTime.Before(min) {
			min = r.PickupTime
		}
		if r.PickupTime.After(max) {
			max = r.PickupTime
		}
		totalSum += r.TotalAmount
	}
	metric.MinPickupTime = min
	metric.MaxPickupTime = max
	metric.AvgTotalAmount = totalSum / float64(len(rows))
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
