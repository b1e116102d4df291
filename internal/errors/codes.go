// Package errors provides structured errors for frivillig-db.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (database, corpus shards, vector collections)
//   - 3XX: Upstream errors (embedding providers, vector services)
//   - 4XX: Request validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryStorage    Category = "STORAGE"
	CategoryUpstream   Category = "UPSTREAM"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the process.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the current operation.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the operation degraded to a fallback.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeMissingSecret  = "ERR_103_MISSING_SECRET"

	// Storage errors (200-299)
	ErrCodeDatabaseUnavailable = "ERR_201_DATABASE_UNAVAILABLE"
	ErrCodeQueryFailed         = "ERR_202_QUERY_FAILED"
	ErrCodeShardUnavailable    = "ERR_203_SHARD_UNAVAILABLE"
	ErrCodeShardCorrupt        = "ERR_204_SHARD_CORRUPT"
	ErrCodeIndexCorrupt        = "ERR_205_INDEX_CORRUPT"
	ErrCodeLocked              = "ERR_206_LOCKED"

	// Upstream errors (300-399)
	ErrCodeUpstreamTimeout     = "ERR_301_UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable = "ERR_302_UPSTREAM_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_303_EMBEDDING_FAILED"
	ErrCodeCircuitOpen         = "ERR_304_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidRef        = "ERR_402_INVALID_REF"
	ErrCodeInvalidLimit      = "ERR_403_INVALID_LIMIT"
	ErrCodeNotFound          = "ERR_404_NOT_FOUND"
	ErrCodeDimensionMismatch = "ERR_405_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "2" from "ERR_201_DATABASE_UNAVAILABLE"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt, ErrCodeMissingSecret:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an error code represents a transient failure.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeDatabaseUnavailable, ErrCodeShardUnavailable,
		ErrCodeUpstreamTimeout, ErrCodeUpstreamUnavailable, ErrCodeLocked:
		return true
	default:
		return false
	}
}
