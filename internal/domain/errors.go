package domain

import "errors"

var (
	// ErrSourceRead is returned when the tabular source cannot be read or parsed
	ErrSourceRead = errors.New("source could not be read")

	// ErrUnsupportedFormat is returned when the source file type has no reader
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrRowRejected marks a row that failed extraction (missing name, negative quantity)
	ErrRowRejected = errors.New("row rejected")

	// ErrPersistence is returned when a batch flush to the catalog fails
	ErrPersistence = errors.New("catalog batch write failed")

	// ErrCatalogRead is returned when the catalog snapshot cannot be loaded
	ErrCatalogRead = errors.New("catalog could not be read")

	// ErrNoMatch is returned when the catalog holds no usable candidate
	ErrNoMatch = errors.New("no matching product in catalog")

	// ErrLowConfidence is returned when the best match is below the threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when an update targets an unknown product
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrCatalogAPIFailure is returned when the remote catalog API fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrReportNotFound is returned when no report is stored under an id
	ErrReportNotFound = errors.New("import report not found")

	// ErrReportStoreUnavailable is returned when the report store cannot be reached
	ErrReportStoreUnavailable = errors.New("report store unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
