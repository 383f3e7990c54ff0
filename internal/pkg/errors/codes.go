package errors

import "net/http"

const CodeInvalidInput = "INVALID_INPUT"

var (
	ErrSkiAreaNotFound = New(
		"SKI_AREA_NOT_FOUND",
		"Ski area not found",
		http.StatusNotFound,
	)

	ErrInvalidGeometry = New(
		"INVALID_GEOMETRY",
		"Geometry failed validation",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		CodeInvalidInput,
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrPipelineRunFailed = New(
		"PIPELINE_RUN_FAILED",
		"Clustering pipeline run failed",
		http.StatusInternalServerError,
	)

	ErrPipelineAlreadyRunning = New(
		"PIPELINE_ALREADY_RUNNING",
		"A clustering pipeline run is already in progress",
		http.StatusConflict,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
