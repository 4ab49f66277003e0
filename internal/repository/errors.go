package repository

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

// Normalized persistence failure messages.
const (
	MsgAlreadyExists   = "Resource already exists"
	MsgNotFound        = "Resource not found"
	MsgTooManyRequests = "Too many requests, please try again later"
	MsgOperationFailed = "Database operation failed"
)

// IsNotFound reports whether err is a missing-row error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a duplicate key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isThrottled(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// too_many_connections, insufficient_resources
		return pgErr.Code == "53300" || pgErr.Code == "53000"
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// ClassifyError converts a backend error into a DomainError carrying one of
// the normalized {message, status} pairs. Domain errors pass through.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case IsUniqueViolation(err):
		return &apperrors.DomainError{Code: "CONFLICT", Message: MsgAlreadyExists, HTTPStatus: http.StatusConflict, Err: err}
	case IsNotFound(err):
		return &apperrors.DomainError{Code: "NOT_FOUND", Message: MsgNotFound, HTTPStatus: http.StatusNotFound, Err: err}
	case isThrottled(err):
		return &apperrors.DomainError{Code: "RATE_LIMITED", Message: MsgTooManyRequests, HTTPStatus: http.StatusTooManyRequests, Err: err}
	default:
		return &apperrors.DomainError{Code: "DATABASE_ERROR", Message: MsgOperationFailed, HTTPStatus: http.StatusInternalServerError, Err: err}
	}
}
