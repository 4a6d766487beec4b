package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/FranksOps/gleaner/internal/corpus"
	"github.com/FranksOps/gleaner/internal/search"
)

// Machine-readable error codes returned in API error bodies.
const (
	CodeQueryTooShort     = "query_too_short"
	CodeInvalidParameter  = "invalid_parameter"
	CodeCorpusUnavailable = "corpus_unavailable"
	CodeCollectionFailed  = "collection_failed"
	CodeHistoryDisabled   = "history_disabled"
	CodeTimeout           = "timeout"
	CodeCancelled         = "cancelled"
	CodeInternal          = "internal"
)

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errHistoryDisabled = errors.New("chat log history is not enabled")

type paramError struct {
	name string
	err  error
}

func (e *paramError) Error() string { return "invalid " + e.name + ": " + e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

// classify maps an error to an HTTP status and code.
func classify(err error) (int, string) {
	var (
		he *echo.HTTPError
		pe *paramError
	)
	switch {
	case errors.Is(err, search.ErrQueryTooShort):
		return http.StatusBadRequest, CodeQueryTooShort
	case errors.As(err, &pe):
		return http.StatusBadRequest, CodeInvalidParameter
	case errors.Is(err, corpus.ErrCorpusUnavailable):
		return http.StatusNotFound, CodeCorpusUnavailable
	case errors.Is(err, corpus.ErrNothingCollected):
		return http.StatusBadGateway, CodeCollectionFailed
	case errors.Is(err, errHistoryDisabled):
		return http.StatusNotFound, CodeHistoryDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeCancelled
	case errors.As(err, &he):
		return he.Code, strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_")
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, code := classify(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", status, "err", err)
	}

	if err := c.JSON(status, ErrorBody{Code: code, Message: msg}); err != nil {
		s.logger.Error("write error response", "err", err)
	}
}
