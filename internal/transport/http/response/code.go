package response

import "task-manager-api/internal/domain"

// Business codes reuse HTTP semantics; the envelope itself is sent with 200.
const (
	CodeOK           = 0
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeTooMany      = 429
	CodeServerError  = 500
	CodeTimeout      = 504
)

var CodeMsgMap = map[int]string{
	CodeOK:           "OK",
	CodeBadRequest:   "Bad Request",
	CodeUnauthorized: "Unauthorized",
	CodeForbidden:    "Forbidden",
	CodeNotFound:     "Not Found",
	CodeConflict:     "Conflict",
	CodeTooMany:      "Too Many Requests",
	CodeServerError:  "Internal Server Error",
	CodeTimeout:      "Gateway Timeout",
}

func CodeOf(k domain.Kind) int {
	switch k {
	case domain.KindUnauthenticated:
		return CodeUnauthorized
	case domain.KindForbidden:
		return CodeForbidden
	case domain.KindNotFound:
		return CodeNotFound
	case domain.KindInvalidInput:
		return CodeBadRequest
	case domain.KindConflict:
		return CodeConflict
	}
	return CodeServerError
}
