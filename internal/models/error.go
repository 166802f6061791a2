package models

import "errors"

// Errores centinela de la capa de repositorios.
// ErrNotFound se usa en las búsquedas de usuario por id; las demás lecturas
// devuelven un resultado vacío en lugar de error.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorCode representa el código de error
type ErrorCode string

const (
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeInternal       ErrorCode = "INTERNAL"
)

// ErrorDetail representa un detalle específico del error
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorInfo representa la información del error
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorResponse representa la respuesta de error estandarizada
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// NewErrorResponse crea una nueva respuesta de error
func NewErrorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}

// NewValidationError crea un error de validación con detalles
func NewValidationError(message string, details []ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeInvalidRequest),
			Message: message,
			Details: details,
		},
	}
}

// NewUnauthorizedError crea un error de autenticación
func NewUnauthorizedError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeUnauthorized, message)
}

// NewForbiddenError crea un error de permisos
func NewForbiddenError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeForbidden, message)
}

// NewNotFoundError crea un error de recurso no encontrado
func NewNotFoundError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeNotFound, message)
}

// NewInternalError crea un error interno del servidor
func NewInternalError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInternal, message)
}
