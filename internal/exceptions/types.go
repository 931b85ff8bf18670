package exceptions

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	StatusCode int
	Cause      error
}

func (se *ServiceError) Error() string {
	return se.Cause.Error()
}

func (se *ServiceError) Unwrap() error {
	return se.Cause
}

type RequestError interface {
	ToServiceError() *ServiceError
	Error() string
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func (nfe *NotFoundError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusNotFound,
		Cause:      nfe,
	}
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func (ie *InvalidInputError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Cause:      ie,
	}
}

func InvalidInput(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{
		Message: fmt.Sprintf(format, args...),
	}
}

// DeliveryFailedError describes a single subscriber that could not be reached. It is
// recorded in dispatch reports and only surfaces as a request error when a caller
// chooses to propagate it.
type DeliveryFailedError struct {
	Endpoint string
	Cause    error
}

func (de *DeliveryFailedError) Error() string {
	return fmt.Sprintf("Failed to deliver to %s: %v", de.Endpoint, de.Cause)
}

func (de *DeliveryFailedError) Unwrap() error {
	return de.Cause
}

func (de *DeliveryFailedError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadGateway,
		Cause:      de,
	}
}

func DeliveryFailed(endpoint string, cause error) *DeliveryFailedError {
	return &DeliveryFailedError{
		Endpoint: endpoint,
		Cause:    cause,
	}
}

func InternalServer(message string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Cause:      errors.New(message),
	}
}

// StatusCode resolves the HTTP status an error should be reported with.
func StatusCode(err error) int {
	var re RequestError
	if errors.As(err, &re) {
		return re.ToServiceError().StatusCode
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return http.StatusInternalServerError
}
