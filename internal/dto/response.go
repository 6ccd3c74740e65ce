package dto

const (
	StatusSuccess = "Success"
	StatusFailed  = "FAILED"
)

// APIResponse is the envelope wrapped around every successful response body.
type APIResponse[T any] struct {
	Status  string `json:"status"`
	Results T      `json:"results"`
}

// Success wraps results in a successful envelope.
func Success[T any](results T) APIResponse[T] {
	return APIResponse[T]{Status: StatusSuccess, Results: results}
}

// ErrorResponse is the envelope returned for failed requests.
type ErrorResponse struct {
	Status string     `json:"status"`
	Errors []ErrorDTO `json:"errors"`
}

// ErrorDTO describes one failure, optionally tied to a request field.
type ErrorDTO struct {
	Field        string `json:"field,omitempty"`
	ErrorMessage string `json:"errorMessage"`
}

// Failure builds an error envelope.
func Failure(errs ...ErrorDTO) ErrorResponse {
	if errs == nil {
		errs = []ErrorDTO{}
	}
	return ErrorResponse{Status: StatusFailed, Errors: errs}
}
