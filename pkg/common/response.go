package common

// HttpResponse is the generic HTTP envelope.
type HttpResponse struct {
	Code    int         `json:"code"`    // response code
	Message string      `json:"message"` // response message
	Data    interface{} `json:"data"`    // payload
}

// NewSuccessResponse builds a success envelope.
func NewSuccessResponse(data interface{}) *HttpResponse {
	return &HttpResponse{
		Code:    200,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope with the given code.
func NewErrorResponse(code int, message string) *HttpResponse {
	return &HttpResponse{
		Code:    code,
		Message: message,
		Data:    nil,
	}
}

// NewFailureResponse builds a generic 500 envelope.
func NewFailureResponse() *HttpResponse {
	return &HttpResponse{
		Code:    500,
		Message: "internal server error",
		Data:    nil,
	}
}
