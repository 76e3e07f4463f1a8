package httputil

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// AppErrorer is implemented by domain errors that know their HTTP rendering.
type AppErrorer interface {
	AppError() *errors.AppError
}

// FieldError describes one failed binding rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// RespondWithSuccess sends a 200 success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError renders err and records it on the context for the logger.
func RespondWithError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	_ = c.Error(err)

	message := appErr.Message
	if appErr.StatusCode() == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), Response{
		Status:  "error",
		Message: message,
		Details: appErr.Details,
	})
}

// RespondWithBindError renders a request decoding or validation failure.
func RespondWithBindError(c *gin.Context, err error) {
	RespondWithError(c, BindError(err))
}

// ToAppError finds the rendering for err, defaulting to an internal error.
func ToAppError(err error) *errors.AppError {
	var renderable AppErrorer
	if stderrors.As(err, &renderable) {
		return renderable.AppError()
	}
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	return errors.Internal(err)
}

// BindError converts gin binding failures into a 400 listing the failed fields.
func BindError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldName(fe), Rule: fe.Tag(), Param: fe.Param()})
			names = append(names, fieldName(fe))
		}
		return errors.BadRequest("invalid request: "+strings.Join(names, ", "), err).WithDetails(fields)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		return errors.BadRequest(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset), err)
	case stderrors.As(err, &typeErr):
		return errors.BadRequest(fmt.Sprintf("field %s must be %s", typeErr.Field, typeErr.Type), err)
	}
	return errors.BadRequest(err.Error(), err)
}

// fieldName strips the root struct from the namespace, e.g.
// "CreateAppointmentRequest.StartTime" becomes "StartTime".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
