package api

import (
	"apexfolio-bot-go/internal/validation"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope wraps every response body.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"` // per-field messages of a validation failure
}

// SendSuccess writes a 200 envelope carrying data.
func SendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// SendError turns err into a failure envelope. Validation errors become a 400
// with field messages; everything else is a 500 carrying the error text.
func SendError(c *gin.Context, err error) {
	if ve, ok := validation.AsError(err); ok {
		SendValidationError(c, ve)
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, Envelope{Success: false, Error: err.Error()})
}

// SendValidationError writes a 400 listing every invalid field.
func SendValidationError(c *gin.Context, ve *validation.Error) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error:   "Validation failed",
		Fields:  ve.Fields,
	})
}

// SendCustomError writes a failure envelope with an explicit status.
func SendCustomError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Envelope{Success: false, Error: message})
}

// AbortWithCustomError writes a failure envelope and stops the handler chain.
func AbortWithCustomError(c *gin.Context, statusCode int, message string) {
	SendCustomError(c, statusCode, message)
	c.Abort()
}
