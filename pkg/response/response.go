package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope. Code is a stable machine-readable
// reason set on domain rejections (e.g. ALREADY_VOTED).
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Reject sends a failed envelope with status, code and message.
func Reject(c *gin.Context, status int, code, err string) {
	c.JSON(status, Body{Success: false, Error: err, Code: code})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	Reject(c, http.StatusBadRequest, "", err)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	Reject(c, http.StatusUnauthorized, "", err)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	Reject(c, http.StatusForbidden, "", err)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	Reject(c, http.StatusNotFound, "", err)
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	Reject(c, http.StatusConflict, "", err)
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	Reject(c, http.StatusServiceUnavailable, "", err)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	Reject(c, http.StatusInternalServerError, "", err)
}
