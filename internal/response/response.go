// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"attendboard/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the common body shape: {status, message, data}.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// Success builds a success envelope around data.
func Success[T any](message string, data T) Envelope[T] {
	return Envelope[T]{Status: StatusSuccess, Message: message, Data: &data}
}

// Error builds an error envelope. Data is always null.
func Error(message string) Envelope[struct{}] {
	return Envelope[struct{}]{Status: StatusError, Message: message}
}

// OK writes a 200 success envelope.
func OK[T any](c *gin.Context, message string, data T) {
	c.JSON(http.StatusOK, Success(message, data))
}

// Created writes a 201 success envelope.
func Created[T any](c *gin.Context, message string, data T) {
	c.JSON(http.StatusCreated, Success(message, data))
}

// Empty writes a 200 success envelope with a null payload.
func Empty(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope[struct{}]{Status: StatusSuccess, Message: message})
}

// BadRequest writes a 400 error envelope without going through apperr.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Error(message))
}

// Fail maps err onto its status and writes the error envelope.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	entry := log.WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
		"status": status,
		"code":   apperr.CodeOf(err),
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.Info(err.Error())
	}
	c.AbortWithStatusJSON(status, Error(apperr.Message(err)))
}
