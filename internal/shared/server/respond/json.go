package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageBody is the confirmation payload for operations with no resource to return.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 JSON response.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// Message writes a MessageBody with the given status.
func Message(c *gin.Context, status int, msg string) {
	JSON(c, status, MessageBody{Message: msg})
}
