package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/guestbook/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// 业务错误码
const (
	CodeSuccess         = 0
	CodeBadRequest      = 40000
	CodeTooLarge        = 41300
	CodeTooManyRequests = 42900
	CodeInternalError   = 50000
)

// GenericErrorMessage 对外统一的内部错误提示，不暴露具体原因
const GenericErrorMessage = "Something went wrong. Please try again later."

// Success 200
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: CodeSuccess, Message: "success", Data: data})
}

// BadRequest 400
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Code: CodeBadRequest, Message: msg})
}

// PayloadTooLarge 413
func PayloadTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, Response{Code: CodeTooLarge, Message: "request body too large"})
}

// TooManyRequests 429
func TooManyRequests(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Code: CodeTooManyRequests, Message: msg})
}

// InternalError 500：记录原始错误，只返回通用提示
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		logger.Error("internal error",
			logger.Err(err),
			logger.RequestID(c.GetString("request_id")),
		)
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Code: CodeInternalError, Message: GenericErrorMessage})
}
