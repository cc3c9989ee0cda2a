package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/response"
)

type createEntryRequest struct {
	Name    string `json:"name" form:"name"`
	Message string `json:"message" form:"message"`
}

// CreateEntry 新增留言
// @Summary 新增留言
// @Tags 留言
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body createEntryRequest true "留言内容"
// @Success 201 {object} response.Response{data=model.Entry}
// @Failure 400 {object} response.Response
// @Failure 413 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/entries [post]
func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBind(&req); err != nil {
		if isBodyTooLarge(err) {
			response.PayloadTooLarge(c)
			return
		}
		response.BadRequest(c, "invalid request body")
		return
	}
	res := h.svc.Submit(c.Request.Context(), req.Name, req.Message)
	switch {
	case res.OK():
		response.Created(c, res.Entry)
	case service.IsValidationError(res.Err):
		response.BadRequest(c, res.Status.Message)
	default:
		h.reportError(c, res.Err)
		response.InternalError(c, nil)
	}
}

// ListEntries 最新留言
// @Summary 最新留言（新的在前）
// @Tags 留言
// @Produce json
// @Param limit query int false "条数" default(100)
// @Success 200 {object} response.Response{data=[]model.Entry}
// @Failure 500 {object} response.Response
// @Router /api/v1/entries [get]
func (h *Handler) ListEntries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		h.reportError(c, err)
		response.InternalError(c, nil)
		return
	}
	response.Success(c, list)
}

// APIRateLimited JSON 接口被限流
func (h *Handler) APIRateLimited(c *gin.Context) {
	response.TooManyRequests(c, MsgRateLimited)
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{Code: response.CodeInternalError, Message: "unavailable"})
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
