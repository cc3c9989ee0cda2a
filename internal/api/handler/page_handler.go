package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/d60-Lab/guestbook/internal/model"
	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/flash"
	"github.com/d60-Lab/guestbook/pkg/logger"
)

// MsgRateLimited 提交过于频繁
const MsgRateLimited = "Too many submissions. Please slow down."

type entryView struct {
	ID      uint64
	Name    string
	Message string
	Posted  string
	ISOTime string
}

type pageData struct {
	Entries    []entryView
	Status     *service.Status
	MaxName    int
	MaxMessage int
}

func toPageData(view *service.PageView) pageData {
	return pageData{
		Entries: lo.Map(view.Entries, func(e *model.Entry, _ int) entryView {
			t := e.CreatedAt.UTC()
			return entryView{
				ID:      e.ID,
				Name:    e.Name,
				Message: e.Message,
				Posted:  t.Format("2006-01-02 15:04 UTC"),
				ISOTime: t.Format(time.RFC3339),
			}
		}),
		Status:     view.Status,
		MaxName:    model.MaxNameLength,
		MaxMessage: model.MaxMessageLength,
	}
}

func (h *Handler) renderPage(c *gin.Context, code int, status *service.Status) {
	view, err := h.svc.RenderPage(c.Request.Context(), status)
	if err != nil {
		h.reportError(c, err)
		code = http.StatusInternalServerError
	}
	c.HTML(code, "index.html", toPageData(view))
}

// Index 留言列表页（新的在前）
func (h *Handler) Index(c *gin.Context) {
	var status *service.Status
	if h.flash != nil {
		if m, ok := h.flash.Pop(c); ok {
			status = &service.Status{Kind: service.StatusKind(m.Kind), Message: m.Text}
		}
	}
	h.renderPage(c, http.StatusOK, status)
}

// Submit 表单提交：校验、写入，然后重定向回列表页
func (h *Handler) Submit(c *gin.Context) {
	if err := parseForm(c); isBodyTooLarge(err) {
		c.AbortWithStatus(http.StatusRequestEntityTooLarge)
		return
	}
	res := h.svc.Submit(c.Request.Context(), c.PostForm("name"), c.PostForm("message"))

	code := http.StatusOK
	switch {
	case res.OK():
		logger.Info("entry posted", logger.EntryID(res.Entry.ID), logger.RequestID(c.GetString("request_id")))
	case service.IsValidationError(res.Err):
		code = http.StatusBadRequest
	default:
		h.reportError(c, res.Err)
		code = http.StatusInternalServerError
	}

	h.finish(c, code, res.Status)
}

// SubmitRateLimited 表单提交被限流
func (h *Handler) SubmitRateLimited(c *gin.Context) {
	h.finish(c, http.StatusTooManyRequests, service.Status{Kind: service.StatusError, Message: MsgRateLimited})
	c.Abort()
}

// finish 有 flash 时走 PRG，否则直接渲染
func (h *Handler) finish(c *gin.Context, code int, status service.Status) {
	if h.flash != nil {
		err := h.flash.Set(c, flash.Message{Kind: string(status.Kind), Text: status.Message})
		if err == nil {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		logger.Warn("set flash cookie failed", logger.Err(err))
	}
	h.renderPage(c, code, &status)
}
