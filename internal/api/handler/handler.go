package handler

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/flash"
	"github.com/d60-Lab/guestbook/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 页面模板
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler HTTP 处理器
type Handler struct {
	svc    service.GuestbookService
	flash  *flash.Store
	pinger Pinger
}

// NewHandler flashStore 为 nil 时 POST /submit 直接渲染页面而不是重定向
func NewHandler(svc service.GuestbookService, flashStore *flash.Store, pinger Pinger) *Handler {
	return &Handler{svc: svc, flash: flashStore, pinger: pinger}
}

// reportError 记录并上报内部错误；不返回给用户
func (h *Handler) reportError(c *gin.Context, err error) {
	_ = c.Error(err)
	logger.Error("guestbook operation failed",
		logger.Err(err),
		logger.RequestID(c.GetString("request_id")),
	)
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(c.Request)
	hub.CaptureException(err)
}

// 与 gin 默认的 MaxMultipartMemory 一致
const maxFormMemory = 32 << 20

// parseForm 预先解析表单；gin 的 PostForm 会吞掉解析错误
func parseForm(c *gin.Context) error {
	// ParseMultipartForm 对非 multipart 请求只返回 ErrNotMultipart，读取错误要从 ParseForm 拿
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	err := c.Request.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// isBodyTooLarge 请求体被 BodyLimit 的 MaxBytesReader 截断
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
