package router

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/guestbook/config"
	_ "github.com/d60-Lab/guestbook/docs"
	"github.com/d60-Lab/guestbook/internal/api/handler"
	"github.com/d60-Lab/guestbook/internal/api/middleware"
)

// Limiters 限流器；为 nil 表示不限流
type Limiters struct {
	Submit *middleware.IPRateLimiter
	Global *middleware.IPRateLimiter
}

// NewLimiters 根据配置构建限流器
func NewLimiters(cfg config.RateLimitConfig) Limiters {
	if !cfg.Enabled {
		return Limiters{}
	}
	l := Limiters{Submit: middleware.PerMinute(cfg.SubmitPerMinute, cfg.SubmitBurst)}
	if cfg.GlobalPerHour > 0 {
		l.Global = middleware.PerHour(cfg.GlobalPerHour)
	}
	return l
}

// StartJanitors 定期清理限流器中过期 IP；返回停止函数
func (l Limiters) StartJanitors() func() {
	var stops []func()
	for _, lim := range []*middleware.IPRateLimiter{l.Submit, l.Global} {
		if lim != nil {
			stops = append(stops, lim.StartJanitor(5*time.Minute, time.Hour))
		}
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// Setup 注册路由与中间件
func Setup(cfg *config.Config, h *handler.Handler, limiters Limiters) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(handler.Templates())

	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Recovery(),
		middleware.SecurityHeaders(middleware.SecurityOptions{
			ForceHTTPS: cfg.Security.ForceHTTPS,
			HSTSMaxAge: cfg.Security.HSTSMaxAge,
		}),
		middleware.BodyLimit(cfg.Server.MaxBodyBytes),
		gzip.Gzip(gzip.DefaultCompression),
	)
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	if limiters.Global != nil {
		r.Use(middleware.RateLimit(limiters.Global, h.APIRateLimited))
	}

	r.GET("/healthz", h.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	pageSubmit := []gin.HandlerFunc{h.Submit}
	apiCreate := []gin.HandlerFunc{h.CreateEntry}
	if limiters.Submit != nil {
		pageSubmit = append([]gin.HandlerFunc{middleware.RateLimit(limiters.Submit, h.SubmitRateLimited)}, pageSubmit...)
		apiCreate = append([]gin.HandlerFunc{middleware.RateLimit(limiters.Submit, h.APIRateLimited)}, apiCreate...)
	}

	r.GET("/", h.Index)
	r.POST("/submit", pageSubmit...)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/entries", h.ListEntries)
		v1.POST("/entries", apiCreate...)
	}
	return r
}
