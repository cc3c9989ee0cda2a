package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/guestbook/internal/model"
	"github.com/d60-Lab/guestbook/internal/repository"
	"github.com/d60-Lab/guestbook/pkg/logger"
)

// StatusKind 状态横幅类型
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status 上一次操作的结果提示
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

// SubmitResult 提交结果：成功时带 Entry，失败时 Err 为 *ValidationError 或 *repository.StorageError
type SubmitResult struct {
	Entry  *model.Entry
	Status Status
	Err    error
}

// OK 是否写入成功
func (r SubmitResult) OK() bool { return r.Err == nil && r.Entry != nil }

// PageView 页面渲染所需数据
type PageView struct {
	Entries []*model.Entry
	Status  *Status
}

// EntryCache 最近留言缓存（可选）
type EntryCache interface {
	Push(ctx context.Context, entries ...*model.Entry) (int, error)
	Recent(ctx context.Context, n int) ([]*model.Entry, bool, error)
}

// GuestbookService 留言板服务
type GuestbookService interface {
	// Submit 校验并写入一条留言
	Submit(ctx context.Context, rawName, rawMessage string) SubmitResult
	// RenderPage 读取全部留言并附带状态提示，不修改存储
	RenderPage(ctx context.Context, status *Status) (*PageView, error)
	// Recent 最新 limit 条（优先读缓存）
	Recent(ctx context.Context, limit int) ([]*model.Entry, error)
}

type guestbookService struct {
	repo        repository.EntryRepository
	cache       EntryCache
	recentLimit int
}

// NewGuestbookService cache 可以为 nil
func NewGuestbookService(repo repository.EntryRepository, cache EntryCache, recentLimit int) GuestbookService {
	if recentLimit <= 0 {
		recentLimit = 100
	}
	return &guestbookService{repo: repo, cache: cache, recentLimit: recentLimit}
}

func (s *guestbookService) Submit(ctx context.Context, rawName, rawMessage string) SubmitResult {
	sub := normalize(rawName, rawMessage)
	if verr := sub.check(); verr != nil {
		return SubmitResult{Status: Status{Kind: StatusError, Message: verr.Reason}, Err: verr}
	}

	e, err := s.repo.Append(ctx, sub.Name, sub.Message)
	if err != nil {
		return SubmitResult{Status: Status{Kind: StatusError, Message: MsgUnavailable}, Err: err}
	}

	if s.cache != nil {
		if _, cerr := s.cache.Push(ctx, e); cerr != nil {
			logger.Warn("push entry to cache failed", logger.EntryID(e.ID), logger.Err(cerr))
		}
	}
	return SubmitResult{Entry: e, Status: Status{Kind: StatusSuccess, Message: MsgPosted}}
}

func (s *guestbookService) RenderPage(ctx context.Context, status *Status) (*PageView, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return &PageView{
			Entries: []*model.Entry{},
			Status:  &Status{Kind: StatusError, Message: MsgUnavailable},
		}, err
	}
	return &PageView{Entries: entries, Status: status}, nil
}

func (s *guestbookService) Recent(ctx context.Context, limit int) ([]*model.Entry, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}
	if s.cache != nil {
		entries, ok, err := s.cache.Recent(ctx, limit)
		switch {
		case err != nil:
			logger.Warn("read recent entries from cache failed", logger.Err(err))
		case ok:
			return entries, nil
		}
	}
	return s.repo.ListRecent(ctx, limit)
}

// IsValidationError 判断是否为输入校验失败
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
