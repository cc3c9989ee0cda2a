package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/guestbook/internal/model"
	"github.com/d60-Lab/guestbook/internal/repository"
	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/flash"
	"github.com/d60-Lab/guestbook/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

type mockService struct{ mock.Mock }

func (m *mockService) Submit(ctx context.Context, rawName, rawMessage string) service.SubmitResult {
	return m.Called(ctx, rawName, rawMessage).Get(0).(service.SubmitResult)
}

func (m *mockService) RenderPage(ctx context.Context, status *service.Status) (*service.PageView, error) {
	args := m.Called(ctx, status)
	view, _ := args.Get(0).(*service.PageView)
	return view, args.Error(1)
}

func (m *mockService) Recent(ctx context.Context, limit int) ([]*model.Entry, error) {
	args := m.Called(ctx, limit)
	list, _ := args.Get(0).([]*model.Entry)
	return list, args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	alice = &model.Entry{ID: 1, Name: "Alice", Message: "Hello!", CreatedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)}
	bob   = &model.Entry{ID: 2, Name: "Bob", Message: "Hi <there>", CreatedAt: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)}

	storageErr = &repository.StorageError{Op: "append", Err: errors.New("open /data/guestbook.db: read-only file system")}
)

func newEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/", h.Index)
	r.POST("/submit", h.Submit)
	r.GET("/api/v1/entries", h.ListEntries)
	r.POST("/api/v1/entries", h.CreateEntry)
	r.GET("/healthz", h.Health)
	return r
}

func postForm(r http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIndex_RendersEntriesEscaped(t *testing.T) {
	svc := new(mockService)
	svc.On("RenderPage", mock.Anything, (*service.Status)(nil)).
		Return(&service.PageView{Entries: []*model.Entry{bob, alice}}, nil)
	r := newEngine(NewHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Hi &lt;there&gt;")
	assert.Contains(t, body, "2024-05-01 12:30 UTC")
	assert.Less(t, strings.Index(body, "Bob"), strings.Index(body, "Alice"))
	assert.NotContains(t, body, `class="flash`)
}

func TestIndex_StorageFailureShowsGenericBanner(t *testing.T) {
	svc := new(mockService)
	svc.On("RenderPage", mock.Anything, mock.Anything).Return(&service.PageView{
		Entries: []*model.Entry{},
		Status:  &service.Status{Kind: service.StatusError, Message: service.MsgUnavailable},
	}, &repository.StorageError{Op: "list", Err: errors.New("no such table: entries")})
	r := newEngine(NewHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), service.MsgUnavailable)
	assert.NotContains(t, w.Body.String(), "no such table")
}

func TestSubmit_WithoutFlashRendersDirectly(t *testing.T) {
	svc := new(mockService)
	status := service.Status{Kind: service.StatusError, Message: "name is required"}
	svc.On("Submit", mock.Anything, "", "some message").Return(service.SubmitResult{
		Status: status,
		Err:    &service.ValidationError{Field: "name", Reason: "name is required"},
	})
	svc.On("RenderPage", mock.Anything, &status).Return(&service.PageView{Entries: []*model.Entry{alice}, Status: &status}, nil)
	r := newEngine(NewHandler(svc, nil, nil))

	w := postForm(r, "/submit", url.Values{"name": {""}, "message": {"some message"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
	assert.Contains(t, w.Body.String(), "Alice")
	svc.AssertExpectations(t)
}

func TestSubmit_StorageFailureHidesCause(t *testing.T) {
	svc := new(mockService)
	status := service.Status{Kind: service.StatusError, Message: service.MsgUnavailable}
	svc.On("Submit", mock.Anything, "Alice", "Hello!").Return(service.SubmitResult{Status: status, Err: storageErr})
	svc.On("RenderPage", mock.Anything, &status).Return(&service.PageView{Entries: []*model.Entry{}, Status: &status}, nil)
	r := newEngine(NewHandler(svc, nil, nil))

	w := postForm(r, "/submit", url.Values{"name": {"Alice"}, "message": {"Hello!"}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), service.MsgUnavailable)
	assert.NotContains(t, w.Body.String(), "read-only")
}

func TestSubmit_PostRedirectGet(t *testing.T) {
	svc := new(mockService)
	status := service.Status{Kind: service.StatusSuccess, Message: service.MsgPosted}
	svc.On("Submit", mock.Anything, "Alice", "Hello!").Return(service.SubmitResult{Entry: alice, Status: status})
	svc.On("RenderPage", mock.Anything, &status).Return(&service.PageView{Entries: []*model.Entry{alice}, Status: &status}, nil)
	r := newEngine(NewHandler(svc, flash.NewStore([]byte("k"), time.Minute, false), nil))

	w := postForm(r, "/submit", url.Values{"name": {"Alice"}, "message": {"Hello!"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.MsgPosted)
	assert.Contains(t, w.Body.String(), "flash-success")
	svc.AssertExpectations(t)
}

func TestCreateEntry(t *testing.T) {
	svc := new(mockService)
	svc.On("Submit", mock.Anything, "Alice", "Hello!").Return(service.SubmitResult{Entry: alice, Status: service.Status{Kind: service.StatusSuccess}})
	svc.On("Submit", mock.Anything, "A", "").Return(service.SubmitResult{
		Status: service.Status{Kind: service.StatusError, Message: "message is required"},
		Err:    &service.ValidationError{Field: "message", Reason: "message is required"},
	})
	svc.On("Submit", mock.Anything, "B", "x").Return(service.SubmitResult{
		Status: service.Status{Kind: service.StatusError, Message: service.MsgUnavailable},
		Err:    storageErr,
	})
	r := newEngine(NewHandler(svc, nil, nil))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(`{"name":"Alice","message":"Hello!"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Code int         `json:"code"`
		Data model.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Data.ID)
	assert.Equal(t, "Alice", resp.Data.Name)

	w = send(`{"name":"A","message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "message is required")

	w = send(`{"name":"B","message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), response.GenericErrorMessage)
	assert.NotContains(t, w.Body.String(), "read-only")

	w = send(`{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEntries(t *testing.T) {
	svc := new(mockService)
	svc.On("Recent", mock.Anything, 5).Return([]*model.Entry{bob, alice}, nil)
	svc.On("Recent", mock.Anything, 0).Return(nil, &repository.StorageError{Op: "list recent", Err: errors.New("boom")})
	r := newEngine(NewHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/entries?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []model.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Bob", resp.Data[0].Name)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestHealth(t *testing.T) {
	var down bool
	r := newEngine(NewHandler(new(mockService), nil, pingFunc(func(context.Context) error {
		if down {
			return errors.New("db down")
		}
		return nil
	})))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
