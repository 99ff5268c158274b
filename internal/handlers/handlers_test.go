package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"adboard/internal/config"
	"adboard/internal/middlewares"
	"adboard/internal/services"
	"adboard/internal/storage"
	"adboard/internal/storage/storagetest"
)

type testServer struct {
	r     *gin.Engine
	ads   *services.AdService
	audit *services.AuditService
	rec   *storagetest.Recorder
	root  string
}

func newTestServer(t *testing.T, pageSize int, limiter middlewares.CounterStore, opts ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := storagetest.NewDB(t)
	root := t.TempDir()
	media, err := storage.NewLocalMedia(root, "/media/")
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Pagination.PageSize = pageSize
	cfg.Limits.WritesPerMinute = 2
	for _, opt := range opts {
		opt(&cfg)
	}

	rec := &storagetest.Recorder{}
	users := services.NewUserService(db)
	cats := services.NewCategoryService(db)
	ads := services.NewAdService(db, media, rec, pageSize)
	audit := services.NewAuditService(db)

	ctx := context.Background()
	_, err = users.Create(ctx, "alice", "Alice", "Smith")
	require.NoError(t, err)
	_, err = users.Create(ctx, "bob", "Bob", "")
	require.NoError(t, err)
	_, err = cats.Create(ctx, "Electronics")
	require.NoError(t, err)
	_, err = cats.Create(ctx, "Books")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middlewares.RequestID())
	New(cfg, ads, cats, users, audit, limiter).RegisterRoutes(r)
	return &testServer{r: r, ads: ads, audit: audit, rec: rec, root: root}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) createAd(t *testing.T, name string, price int) uint64 {
	t.Helper()
	body := `{"author":"alice","category":"Electronics","name":"` + name + `","price":` + itoa(price) + `,"description":"d"}`
	w, out := s.do(t, http.MethodPost, "/ad/create/", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint64(out["id"].(float64))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRootReportsOK(t *testing.T) {
	s := newTestServer(t, 10, nil)
	w, out := s.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", out["status"])

	w, out = s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", out["status"])
}

func TestCreateAndDetail(t *testing.T) {
	s := newTestServer(t, 10, nil)
	w, out := s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Electronics","name":"Phone","price":100,"description":"d"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "Phone", out["name"])
	require.Equal(t, "alice", out["author"])
	require.Equal(t, "Electronics", out["category"])
	require.Equal(t, float64(100), out["price"])
	require.Equal(t, false, out["is_published"])
	id := uint64(out["id"].(float64))

	w, out = s.do(t, http.MethodGet, "/ad/"+itoa(int(id))+"/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", out["author"])
	require.Equal(t, "d", out["description"])
	require.Nil(t, out["image"])

	recs, err := s.audit.ListByAd(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, services.AuditAdCreated, recs[0].Event)
	require.NotEmpty(t, recs[0].RequestID)
}

func TestCreateRejectsBadInput(t *testing.T) {
	s := newTestServer(t, 10, nil)

	w, out := s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"nobody","category":"Electronics","name":"Phone","price":100,"description":"d"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user", out["entity"])

	w, out = s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Toys","name":"Phone","price":100,"description":"d"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "category", out["entity"])

	w, out = s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Electronics","name":"Phone","description":"d"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation_failed", out["error"])
	require.Equal(t, "required", out["fields"].(map[string]any)["price"])

	w, out = s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Electronics","name":"Phone","price":-1,"description":"d"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "min", out["fields"].(map[string]any)["price"])

	w, out = s.do(t, http.MethodPost, "/ad/create/", `{"name":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_json", out["error"])

	require.Empty(t, s.rec.Subjects())
}

func TestListPaginatesByPriceDesc(t *testing.T) {
	s := newTestServer(t, 2, nil)
	for i, p := range []int{10, 30, 20, 5, 40} {
		s.createAd(t, "ad"+itoa(i), p)
	}

	w, out := s.do(t, http.MethodGet, "/ad/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(5), out["total"])
	require.Equal(t, float64(3), out["num_pages"])
	items := out["items_list"].([]any)
	require.Len(t, items, 2)
	require.Equal(t, float64(40), items[0].(map[string]any)["price"])
	require.Equal(t, float64(30), items[1].(map[string]any)["price"])
	require.Equal(t, "Alice", items[0].(map[string]any)["author"])

	_, out = s.do(t, http.MethodGet, "/ad/?page=99", "")
	items = out["items_list"].([]any)
	require.Len(t, items, 1)
	require.Equal(t, float64(5), items[0].(map[string]any)["price"])

	_, out = s.do(t, http.MethodGet, "/ad/?page=abc", "")
	items = out["items_list"].([]any)
	require.Equal(t, float64(40), items[0].(map[string]any)["price"])
}

func TestListEmpty(t *testing.T) {
	s := newTestServer(t, 10, nil)
	w, out := s.do(t, http.MethodGet, "/ad/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(0), out["total"])
	require.Equal(t, float64(1), out["num_pages"])
	require.Empty(t, out["items_list"])
}

func TestUpdateIsPartial(t *testing.T) {
	s := newTestServer(t, 10, nil)
	id := s.createAd(t, "Phone", 100)
	path := "/ad/" + itoa(int(id)) + "/update/"

	w, out := s.do(t, http.MethodPatch, path, `{"price":150,"is_published":true,"author":"bob","category":"Books"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Phone", out["name"])
	require.Equal(t, float64(150), out["price"])
	require.Equal(t, true, out["is_published"])
	require.Equal(t, "bob", out["author"])
	require.Equal(t, "Books", out["category"])
	require.Equal(t, "d", out["description"])

	w, out = s.do(t, http.MethodPatch, path, `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "min", out["fields"].(map[string]any)["name"])

	w, out = s.do(t, http.MethodPatch, path, `{"colour":"red"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_json", out["error"])

	w, _ = s.do(t, http.MethodPatch, path, `{"author":"nobody"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPatch, "/ad/999/update/", `{"price":1}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteThenNotFound(t *testing.T) {
	s := newTestServer(t, 10, nil)
	id := s.createAd(t, "Phone", 100)
	path := "/ad/" + itoa(int(id))

	w, _ := s.do(t, http.MethodDelete, path+"/delete/", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Zero(t, w.Body.Len())

	w, _ = s.do(t, http.MethodGet, path+"/", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, path+"/delete/", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, []string{"created", "deleted"}, s.rec.Subjects())
}

func TestBadID(t *testing.T) {
	s := newTestServer(t, 10, nil)
	w, out := s.do(t, http.MethodGet, "/ad/abc/", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_id", out["error"])
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, 10, nil)
	id := s.createAd(t, "Phone", 100)
	path := "/ad/" + itoa(int(id)) + "/upload_image/"

	body, ct := multipartBody(t, "image", "photo.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	url, _ := out["image"].(string)
	require.True(t, strings.HasPrefix(url, "/media/ads/"), url)
	require.True(t, strings.HasSuffix(url, ".png"), url)
	_, err := os.Stat(filepath.Join(s.root, strings.TrimPrefix(url, "/media/")))
	require.NoError(t, err)

	body, ct = multipartBody(t, "image", "notes.png", []byte("just some text, not an image"))
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unsupported_image")

	_, detail := s.do(t, http.MethodGet, "/ad/"+itoa(int(id))+"/", "")
	require.Equal(t, url, detail["image"])

	body, ct = multipartBody(t, "file", "photo.png", pngBytes(t))
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "image_required")

	body, ct = multipartBody(t, "image", "photo.png", pngBytes(t))
	req = httptest.NewRequest(http.MethodPost, "/ad/999/upload_image/", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadImageTooLarge(t *testing.T) {
	s := newTestServer(t, 10, nil, func(cfg *config.Config) { cfg.Media.MaxUploadBytes = 1024 })
	id := s.createAd(t, "Phone", 100)

	big := append(pngBytes(t), make([]byte, 4096)...)
	body, ct := multipartBody(t, "image", "photo.png", big)
	req := httptest.NewRequest(http.MethodPost, "/ad/"+itoa(int(id))+"/upload_image/", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	require.JSONEq(t, `{"error":"too_large"}`, w.Body.String())

	_, detail := s.do(t, http.MethodGet, "/ad/"+itoa(int(id))+"/", "")
	require.Nil(t, detail["image"])
}

func TestJSONBodyMustBeSingleValue(t *testing.T) {
	s := newTestServer(t, 10, nil)
	id := s.createAd(t, "Phone", 100)

	w, out := s.do(t, http.MethodPatch, "/ad/"+itoa(int(id))+"/update/", `{"name":"X"} {"junk":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_json", out["error"])

	_, detail := s.do(t, http.MethodGet, "/ad/"+itoa(int(id))+"/", "")
	require.Equal(t, "Phone", detail["name"])

	w, _ = s.do(t, http.MethodPatch, "/ad/"+itoa(int(id))+"/update/", "{\"name\":\"X\"}\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPriceAcceptsWholeNumbersOnly(t *testing.T) {
	s := newTestServer(t, 10, nil)

	w, out := s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Electronics","name":"Phone","price":100.0,"description":"d"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, float64(100), out["price"])
	path := "/ad/" + itoa(int(out["id"].(float64))) + "/update/"

	w, out = s.do(t, http.MethodPatch, path, `{"price":2e2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, float64(200), out["price"])

	for _, bad := range []string{`{"price":100.5}`, `{"price":"100"}`} {
		w, out = s.do(t, http.MethodPatch, path, bad)
		require.Equal(t, http.StatusBadRequest, w.Code, bad)
		require.Equal(t, "bad_json", out["error"])
		require.Contains(t, out["detail"], "whole number")
	}

	w, out = s.do(t, http.MethodPatch, path, `{"price":-1.0}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "min", out["fields"].(map[string]any)["price"])
}

func TestCategoriesAndDevUsers(t *testing.T) {
	s := newTestServer(t, 10, nil)

	w, _ := s.do(t, http.MethodPost, "/cat/create/", `{"name":"Toys"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w, out := s.do(t, http.MethodPost, "/cat/create/", `{"name":"Toys"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "conflict", out["error"])
	w, _ = s.do(t, http.MethodPost, "/cat/create/", `{"name":"  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/cat/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	require.Len(t, cats, 3)
	require.Equal(t, "Books", cats[0]["name"])

	w, _ = s.do(t, http.MethodPost, "/dev/users", `{"username":"carol","first_name":"Carol"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, "/dev/users", `{"username":"carol"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodGet, "/dev/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 3)

	uid := itoa(int(users[0]["id"].(float64)))
	w, out = s.do(t, http.MethodGet, "/dev/users/"+uid, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, users[0]["username"], out["username"])

	w, out = s.do(t, http.MethodGet, "/dev/users/999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user", out["entity"])
}

type fakeCounter struct{ n map[string]int64 }

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.n == nil {
		f.n = map[string]int64{}
	}
	f.n[key]++
	return redis.NewIntResult(f.n[key], nil)
}

func (f *fakeCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func TestWritesAreRateLimited(t *testing.T) {
	s := newTestServer(t, 10, &fakeCounter{})
	s.createAd(t, "a", 1)
	s.createAd(t, "b", 2)
	w, out := s.do(t, http.MethodPost, "/ad/create/",
		`{"author":"alice","category":"Electronics","name":"c","price":3,"description":"d"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "rate_limited", out["error"])

	w, _ = s.do(t, http.MethodGet, "/ad/", "")
	require.Equal(t, http.StatusOK, w.Code)
}
