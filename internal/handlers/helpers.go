package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"adboard/internal/middlewares"
	"adboard/internal/services"
	"adboard/internal/storage"
)

// bindJSON 严格解码请求体（拒绝未知字段）并按 binding 标签校验；失败时已写出 400 响应。
func bindJSON(c *gin.Context, dst any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_json", "detail": err.Error()})
		return false
	}
	// 请求体只允许一个 JSON 值
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_json", "detail": "unexpected data after JSON body"})
		return false
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": fields})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": err.Error()})
		return false
	}
	return true
}

// wholeNumber 接受不带小数部分的 JSON 数字（100 与 100.0 等价），拒绝字符串与小数。
type wholeNumber int64

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return fmt.Errorf("must be a whole number, got string %s", b)
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	if i, err := num.Int64(); err == nil {
		*n = wholeNumber(i)
		return nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("must be a whole number, got %s", num)
	}
	*n = wholeNumber(f)
	return nil
}

func (n *wholeNumber) int64p() *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}

// parseID 解析路径参数 :id；非法时已写出 400 响应。
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_id"})
		return 0, false
	}
	return id, true
}

// respondError 将服务层错误映射为 HTTP 状态码。
func respondError(c *gin.Context, err error) {
	var nf *services.NotFoundError
	var me *services.MediaError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "entity": nf.Entity})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, services.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "detail": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.As(err, &me):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "media"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
	}
}

// audit 记录广告变更，附带请求 ID 与客户端 IP。
func (h *Handler) audit(c *gin.Context, event string, ad *storage.Ad, desc string) {
	if h.auditSvc == nil {
		return
	}
	h.auditSvc.Write(c, event, ad.ID, desc, c.GetString(middlewares.RequestIDKey), c.ClientIP())
}

// adItemJSON 列表项：author 为作者名（first name）。
func (h *Handler) adItemJSON(ad *storage.Ad) gin.H {
	return gin.H{
		"id":           ad.ID,
		"name":         ad.Name,
		"author":       ad.Author.FirstName,
		"description":  ad.Description,
		"is_published": ad.IsPublished,
		"price":        ad.Price,
		"category":     ad.Category.Name,
		"image":        h.adSvc.ImageURL(ad),
	}
}

// adJSON 详情/更新/上传图片的响应：author 为用户名。
func (h *Handler) adJSON(ad *storage.Ad) gin.H {
	return gin.H{
		"id":           ad.ID,
		"name":         ad.Name,
		"author":       ad.Author.Username,
		"category":     ad.Category.Name,
		"price":        ad.Price,
		"description":  ad.Description,
		"is_published": ad.IsPublished,
		"image":        h.adSvc.ImageURL(ad),
	}
}
