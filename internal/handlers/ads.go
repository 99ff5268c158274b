package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adboard/internal/metrics"
	"adboard/internal/middlewares"
	"adboard/internal/services"
)

// 允许上传的图片类型（按内容嗅探，而非文件名或客户端声明）。
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type createAdRequest struct {
	Author      string       `json:"author" binding:"required"`
	Category    string       `json:"category" binding:"required"`
	Name        string       `json:"name" binding:"required,max=255"`
	Price       *wholeNumber `json:"price" binding:"required,min=0"`
	Description *string      `json:"description" binding:"required"`
	IsPublished *bool        `json:"is_published"`
}

type updateAdRequest struct {
	Name        *string      `json:"name" binding:"omitempty,min=1,max=255"`
	Price       *wholeNumber `json:"price" binding:"omitempty,min=0"`
	Description *string      `json:"description"`
	IsPublished *bool        `json:"is_published"`
	Author      *string      `json:"author" binding:"omitempty,min=1"`
	Category    *string      `json:"category" binding:"omitempty,min=1"`
}

// @Summary      广告列表
// @Description  按价格降序分页返回广告；越界页码返回最后一页，非法页码返回第一页
// @Tags         ads
// @Produce      json
// @Param        page query int false "页码"
// @Success      200 {object} map[string]interface{} "{items_list,total,num_pages}"
// @Router       /ad/ [get]
func (h *Handler) listAds(c *gin.Context) {
	page, err := h.adSvc.List(c, c.Query("page"))
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, h.adItemJSON(&page.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"items_list": items,
		"total":      page.Total,
		"num_pages":  page.NumPages,
	})
}

// @Summary      创建广告
// @Description  作者按用户名、分类按名称解析；is_published 缺省为 false
// @Tags         ads
// @Accept       json
// @Produce      json
// @Param        body body object true "{author,category,name,price,description,is_published?}"
// @Success      201 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{}
// @Failure      404 {object} map[string]string
// @Router       /ad/create/ [post]
func (h *Handler) createAd(c *gin.Context) {
	var req createAdRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.AdInput{
		Author:      req.Author,
		Category:    req.Category,
		Name:        req.Name,
		Price:       int64(*req.Price),
		Description: *req.Description,
	}
	if req.IsPublished != nil {
		in.IsPublished = *req.IsPublished
	}
	ad, err := h.adSvc.Create(c, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AdMutations.WithLabelValues("create").Inc()
	h.audit(c, services.AuditAdCreated, ad, "ad created by "+ad.Author.Username)
	c.JSON(http.StatusCreated, gin.H{
		"id":           ad.ID,
		"name":         ad.Name,
		"author":       ad.Author.Username,
		"price":        ad.Price,
		"description":  ad.Description,
		"category":     ad.Category.Name,
		"is_published": ad.IsPublished,
	})
}

// @Summary      广告详情
// @Tags         ads
// @Produce      json
// @Param        id path int true "广告ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]string
// @Router       /ad/{id}/ [get]
func (h *Handler) getAd(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ad, err := h.adSvc.Get(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.adJSON(ad))
}

// @Summary      更新广告
// @Description  仅更新请求中出现的字段；author/category 按用户名/分类名解析
// @Tags         ads
// @Accept       json
// @Produce      json
// @Param        id path int true "广告ID"
// @Param        body body object true "{name?,price?,description?,is_published?,author?,category?}"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]interface{}
// @Failure      404 {object} map[string]string
// @Router       /ad/{id}/update/ [patch]
func (h *Handler) updateAd(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateAdRequest
	if !bindJSON(c, &req) {
		return
	}
	ad, err := h.adSvc.Update(c, id, services.AdPatch{
		Name:        req.Name,
		Price:       req.Price.int64p(),
		Description: req.Description,
		IsPublished: req.IsPublished,
		Author:      req.Author,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AdMutations.WithLabelValues("update").Inc()
	h.audit(c, services.AuditAdUpdated, ad, "ad updated")
	c.JSON(http.StatusOK, h.adJSON(ad))
}

// @Summary      删除广告
// @Tags         ads
// @Param        id path int true "广告ID"
// @Success      204 {string} string "No Content"
// @Failure      404 {object} map[string]string
// @Router       /ad/{id}/delete/ [delete]
func (h *Handler) deleteAd(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.adSvc.Delete(c, id); err != nil {
		respondError(c, err)
		return
	}
	metrics.AdMutations.WithLabelValues("delete").Inc()
	if h.auditSvc != nil {
		h.auditSvc.Write(c, services.AuditAdDeleted, id, "ad deleted", c.GetString(middlewares.RequestIDKey), c.ClientIP())
	}
	c.Status(http.StatusNoContent)
}

// @Summary      上传广告图片
// @Description  multipart 字段 image；仅接受 JPEG/PNG/GIF/WebP
// @Tags         ads
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path     int  true "广告ID"
// @Param        image formData file true "图片"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Failure      413 {object} map[string]string
// @Router       /ad/{id}/upload_image/ [post]
func (h *Handler) uploadAdImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if h.cfg.Media.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Media.MaxUploadBytes)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_required"})
		return
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_required"})
		return
	}
	contentType := http.DetectContentType(head[:n])
	if n == 0 || !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_image", "content_type": contentType})
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "media"})
		return
	}

	ad, err := h.adSvc.SetImage(c, id, fh.Filename, contentType, fh.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AdMutations.WithLabelValues("upload_image").Inc()
	metrics.ImageUploadBytes.Add(float64(fh.Size))
	h.audit(c, services.AuditAdImageUploaded, ad, fmt.Sprintf("image %s (%s, %d bytes)", ad.Image, contentType, fh.Size))
	c.JSON(http.StatusOK, h.adJSON(ad))
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
