package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createCategoryRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// @Summary      分类列表
// @Tags         categories
// @Produce      json
// @Success      200 {array} map[string]interface{}
// @Router       /cat/ [get]
func (h *Handler) listCategories(c *gin.Context) {
	list, err := h.catSvc.List(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, cat := range list {
		out = append(out, gin.H{"id": cat.ID, "name": cat.Name})
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      创建分类
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        body body object true "{name}"
// @Success      201 {object} map[string]interface{}
// @Failure      409 {object} map[string]string
// @Router       /cat/create/ [post]
func (h *Handler) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.catSvc.Create(c, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": cat.ID, "name": cat.Name})
}
