package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type devCreateUserRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

// @Summary      开发辅助：创建用户
// @Description  仅在非 prod 环境开放
// @Tags         dev
// @Accept       json
// @Produce      json
// @Param        body body object true "{username,first_name?,last_name?}"
// @Success      201 {object} map[string]interface{}
// @Failure      409 {object} map[string]string
// @Router       /dev/users [post]
func (h *Handler) devCreateUser(c *gin.Context) {
	var req devCreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.userSvc.Create(c, req.Username, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username, "first_name": u.FirstName, "last_name": u.LastName})
}

// @Summary      开发辅助：列出用户
// @Tags         dev
// @Produce      json
// @Param        limit query int false "最多返回条数"
// @Success      200 {array} map[string]interface{}
// @Router       /dev/users [get]
func (h *Handler) devListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	users, err := h.userSvc.List(c, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "username": u.Username, "first_name": u.FirstName, "last_name": u.LastName})
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      开发辅助：查看用户
// @Tags         dev
// @Produce      json
// @Param        id path int true "用户ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]string
// @Router       /dev/users/{id} [get]
func (h *Handler) devGetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.userSvc.FindByID(c, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username, "first_name": u.FirstName, "last_name": u.LastName})
}
