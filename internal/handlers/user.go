// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/models"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

// UserHandler serves the administrator-only account endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /users
func (h *UserHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.UserSearchParams{
		PaginationParams: params,
		Role:             models.UserRole(c.Query("role")),
		Active:           queryBool(c, "active"),
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), searchParams)
	if err != nil {
		respondError(c, err, userSubject)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, userSubject)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"user": user,
	})
}

// PUT /users/:id/status
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.SetActive(c.Request.Context(), actorID, id, *req.IsActive)
	if err != nil {
		respondError(c, err, userSubject)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserStatusUpdated),
		"user":    user,
	})
}
