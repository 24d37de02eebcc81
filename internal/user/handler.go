package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clipnest/messaging/pkg/middleware"
	"github.com/clipnest/messaging/pkg/response"
)

var validate = validator.New()

// Handler handles HTTP requests for user and follow-graph operations
type Handler struct {
	service *Service
}

// NewHandler creates a new user handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for user endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.GetMe)
	r.Put("/me", h.UpdateProfile)
	r.Post("/change-password", h.ChangePassword)
	r.Get("/search", h.Search)
	r.Get("/follow-requests", h.ListFollowRequests)
	r.Post("/follow-requests/{requestId}/accept", h.AcceptFollowRequest)
	r.Post("/follow-requests/{requestId}/reject", h.RejectFollowRequest)
	r.Get("/{username}", h.GetByUsername)
	r.Post("/{username}/follow", h.Follow)
	r.Delete("/{username}/follow", h.Unfollow)
	r.Get("/{username}/followers", h.Followers)
	r.Get("/{username}/following", h.Following)

	return r
}

// GetMe handles GET /users/me
// @Summary      Get current user
// @Description  Get the authenticated user's own profile
// @Tags         users
// @Produce      json
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// GetByUsername handles GET /users/{username}
// @Summary      Get user by username
// @Description  Get a user's profile annotated from the viewer's perspective
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username} [get]
func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.GetByUsername(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /users/me
// @Summary      Update profile
// @Description  Update the authenticated user's profile attributes
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile update request"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /users/me [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update profile")
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// ChangePassword handles POST /users/change-password
// @Summary      Change password
// @Description  Change the authenticated user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Password change request"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /users/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, &req); err != nil {
		h.writeError(w, err, "Failed to change password")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// Search handles GET /users/search
// @Summary      Search users
// @Description  Search users by username or name
// @Tags         users
// @Produce      json
// @Param        q query string true "Search query"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]UserResponse}
// @Router       /users/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query().Get("q")
	page, perPage := parsePagination(r)

	users, total, err := h.service.Search(r.Context(), userID, query, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to search users")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, users, paginationMeta(page, perPage, total))
}

// Follow handles POST /users/{username}/follow
// @Summary      Follow a user
// @Description  Follow a public user directly, or send a follow request to a private user
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username}/follow [post]
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.Follow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err, "Failed to follow user")
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// Unfollow handles DELETE /users/{username}/follow
// @Summary      Unfollow a user
// @Description  Remove the authenticated user's follow edge to the target
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username}/follow [delete]
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.service.Unfollow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, err, "Failed to unfollow user")
		return
	}

	response.JSON(w, http.StatusOK, user)
}

// Followers handles GET /users/{username}/followers
// @Summary      List followers
// @Description  Get a paginated list of the user's followers
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]UserResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username}/followers [get]
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, perPage := parsePagination(r)
	users, total, err := h.service.Followers(r.Context(), userID, chi.URLParam(r, "username"), page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list followers")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, users, paginationMeta(page, perPage, total))
}

// Following handles GET /users/{username}/following
// @Summary      List following
// @Description  Get a paginated list of users the user follows
// @Tags         users
// @Produce      json
// @Param        username path string true "Username"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]UserResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{username}/following [get]
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, perPage := parsePagination(r)
	users, total, err := h.service.Following(r.Context(), userID, chi.URLParam(r, "username"), page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list following")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, users, paginationMeta(page, perPage, total))
}

// ListFollowRequests handles GET /users/follow-requests
// @Summary      List follow requests
// @Description  Get the pending follow requests addressed to the authenticated user
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]FollowRequestResponse}
// @Router       /users/follow-requests [get]
func (h *Handler) ListFollowRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, perPage := parsePagination(r)
	requests, total, err := h.service.FollowRequests(r.Context(), userID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list follow requests")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, requests, paginationMeta(page, perPage, total))
}

// AcceptFollowRequest handles POST /users/follow-requests/{requestId}/accept
// @Summary      Accept a follow request
// @Description  Accept a pending follow request addressed to the authenticated user
// @Tags         users
// @Produce      json
// @Param        requestId path int true "Follow request ID"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/follow-requests/{requestId}/accept [post]
func (h *Handler) AcceptFollowRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	requester, err := h.service.AcceptFollowRequest(r.Context(), userID, requestID)
	if err != nil {
		h.writeError(w, err, "Failed to accept follow request")
		return
	}

	response.JSON(w, http.StatusOK, requester)
}

// RejectFollowRequest handles POST /users/follow-requests/{requestId}/reject
// @Summary      Reject a follow request
// @Description  Reject a pending follow request addressed to the authenticated user
// @Tags         users
// @Produce      json
// @Param        requestId path int true "Follow request ID"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/follow-requests/{requestId}/reject [post]
func (h *Handler) RejectFollowRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	if err := h.service.RejectFollowRequest(r.Context(), userID, requestID); err != nil {
		h.writeError(w, err, "Failed to reject follow request")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Follow request rejected"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRequestNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotRequestee):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailAlreadyInUse):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrCannotFollowSelf),
		errors.Is(err, ErrAlreadyFollowing),
		errors.Is(err, ErrNotFollowing),
		errors.Is(err, ErrRequestAlreadySent),
		errors.Is(err, ErrRequestNotPending),
		errors.Is(err, ErrWrongPassword):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return page, perPage
}

func paginationMeta(page, perPage, total int) *response.Meta {
	return &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}
