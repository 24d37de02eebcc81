package conversation

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

// Handler handles HTTP requests for conversation operations
type Handler struct {
	service *Service
}

// NewHandler creates a new conversation handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for conversation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{conversationId}", h.Get)
	r.Post("/{conversationId}/participants", h.AddParticipant)
	r.Delete("/{conversationId}/participants/{userId}", h.RemoveParticipant)
	r.Post("/{conversationId}/admins", h.MakeAdmin)
	r.Post("/{conversationId}/leave", h.Leave)

	return r
}

// Create handles POST /conversations
// @Summary      Create a conversation
// @Description  Create a group conversation with the authenticated user as creator and admin
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        request body CreateConversationRequest true "Conversation creation request"
// @Success      201 {object} response.APIResponse{data=ConversationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	conversation, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to create conversation")
		return
	}

	response.JSON(w, http.StatusCreated, conversation)
}

// List handles GET /conversations
// @Summary      List conversations
// @Description  Get the authenticated user's conversations, most recently updated first
// @Tags         conversations
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ConversationResponse}
// @Router       /conversations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	conversations, total, err := h.service.ListForUser(r.Context(), userID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list conversations")
		return
	}

	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	response.JSONWithMeta(w, http.StatusOK, conversations, meta)
}

// Get handles GET /conversations/{conversationId}
// @Summary      Get a conversation
// @Description  Get a conversation; the authenticated user must be a participant
// @Tags         conversations
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Success      200 {object} response.APIResponse{data=ConversationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations/{conversationId} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := h.conversationID(r)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	conversation, err := h.service.Get(r.Context(), userID, conversationID)
	if err != nil {
		h.writeError(w, err, "Failed to get conversation")
		return
	}

	response.JSON(w, http.StatusOK, conversation)
}

// AddParticipant handles POST /conversations/{conversationId}/participants
// @Summary      Add a participant
// @Description  Add a user to a conversation; only admins may add participants
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Param        request body AddParticipantRequest true "Participant request"
// @Success      200 {object} response.APIResponse{data=ConversationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations/{conversationId}/participants [post]
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := h.conversationID(r)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	conversation, err := h.service.AddParticipant(r.Context(), userID, conversationID, req.UserID)
	if err != nil {
		h.writeError(w, err, "Failed to add participant")
		return
	}

	response.JSON(w, http.StatusOK, conversation)
}

// RemoveParticipant handles DELETE /conversations/{conversationId}/participants/{userId}
// @Summary      Remove a participant
// @Description  Remove a user from a conversation; only admins, and never the creator
// @Tags         conversations
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse{data=ConversationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations/{conversationId}/participants/{userId} [delete]
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := h.conversationID(r)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	conversation, err := h.service.RemoveParticipant(r.Context(), userID, conversationID, targetID)
	if err != nil {
		h.writeError(w, err, "Failed to remove participant")
		return
	}

	response.JSON(w, http.StatusOK, conversation)
}

// MakeAdmin handles POST /conversations/{conversationId}/admins
// @Summary      Make a participant admin
// @Description  Grant admin rights to a participant; only admins may do this
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Param        request body MakeAdminRequest true "Admin request"
// @Success      200 {object} response.APIResponse{data=ConversationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations/{conversationId}/admins [post]
func (h *Handler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := h.conversationID(r)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	var req MakeAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	conversation, err := h.service.MakeAdmin(r.Context(), userID, conversationID, req.UserID)
	if err != nil {
		h.writeError(w, err, "Failed to make admin")
		return
	}

	response.JSON(w, http.StatusOK, conversation)
}

// Leave handles POST /conversations/{conversationId}/leave
// @Summary      Leave a conversation
// @Description  Leave a conversation; the creator cannot leave
// @Tags         conversations
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /conversations/{conversationId}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := h.conversationID(r)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	if err := h.service.Leave(r.Context(), userID, conversationID); err != nil {
		h.writeError(w, err, "Failed to leave conversation")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Left conversation"})
}

func (h *Handler) conversationID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "conversationId"), 10, 64)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotAdmin), errors.Is(err, ErrNotParticipant):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyParticipant),
		errors.Is(err, ErrCannotRemoveCreator),
		errors.Is(err, ErrCreatorCannotLeave):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
