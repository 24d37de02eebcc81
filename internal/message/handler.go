package message

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

// Handler handles HTTP requests for messaging operations
type Handler struct {
	service *Service
}

// NewHandler creates a new message handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for message endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Send)
	r.Get("/unread-count", h.UnreadCount)
	r.Get("/recent-conversations", h.RecentPartners)
	r.Get("/conversation/{userId}", h.DirectThread)
	r.Post("/conversation/{userId}/read", h.MarkThreadRead)
	r.Get("/conversations/{conversationId}", h.ConversationThread)
	r.Post("/{messageId}/read", h.MarkRead)

	return r
}

// Send handles POST /messages
// @Summary      Send a message
// @Description  Send a message to a recipient, optionally tagged with a conversation and a reply link
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body SendMessageRequest true "Message request"
// @Success      201 {object} response.APIResponse{data=MessageResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /messages [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	message, err := h.service.Send(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to send message")
		return
	}

	response.JSON(w, http.StatusCreated, message)
}

// DirectThread handles GET /messages/conversation/{userId}
// @Summary      Get direct thread
// @Description  Get the messages exchanged with another user, oldest first
// @Tags         messages
// @Produce      json
// @Param        userId path int true "Other user ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]MessageResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /messages/conversation/{userId} [get]
func (h *Handler) DirectThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	otherID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	page, perPage := parsePagination(r)
	messages, total, err := h.service.GetDirectThread(r.Context(), userID, otherID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to get messages")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, messages, paginationMeta(page, perPage, total))
}

// ConversationThread handles GET /messages/conversations/{conversationId}
// @Summary      Get conversation thread
// @Description  Get a conversation's messages, oldest first; participants only
// @Tags         messages
// @Produce      json
// @Param        conversationId path int true "Conversation ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]MessageResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /messages/conversations/{conversationId} [get]
func (h *Handler) ConversationThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid conversation ID")
		return
	}

	page, perPage := parsePagination(r)
	messages, total, err := h.service.GetConversationThread(r.Context(), userID, conversationID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to get messages")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, messages, paginationMeta(page, perPage, total))
}

// MarkRead handles POST /messages/{messageId}/read
// @Summary      Mark a message read
// @Description  Mark a message as read; only its recipient may do this, repeat calls are no-ops
// @Tags         messages
// @Produce      json
// @Param        messageId path int true "Message ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /messages/{messageId}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid message ID")
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, messageID); err != nil {
		h.writeError(w, err, "Failed to mark message as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Message marked as read"})
}

// MarkThreadRead handles POST /messages/conversation/{userId}/read
// @Summary      Mark a direct thread read
// @Description  Mark every unread message from the given user as read
// @Tags         messages
// @Produce      json
// @Param        userId path int true "Other user ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /messages/conversation/{userId}/read [post]
func (h *Handler) MarkThreadRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	otherID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.MarkThreadRead(r.Context(), userID, otherID); err != nil {
		h.writeError(w, err, "Failed to mark thread as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Thread marked as read"})
}

// UnreadCount handles GET /messages/unread-count
// @Summary      Get unread count
// @Description  Count the authenticated user's unread messages
// @Tags         messages
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /messages/unread-count [get]
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Failed to count unread messages")
		return
	}

	response.JSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

// RecentPartners handles GET /messages/recent-conversations
// @Summary      List recent partners
// @Description  Get the users the authenticated user recently exchanged messages with
// @Tags         messages
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse
// @Router       /messages/recent-conversations [get]
func (h *Handler) RecentPartners(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, perPage := parsePagination(r)
	partners, total, err := h.service.RecentPartners(r.Context(), userID, page, perPage)
	if err != nil {
		h.writeError(w, err, "Failed to list recent conversations")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, partners, paginationMeta(page, perPage, total))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrRecipientNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrReplyNotFound),
		errors.Is(err, ErrConversationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotRecipient):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrEmptyContent):
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
