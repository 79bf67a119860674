package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	chatdomain "github.com/collabnotes/collabnotes/domain/chat"
	"github.com/collabnotes/collabnotes/modules/auth"
	"github.com/collabnotes/collabnotes/modules/broadcast"
	"github.com/collabnotes/collabnotes/modules/chat"
	"github.com/collabnotes/collabnotes/modules/note"
	"github.com/collabnotes/collabnotes/modules/presence"
)

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	auth      *auth.Module
	chat      *chat.Module
	note      *note.Module
	presence  *presence.Module
	broadcast *broadcast.Module
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authModule *auth.Module,
	chatModule *chat.Module,
	noteModule *note.Module,
	presenceModule *presence.Module,
	broadcastModule *broadcast.Module,
) *Handlers {
	return &Handlers{
		auth:      authModule,
		chat:      chatModule,
		note:      noteModule,
		presence:  presenceModule,
		broadcast: broadcastModule,
	}
}

// Register handles user registration and signs the new user in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	u, token, err := h.auth.Service().Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Token: token,
		User:  u.Summarize(),
	})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	u, token, err := h.auth.Service().Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(AuthResponse{
		Token: token,
		User:  u.Summarize(),
	})
}

// Logout marks the user offline and announces it; the token itself stays
// stateless.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if err := h.presence.SetOffline(c.UserContext(), claims.UserID, claims.Username); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	u, err := h.auth.Service().GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

// SearchUsers finds users by username or email fragment, excluding the
// caller.
func (h *Handlers) SearchUsers(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	results, err := h.auth.Service().SearchUsers(c.UserContext(), c.Query("q"), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"users": results})
}

// CreateChatRequest creates a pending chat request.
func (h *Handlers) CreateChatRequest(c *fiber.Ctx) error {
	var req ChatRequestInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.To == "" {
		return badRequest(c, "Recipient is required")
	}

	claims := claimsFrom(c)
	created, err := h.chat.CreateRequest(c.UserContext(), claims.UserID, req.To, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListChatRequests returns the caller's pending requests, newest first.
func (h *Handlers) ListChatRequests(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	requests, err := h.chat.Service().ListRequests(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

// RespondChatRequest accepts or rejects a pending request.
func (h *Handlers) RespondChatRequest(c *fiber.Ctx) error {
	var req RespondInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	result, err := h.chat.RespondToRequest(c.UserContext(), c.Params("id"), claims.UserID, req.Status)
	if err != nil {
		return h.fail(c, err)
	}

	resp := fiber.Map{"request": result.Request}
	if result.Chat != nil {
		resp["chat"] = result.Chat
	}
	return c.JSON(resp)
}

// ListChats returns the caller's visible chats.
func (h *Handlers) ListChats(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	includeArchived := c.QueryBool("includeArchived", false)
	chats, err := h.chat.Service().ListChats(c.UserContext(), claims.UserID, includeArchived)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// ListAllChats returns every chat the caller participates in, including
// deleted and archived ones.
func (h *Handlers) ListAllChats(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	chats, err := h.chat.Service().ListAllChats(c.UserContext(), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// CreateGroup creates a group chat.
func (h *Handlers) CreateGroup(c *fiber.Ctx) error {
	var req GroupInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	created, err := h.chat.CreateGroup(c.UserContext(), claims.UserID, req.Name, req.MemberIDs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateChatSettings changes the caller's own visibility flags on a chat.
func (h *Handlers) UpdateChatSettings(c *fiber.Ctx) error {
	var update chat.SettingsUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	updated, err := h.chat.Service().UpdateSettings(c.UserContext(), c.Params("chatId"), claims.UserID, update)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(updated)
}

// ListMessages returns one page of a chat's history.
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	messages, err := h.chat.Service().ListMessages(c.UserContext(), c.Params("chatId"), claims.UserID, page, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages, "page": page})
}

// ListNotes returns one page of the caller's notes.
func (h *Handlers) ListNotes(c *fiber.Ctx) error {
	claims := claimsFrom(c)

	filter := note.ListFilter{
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	if labels := c.Query("labels"); labels != "" {
		filter.Labels = strings.Split(labels, ",")
	}
	if v := c.Query("archived"); v != "" {
		archived := v == "true"
		filter.Archived = &archived
	}
	if v := c.Query("pinned"); v != "" {
		pinned := v == "true"
		filter.Pinned = &pinned
	}

	page, err := h.note.Service().List(c.UserContext(), claims.UserID, filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

// GetNote returns one note the caller can read.
func (h *Handlers) GetNote(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	n, err := h.note.Service().Get(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(n)
}

// CreateNote creates a note owned by the caller.
func (h *Handlers) CreateNote(c *fiber.Ctx) error {
	var req note.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	n, err := h.note.Service().Create(c.UserContext(), claims.UserID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// UpdateNote applies a partial update to a note the caller can write.
func (h *Handlers) UpdateNote(c *fiber.Ctx) error {
	var req note.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	n, err := h.note.Service().Update(c.UserContext(), c.Params("id"), claims.UserID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(n)
}

// DeleteNote removes a note the caller owns.
func (h *Handlers) DeleteNote(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if err := h.note.Service().Delete(c.UserContext(), c.Params("id"), claims.UserID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Note deleted successfully"})
}

// BulkUpdateNotes applies one update to several notes.
func (h *Handlers) BulkUpdateNotes(c *fiber.Ctx) error {
	var req note.BulkUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims := claimsFrom(c)
	result, err := h.note.Service().BulkUpdate(c.UserContext(), claims.UserID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(result)
}

// ShareNote grants users access to a note the caller owns.
func (h *Handlers) ShareNote(c *fiber.Ctx) error {
	var req ShareInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.UserIDs) == 0 {
		return badRequest(c, "User IDs are required")
	}

	claims := claimsFrom(c)
	n, err := h.note.Share(c.UserContext(), c.Params("id"), claims.UserID, req.UserIDs, req.Permission)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(n)
}

// fail maps a domain error to its HTTP status and JSON body.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrValidation),
		errors.Is(err, chat.ErrSelfRequest),
		errors.Is(err, chat.ErrBadStatus),
		errors.Is(err, chat.ErrMessageEmpty),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrGroupName),
		errors.Is(err, chat.ErrGroupMembers),
		errors.Is(err, note.ErrTitleEmpty),
		errors.Is(err, note.ErrTitleTooLong),
		errors.Is(err, note.ErrContentEmpty),
		errors.Is(err, note.ErrContentTooLong),
		errors.Is(err, note.ErrBadPermission),
		errors.Is(err, note.ErrNoIDs):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, note.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, chat.ErrChatNotFound),
		errors.Is(err, chat.ErrRequestNotFound),
		errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, note.ErrNoteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, chat.ErrRequestExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Server error")
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// messageTypeOrText normalizes a client-supplied message type.
func messageTypeOrText(t string) string {
	switch t {
	case chatdomain.MessageTypeNote, chatdomain.MessageTypeSystem:
		return t
	default:
		return chatdomain.MessageTypeText
	}
}
