package httpapi

import (
	"log/slog"
	"net/http"

	"courier/errors"
	"courier/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

// fail maps the error taxonomy to a status code. Internal detail stays out
// of the body for 5xx responses.
func fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, response{Success: false, Message: msg})
}

type Handlers struct {
	accounts      services.IAccountService
	conversations services.IConversationService
	messages      services.IMessageService
	log           *slog.Logger
}

func NewHandlers(accounts services.IAccountService, conversations services.IConversationService,
	messages services.IMessageService, log *slog.Logger) *Handlers {
	return &Handlers{
		accounts:      accounts,
		conversations: conversations,
		messages:      messages,
		log:           log,
	}
}

type registerBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	profile, err := h.accounts.Register(body.Name, body.Email, body.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, profile)
}

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResult struct {
	Account any    `json:"account"`
	Token   string `json:"token"`
}

func (h *Handlers) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	profile, token, err := h.accounts.Login(body.Email, body.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, loginResult{Account: profile, Token: token})
}

func (h *Handlers) VerifyEmail(c *gin.Context) {
	profile, err := h.accounts.VerifyEmail(c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

func (h *Handlers) SearchAccounts(c *gin.Context) {
	query := c.Query("q")
	profiles, err := h.accounts.Search(c.Request.Context(), query, sessionAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, profiles)
}

type updateProfileBody struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (h *Handlers) UpdateProfile(c *gin.Context) {
	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	profile, err := h.accounts.UpdateProfile(sessionAccount(c), body.Name, body.Avatar)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

func (h *Handlers) DeactivateAccount(c *gin.Context) {
	if err := h.accounts.Deactivate(sessionAccount(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createConversationBody struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
	Name          string    `json:"name"`
}

func (h *Handlers) CreateConversation(c *gin.Context) {
	var body createConversationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	view, err := h.conversations.Create(sessionAccount(c), body.ParticipantID, body.Name)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

func (h *Handlers) GetConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid conversation id"))
		return
	}

	view, err := h.conversations.Get(conversationID, sessionAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

func (h *Handlers) ListConversations(c *gin.Context) {
	summaries, err := h.conversations.ListForAccount(sessionAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, summaries)
}

func (h *Handlers) DeleteConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid conversation id"))
		return
	}

	if err := h.conversations.Delete(conversationID, sessionAccount(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type sendMessageBody struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handlers) SendMessage(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid conversation id"))
		return
	}
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	msg, err := h.messages.Send(sessionAccount(c), conversationID, body.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

func (h *Handlers) ListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid conversation id"))
		return
	}

	messages, err := h.messages.ListByConversation(conversationID, sessionAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, messages)
}

type updateMessageBody struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handlers) UpdateMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid message id"))
		return
	}
	var body updateMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errors.BadRequest("invalid request body"))
		return
	}

	msg, err := h.messages.Update(messageID, sessionAccount(c), body.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}

func (h *Handlers) DeleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, errors.BadRequest("invalid message id"))
		return
	}

	msg, err := h.messages.Delete(messageID, sessionAccount(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, msg)
}
