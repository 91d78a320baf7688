package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/ensemble/internal/chat"
)

// Handler carries the chat service into gin handlers.
type Handler struct {
	svc *chat.Service
}

// NewHandler creates the API handler set.
func NewHandler(svc *chat.Service) *Handler {
	return &Handler{svc: svc}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

// failFor maps service errors onto HTTP statuses. Lookup failures are
// 404, validation failures 400, the rest 500.
func failFor(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		fail(c, http.StatusNotFound, 40401, msg)
	case strings.Contains(msg, "cannot be empty"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "members"):
		fail(c, http.StatusBadRequest, 40001, msg)
	default:
		fail(c, http.StatusInternalServerError, 50001, msg)
	}
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"status": "pong"})
}

type createCharacterReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) CreateCharacter(c *gin.Context) {
	var req createCharacterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40001, "name is required")
		return
	}

	profile, err := h.svc.CreateCharacter(c.Request.Context(), req.Name)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, profile)
}

func (h *Handler) ListCharacters(c *gin.Context) {
	profiles, err := h.svc.ListCharacters(c.Request.Context())
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, profiles)
}

func (h *Handler) GetCharacter(c *gin.Context) {
	profile, err := h.svc.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, profile)
}

func (h *Handler) DeleteCharacter(c *gin.Context) {
	if err := h.svc.DeleteCharacter(c.Request.Context(), c.Param("id")); err != nil {
		failFor(c, err)
		return
	}
	ok(c, nil)
}

type soloChatReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SoloChat(c *gin.Context) {
	var req soloChatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40001, "message is required")
		return
	}

	reply, err := h.svc.SoloChat(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, gin.H{"reply": reply})
}

type createGroupReq struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members" binding:"required"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40001, "name and members are required")
		return
	}

	group, err := h.svc.CreateGroup(c.Request.Context(), req.Name, req.Members)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, group)
}

func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.svc.ListGroups(c.Request.Context())
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, groups)
}

func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.svc.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, group)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.svc.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		failFor(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) GroupStats(c *gin.Context) {
	stats, err := h.svc.GroupStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, stats)
}

func (h *Handler) RecallMessages(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, 40001, "query parameter q is required")
		return
	}

	results, err := h.svc.RecallMessages(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, results)
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 40001, "message is required")
		return
	}

	replies, err := h.svc.SendMessage(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, replies)
}

func (h *Handler) Tick(c *gin.Context) {
	msg, err := h.svc.Tick(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFor(c, err)
		return
	}
	ok(c, msg)
}

func (h *Handler) AutonomousStatus(c *gin.Context) {
	status, active := h.svc.AutonomousStatus(c.Param("id"))
	if !active {
		ok(c, gin.H{"active": false})
		return
	}
	ok(c, gin.H{"active": true, "status": status})
}

func (h *Handler) StopAutonomous(c *gin.Context) {
	h.svc.StopAutonomous(c.Param("id"))
	ok(c, nil)
}
