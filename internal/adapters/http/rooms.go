package http

import (
	"net/http"

	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/domain"
	"github.com/gin-gonic/gin"
)

type roomHandler struct {
	rooms core.RoomManager
}

func (h *roomHandler) list(c *gin.Context) {
	respond(c, http.StatusOK, "rooms", h.rooms.List())
}

func (h *roomHandler) members(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	if !h.rooms.Exists(id) {
		fail(c, domain.ErrNotFound)
		return
	}
	respond(c, http.StatusOK, "room members", h.rooms.MembersOf(id))
}
