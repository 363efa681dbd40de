package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/callrelay/internal/adapters/rtc"
	"github.com/dkeye/callrelay/internal/app/orch"
	"github.com/dkeye/callrelay/internal/config"
	"github.com/dkeye/callrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

type handlers struct {
	orch *orch.Orchestrator
	cfg  *config.Config
}

type PresenceResponse struct {
	UserID domain.UserID `json:"userId"`
	Online bool          `json:"online"`
}

type RoomsResponse struct {
	Rooms []domain.RoomInfo `json:"rooms"`
}

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func (h *handlers) presence(c *gin.Context) {
	id, err := domain.ParseUserID(c.Param("userId"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, PresenceResponse{UserID: id, Online: h.orch.Registry.Online(id)})
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms := h.orch.Rooms.List()
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	c.JSON(http.StatusOK, RoomsResponse{Rooms: rooms})
}

// room reports zero members for rooms nobody has joined; rooms only exist
// while occupied.
func (h *handlers) room(c *gin.Context) {
	id, err := domain.ParseRoomID(c.Param("room"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.RoomInfo{ID: id, MemberCount: h.orch.Rooms.MemberCount(id)})
}

func (h *handlers) iceServers(c *gin.Context) {
	servers := rtc.Configuration(h.cfg.WebRTC.ICEServers).ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	c.JSON(http.StatusOK, ICEServersResponse{ICEServers: servers})
}

func badRequest(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrUserIDEmpty), errors.Is(err, domain.ErrRoomIDEmpty):
		msg = "empty id"
	case errors.Is(err, domain.ErrUserIDTooLong), errors.Is(err, domain.ErrRoomIDTooLong):
		msg = "id too long"
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
