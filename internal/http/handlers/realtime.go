package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/http/response"
	"github.com/yungbote/optocase-backend/internal/observability"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
	"github.com/yungbote/optocase-backend/internal/realtime"
	"github.com/yungbote/optocase-backend/internal/services"
)

type RealtimeHandler struct {
	log         *logger.Logger
	hub         *realtime.SSEHub
	caseService services.CaseService
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *realtime.SSEHub, caseService services.CaseService) *RealtimeHandler {
	return &RealtimeHandler{
		log:         baseLog.With("handler", "RealtimeHandler"),
		hub:         hub,
		caseService: caseService,
	}
}

// Stream opens the SSE connection. GET /events/stream?topics=a,b
//
// Every stream carries the caller's own user channel; extra topics come from
// the query and are authorized one by one. A topic the caller may not read
// fails the whole request rather than being silently dropped.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := caller(c)
	if rd == nil || rd.UserID == uuid.Nil {
		response.ErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token")
		return
	}

	channels := []string{realtime.UserChannel(rd.UserID)}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	for _, topic := range splitTopics(c.Query("topics")) {
		switch {
		case topic == realtime.UserChannel(rd.UserID):
			// already included
		case strings.HasPrefix(topic, "user."):
			response.ErrorCode(c, http.StatusForbidden, "FORBIDDEN", "cannot subscribe to another user's channel")
			return
		default:
			caseID, ok := parseCaseAttemptsTopic(topic)
			if !ok {
				response.ErrorCode(c, http.StatusBadRequest, "BAD_REQUEST", "unknown topic "+topic)
				return
			}
			if err := h.caseService.AssertAuthor(dbc, rd.UserID, rd.Role, caseID); err != nil {
				response.Error(c, h.log, err)
				return
			}
			channels = append(channels, topic)
		}
	}

	client := h.hub.NewSSEClient(rd.UserID)
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	if m := observability.Current(); m != nil {
		m.SSEClientInc()
		defer m.SSEClientDec()
	}
	h.log.Info("SSE stream open", "user_id", rd.UserID, "channels", channels)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "user_id", rd.UserID)
}

func splitTopics(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseCaseAttemptsTopic extracts the case id from "case.<uuid>.attempts".
func parseCaseAttemptsTopic(topic string) (uuid.UUID, bool) {
	if !strings.HasPrefix(topic, "case.") || !strings.HasSuffix(topic, ".attempts") {
		return uuid.Nil, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(topic, "case."), ".attempts")
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
