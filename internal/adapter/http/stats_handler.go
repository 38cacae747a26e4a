package http

import (
	"context"
	"net/http"
	"strconv"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *usecase.Stats
	feed  *usecase.Notifications
}

func NewStatsHandler(stats *usecase.Stats, feed *usecase.Notifications) *StatsHandler {
	return &StatsHandler{stats: stats, feed: feed}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	v, err := h.stats.Execute(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, toStatsResp(v), "")
}

// Notifications lists the feed newest first; ?limit= caps the page.
func (h *StatsHandler) Notifications(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(c, &domain.ValidationError{Field: "limit", Msg: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	list, err := h.feed.List(ctx, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]notificationResp, len(list))
	for i, n := range list {
		out[i] = notificationResp{ID: n.ID, Message: n.Message, Type: string(n.Type), Time: n.Time}
	}
	ok(c, http.StatusOK, out, "")
}
