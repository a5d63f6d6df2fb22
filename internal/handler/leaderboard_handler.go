package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/trash2cash/backend/internal/service"
)

type LeaderboardHandler struct {
	svc service.LeaderboardService
}

func NewLeaderboardHandler(svc service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc}
}

type LeaderboardEntryResponse struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"userId"`
	Name             string  `json:"name"`
	AvatarURL        *string `json:"avatarUrl,omitempty"`
	TotalTokens      int64   `json:"totalTokens"`
	TotalItems       int64   `json:"totalItems"`
	TotalSubmissions int64   `json:"totalSubmissions"`
}

func (h *LeaderboardHandler) Top(c echo.Context) error {
	timeframe := c.QueryParam("timeframe")
	switch timeframe {
	case "", "weekly", "monthly", "alltime":
	default:
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "timeframe must be weekly, monthly or alltime"))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.svc.Top(c.Request().Context(), timeframe, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch leaderboard"))
	}
	resp := make([]LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LeaderboardEntryResponse{
			Rank:             e.Rank,
			UserID:           e.UserID,
			Name:             e.Name,
			AvatarURL:        e.AvatarURL,
			TotalTokens:      e.TotalTokens,
			TotalItems:       e.TotalItems,
			TotalSubmissions: e.TotalSubmissions,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
