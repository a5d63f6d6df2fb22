package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/service"
)

type ClaimHandler struct {
	svc service.ClaimService
}

func NewClaimHandler(svc service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

type ClaimResponse struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	Amount        int64   `json:"amount"`
	Status        string  `json:"status"`
	TxHash        *string `json:"txHash,omitempty"`
	FailReason    string  `json:"failReason,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

func toClaimResponse(c *model.TokenClaim) ClaimResponse {
	return ClaimResponse{
		ID:            c.ID,
		WalletAddress: c.WalletAddress,
		Amount:        c.Amount,
		Status:        string(c.Status),
		TxHash:        c.TxHash,
		FailReason:    c.FailReason,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

type TokenStatsResponse struct {
	TotalEarned      int64 `json:"totalEarned"`
	AvailableToClaim int64 `json:"availableToClaim"`
	Claimed          int64 `json:"claimed"`
}

func (h *ClaimHandler) Submit(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body struct {
		WalletAddress string `json:"walletAddress"`
		Amount        int64  `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request body"))
	}

	claim, err := h.svc.SubmitClaim(c.Request().Context(), uid, body.WalletAddress, body.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("validation_error", err.Error()))
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("insufficient_balance", "amount exceeds your available balance"))
		case errors.Is(err, service.ErrClaimInFlight):
			return c.JSON(http.StatusConflict, NewErrorResponse("claim_in_flight", "another claim is already in progress"))
		case errors.Is(err, service.ErrWalletRejected):
			return c.JSON(http.StatusBadGateway, NewErrorResponse("wallet_rejected", "the transaction was rejected; you can retry"))
		case errors.Is(err, service.ErrLedgerWrite):
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("claim_unrecorded",
				"your tokens were sent but we couldn't update your history; contact support if it persists"))
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to submit claim"))
		}
	}

	// A claim still pending here outlived the confirmation window; the
	// reconciler finishes it once the chain settles.
	if claim.Status == model.ClaimStatusPending {
		return c.JSON(http.StatusAccepted, toClaimResponse(claim))
	}
	return c.JSON(http.StatusCreated, toClaimResponse(claim))
}

func (h *ClaimHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch claims"))
	}
	resp := make([]ClaimResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toClaimResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ClaimHandler) Stats(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	stats, err := h.svc.Stats(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch stats"))
	}
	return c.JSON(http.StatusOK, TokenStatsResponse{
		TotalEarned:      stats.TotalEarned,
		AvailableToClaim: stats.Available,
		Claimed:          stats.Claimed,
	})
}
