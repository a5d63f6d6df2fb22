package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trash2cash/backend/internal/model"
	"github.com/trash2cash/backend/internal/service"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type UserResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	AvatarURL     *string `json:"avatarUrl,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
	TotalTokens   int64   `json:"totalTokens"`
	ClaimedTokens int64   `json:"claimedTokens"`
	CreatedAt     string  `json:"createdAt"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		AvatarURL:     u.AvatarURL,
		WalletAddress: u.WalletAddress,
		TotalTokens:   u.TotalTokens,
		ClaimedTokens: u.ClaimedTokens,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

func (h *UserHandler) Me(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	name, _ := c.Get("name").(string)
	email, _ := c.Get("email").(string)
	u, err := h.svc.Ensure(c.Request().Context(), uid, name, email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch profile"))
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid request body"))
	}
	u, err := h.svc.UpdateName(c.Request().Context(), uid, body.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("validation_error", err.Error()))
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to update profile"))
		}
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) UploadAvatar(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "image file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read image"))
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "failed to read image"))
	}

	u, err := h.svc.UpdateAvatar(c.Request().Context(), uid, image, fh.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("validation_error", err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to upload avatar"))
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}
