package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// HeaderIdempotencyKey lets a client safely retry POST /users.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	msgNoUsers        = "No users exist. Try adding one."
	msgUserCreated    = "User created"
	msgUserUpdated    = "User updated"
	msgUserDeleted    = "User deleted"
	msgUpdateNotFound = "User not found with that ID"
	msgDeleteNotFound = "No user exists with that ID"
	msgInvalidPayload = "invalid payload"
)

// UserHandler handles HTTP requests for the user directory.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /users.
//
// An empty directory is answered with 200, an empty list and an informational msg.
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Success      200  {object}  listUsersResponse
// @Failure      500  {object}  messageResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(users))
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string             false  "Key that makes retries of this request safe"
// @Param        body             body      createUserRequest  true   "User fields"
// @Success      201              {object}  userEnvelopeResponse
// @Failure      400              {object}  messageResponse
// @Failure      409              {object}  messageResponse
// @Failure      500              {object}  messageResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidPayload)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	res, err := h.service.Create(c.Request().Context(), toCreateInput(req, key))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, userEnvelopeResponse{
		Msg:  msgUserCreated,
		User: toUserResponse(*res.User),
	})
}

// Update handles PATCH /users/:id.
//
// @Summary      Partially update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  userEnvelopeResponse
// @Failure      400   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidPayload)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.Update(c.Request().Context(), toUpdateInput(c.Param("id"), req))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, msgUpdateNotFound)
		}
		return err
	}

	return c.JSON(http.StatusOK, userEnvelopeResponse{
		Msg:  msgUserUpdated,
		User: toUserResponse(*user),
	})
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, msgDeleteNotFound)
		}
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Msg: msgUserDeleted})
}
