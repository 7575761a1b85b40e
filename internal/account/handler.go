package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/session"
)

// Handler exposes registration, login and profile endpoints.
type Handler struct {
	service  *Service
	sessions session.Store
	ttl      time.Duration
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service, sessions session.Store, sessionTTL time.Duration) *Handler {
	return &Handler{service: service, sessions: sessions, ttl: sessionTTL}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type userResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	Bio                string    `json:"bio,omitempty"`
	ActiveMembershipID string    `json:"active_membership_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func toUserResponse(user User) userResponse {
	return userResponse{
		ID:                 user.ID,
		Email:              user.Email,
		Username:           user.Username,
		Bio:                user.Bio,
		ActiveMembershipID: user.ActiveMembershipID,
		CreatedAt:          user.CreatedAt,
	}
}

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"ok": true, "user": toUserResponse(user)})
}

// Login verifies credentials and opens a server-side session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		identifier = req.Email
	}

	user, err := h.service.Authenticate(c.UserContext(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	sessionID, err := h.sessions.Create(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not open session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(h.ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "user": toUserResponse(user)})
}

// Logout destroys the current session and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID != "" {
		if err := h.sessions.Destroy(c.UserContext(), sessionID); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "could not close session")
		}
	}
	c.ClearCookie(session.CookieName)
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
}

// UpdateProfile applies mutable profile fields for the session user.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.UpdateProfile(c.UserContext(), userID, ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Bio:      req.Bio,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true, "user": toUserResponse(user)})
}
