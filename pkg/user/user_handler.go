package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adflow/erp-calendar/internal/rest"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Uid             string `json:"uid"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	GoogleConnected bool   `json:"googleConnected"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CreateUser godoc
// @Summary Create a new user
// @Tags User
// @Accept json
// @Produce json
// @Param user body UserDTO true "User"
// @Success 201 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating user")

	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid request body format", "")
		return
	}

	createdUser, err := h.userService.CreateUser(r.Context(), User{
		Uid:         dto.Uid,
		Username:    dto.Username,
		DisplayName: dto.DisplayName,
	})
	if err != nil {
		if errors.Is(err, ErrUserDataInvalid) {
			rest.WriteError(w, http.StatusBadRequest, "bad_request", "Invalid user data", "uid and username are required")
			return
		}
		log.Errorf("failed to create user: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to create user", "")
		return
	}
	log.Tracef("Created user: %d", createdUser.Id)

	rest.WriteJSON(w, http.StatusCreated, userToDTO(createdUser))
}

// CurrentUser godoc
// @Summary Get current user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 403 {string} string "User not found"
// @Router /api/user/current [get]
// @Security XUserId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	currentUser, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) || errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusForbidden)
			return
		}
		log.Errorf("failed to get current user: %v", err)
		http.Error(w, "failed to get current user", http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusOK, userToDTO(currentUser))
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Uid:             u.Uid,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		GoogleConnected: u.Google.Connected(),
	}
}
