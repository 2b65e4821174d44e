package http

import (
	"context"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// Store is the part of the auth store the handlers drive.
type Store interface {
	State() store.AuthState
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req authdomain.SignUpRequest) error
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, update authdomain.ProfileUpdate) error
	ClearError()
}

type Handler struct {
	store Store
}

func New(s Store) *Handler {
	return &Handler{store: s}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signUpRequest struct {
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required,min=6"`
	ConfirmPassword   string `json:"confirm_password" binding:"required,eqfield=Password"`
	Name              string `json:"name" binding:"required,min=2"`
	AcademicLevel     string `json:"academic_level" binding:"required,oneof=undergraduate graduate phd professor researcher"`
	ResearchInterests string `json:"research_interests"`
}

// updateProfileRequest is a partial update; absent fields are left untouched.
// Research interests arrive comma-separated like on sign-up.
type updateProfileRequest struct {
	Name              *string `json:"name" binding:"omitempty,min=2"`
	AcademicLevel     *string `json:"academic_level" binding:"omitempty,oneof=undergraduate graduate phd professor researcher"`
	ResearchInterests *string `json:"research_interests"`
}

type stateResponse struct {
	OK       bool                    `json:"ok"`
	SignedIn bool                    `json:"signed_in"`
	User     *authdomain.UserProfile `json:"user"`
	Loading  bool                    `json:"loading"`
	Error    *string                 `json:"error"`
}

func toStateResponse(st store.AuthState) stateResponse {
	return stateResponse{
		OK:       true,
		SignedIn: st.SignedIn(),
		User:     st.User,
		Loading:  st.Loading,
		Error:    st.Error,
	}
}
