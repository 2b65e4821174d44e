package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/respond"
	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// GetState returns who is signed in.
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, toStateResponse(h.store.State()))
}

// fail reports the message the store recorded for err.
func (h *Handler) fail(c *gin.Context, err error) {
	respond.Fail(c, err, store.MessageOf(err))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	if err := h.store.SignIn(c.Request.Context(), email, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStateResponse(h.store.State()))
}

func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	err := h.store.SignUp(c.Request.Context(), authdomain.SignUpRequest{
		Email:             strings.TrimSpace(req.Email),
		Password:          req.Password,
		Name:              strings.TrimSpace(req.Name),
		AcademicLevel:     authdomain.AcademicLevel(req.AcademicLevel),
		ResearchInterests: respond.SplitList(req.ResearchInterests),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStateResponse(h.store.State()))
}

func (h *Handler) SignOut(c *gin.Context) {
	if err := h.store.SignOut(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStateResponse(h.store.State()))
}

// UpdateProfile applies a partial profile update for the signed-in user.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	var update authdomain.ProfileUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		update.Name = &name
	}
	if req.AcademicLevel != nil {
		level := authdomain.AcademicLevel(*req.AcademicLevel)
		update.AcademicLevel = &level
	}
	if req.ResearchInterests != nil {
		interests := respond.SplitList(*req.ResearchInterests)
		if interests == nil {
			interests = []string{}
		}
		update.ResearchInterests = &interests
	}
	if update.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "nothing to update"})
		return
	}

	if err := h.store.UpdateProfile(c.Request.Context(), update); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStateResponse(h.store.State()))
}

func (h *Handler) ClearError(c *gin.Context) {
	h.store.ClearError()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
