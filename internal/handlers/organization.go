package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/auratask/internal/dto"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/services"
)

// NotifierStats exposes delivery counters of the email dispatcher.
type NotifierStats interface {
	Stats() notify.Stats
}

type OrganizationHandler struct {
	orgService         *services.OrganizationService
	memberService      *services.MemberService
	performanceService *services.PerformanceService
	notifier           NotifierStats
}

func NewOrganizationHandler(
	orgService *services.OrganizationService,
	memberService *services.MemberService,
	performanceService *services.PerformanceService,
	notifier NotifierStats,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:         orgService,
		memberService:      memberService,
		performanceService: performanceService,
		notifier:           notifier,
	}
}

// GetOrganization returns the current user's organization
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(c.Request.Context(), actor)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// GetTrialStatus reports the free trial state
func (h *OrganizationHandler) GetTrialStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	status, err := h.orgService.TrialStatus(c.Request.Context(), actor)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListMembers returns the roster visible to the current user
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]dto.UserDTO, len(members))
	for i, m := range members {
		out[i] = dto.ToUserDTO(m)
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// CreateInvite invites a new member by email
func (h *OrganizationHandler) CreateInvite(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type InviteRequest struct {
		Email string      `json:"email" binding:"required,email"`
		Role  models.Role `json:"role"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	created, err := h.memberService.CreateInvite(c.Request.Context(), actor, req.Email, req.Role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invite":      dto.ToInviteDTO(*created.Invite),
		"invite_link": created.InviteLink,
	})
}

// ListInvites returns the organization's invites
func (h *OrganizationHandler) ListInvites(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	invites, err := h.memberService.ListInvites(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]dto.InviteDTO, len(invites))
	for i, invite := range invites {
		out[i] = dto.ToInviteDTO(invite)
	}
	c.JSON(http.StatusOK, gin.H{"invites": out})
}

// AcceptInvite joins an organization through an invite token and signs the
// new member in.
func (h *OrganizationHandler) AcceptInvite(c *gin.Context) {
	type AcceptRequest struct {
		Token    string `json:"token" binding:"required"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.memberService.AcceptInvite(c.Request.Context(), services.AcceptInviteInput{
		Token:    req.Token,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !startSession(c, user.ID) {
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// ListPerformance returns member metrics; ?force=true regenerates every narrative
func (h *OrganizationHandler) ListPerformance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	metrics, err := h.performanceService.ListMetrics(c.Request.Context(), actor, c.Query("force") == "true")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": dto.ToMetricDTOs(metrics)})
}

// MonitorMembers re-evaluates every member of the organization
func (h *OrganizationHandler) MonitorMembers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := h.performanceService.MonitorAllMembers(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// NotificationStats reports email dispatcher counters
func (h *OrganizationHandler) NotificationStats(c *gin.Context) {
	if h.notifier == nil {
		apierrors.ServiceUnavailable(c, "Notifications are not configured")
		return
	}
	c.JSON(http.StatusOK, h.notifier.Stats())
}

func respondOrganizationError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrOrganizationNotFound) {
		apierrors.NotFound(c, "Organization not found")
		return
	}
	apierrors.Respond(c, err)
}
