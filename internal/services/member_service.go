package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/auratask/internal/constants"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"github.com/yukikurage/auratask/internal/utils"
	"gorm.io/gorm"
)

const (
	opAcceptInvite = "accept_invite"
	opListInvites  = "list_invites"

	msgInvalidInvite = "Invalid or expired invite"
)

// MemberService manages the member roster and invitations.
type MemberService struct {
	repos    *repository.Repositories
	notifier notify.Enqueuer
	logger   *slog.Logger
	appURL   string
	now      func() time.Time
}

func NewMemberService(repos *repository.Repositories, notifier notify.Enqueuer, logger *slog.Logger, appURL string) *MemberService {
	return &MemberService{
		repos:    repos,
		notifier: notifier,
		logger:   orDefaultLogger(logger),
		appURL:   strings.TrimRight(appURL, "/"),
		now:      time.Now,
	}
}

// ListMembers returns the members the actor may see, ordered by name.
func (s *MemberService) ListMembers(ctx context.Context, actor permissions.Actor) ([]models.User, error) {
	users, err := s.repos.Users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	visible := make([]models.User, 0, len(users))
	for _, u := range users {
		if actor.CanViewMember(u.ID, u.Role) {
			visible = append(visible, u)
		}
	}
	return visible, nil
}

// CreatedInvite is an invite together with its acceptance link.
type CreatedInvite struct {
	Invite     *models.Invite `json:"invite"`
	InviteLink string         `json:"invite_link"`
}

// CreateInvite invites email to join the actor's organization as role.
func (s *MemberService) CreateInvite(ctx context.Context, actor permissions.Actor, email string, role models.Role) (*CreatedInvite, error) {
	const op = permissions.OpInviteMember

	if role != models.RoleManager && role != models.RoleEmployee {
		return nil, apierrors.NewValidation(op, "role", "Role must be MANAGER or EMPLOYEE")
	}
	if err := actor.AuthorizeInvite(role); err != nil {
		return nil, err
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, apierrors.NewValidation(op, "email", "A valid email is required")
	}

	exists, err := s.repos.Users.ExistsInOrganization(ctx, actor.OrganizationID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return nil, apierrors.NewConflict(op, "User already exists in this organization")
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite := &models.Invite{
		Email:          normalized,
		Role:           role,
		OrganizationID: actor.OrganizationID,
		InvitedByID:    actor.ID,
		Token:          token,
		ExpiresAt:      s.now().Add(constants.InviteExpiry),
	}
	if err := s.repos.Invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	link := s.appURL + "/invite/" + token
	s.notifyInvite(ctx, actor, invite, link)

	return &CreatedInvite{Invite: invite, InviteLink: link}, nil
}

// ListInvites returns the organization's invites, newest first.
func (s *MemberService) ListInvites(ctx context.Context, actor permissions.Actor) ([]models.Invite, error) {
	if !actor.CanInvite(models.RoleEmployee) {
		return nil, apierrors.NewForbidden(opListInvites, permissions.RuleInviteRole, "You do not have permission to view invites")
	}

	invites, err := s.repos.Invites.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// AcceptInviteInput holds what an invitee supplies to join.
type AcceptInviteInput struct {
	Token    string
	Name     string
	Password string
}

// AcceptInvite consumes an invite exactly once and creates the invited user.
// Unknown, used and expired tokens are all reported as not found.
func (s *MemberService) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apierrors.NewValidation(opAcceptInvite, "name", "Name is required")
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, apierrors.NewValidation(opAcceptInvite, "password",
			fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	}
	if !utils.IsInviteToken(input.Token) {
		return nil, apierrors.NewNotFound(opAcceptInvite, msgInvalidInvite)
	}

	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		invite, err := tx.Invites.FindByToken(ctx, input.Token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NewNotFound(opAcceptInvite, msgInvalidInvite)
			}
			return fmt.Errorf("failed to find invite: %w", err)
		}
		if invite.Used || invite.Expired(s.now()) {
			return apierrors.NewNotFound(opAcceptInvite, msgInvalidInvite)
		}

		if _, err := tx.Users.FindByEmail(ctx, invite.Email); err == nil {
			return apierrors.NewConflict(opAcceptInvite, "User already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		consumed, err := tx.Invites.MarkUsed(ctx, invite.ID)
		if err != nil {
			return fmt.Errorf("failed to consume invite: %w", err)
		}
		if !consumed {
			return apierrors.NewNotFound(opAcceptInvite, msgInvalidInvite)
		}

		role := models.RoleEmployee
		if invite.Role == models.RoleManager {
			role = models.RoleManager
		}

		user = &models.User{
			Name:           name,
			Email:          invite.Email,
			PasswordHash:   hashedPassword,
			OrganizationID: invite.OrganizationID,
			Role:           role,
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyWelcome(ctx, user)
	return user, nil
}

func (s *MemberService) notifyInvite(ctx context.Context, actor permissions.Actor, invite *models.Invite, link string) {
	if s.notifier == nil {
		return
	}

	inviterName := "A teammate"
	if inviter, err := s.repos.Users.FindByID(ctx, actor.ID); err == nil {
		inviterName = inviter.Name
	}
	orgName := "your team"
	if org, err := s.repos.Organizations.FindByID(ctx, actor.OrganizationID); err == nil {
		orgName = org.Name
	}

	s.notifier.Enqueue(notify.Invite(notify.InviteParams{
		ToEmail:          invite.Email,
		Role:             string(invite.Role),
		InviteLink:       link,
		OrganizationName: orgName,
		InviterName:      inviterName,
	}))
}

func (s *MemberService) notifyWelcome(ctx context.Context, user *models.User) {
	if s.notifier == nil {
		return
	}

	org, err := s.repos.Organizations.FindByID(ctx, user.OrganizationID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping welcome email, organization not found",
			"user_id", user.ID,
			"error", err,
		)
		return
	}

	s.notifier.Enqueue(notify.Welcome(user.Email, user.Name, org.Name, s.appURL+"/dashboard"))
}
