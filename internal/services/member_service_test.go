package services

import (
	"strings"
	"time"

	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
)

func (suite *ServiceTestSuite) memberNames(users []models.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names
}

func (suite *ServiceTestSuite) TestListMembers_Roster() {
	all, err := suite.members.ListMembers(suite.ctx, suite.actor(suite.owner))
	suite.Require().NoError(err)
	suite.Equal([]string{"Alice", "Bob", "Carol", "Dave", "Olivia"}, suite.memberNames(all))

	team, err := suite.members.ListMembers(suite.ctx, suite.actor(suite.alice))
	suite.Require().NoError(err)
	suite.Equal([]string{"Alice", "Bob", "Carol"}, suite.memberNames(team))

	self, err := suite.members.ListMembers(suite.ctx, suite.actor(suite.bob))
	suite.Require().NoError(err)
	suite.Equal([]string{"Bob"}, suite.memberNames(self))
}

func (suite *ServiceTestSuite) TestCreateInvite() {
	created, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.alice), " New.Hire@Acme.test ", models.RoleEmployee)
	suite.Require().NoError(err)

	suite.Equal("new.hire@acme.test", created.Invite.Email)
	suite.Equal(models.RoleEmployee, created.Invite.Role)
	suite.Equal(suite.alice.ID, created.Invite.InvitedByID)
	suite.True(strings.HasPrefix(created.InviteLink, "http://localhost:3000/invite/inv_"))
	suite.WithinDuration(time.Now().Add(7*24*time.Hour), created.Invite.ExpiresAt, time.Minute)

	sent := suite.outbox.byTemplate(notify.TemplateInvite)
	suite.Require().Len(sent, 1)
	suite.Equal("new.hire@acme.test", sent[0].ToEmail)
	suite.Contains(sent[0].TextContent, created.InviteLink)
	suite.Contains(sent[0].Subject, "Acme")
}

func (suite *ServiceTestSuite) TestCreateInvite_Rules() {
	_, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.alice), "lead@acme.test", models.RoleManager)
	suite.Require().ErrorIs(err, apierrors.ErrForbidden)
	suite.Contains(err.Error(), "Only Admins can invite Managers")

	_, err = suite.members.CreateInvite(suite.ctx, suite.actor(suite.bob), "friend@acme.test", models.RoleEmployee)
	suite.ErrorIs(err, apierrors.ErrForbidden)

	_, err = suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "boss@acme.test", models.RoleAdmin)
	suite.ErrorIs(err, apierrors.ErrValidation)

	_, err = suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "not-an-email", models.RoleEmployee)
	suite.ErrorIs(err, apierrors.ErrValidation)

	_, err = suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "bob@acme.test", models.RoleEmployee)
	suite.ErrorIs(err, apierrors.ErrConflict)

	_, err = suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "lead@acme.test", models.RoleManager)
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestListInvites() {
	_, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "a@acme.test", models.RoleEmployee)
	suite.Require().NoError(err)

	invites, err := suite.members.ListInvites(suite.ctx, suite.actor(suite.alice))
	suite.Require().NoError(err)
	suite.Len(invites, 1)

	_, err = suite.members.ListInvites(suite.ctx, suite.actor(suite.bob))
	suite.ErrorIs(err, apierrors.ErrForbidden)
}

func (suite *ServiceTestSuite) TestAcceptInvite_OnlyOnce() {
	created, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "lead@acme.test", models.RoleManager)
	suite.Require().NoError(err)

	user, err := suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{
		Token:    created.Invite.Token,
		Name:     "Leah",
		Password: "correct-horse",
	})
	suite.Require().NoError(err)
	suite.Equal(models.RoleManager, user.Role)
	suite.Equal(suite.org.ID, user.OrganizationID)
	suite.NotEqual("correct-horse", user.PasswordHash)

	welcome := suite.outbox.byTemplate(notify.TemplateWelcome)
	suite.Require().Len(welcome, 1)
	suite.Equal("lead@acme.test", welcome[0].ToEmail)

	_, err = suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{
		Token:    created.Invite.Token,
		Name:     "Leah again",
		Password: "correct-horse",
	})
	suite.ErrorIs(err, apierrors.ErrNotFound)
}

func (suite *ServiceTestSuite) TestAcceptInvite_Rejections() {
	created, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "late@acme.test", models.RoleEmployee)
	suite.Require().NoError(err)

	_, err = suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{Token: created.Invite.Token, Name: "Late", Password: "short"})
	suite.ErrorIs(err, apierrors.ErrValidation)

	_, err = suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{Token: "garbage", Name: "Late", Password: "long-enough"})
	suite.ErrorIs(err, apierrors.ErrNotFound)

	suite.Require().NoError(suite.db.Model(&models.Invite{}).
		Where("id = ?", created.Invite.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{Token: created.Invite.Token, Name: "Late", Password: "long-enough"})
	suite.ErrorIs(err, apierrors.ErrNotFound)

	var used bool
	suite.Require().NoError(suite.db.Model(&models.Invite{}).Select("used").Where("id = ?", created.Invite.ID).Scan(&used).Error)
	suite.False(used)
}

func (suite *ServiceTestSuite) TestAcceptInvite_EmailAlreadyRegistered() {
	created, err := suite.members.CreateInvite(suite.ctx, suite.actor(suite.owner), "taken@globex.test", models.RoleEmployee)
	suite.Require().NoError(err)
	suite.createUser(suite.other.ID, "Taken", "taken@globex.test", models.RoleOwner)

	_, err = suite.members.AcceptInvite(suite.ctx, AcceptInviteInput{Token: created.Invite.Token, Name: "Taken", Password: "long-enough"})
	suite.ErrorIs(err, apierrors.ErrConflict)
}

func (suite *ServiceTestSuite) TestComments() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")
	other := suite.createTaskDirect("Carol's", &suite.carol, suite.alice, models.TaskStatusTodo, "2030-01-31")

	first, err := suite.comments.AddComment(suite.ctx, suite.actor(suite.bob), task.ID, "  Started on this  ")
	suite.Require().NoError(err)
	suite.Equal("Started on this", first.Content)
	suite.Equal("Bob", first.User.Name)

	_, err = suite.comments.AddComment(suite.ctx, suite.actor(suite.alice), task.ID, "Thanks")
	suite.Require().NoError(err)

	_, err = suite.comments.AddComment(suite.ctx, suite.actor(suite.bob), other.ID, "Can I help?")
	suite.ErrorIs(err, apierrors.ErrForbidden)

	_, err = suite.comments.AddComment(suite.ctx, suite.actor(suite.bob), task.ID, "   ")
	suite.ErrorIs(err, apierrors.ErrValidation)

	comments, err := suite.comments.ListComments(suite.ctx, suite.actor(suite.bob), task.ID)
	suite.Require().NoError(err)
	suite.Require().Len(comments, 2)
	suite.Equal("Started on this", comments[0].Content)
	suite.Equal("Thanks", comments[1].Content)

	_, err = suite.comments.ListComments(suite.ctx, suite.actor(suite.carol), task.ID)
	suite.ErrorIs(err, apierrors.ErrNotFound)
}
