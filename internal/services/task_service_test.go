package services

import (
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
)

func (suite *ServiceTestSuite) TestCreateTask_CountsAssigneeWorkload() {
	task, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.alice), CreateTaskInput{
		Title:      "Audit logs",
		AssigneeID: ptr(suite.bob.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().NoError(err)

	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Equal(suite.alice.ID, task.CreatedByID)
	suite.Require().NotNil(task.Assignee)
	suite.Equal(suite.bob.ID, task.Assignee.ID)
	suite.Equal(1, suite.tasksCount(suite.bob))

	assigned := suite.outbox.byTemplate(notify.TemplateTaskAssigned)
	suite.Require().Len(assigned, 1)
	suite.Equal(suite.bob.Email, assigned[0].ToEmail)
	suite.Contains(assigned[0].TextContent, "Alice")
}

func (suite *ServiceTestSuite) TestCreateTask_Unassigned() {
	task, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.alice), CreateTaskInput{
		Title:    "Backlog grooming",
		DueDate:  "end of Q4",
		Priority: models.TaskPriorityLow,
	})
	suite.Require().NoError(err)
	suite.Nil(task.AssigneeID)
	suite.Equal("end of Q4", task.DueDate)
	suite.Empty(suite.outbox.byTemplate(notify.TemplateTaskAssigned))
}

func (suite *ServiceTestSuite) TestCreateTask_ManagerCannotAssignPeerManager() {
	_, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.alice), CreateTaskInput{
		Title:      "Quarterly plan",
		AssigneeID: ptr(suite.dave.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().Error(err)
	suite.ErrorIs(err, apierrors.ErrInvalidAssignment)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Task{}).Count(&count).Error)
	suite.Zero(count)
	suite.Equal(0, suite.tasksCount(suite.dave))
}

func (suite *ServiceTestSuite) TestCreateTask_ManagerMayAssignSelf() {
	_, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.alice), CreateTaskInput{
		Title:      "Write retro notes",
		AssigneeID: ptr(suite.alice.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().NoError(err)
	suite.Equal(1, suite.tasksCount(suite.alice))
}

func (suite *ServiceTestSuite) TestCreateTask_EmployeeForbidden() {
	_, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.bob), CreateTaskInput{
		Title:   "Self-assigned",
		DueDate: "2030-01-31",
	})
	suite.ErrorIs(err, apierrors.ErrForbidden)
}

func (suite *ServiceTestSuite) TestCreateTask_Validation() {
	tests := []struct {
		name  string
		input CreateTaskInput
		field string
	}{
		{"missing title", CreateTaskInput{Title: "  ", DueDate: "2030-01-31"}, "title"},
		{"missing due date", CreateTaskInput{Title: "x"}, "due_date"},
		{"bad priority", CreateTaskInput{Title: "x", DueDate: "soon", Priority: "CRITICAL"}, "priority"},
		{"assignee in other organization", CreateTaskInput{Title: "x", DueDate: "soon", AssigneeID: ptr(uint64(9999))}, "assignee_id"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.owner), tt.input)
			var domainErr *apierrors.Error
			suite.Require().ErrorAs(err, &domainErr)
			suite.Equal(apierrors.KindValidation, domainErr.Kind)
			suite.Equal(tt.field, domainErr.Rule)
		})
	}
}

func (suite *ServiceTestSuite) TestWorkloadScenario() {
	alice := suite.actor(suite.alice)

	audit, err := suite.tasks.CreateTask(suite.ctx, alice, CreateTaskInput{
		Title:      "Audit logs",
		AssigneeID: ptr(suite.bob.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().NoError(err)
	suite.Equal(1, suite.tasksCount(suite.bob))

	// Bob finishes his task.
	_, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), audit.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusDone),
	})
	suite.Require().NoError(err)
	suite.Equal(0, suite.tasksCount(suite.bob))

	metric, err := suite.repos.Metrics.FindByUser(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(100, metric.CompletionRate)
	suite.Equal(1, metric.TasksCompleted)

	progress := suite.outbox.byTemplate(notify.TemplateTaskProgress)
	suite.Require().Len(progress, 1)
	suite.Equal(suite.alice.Email, progress[0].ToEmail)

	// A second task moves from Carol to Bob.
	review, err := suite.tasks.CreateTask(suite.ctx, alice, CreateTaskInput{
		Title:      "Review PR",
		AssigneeID: ptr(suite.carol.ID),
		DueDate:    "2030-02-01",
	})
	suite.Require().NoError(err)
	suite.Equal(1, suite.tasksCount(suite.carol))

	updated, err := suite.tasks.UpdateTask(suite.ctx, alice, review.ID, UpdateTaskInput{
		AssigneeID: ptr(suite.bob.ID),
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated.AssigneeID)
	suite.Equal(suite.bob.ID, *updated.AssigneeID)

	suite.Equal(0, suite.tasksCount(suite.carol))
	suite.Equal(1, suite.tasksCount(suite.bob))
	suite.Len(suite.outbox.byTemplate(notify.TemplateTaskAssigned), 3)

	suite.assertCountersConsistent()
}

func (suite *ServiceTestSuite) TestUpdateTask_ReassignRecountsBothAssigneesOnce() {
	task := suite.createTaskDirect("Audit logs", &suite.carol, suite.alice, models.TaskStatusInProgress, "2030-01-31")

	var updates []uint64
	repos := repository.New(suite.db, repository.WithUserRepository(func(users repository.UserRepository) repository.UserRepository {
		return &countingUserRepo{UserRepository: users, updates: &updates}
	}))
	tasks := NewTaskService(repos, nil, nil, nil, "http://localhost:3000")

	_, err := tasks.UpdateTask(suite.ctx, suite.actor(suite.alice), task.ID, UpdateTaskInput{
		AssigneeID: ptr(suite.bob.ID),
	})
	suite.Require().NoError(err)

	suite.Equal([]uint64{suite.carol.ID, suite.bob.ID}, updates)
	suite.Equal(0, suite.tasksCount(suite.carol))
	suite.Equal(1, suite.tasksCount(suite.bob))
}

func (suite *ServiceTestSuite) TestUpdateTask_EmployeeMixedFieldsRejected() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")
	suite.Require().NoError(suite.db.Model(&models.User{}).Where("id = ?", suite.bob.ID).Update("tasks_count", 1).Error)

	_, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusDone),
		Title:  ptr("X"),
	})
	suite.Require().Error(err)

	var domainErr *apierrors.Error
	suite.Require().ErrorAs(err, &domainErr)
	suite.Equal(apierrors.KindForbidden, domainErr.Kind)
	suite.Equal(permissions.RuleEmployeeStatusOnly, domainErr.Rule)

	stored := suite.reloadTask(task.ID)
	suite.Equal("Audit logs", stored.Title)
	suite.Equal(models.TaskStatusTodo, stored.Status)
	suite.Equal(1, suite.tasksCount(suite.bob))
}

func (suite *ServiceTestSuite) TestUpdateTask_EmployeeStatusOnOtherTaskNotFound() {
	task := suite.createTaskDirect("Carol's task", &suite.carol, suite.alice, models.TaskStatusTodo, "2030-01-31")

	_, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusDone),
	})
	suite.ErrorIs(err, apierrors.ErrNotFound)
	suite.Equal(models.TaskStatusTodo, suite.reloadTask(task.ID).Status)
}

func (suite *ServiceTestSuite) TestUpdateTask_PresentFieldsAreRequests() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")

	// The current title still counts as a content edit.
	_, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		Title:  ptr("Audit logs"),
		Status: ptr(models.TaskStatusInProgress),
	})
	var domainErr *apierrors.Error
	suite.Require().ErrorAs(err, &domainErr)
	suite.Equal(apierrors.KindForbidden, domainErr.Kind)
	suite.Equal(permissions.RuleEmployeeStatusOnly, domainErr.Rule)

	suite.Equal(models.TaskStatusTodo, suite.reloadTask(task.ID).Status)

	// Same for the current assignee.
	_, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		AssigneeID: ptr(suite.bob.ID),
	})
	suite.ErrorIs(err, apierrors.ErrForbidden)
}

func (suite *ServiceTestSuite) TestUpdateTask_ManagerCannotEditPeerTask() {
	task := suite.createTaskDirect("Dave's plan", &suite.dave, suite.owner, models.TaskStatusTodo, "2030-01-31")

	// Not visible to Alice, so it reads as missing.
	_, err := suite.tasks.GetTask(suite.ctx, suite.actor(suite.alice), task.ID)
	suite.ErrorIs(err, apierrors.ErrNotFound)

	_, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.alice), task.ID, UpdateTaskInput{
		Title: ptr("Alice's plan"),
	})
	suite.ErrorIs(err, apierrors.ErrNotFound)
	suite.Equal("Dave's plan", suite.reloadTask(task.ID).Title)

	// Status changes are allowed for managers on any task.
	_, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.alice), task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusBlocked),
	})
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestUpdateTask_InvisibleTaskReadsAsMissing() {
	task := suite.createTaskDirect("Carol secret", &suite.carol, suite.alice, models.TaskStatusTodo, "2030-01-31")
	bob := suite.actor(suite.bob)

	_, err := suite.tasks.GetTask(suite.ctx, bob, task.ID)
	suite.ErrorIs(err, apierrors.ErrNotFound)

	got, err := suite.tasks.UpdateTask(suite.ctx, bob, task.ID, UpdateTaskInput{})
	suite.ErrorIs(err, apierrors.ErrNotFound)
	suite.Nil(got)

	got, err = suite.tasks.UpdateTask(suite.ctx, bob, task.ID, UpdateTaskInput{
		Title:  ptr("Carol secret"),
		Status: ptr(models.TaskStatusTodo),
	})
	suite.ErrorIs(err, apierrors.ErrNotFound)
	suite.Nil(got)

	// Validation failures do not reveal the task either.
	_, err = suite.tasks.UpdateTask(suite.ctx, bob, task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatus("SHIPPED")),
	})
	suite.ErrorIs(err, apierrors.ErrNotFound)

	peer := suite.createTaskDirect("Dave's plan", &suite.dave, suite.owner, models.TaskStatusTodo, "2030-01-31")
	got, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.alice), peer.ID, UpdateTaskInput{})
	suite.ErrorIs(err, apierrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *ServiceTestSuite) TestUpdateTask_ReassignToPeerManagerRejected() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")

	_, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.alice), task.ID, UpdateTaskInput{
		AssigneeID: ptr(suite.dave.ID),
	})
	suite.ErrorIs(err, apierrors.ErrInvalidAssignment)

	stored := suite.reloadTask(task.ID)
	suite.Require().NotNil(stored.AssigneeID)
	suite.Equal(suite.bob.ID, *stored.AssigneeID)
}

func (suite *ServiceTestSuite) TestUpdateTask_ClearAssignee() {
	task, err := suite.tasks.CreateTask(suite.ctx, suite.actor(suite.owner), CreateTaskInput{
		Title:      "Migrate DNS",
		AssigneeID: ptr(suite.carol.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().NoError(err)
	suite.Equal(1, suite.tasksCount(suite.carol))

	updated, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.owner), task.ID, UpdateTaskInput{
		ClearAssignee: true,
	})
	suite.Require().NoError(err)
	suite.Nil(updated.AssigneeID)
	suite.Equal(0, suite.tasksCount(suite.carol))
}

func (suite *ServiceTestSuite) TestUpdateTask_NoChangesIsNoop() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")

	got, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusTodo),
	})
	suite.Require().NoError(err)
	suite.Equal(task.ID, got.ID)
	suite.Empty(suite.outbox.byTemplate(notify.TemplateTaskProgress))
}

func (suite *ServiceTestSuite) TestUpdateTask_InvalidStatus() {
	task := suite.createTaskDirect("Audit logs", &suite.bob, suite.alice, models.TaskStatusTodo, "2030-01-31")

	_, err := suite.tasks.UpdateTask(suite.ctx, suite.actor(suite.bob), task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatus("ARCHIVED")),
	})
	suite.ErrorIs(err, apierrors.ErrValidation)
}

func (suite *ServiceTestSuite) TestDeleteTask() {
	alice := suite.actor(suite.alice)
	task, err := suite.tasks.CreateTask(suite.ctx, alice, CreateTaskInput{
		Title:      "Audit logs",
		AssigneeID: ptr(suite.bob.ID),
		DueDate:    "2030-01-31",
	})
	suite.Require().NoError(err)
	_, err = suite.comments.AddComment(suite.ctx, alice, task.ID, "Please start with the auth service")
	suite.Require().NoError(err)

	// Employees cannot delete, not even their own tasks.
	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, suite.actor(suite.bob), task.ID), apierrors.ErrForbidden)

	suite.Require().NoError(suite.tasks.DeleteTask(suite.ctx, alice, task.ID))
	suite.Equal(0, suite.tasksCount(suite.bob))

	var comments int64
	suite.Require().NoError(suite.db.Model(&models.TaskComment{}).Count(&comments).Error)
	suite.Zero(comments)

	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, alice, task.ID), apierrors.ErrNotFound)
}

func (suite *ServiceTestSuite) TestDeleteTask_InvisibleTaskIsNotFound() {
	task := suite.createTaskDirect("Carol's task", &suite.carol, suite.alice, models.TaskStatusTodo, "2030-01-31")
	peer := suite.createTaskDirect("Dave's plan", &suite.dave, suite.owner, models.TaskStatusTodo, "2030-01-31")

	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, suite.actor(suite.bob), task.ID), apierrors.ErrNotFound)
	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, suite.actor(suite.alice), peer.ID), apierrors.ErrNotFound)
	suite.Equal("Carol's task", suite.reloadTask(task.ID).Title)
	suite.Equal("Dave's plan", suite.reloadTask(peer.ID).Title)
}

func (suite *ServiceTestSuite) TestDeleteTask_ManagerNeedsToBeCreator() {
	task := suite.createTaskDirect("Owner's task", &suite.bob, suite.owner, models.TaskStatusTodo, "2030-01-31")

	suite.ErrorIs(suite.tasks.DeleteTask(suite.ctx, suite.actor(suite.alice), task.ID), apierrors.ErrForbidden)
	suite.NoError(suite.tasks.DeleteTask(suite.ctx, suite.actor(suite.owner), task.ID))
}

func (suite *ServiceTestSuite) TestListTasks_Visibility() {
	suite.createTaskDirect("Bob's", &suite.bob, suite.owner, models.TaskStatusTodo, "2030-01-31")
	suite.createTaskDirect("Carol's", &suite.carol, suite.owner, models.TaskStatusDone, "2030-01-31")
	suite.createTaskDirect("Dave's", &suite.dave, suite.owner, models.TaskStatusTodo, "2030-01-31")
	suite.createTaskDirect("Dave's from Alice", &suite.dave, suite.alice, models.TaskStatusTodo, "2030-01-31")
	suite.createTaskDirect("Unassigned", nil, suite.owner, models.TaskStatusTodo, "2030-01-31")

	titles := func(actor permissions.Actor, filter TaskListFilter) []string {
		tasks, total, err := suite.tasks.ListTasks(suite.ctx, actor, filter)
		suite.Require().NoError(err)
		suite.Equal(int64(len(tasks)), total)
		out := make([]string, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, t.Title)
		}
		return out
	}

	suite.Len(titles(suite.actor(suite.owner), TaskListFilter{}), 5)
	suite.ElementsMatch(
		[]string{"Bob's", "Carol's", "Dave's from Alice", "Unassigned"},
		titles(suite.actor(suite.alice), TaskListFilter{}),
	)
	suite.ElementsMatch([]string{"Bob's"}, titles(suite.actor(suite.bob), TaskListFilter{}))

	done := models.TaskStatusDone
	suite.ElementsMatch([]string{"Carol's"}, titles(suite.actor(suite.alice), TaskListFilter{Status: &done}))
	suite.Empty(titles(suite.actor(suite.alice), TaskListFilter{AssignedToMe: true}))
}

func (suite *ServiceTestSuite) TestGetTask_OtherOrganizationIsNotFound() {
	outsider := suite.createUser(suite.other.ID, "Mallory", "mallory@globex.test", models.RoleOwner)
	task := suite.createTaskDirect("Secret", nil, suite.owner, models.TaskStatusTodo, "2030-01-31")

	_, err := suite.tasks.GetTask(suite.ctx, suite.actor(outsider), task.ID)
	suite.ErrorIs(err, apierrors.ErrNotFound)

	_, err = suite.tasks.UpdateTask(suite.ctx, suite.actor(outsider), task.ID, UpdateTaskInput{Title: ptr("Mine")})
	suite.ErrorIs(err, apierrors.ErrNotFound)
}

func (suite *ServiceTestSuite) TestCountersStayConsistent() {
	owner := suite.actor(suite.owner)
	statuses := []models.TaskStatus{
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusDone,
		models.TaskStatusTodo,
	}
	assignees := []models.User{suite.bob, suite.carol, suite.alice, suite.dave}

	var ids []uint64
	for i, a := range assignees {
		task, err := suite.tasks.CreateTask(suite.ctx, owner, CreateTaskInput{
			Title:      "Task " + a.Name,
			AssigneeID: ptr(a.ID),
			DueDate:    "2030-01-31",
		})
		suite.Require().NoError(err)
		ids = append(ids, task.ID)

		_, err = suite.tasks.UpdateTask(suite.ctx, owner, task.ID, UpdateTaskInput{Status: ptr(statuses[i])})
		suite.Require().NoError(err)
	}

	_, err := suite.tasks.UpdateTask(suite.ctx, owner, ids[0], UpdateTaskInput{AssigneeID: ptr(suite.carol.ID)})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.tasks.DeleteTask(suite.ctx, owner, ids[1]))
	_, err = suite.tasks.UpdateTask(suite.ctx, owner, ids[2], UpdateTaskInput{Status: ptr(models.TaskStatusTodo)})
	suite.Require().NoError(err)

	suite.assertCountersConsistent()
}
