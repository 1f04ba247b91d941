package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/auratask/internal/database"
	"github.com/yukikurage/auratask/internal/models"
	"github.com/yukikurage/auratask/internal/notify"
	"github.com/yukikurage/auratask/internal/permissions"
	"github.com/yukikurage/auratask/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingEnqueuer struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (r *recordingEnqueuer) Enqueue(msg notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return true
}

func (r *recordingEnqueuer) byTemplate(template string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, m := range r.messages {
		if m.Template == template {
			out = append(out, m)
		}
	}
	return out
}

type stubEvaluator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (e *stubEvaluator) Evaluate(ctx context.Context, input EvaluationInput) (string, error) {
	e.calls.Add(1)
	if e.err != nil {
		return "", e.err
	}
	return e.text + " " + input.UserName, nil
}

// failingMetricRepo fails upserts for one user.
type failingMetricRepo struct {
	repository.MetricRepository
	failFor uint64
}

func (r *failingMetricRepo) Upsert(ctx context.Context, metric *models.PerformanceMetric) error {
	if metric.UserID == r.failFor {
		return errors.New("metrics store unavailable")
	}
	return r.MetricRepository.Upsert(ctx, metric)
}

// countingUserRepo records the users whose counter was rewritten, in order.
type countingUserRepo struct {
	repository.UserRepository
	mu      sync.Mutex
	updates *[]uint64
}

func (r *countingUserRepo) UpdateTasksCount(ctx context.Context, userID uint64, count int64) error {
	r.mu.Lock()
	*r.updates = append(*r.updates, userID)
	r.mu.Unlock()
	return r.UserRepository.UpdateTasksCount(ctx, userID, count)
}

// ServiceTestSuite runs the services against an in-memory sqlite database
// holding one organization: Olivia (OWNER), Alice and Dave (MANAGER), Bob and
// Carol (EMPLOYEE).
type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	repos     *repository.Repositories
	outbox    *recordingEnqueuer
	evaluator *stubEvaluator

	workload    *WorkloadService
	performance *PerformanceService
	tasks       *TaskService
	comments    *CommentService
	members     *MemberService

	org   models.Organization
	other models.Organization
	owner models.User
	alice models.User
	dave  models.User
	bob   models.User
	carol models.User
}

func (suite *ServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	// Every pooled connection to :memory: would be a separate database.
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(database.MigrateDB(suite.db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	suite.ctx = context.Background()
	suite.repos = repository.New(suite.db)
	suite.outbox = &recordingEnqueuer{}
	suite.evaluator = &stubEvaluator{text: "AI narrative for"}

	suite.workload = NewWorkloadService(suite.repos, log)
	suite.performance = NewPerformanceService(suite.repos, suite.evaluator, log, 3)
	suite.tasks = NewTaskService(suite.repos, suite.performance, suite.outbox, log, "http://localhost:3000/")
	suite.comments = NewCommentService(suite.repos, suite.tasks)
	suite.members = NewMemberService(suite.repos, suite.outbox, log, "http://localhost:3000")

	suite.org = suite.createOrganization("Acme")
	suite.other = suite.createOrganization("Globex")
	suite.owner = suite.createUser(suite.org.ID, "Olivia", "olivia@acme.test", models.RoleOwner)
	suite.alice = suite.createUser(suite.org.ID, "Alice", "alice@acme.test", models.RoleManager)
	suite.dave = suite.createUser(suite.org.ID, "Dave", "dave@acme.test", models.RoleManager)
	suite.bob = suite.createUser(suite.org.ID, "Bob", "bob@acme.test", models.RoleEmployee)
	suite.carol = suite.createUser(suite.org.ID, "Carol", "carol@acme.test", models.RoleEmployee)
}

func (suite *ServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ServiceTestSuite) createOrganization(name string) models.Organization {
	now := time.Now()
	org := models.Organization{
		Name:               name,
		SubscriptionStatus: models.SubscriptionTrial,
		Plan:               models.PlanFreeTrial,
		TrialStartDate:     now,
		TrialEndDate:       now.AddDate(0, 0, 20),
	}
	suite.Require().NoError(suite.db.Create(&org).Error)
	return org
}

func (suite *ServiceTestSuite) createUser(orgID uint64, name, email string, role models.Role) models.User {
	user := models.User{
		Name:           name,
		Email:          email,
		PasswordHash:   "hashedpassword",
		OrganizationID: orgID,
		Role:           role,
	}
	suite.Require().NoError(suite.db.Create(&user).Error)
	return user
}

// createTaskDirect inserts a task without going through TaskService.
func (suite *ServiceTestSuite) createTaskDirect(title string, assignee *models.User, creator models.User, status models.TaskStatus, dueDate string) models.Task {
	task := models.Task{
		Title:          title,
		Status:         status,
		Priority:       models.TaskPriorityMedium,
		DueDate:        dueDate,
		OrganizationID: creator.OrganizationID,
		CreatedByID:    creator.ID,
	}
	if assignee != nil {
		id := assignee.ID
		task.AssigneeID = &id
	}
	suite.Require().NoError(suite.db.Create(&task).Error)
	return task
}

func (suite *ServiceTestSuite) actor(u models.User) permissions.Actor {
	return permissions.NewActor(u.ID, u.OrganizationID, u.Role)
}

func (suite *ServiceTestSuite) tasksCount(u models.User) int {
	var fresh models.User
	suite.Require().NoError(suite.db.First(&fresh, u.ID).Error)
	return fresh.TasksCount
}

func (suite *ServiceTestSuite) reloadTask(id uint64) models.Task {
	var task models.Task
	suite.Require().NoError(suite.db.First(&task, id).Error)
	return task
}

// assertCountersConsistent checks every member's cached counter against the task table.
func (suite *ServiceTestSuite) assertCountersConsistent() {
	var users []models.User
	suite.Require().NoError(suite.db.Where("organization_id = ?", suite.org.ID).Find(&users).Error)
	for _, u := range users {
		var tasks []models.Task
		suite.Require().NoError(suite.db.Where("assignee_id = ? AND organization_id = ?", u.ID, suite.org.ID).Find(&tasks).Error)
		suite.Equal(CountActive(tasks), u.TasksCount, "tasks_count drifted for %s", u.Name)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
