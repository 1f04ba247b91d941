package repository

import (
	"context"
	"time"

	"github.com/yukikurage/auratask/internal/models"
	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task inside an organization, preloading its assignee
	FindByID(ctx context.Context, organizationID, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// ListByAssignee returns every task assigned to a user, most recently updated first
	ListByAssignee(ctx context.Context, organizationID, userID uint64) ([]models.Task, error)

	// UpdateFields writes the given columns of a task
	UpdateFields(ctx context.Context, task *models.Task, fields map[string]interface{}) error

	// Delete removes a task and its comments
	Delete(ctx context.Context, organizationID, id uint64) error

	// CountActiveByAssignee counts a user's tasks in an active status
	CountActiveByAssignee(ctx context.Context, organizationID, userID uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	Status         *models.TaskStatus
	// AssigneeID restricts to tasks assigned to one user.
	AssigneeID *uint64
	// ManagerID restricts to what a manager may see: unassigned tasks, tasks
	// assigned to employees or to the manager, and tasks the manager created.
	ManagerID *uint64
	Page      int
	PageSize  int
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)
	// ExpireTrial flips a lapsed TRIAL organization to EXPIRED and reports
	// whether a row changed.
	ExpireTrial(ctx context.Context, id uint64, now time.Time) (bool, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithOrganization creates an organization and its first user in one transaction.
	CreateWithOrganization(ctx context.Context, user *models.User, org *models.Organization) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindInOrganization finds a user by ID scoped to an organization
	FindInOrganization(ctx context.Context, organizationID, id uint64) (*models.User, error)

	// FindByEmail finds the first user registered with an email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsInOrganization reports whether an email is already a member
	ExistsInOrganization(ctx context.Context, organizationID uint64, email string) (bool, error)

	// ListByOrganization lists members ordered by name, optionally restricted to roles
	ListByOrganization(ctx context.Context, organizationID uint64, roles ...models.Role) ([]models.User, error)

	// UpdateTasksCount overwrites the cached active-task counter
	UpdateTasksCount(ctx context.Context, userID uint64, count int64) error
}

// MetricRepository defines the interface for performance metric data access
type MetricRepository interface {
	// Upsert inserts or replaces the metric row keyed by (user, organization).
	// A nil EvaluationDate leaves the stored narrative untouched.
	Upsert(ctx context.Context, metric *models.PerformanceMetric) error

	FindByUser(ctx context.Context, organizationID, userID uint64) (*models.PerformanceMetric, error)

	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.PerformanceMetric, error)
}

// InviteRepository defines the interface for invite data access
type InviteRepository interface {
	Create(ctx context.Context, invite *models.Invite) error
	FindByToken(ctx context.Context, token string) (*models.Invite, error)
	// MarkUsed flips the used flag; it reports false when the invite was already used.
	MarkUsed(ctx context.Context, id uint64) (bool, error)
	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Invite, error)
}

// CommentRepository defines the interface for task comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.TaskComment) error
	ListByTask(ctx context.Context, taskID uint64) ([]models.TaskComment, error)
}

// Repositories bundles every repository over one database handle.
type Repositories struct {
	db        *gorm.DB
	wrapUsers func(UserRepository) UserRepository

	Organizations OrganizationRepository
	Users         UserRepository
	Tasks         TaskRepository
	Metrics       MetricRepository
	Invites       InviteRepository
	Comments      CommentRepository
}

// Option customizes the repositories built by New.
type Option func(*Repositories)

// WithUserRepository decorates the user repository, including the ones bound
// to transactions.
func WithUserRepository(wrap func(UserRepository) UserRepository) Option {
	return func(r *Repositories) {
		r.wrapUsers = wrap
	}
}

// New builds the GORM repositories over db.
func New(db *gorm.DB, opts ...Option) *Repositories {
	r := &Repositories{db: db}
	for _, opt := range opts {
		opt(r)
	}
	r.bind(db)
	return r
}

func (r *Repositories) bind(db *gorm.DB) {
	r.db = db
	r.Organizations = NewOrganizationRepository(db)
	r.Users = NewUserRepository(db)
	if r.wrapUsers != nil {
		r.Users = r.wrapUsers(r.Users)
	}
	r.Tasks = NewTaskRepository(db)
	r.Metrics = NewMetricRepository(db)
	r.Invites = NewInviteRepository(db)
	r.Comments = NewCommentRepository(db)
}

// Transaction runs fn with repositories bound to a single database transaction.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := &Repositories{wrapUsers: r.wrapUsers}
		bound.bind(tx)
		return fn(bound)
	})
}
