package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/auth"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
	RoleID    int
}

// Create creates a new user.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	email := auth.NormalizeEmail(opts.Email)

	exists, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.AlreadyExists("User")
	}

	if err := s.checkRole(ctx, opts.RoleID); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Phone:        opts.Phone,
		City:         opts.City,
		RoleID:       opts.RoleID,
		IsActive:     true,
	}

	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, "ux_users_email") {
			return nil, errcodes.AlreadyExists("User")
		}
		return nil, errors.WithStack(err)
	}

	// Reload with relations
	return s.Retrieve(ctx, user.ID)
}

func (s *Service) checkRole(ctx context.Context, roleID int) error {
	roleExists, err := s.db.NewSelect().
		Model((*models.Role)(nil)).
		Where("id = ?", roleID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !roleExists {
		return errcodes.ValidationError("Invalid role ID")
	}
	return nil
}

// Retrieve gets a user by ID, active or not.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions").
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Limit    int
	Offset   int
	Search   *string
	IsActive *bool
}

// List returns a paginated list of users.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		Relation("Role").
		Order("u.id ASC")

	if opts.Search != nil && *opts.Search != "" {
		pattern := database.ContainsPattern(*opts.Search)
		query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`LOWER(u.email) LIKE LOWER(?) ESCAPE '\'`, pattern).
				WhereOr(`LOWER(u.first_name) LIKE LOWER(?) ESCAPE '\'`, pattern).
				WhereOr(`LOWER(u.last_name) LIKE LOWER(?) ESCAPE '\'`, pattern)
		})
	}
	if opts.IsActive != nil {
		query = query.Where("u.is_active = ?", *opts.IsActive)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return users, total, nil
}

// UpdateOptions contains options for updating a user.
type UpdateOptions struct {
	Columns []string
}

// Update updates a user.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, column := range opts.Columns {
		if column == "role_id" {
			if err := s.checkRole(ctx, user.RoleID); err != nil {
				return err
			}
		}
	}

	user.UpdatedAt = time.Now()
	opts.Columns = append(opts.Columns, "updated_at")
	_, err := s.db.NewUpdate().
		Model(user).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, "ux_users_email") {
			return errcodes.AlreadyExists("User")
		}
		return errors.WithStack(err)
	}

	return nil
}

// ResetPassword changes a user's password.
func (s *Service) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hashedPassword).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.WithStack(err)
	} else if n == 0 {
		return errcodes.NotFound("User")
	}

	return nil
}

// VerifyPassword checks if the password is correct for a user.
func (s *Service) VerifyPassword(ctx context.Context, userID int, password string) (bool, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Column("password_hash").
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	return auth.CheckPassword(password, user.PasswordHash), nil
}

// Deactivate deactivates a user (soft delete). Their borrow history stays.
func (s *Service) Deactivate(ctx context.Context, userID int) error {
	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.WithStack(err)
	} else if n == 0 {
		return errcodes.NotFound("User")
	}

	logger.FromContext(ctx).Info("user deactivated", logger.Data{"user_id": userID})
	return nil
}
