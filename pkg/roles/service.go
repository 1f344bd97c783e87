package roles

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// ValidResources contains all valid resource names.
var ValidResources = []string{
	models.ResourceAuthors,
	models.ResourceBooks,
	models.ResourceBorrows,
	models.ResourceRequests,
	models.ResourceUsers,
}

// ValidOperations contains all valid operation names.
var ValidOperations = []string{
	models.OperationRead,
	models.OperationWrite,
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

func validatePermissions(permissions []PermissionInput) error {
	for _, p := range permissions {
		if !slices.Contains(ValidResources, p.Resource) {
			return errcodes.ValidationError("Invalid resource: " + p.Resource)
		}
		if !slices.Contains(ValidOperations, p.Operation) {
			return errcodes.ValidationError("Invalid operation: " + p.Operation)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, name string, permissions []PermissionInput) (*models.Role, error) {
	if err := validatePermissions(permissions); err != nil {
		return nil, err
	}

	now := time.Now()
	role := &models.Role{
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := checkNameAvailable(ctx, tx, name, 0); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(role).Exec(ctx)
		if database.IsUniqueViolation(err, "ux_roles_name") {
			return errcodes.AlreadyExists("Role")
		}
		if err != nil {
			return errors.WithStack(err)
		}

		return insertPermissions(ctx, tx, role.ID, permissions)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, role.ID)
}

func checkNameAvailable(ctx context.Context, tx bun.Tx, name string, excludeID int) error {
	exists, err := tx.NewSelect().
		Model((*models.Role)(nil)).
		Where("LOWER(name) = LOWER(?)", name).
		Where("id != ?", excludeID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.AlreadyExists("Role")
	}
	return nil
}

func insertPermissions(ctx context.Context, tx bun.Tx, roleID int, permissions []PermissionInput) error {
	if len(permissions) == 0 {
		return nil
	}

	perms := make([]*models.Permission, 0, len(permissions))
	for _, p := range permissions {
		perms = append(perms, &models.Permission{
			RoleID:    roleID,
			Resource:  p.Resource,
			Operation: p.Operation,
		})
	}

	_, err := tx.NewInsert().Model(&perms).Exec(ctx)
	if database.IsUniqueViolation(err, "") {
		return errcodes.ValidationError("Duplicate permission")
	}
	return errors.WithStack(err)
}

func (s *Service) Retrieve(ctx context.Context, id int) (*models.Role, error) {
	role := &models.Role{}
	err := s.db.NewSelect().
		Model(role).
		Relation("Permissions").
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Role")
		}
		return nil, errors.WithStack(err)
	}
	return role, nil
}

type ListOptions struct {
	Limit  int
	Offset int
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.Role, int, error) {
	roles := []*models.Role{}

	query := s.db.NewSelect().
		Model(&roles).
		Relation("Permissions").
		Order("r.id ASC")

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

	return roles, total, nil
}

// Update renames a role and, when permissions is non-nil, replaces its
// permission set. System roles keep their names.
func (s *Service) Update(ctx context.Context, id int, name *string, permissions *[]PermissionInput) (*models.Role, error) {
	role, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	if role.IsSystem && name != nil && *name != role.Name {
		return nil, errcodes.Forbidden("Renaming system roles")
	}
	if permissions != nil {
		if err := validatePermissions(*permissions); err != nil {
			return nil, err
		}
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if name != nil && *name != role.Name {
			if err := checkNameAvailable(ctx, tx, *name, id); err != nil {
				return err
			}
			role.Name = *name
			_, err := tx.NewUpdate().
				Model(role).
				Set("name = ?", role.Name).
				Set("updated_at = CURRENT_TIMESTAMP").
				WherePK().
				Exec(ctx)
			if database.IsUniqueViolation(err, "ux_roles_name") {
				return errcodes.AlreadyExists("Role")
			}
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if permissions == nil {
			return nil
		}

		_, err := tx.NewDelete().
			Model((*models.Permission)(nil)).
			Where("role_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return insertPermissions(ctx, tx, id, *permissions)
	})
	if err != nil {
		return nil, err
	}

	return s.Retrieve(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	role, err := s.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return errcodes.Forbidden("Deleting system roles")
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("role_id = ?", id).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count > 0 {
			return errcodes.ValidationError("Cannot delete role that is assigned to users")
		}

		// Permissions go with the role via ON DELETE CASCADE.
		_, err = tx.NewDelete().
			Model((*models.Role)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
