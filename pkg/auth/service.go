package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12
	// TokenExpiry is how long JWT tokens are valid.
	TokenExpiry = 7 * 24 * time.Hour // 7 days
)

// JWTClaims represents the claims in a JWT token.
type JWTClaims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterOptions describes a new account.
type RegisterOptions struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
}

// Service handles authentication operations.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
}

// NewService creates a new auth service.
func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CountUsers returns the total number of users.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// Authenticate validates credentials and returns the user if valid.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions").
		Where("u.email = ?", NormalizeEmail(email)).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, errcodes.Unauthorized("Invalid email or password")
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, errcodes.Unauthorized("Invalid email or password")
	}

	return user, nil
}

// GenerateToken creates a new JWT token for the user.
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// GetUserByID retrieves an active user by ID with relations.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions").
		Where("u.id = ?", id).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ActiveBorrows returns the user's borrows that haven't been returned yet,
// soonest due first, with the status each has on today.
func (s *Service) ActiveBorrows(ctx context.Context, userID int, today time.Time) ([]*models.Borrow, error) {
	var borrows []*models.Borrow
	err := s.db.NewSelect().
		Model(&borrows).
		Relation("Book").
		Where("br.user_id = ?", userID).
		Where("br.status IN (?)", bun.In(models.ActiveBorrowStatuses)).
		Order("br.due_date ASC", "br.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, b := range borrows {
		b.Status = b.StatusOn(today)
	}
	return borrows, nil
}

// Register creates a member account.
func (s *Service) Register(ctx context.Context, opts RegisterOptions) (*models.User, error) {
	return s.createUser(ctx, models.RoleMember, opts)
}

// CreateFirstAdmin creates the first admin user during setup.
func (s *Service) CreateFirstAdmin(ctx context.Context, opts RegisterOptions) (*models.User, error) {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errcodes.Forbidden("Running setup again")
	}

	return s.createUser(ctx, models.RoleAdmin, opts)
}

func (s *Service) createUser(ctx context.Context, roleName string, opts RegisterOptions) (*models.User, error) {
	role := &models.Role{}
	err := s.db.NewSelect().
		Model(role).
		Where("name = ?", roleName).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	hashedPassword, err := HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        NormalizeEmail(opts.Email),
		PasswordHash: hashedPassword,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		Phone:        opts.Phone,
		City:         opts.City,
		RoleID:       role.ID,
		IsActive:     true,
	}

	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, "ux_users_email") {
			return nil, errcodes.AlreadyExists("User")
		}
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("user registered", logger.Data{"user_id": user.ID, "role": roleName})

	return s.GetUserByID(ctx, user.ID)
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashedPassword), nil
}

// CheckPassword compares a password with a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
