package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/validation"
)

// CreateUserInput is used by administrators and portalctl; unlike Register it picks the role.
type CreateUserInput struct {
	RegisterInput
	Role models.Role `json:"role"`
}

// ProfileInput holds the fields a user may change on their own account.
type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

func (in ProfileInput) check(c *validation.Checker) *validation.Checker {
	return c.Required("firstName", in.FirstName).
		MaxLen("firstName", in.FirstName, 100).
		Required("lastName", in.LastName).
		MaxLen("lastName", in.LastName, 100).
		Phone("phone", in.Phone).
		MaxLen("company", in.Company, 200)
}

// UserUpdate is the administrator's view of an editable user.
type UserUpdate struct {
	ProfileInput
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func (s *AuthService) CreateUser(ctx context.Context, actorID *int64, in CreateUserInput, ip string) (*models.User, error) {
	c := in.RegisterInput.check(validation.New(), s.validator())
	c.Check(in.Role.Valid(), "role", "must be client or admin")
	if err := c.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Company:      in.Company,
		Role:         in.Role,
		Status:       models.StatusActive,
	}

	err = s.db.WithTx(ctx, func(q *database.Queries) error {
		if err := q.CreateUser(ctx, user); err != nil {
			return err
		}
		return q.CreateAuditLog(ctx, &models.AuditLog{
			UserID: actorID,
			Action: ActionUserCreated,
			Detail: fmt.Sprintf("user %d (%s)", user.ID, user.Role),
			IP:     ip,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.db.GetUserByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context, filter models.UserFilter, page, limit int) ([]models.User, models.Page, error) {
	p := models.NewPage(page, limit, 0)
	users, total, err := s.db.ListUsers(ctx, filter, p)
	if err != nil {
		return nil, p, err
	}
	return users, models.NewPage(page, limit, total), nil
}

// UpdateProfile changes the caller's own contact details.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput, ip string) (*models.User, error) {
	if err := in.check(validation.New()).Err(); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Phone = in.Phone
	user.Company = in.Company

	err = s.audited(ctx, &models.AuditLog{UserID: &userID, Action: ActionUserUpdated, Detail: "profile", IP: ip},
		func(q *database.Queries) error { return q.UpdateUser(ctx, user) })
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// UpdateUser applies an administrator's edit of another account.
func (s *AuthService) UpdateUser(ctx context.Context, actorID, id int64, in UserUpdate, ip string) (*models.User, error) {
	c := in.ProfileInput.check(validation.New()).Email("email", in.Email)
	c.Check(in.Role.Valid(), "role", "must be client or admin")
	if err := c.Err(); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Phone = in.Phone
	user.Company = in.Company
	user.Role = in.Role

	entry := &models.AuditLog{UserID: &actorID, Action: ActionUserUpdated, Detail: fmt.Sprintf("user %d", id), IP: ip}
	err = s.audited(ctx, entry, func(q *database.Queries) error { return q.UpdateUser(ctx, user) })
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// SetStatus activates, deactivates or suspends an account. Any status other than active
// rejects the account's tokens from the next request on. An actorID of 0 is an operator
// acting outside the API.
func (s *AuthService) SetStatus(ctx context.Context, actorID, id int64, status models.Status, ip string) (*models.User, error) {
	if !status.Valid() {
		return nil, validation.New().Check(false, "status", "must be active, inactive or suspended").Err()
	}
	if actorID == id && status != models.StatusActive {
		return nil, apierr.ErrForbidden
	}

	var actor *int64
	if actorID != 0 {
		actor = &actorID
	}
	entry := &models.AuditLog{UserID: actor, Action: ActionStatusChanged, Detail: fmt.Sprintf("user %d -> %s", id, status), IP: ip}
	err := s.audited(ctx, entry, func(q *database.Queries) error { return q.UpdateUserStatus(ctx, id, status) })
	if err != nil {
		return nil, err
	}
	return s.db.GetUserByID(ctx, id)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, ip string) error {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apierr.ErrInvalidCredentials
	}

	err = validation.New().
		Required("newPassword", newPassword).
		Check(oldPassword != newPassword, "newPassword", "must differ from the current password").
		Password("newPassword", s.validator(), newPassword, user.Email, user.FirstName, user.LastName).
		Err()
	if err != nil {
		return err
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	err = s.audited(ctx, &models.AuditLog{UserID: &userID, Action: ActionPasswordChange, IP: ip},
		func(q *database.Queries) error { return q.UpdateUserPassword(ctx, userID, hash) })
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// audited runs an account write and its audit row in one transaction.
func (s *AuthService) audited(ctx context.Context, entry *models.AuditLog, write func(q *database.Queries) error) error {
	return s.db.WithTx(ctx, func(q *database.Queries) error {
		if err := write(q); err != nil {
			return err
		}
		return q.CreateAuditLog(ctx, entry)
	})
}
