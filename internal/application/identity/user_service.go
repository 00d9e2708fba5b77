package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// UserService handles user directory management
type UserService struct {
	scope     transaction.Scope
	repos     transaction.Repositories
	cache     shared.Cache
	cacheTTL  time.Duration
	blacklist auth.TokenBlacklist
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// UserServiceConfig contains the knobs of the user service
type UserServiceConfig struct {
	CacheTTL time.Duration
	// TokenTTL bounds how long a user-wide token revocation is kept
	TokenTTL time.Duration
}

// NewUserService creates a new user service
func NewUserService(
	scope transaction.Scope,
	repos transaction.Repositories,
	c shared.Cache,
	blacklist auth.TokenBlacklist,
	cfg UserServiceConfig,
	logger *zap.Logger,
) *UserService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	return &UserService{
		scope:     scope,
		repos:     repos,
		cache:     c,
		cacheTTL:  cfg.CacheTTL,
		blacklist: blacklist,
		tokenTTL:  cfg.TokenTTL,
		logger:    logger,
	}
}

// List returns every user ordered by id. Field roles get the directory too,
// since sale forms pick salespeople from it.
func (s *UserService) List(ctx context.Context) ([]UserResponse, error) {
	return shared.ReadThrough(ctx, s.cache, shared.CacheKeyUsers, s.cacheTTL, func(ctx context.Context) ([]UserResponse, error) {
		users, err := s.repos.Users().FindAll(ctx)
		if err != nil {
			return nil, err
		}
		dir := identity.NewDirectory(users)
		out := make([]UserResponse, len(users))
		for i := range users {
			out[i] = ToUserResponse(&users[i], dir)
		}
		return out, nil
	})
}

// Get retrieves a user by id
func (s *UserService) Get(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repos.Users().FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user, nil)
	return &resp, nil
}

// Create creates a user. Linking a supervisor also inherits the supervisor's manager.
func (s *UserService) Create(ctx context.Context, actor identity.Actor, req CreateUserRequest) (*UserResponse, error) {
	if !actor.Can(identity.PermUsers) {
		return nil, shared.ErrForbidden
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+req.Role)
	}
	user, err := identity.NewUser(req.ID, req.Username, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}
	if req.Rates != nil {
		if err := user.SetRates(req.Rates.toDomain()); err != nil {
			return nil, err
		}
	}

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		exists, err := repos.Users().ExistsByIDOrUsername(ctx, user.ID, user.Username)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "A user with this id or username already exists")
		}
		if err := s.applyLinks(ctx, repos, user, &req.SupervisorID, &req.ManagerID); err != nil {
			return err
		}
		return repos.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.UserID))
	resp := ToUserResponse(user, nil)
	return &resp, nil
}

// Update changes profile, rates and reporting links. When a supervisor's manager
// changes, every user they supervise is re-pointed in the same transaction.
func (s *UserService) Update(ctx context.Context, actor identity.Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	if !actor.Can(identity.PermUsers) {
		return nil, shared.ErrForbidden
	}
	var (
		user        *identity.User
		roleChanged bool
		cascaded    int
	)
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		var err error
		user, err = repos.Users().FindByID(ctx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		prevRole, prevManager := user.Role, user.ManagerID

		if req.Name != nil || req.Role != nil {
			name, role := user.Name, user.Role
			if req.Name != nil {
				name = *req.Name
			}
			if req.Role != nil {
				parsed, ok := identity.ParseRole(*req.Role)
				if !ok {
					return shared.NewDomainError("INVALID_ROLE", "Unknown role: "+*req.Role)
				}
				role = parsed
			}
			if err := user.SetProfile(name, role); err != nil {
				return err
			}
		}
		if req.Rates != nil {
			if err := user.SetRates(req.Rates.toDomain()); err != nil {
				return err
			}
		}
		if err := s.applyLinks(ctx, repos, user, req.SupervisorID, req.ManagerID); err != nil {
			return err
		}
		if err := repos.Users().Update(ctx, user); err != nil {
			return err
		}
		roleChanged = user.Role != prevRole

		if user.ManagerID != prevManager {
			subs, err := repos.Users().FindBySupervisor(ctx, user.ID)
			if err != nil {
				return err
			}
			for _, sub := range identity.CascadeManager(user, subs) {
				if err := repos.Users().Update(ctx, sub); err != nil {
					return err
				}
				cascaded++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	if roleChanged {
		// Tokens carry the role's permissions
		s.revokeTokens(ctx, user.ID)
	}

	s.logger.Info("User updated",
		zap.String("user_id", user.ID),
		zap.Int("cascaded", cascaded),
		zap.String("updated_by", actor.UserID))
	resp := ToUserResponse(user, nil)
	return &resp, nil
}

// ResetPassword sets a new password without checking the current one
func (s *UserService) ResetPassword(ctx context.Context, actor identity.Actor, id, password string) error {
	if !actor.Can(identity.PermUsers) {
		return shared.ErrForbidden
	}
	user, err := s.repos.Users().FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := s.repos.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	s.revokeTokens(ctx, user.ID)
	s.logger.Info("User password reset", zap.String("user_id", user.ID), zap.String("reset_by", actor.UserID))
	return nil
}

// Delete removes a user. The master user and users referenced by installments
// cannot be removed; users reporting to the removed one lose that link.
func (s *UserService) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if !actor.Can(identity.PermUsers) {
		return shared.ErrForbidden
	}
	id = strings.TrimSpace(id)
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		user, err := repos.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := user.CanBeDeleted(); err != nil {
			return err
		}
		count, err := repos.Installments().CountByUser(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count installments: %w", err)
		}
		if count > 0 {
			return shared.NewDomainError("CONFLICT",
				fmt.Sprintf("User %s is referenced by %d installments", id, count))
		}

		all, err := repos.Users().FindAll(ctx)
		if err != nil {
			return err
		}
		for i := range all {
			u := &all[i]
			if u.SupervisorID != id && u.ManagerID != id {
				continue
			}
			if u.SupervisorID == id {
				_ = u.AssignSupervisor(nil)
			}
			if u.ManagerID == id {
				_ = u.AssignManager("")
			}
			if err := repos.Users().Update(ctx, u); err != nil {
				return err
			}
		}
		return repos.Users().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.revokeTokens(ctx, id)
	s.logger.Info("User deleted", zap.String("user_id", id), zap.String("deleted_by", actor.UserID))
	return nil
}

// applyLinks sets the reporting links named by the request. nil pointers leave a link
// unchanged; a supervisor link takes precedence over an explicit manager.
func (s *UserService) applyLinks(ctx context.Context, repos transaction.Repositories, user *identity.User, supervisorID, managerID *string) error {
	if managerID != nil {
		mid := strings.TrimSpace(*managerID)
		if mid != "" {
			if _, err := repos.Users().FindByID(ctx, mid); err != nil {
				return linkError("manager", mid, err)
			}
		}
		if err := user.AssignManager(mid); err != nil {
			return err
		}
	}
	if supervisorID != nil {
		sid := strings.TrimSpace(*supervisorID)
		if sid == "" {
			return user.AssignSupervisor(nil)
		}
		sup, err := repos.Users().FindByID(ctx, sid)
		if err != nil {
			return linkError("supervisor", sid, err)
		}
		return user.AssignSupervisor(sup)
	}
	return nil
}

func linkError(kind, id string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("INVALID_REPORTING_LINK", fmt.Sprintf("Unknown %s %s", kind, id))
	}
	return err
}

func (s *UserService) revokeTokens(ctx context.Context, userID string) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID, s.tokenTTL); err != nil {
		s.logger.Error("Failed to revoke user tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserService) invalidate(ctx context.Context) {
	if err := shared.Invalidate(ctx, s.cache, shared.CacheKeyUsers); err != nil {
		s.logger.Warn("failed to invalidate users cache", zap.Error(err))
	}
}
