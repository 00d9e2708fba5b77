package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// MasterUserID is the id of the built-in administrator, which cannot be deleted
const MasterUserID = "1"

// Password cost for bcrypt
const bcryptCost = 12

// Default commission rates applied when a user is created without explicit rates
var (
	DefaultSalespersonRate = decimal.RequireFromString("0.20")
	DefaultSupervisorRate  = decimal.RequireFromString("0.10")
	DefaultManagerRate     = decimal.RequireFromString("0.10")
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.@]+$`)
	legacyHashRe  = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Rates are the fractions of an installment receivable paid to each role the user can play
type Rates struct {
	Salesperson decimal.Decimal `json:"salesperson"`
	Supervisor  decimal.Decimal `json:"supervisor"`
	Manager     decimal.Decimal `json:"manager"`
}

// DefaultRates returns the rates used for new users
func DefaultRates() Rates {
	return Rates{
		Salesperson: DefaultSalespersonRate,
		Supervisor:  DefaultSupervisorRate,
		Manager:     DefaultManagerRate,
	}
}

// Validate checks every rate is a fraction between 0 and 1
func (r Rates) Validate() error {
	one := decimal.NewFromInt(1)
	for _, v := range []decimal.Decimal{r.Salesperson, r.Supervisor, r.Manager} {
		if v.IsNegative() || v.GreaterThan(one) {
			return shared.NewDomainError("INVALID_RATE", "Commission rates must be fractions between 0 and 1")
		}
	}
	return nil
}

// User is a person of the directory: a login plus commission rates and reporting links
type User struct {
	ID                string
	Username          string
	PasswordHash      string
	Name              string
	Role              Role
	Rates             Rates
	SupervisorID      string
	ManagerID         string
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUser creates a user with default rates
func NewUser(id, username, password, name string, role Role) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.NewDomainError("INVALID_USER_ID", "User ID cannot be empty")
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}

	now := time.Now()
	u := &User{
		ID:        id,
		Username:  strings.TrimSpace(username),
		Name:      strings.TrimSpace(name),
		Role:      role,
		Rates:     DefaultRates(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetProfile updates display name and role
func (u *User) SetProfile(name string, role Role) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	u.Name = strings.TrimSpace(name)
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

// SetRates replaces the commission rates
func (u *User) SetRates(rates Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	u.Rates = rates
	u.UpdatedAt = time.Now()
	return nil
}

// ChangePassword changes the user's password after checking the current one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if ok, _ := u.VerifyPassword(oldPassword); !ok {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password (admin reset, no old password check)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	u.PasswordHash = string(hash)
	u.PasswordChangedAt = &now
	u.UpdatedAt = now
	return nil
}

// VerifyPassword checks the password against the stored hash.
// Hashes imported from the previous system are unsalted SHA-256 hex digests;
// needsRehash is true when such a hash matched and should be replaced by bcrypt.
func (u *User) VerifyPassword(password string) (ok bool, needsRehash bool) {
	if legacyHashRe.MatchString(u.PasswordHash) {
		sum := sha256.Sum256([]byte(password))
		digest := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(digest), []byte(u.PasswordHash)) == 1 {
			return true, true
		}
		return false, false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, false
}

// UpgradePasswordHash re-hashes a verified legacy password with bcrypt
func (u *User) UpgradePasswordHash(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now()
	return nil
}

// CanBeDeleted checks the static delete guard; references from installments are checked by the caller
func (u *User) CanBeDeleted() error {
	if u.ID == MasterUserID {
		return shared.NewDomainError("MASTER_USER_PROTECTED", "The master administrator (ID 1) cannot be deleted")
	}
	return nil
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if len(username) < 3 {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 3 characters")
	}
	if len(username) > 100 {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 100 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username can only contain letters, numbers, underscores, hyphens, dots and @")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 150 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 150 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}
