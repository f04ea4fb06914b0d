package authapi

import (
	"context"
	"errors"

	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/authutil"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/app/system/normalize"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Messages shared by several failure paths.
const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgMissingCredentials = "Please provide email and password"
	msgUserNotFound       = "User not found"
)

// Users is the slice of the user store the auth flow needs.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
}

// Tokens issues session tokens.
type Tokens interface {
	Issue(userID string) (string, error)
}

// Service implements register, login and getMe.
type Service struct {
	users  Users
	tokens Tokens
}

func NewService(users Users, tokens Tokens) *Service {
	return &Service{users: users, tokens: tokens}
}

// RegisterInput is the register payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=participant vip pro business admin"`
}

// LoginInput is the login payload. Presence is checked by Login itself so
// that every failure maps to InvalidCredentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// CredentialError is the cause attached to a login InvalidCredentials error.
// Callers use it for auditing; clients only ever see the generic message.
type CredentialError struct {
	Reason string
	// UserID is set when the email matched an account.
	UserID primitive.ObjectID
}

func (e *CredentialError) Error() string { return e.Reason }

// Login failure reasons.
const (
	ReasonMissingField  = "missing field"
	ReasonUnknownEmail  = "user not found"
	ReasonWrongPassword = "wrong password"
)

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(in.Name)
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return nil, apperr.Wrap(apperr.WeakPassword, "Password must be at least 6 characters", err)
	}
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	if in.Role == models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "Admin accounts cannot be self-registered")
	}

	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.New(apperr.DuplicateEmail, msgUserExists)
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u, err := s.users.Create(ctx, models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     in.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			return nil, apperr.Wrap(apperr.DuplicateEmail, msgUserExists, err)
		case errors.Is(err, userstore.ErrInvalid):
			return nil, apperr.Wrap(apperr.ValidationFailed, err.Error(), err)
		}
		return nil, apperr.Internal(err)
	}
	return s.withToken(u)
}

// Login checks credentials. An unknown email and a wrong password fail with
// the same message.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Wrap(apperr.InvalidCredentials, msgMissingCredentials,
			&CredentialError{Reason: ReasonMissingField})
	}

	u, err := s.users.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.Wrap(apperr.InvalidCredentials, msgInvalidCredentials,
				&CredentialError{Reason: ReasonUnknownEmail})
		}
		return nil, apperr.Internal(err)
	}

	ok, err := authutil.VerifyPassword(in.Password, u.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.Wrap(apperr.InvalidCredentials, msgInvalidCredentials,
			&CredentialError{Reason: ReasonWrongPassword, UserID: u.ID})
	}

	u.Password = ""
	return s.withToken(*u)
}

// Me returns the public fields of userID.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, msgUserNotFound)
	}
	u, err := s.users.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, msgUserNotFound, err)
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) withToken(u models.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{User: u, Token: tok}, nil
}
