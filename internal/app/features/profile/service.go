// internal/app/features/profile/service.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	userstore "github.com/siberialife/siberialife/internal/app/store/users"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/authutil"
	"github.com/siberialife/siberialife/internal/app/system/inputval"
	"github.com/siberialife/siberialife/internal/app/system/lock"
	"github.com/siberialife/siberialife/internal/app/system/uploads"
	"github.com/siberialife/siberialife/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultMaxAvatarBytes is the avatar size cap (5 MiB).
const DefaultMaxAvatarBytes int64 = 5 << 20

const msgUserNotFound = "User not found"

// Users is the slice of the user store the profile flows need.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd userstore.ProfileUpdate) (*models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// Service implements profile update, password change and avatar upload.
type Service struct {
	users     Users
	files     *uploads.Store
	locker    lock.Locker
	lockOpts  lock.Options
	maxAvatar int64
	log       *zap.Logger
	now       func() time.Time
}

// NewService builds a Service. maxAvatar <= 0 selects DefaultMaxAvatarBytes.
func NewService(users Users, files *uploads.Store, locker lock.Locker, maxAvatar int64, logger *zap.Logger) *Service {
	if maxAvatar <= 0 {
		maxAvatar = DefaultMaxAvatarBytes
	}
	return &Service{
		users:     users,
		files:     files,
		locker:    locker,
		lockOpts:  lock.AvatarUploadOptions,
		maxAvatar: maxAvatar,
		log:       logger,
		now:       time.Now,
	}
}

// MaxAvatarBytes is the configured avatar cap.
func (s *Service) MaxAvatarBytes() int64 { return s.maxAvatar }

// ProfileInput is the profile update payload. Absent fields are untouched.
type ProfileInput struct {
	Name   *string `json:"name" validate:"omitempty,notblank,max=100"`
	Avatar *string `json:"avatar"`
}

// PasswordInput is the password change payload.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func parseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.NotFound, msgUserNotFound)
	}
	return oid, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, msgUserNotFound, err)
	case errors.Is(err, userstore.ErrInvalid):
		return apperr.Wrap(apperr.ValidationFailed, err.Error(), err)
	}
	return apperr.Internal(err)
}

// UpdateProfile changes name and/or avatar of targetID. Users may edit only
// their own profile unless they are admins. An avatar set here must be an
// external http(s) URL or empty; local files are only written by the upload
// flow.
func (s *Service) UpdateProfile(ctx context.Context, actor *auth.CurrentUser, targetID string, in ProfileInput) (*models.User, error) {
	oid, err := parseUserID(targetID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (actor.ID != targetID && !actor.IsAdmin()) {
		return nil, apperr.New(apperr.Forbidden, "Not allowed to update this profile")
	}
	if in.Name == nil && in.Avatar == nil {
		return nil, apperr.New(apperr.NoFieldsProvided, "Please provide name or avatar to update")
	}
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	if in.Avatar != nil && *in.Avatar != "" && !inputval.IsValidHTTPURL(*in.Avatar) {
		return nil, apperr.New(apperr.ValidationFailed, "avatar must be an http(s) URL")
	}

	u, err := s.users.UpdateProfile(ctx, oid, userstore.ProfileUpdate{Name: in.Name, Avatar: in.Avatar})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return u, nil
}

// ChangePassword replaces the password of userID after checking the current
// one. A missing field or a short new password never reaches the store.
func (s *Service) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return apperr.New(apperr.WeakPassword, "Please provide current and new password")
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		return apperr.Wrap(apperr.WeakPassword, "New password must be at least 6 characters", err)
	}
	oid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	u, err := s.users.GetByIDWithPassword(ctx, oid)
	if err != nil {
		return mapStoreErr(err)
	}
	ok, err := authutil.VerifyPassword(in.CurrentPassword, u.Password)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.New(apperr.InvalidCredentials, "Current password is incorrect")
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, oid, hash); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// AvatarResult describes a completed upload.
type AvatarResult struct {
	User *models.User
	File string
	Size int64
}

// ReplaceAvatar stores body as the new avatar of userID.
//
// The upload is written to a fresh file before the user's avatar lock is
// taken, so a slow client never holds the lease. Under the lock: load the
// user, delete the previous local avatar, point the user at the new file.
// The new file is removed on any failure. External URL avatars are never
// deleted.
func (s *Service) ReplaceAvatar(ctx context.Context, userID, originalName string, body io.Reader) (*AvatarResult, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	name := uploads.AvatarFileName(originalName, s.now())
	n, err := s.files.Save(name, uploads.LimitReader(body, s.maxAvatar))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.Is(err, uploads.ErrTooLarge) || errors.As(err, &tooBig) {
			return nil, apperr.Wrap(apperr.ValidationFailed,
				fmt.Sprintf("File too large (max %d MB)", s.maxAvatar>>20), err)
		}
		return nil, apperr.Internal(err)
	}

	var res *AvatarResult
	err = lock.With(ctx, s.locker, lock.Keys.AvatarUpload(userID), s.lockOpts, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, oid)
		if err != nil {
			return mapStoreErr(err)
		}

		if old, ok := s.files.LocalName(u.Avatar); ok && old != name {
			s.removeQuietly(old)
		}

		updated, err := s.users.SetAvatar(ctx, oid, s.files.URL(name))
		if err != nil {
			return mapStoreErr(err)
		}
		res = &AvatarResult{User: updated, File: name, Size: n}
		return nil
	})
	if err != nil {
		s.removeQuietly(name)
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, apperr.Wrap(apperr.Conflict, "Avatar upload already in progress", err)
	}
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Internal(err)
	}
	return res, nil
}

func (s *Service) removeQuietly(name string) {
	if err := s.files.Remove(name); err != nil && s.files.Exists(name) {
		s.log.Warn("avatar cleanup failed", zap.String("file", name), zap.Error(err))
	}
}
