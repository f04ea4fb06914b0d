// internal/app/features/profile/avatar.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	uierrors "github.com/siberialife/siberialife/internal/app/features/errors"
	"github.com/siberialife/siberialife/internal/app/system/apperr"
	"github.com/siberialife/siberialife/internal/app/system/auth"
	"github.com/siberialife/siberialife/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// AvatarField is the multipart field carrying the image.
const AvatarField = "avatar"

// multipartOverhead is allowed on top of the file cap for part headers and
// boundaries.
const multipartOverhead = 64 << 10

// LimitBody rejects requests whose body exceeds max plus multipart overhead,
// up front when Content-Length says so and otherwise while reading.
func LimitBody(max int64) func(http.Handler) http.Handler {
	limit := max + multipartOverhead
	msg := fmt.Sprintf("File too large (max %d MB)", max>>20)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				uierrors.Fail(w, http.StatusBadRequest, msg)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// HandleUploadAvatar serves PUT /api/users/profile/avatar.
//
// The body is streamed part by part; the avatar part's Content-Type is
// checked before any byte reaches disk.
func (h *Handler) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.UserFrom(r)
	if !ok {
		h.ErrLog.Respond(w, r, "avatar: no user", errNoUser)
		return
	}

	noFile := apperr.New(apperr.NoFileUploaded, "No file uploaded")
	mr, err := r.MultipartReader()
	if err != nil {
		h.ErrLog.Respond(w, r, "avatar: not multipart", apperr.Wrap(apperr.NoFileUploaded, noFile.Message, err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			h.ErrLog.Respond(w, r, "avatar: no file part", noFile)
			return
		}
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				h.ErrLog.Respond(w, r, "avatar: body too large", apperr.Wrap(apperr.ValidationFailed,
					fmt.Sprintf("File too large (max %d MB)", h.Svc.MaxAvatarBytes()>>20), err))
				return
			}
			h.ErrLog.Respond(w, r, "avatar: bad multipart", apperr.Wrap(apperr.ValidationFailed, "Invalid multipart body", err))
			return
		}
		if part.FormName() != AvatarField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		ct := strings.ToLower(part.Header.Get("Content-Type"))
		if !strings.HasPrefix(ct, "image/") {
			_ = part.Close()
			h.ErrLog.Respond(w, r, "avatar: rejected type", apperr.New(apperr.InvalidFileType, "Please upload an image file"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
		res, err := h.Svc.ReplaceAvatar(ctx, cu.ID, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			cancel()
			h.ErrLog.Respond(w, r, "avatar upload failed", err)
			return
		}
		h.Metrics.UploadBytes(res.Size)
		h.AuditLog.AvatarUploaded(ctx, r, res.User.ID, res.File, res.Size)
		cancel()

		h.Log.Info("avatar stored",
			zap.String("user_id", cu.ID),
			zap.String("file", res.File),
			zap.Int64("bytes", res.Size),
		)
		uierrors.OK(w, res.User)
		return
	}
}
