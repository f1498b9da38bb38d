package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	sessionName = "journal"
	userIDKey   = "user_id"
)

type contextKey struct{}

// Authorization resolves the requester from a signed cookie session. The
// session is filled by whatever login flow sits in front of this service.
type Authorization struct {
	DB     *gorm.DB
	store  sessions.Store
	render *render.Render
	log    *logrus.Logger
}

func New(DB *gorm.DB, store sessions.Store, render *render.Render, log *logrus.Logger) *Authorization {
	return &Authorization{
		DB:     DB,
		store:  store,
		render: render,
		log:    log,
	}
}

func (a Authorization) Resources() []interface{} {
	return []interface{}{
		&models.User{},
	}
}

func (a *Authorization) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.store.Get(r, sessionName)
		if err != nil {
			// broken or rotated cookie, continue anonymously
			a.log.WithError(err).Debug("could not decode session")
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := session.Values[userIDKey].(uint)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		var user models.User
		query := a.DB.First(&user, userID)
		if query.RecordNotFound() {
			next.ServeHTTP(w, r)
			return
		} else if query.Error != nil {
			a.render.Error(w, r, errors.Wrap(query.Error, "could not load session user"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireUser rejects anonymous requests.
func (a *Authorization) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if User(r.Context()) == nil {
			a.render.Unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// User returns the requester or nil for anonymous requests.
func User(ctx context.Context) *models.User {
	user, ok := ctx.Value(contextKey{}).(models.User)
	if !ok {
		return nil
	}
	return &user
}
