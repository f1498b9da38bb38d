package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/sessions"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/blobs"
	"github.com/matematik7/journal-go/comments"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/photos"
	"github.com/matematik7/journal-go/regions"
	"github.com/matematik7/journal-go/render"
	"github.com/matematik7/journal-go/stats"
	"github.com/matematik7/journal-go/travel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type controller interface {
	Resources() []interface{}
}

func newLogger(isProd bool, sentryDSN string) (*logrus.Logger, error) {
	log := logrus.New()
	if isProd {
		log.Formatter = &logrus.JSONFormatter{}
	} else {
		log.Level = logrus.DebugLevel
	}

	if sentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(sentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, errors.Wrap(err, "could not create sentry hook")
		}
		hook.Timeout = 5 * time.Second
		log.Hooks.Add(hook)
	}

	return log, nil
}

func openStore(ctx context.Context, log *logrus.Logger) (*blobs.Retrying, error) {
	bucket := viper.GetString("storage.bucket")
	prefix := viper.GetString("storage.prefix")
	publicURL := viper.GetString("storage.public_url")

	var store blobs.Store
	switch backend := viper.GetString("storage.backend"); backend {
	case "s3":
		s3, err := blobs.NewS3(viper.GetString("storage.region"), bucket, prefix, publicURL)
		if err != nil {
			return nil, err
		}
		store = s3
	case "gcs":
		gcs, err := blobs.NewGCS(ctx, bucket, prefix, publicURL)
		if err != nil {
			return nil, err
		}
		store = gcs
	default:
		return nil, errors.Errorf("unknown storage backend %q", backend)
	}

	return &blobs.Retrying{
		Next:     store,
		Attempts: uint(viper.GetInt("storage.retries")),
		Delay:    viper.GetDuration("storage.retry_delay"),
		Log:      log,
	}, nil
}

// configure sets the defaults every setting falls back to.
func configure() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 3000)
	viper.SetDefault("host", "localhost")
	viper.SetDefault("url", fmt.Sprintf("http://%s:%d", viper.GetString("host"), viper.GetInt("port")))
	viper.SetDefault("prod", false)
	viper.SetDefault("cookie_key", "SESSION_SECRET")

	viper.SetDefault("share_url", viper.GetString("url")+apiPrefix+travelsPrefix+"/share")
	viper.SetDefault("db.dialect", "postgres")
	viper.SetDefault("db.dsn", "host=localhost user=postgres sslmode=disable password=postgres")
	viper.SetDefault("storage.backend", "gcs")
	viper.SetDefault("storage.prefix", "photos")
	viper.SetDefault("storage.retries", 3)
	viper.SetDefault("storage.retry_delay", 200*time.Millisecond)
	viper.SetDefault("geocode.language", "ko")
}

const (
	apiPrefix     = "/api"
	travelsPrefix = "/travels"
)

func newRouter(Authorization *auth.Authorization, Travel *travel.Travel, Photos *photos.Photos, Comments *comments.Comments, Stats *stats.Stats) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(Authorization.Middleware)

	r.Route(apiPrefix, func(r chi.Router) {
		// travels serve the public share route next to the owner's ones
		r.Mount(travelsPrefix, Travel.ServeMux())

		r.Group(func(r chi.Router) {
			r.Use(Authorization.RequireUser)
			r.Mount("/photos", Photos.ServeMux())
			r.Mount("/comments", Comments.ServeMux())
			r.Mount("/stats", Stats.ServeMux())
		})
	})

	return r
}

func main() {
	configure()
	host := viper.GetString("host")
	port := viper.GetInt("port")
	isProd := viper.GetBool("prod")

	log, err := newLogger(isProd, viper.GetString("sentry_dsn"))
	if err != nil {
		logrus.Fatalln(err)
	}

	DB, err := gorm.Open(viper.GetString("db.dialect"), viper.GetString("db.dsn"))
	if err != nil {
		log.Fatalf("could not open db: %v", err)
	}
	defer DB.Close()

	store, err := openStore(context.Background(), log)
	if err != nil {
		log.Fatalf("could not open storage: %v", err)
	}
	defer store.Close()

	var resolver regions.Resolver = regions.Offline{}
	if key := viper.GetString("GMAP_SERVER_KEY"); key != "" {
		resolver, err = regions.NewGoogleResolver(key, viper.GetString("geocode.language"))
		if err != nil {
			log.Fatalf("could not create geocoder: %v", err)
		}
	} else {
		log.Warn("GMAP_SERVER_KEY not set, regions stay unresolved")
	}

	sessionStore := sessions.NewCookieStore([]byte(viper.GetString("cookie_key")))
	sessionStore.MaxAge(60 * 60 * 24 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = isProd

	Render := render.New(log)
	Authorization := auth.New(DB, sessionStore, Render, log)
	Travel := travel.New(DB, Render, log, resolver, store, viper.GetString("share_url"))
	Photos := photos.New(DB, Render, log, store, Travel)
	Comments := comments.New(DB, Render, log)
	Stats := stats.New(DB, Render, log)
	Photos.MountComments(Comments.PhotoMux())

	resources := []interface{}{}
	for _, c := range []controller{Authorization, Photos, Travel, Comments} {
		resources = append(resources, c.Resources()...)
	}
	if err := models.Migrate(DB, resources...); err != nil {
		log.Fatalln(err)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	log.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, newRouter(Authorization, Travel, Photos, Comments, Stats)); err != nil {
		log.Fatalln(err)
	}
}
