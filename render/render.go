package render

import (
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/matematik7/journal-go/apierr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Render struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Render {
	return &Render{
		log: log,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (re *Render) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		re.log.WithField("request_id", middleware.GetReqID(r.Context())).
			WithError(err).Error("could not encode response")
	}
}

func (re *Render) NoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (re *Render) Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierr.KindOf(err)
	body := errorBody{
		Error:   kind.String(),
		Message: errors.Cause(err).Error(),
	}
	if kind == apierr.KindInternal {
		re.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
		body.Message = http.StatusText(http.StatusInternalServerError)
	}
	re.JSON(w, r, kind.Status(), body)
}

func (re *Render) Unauthorized(w http.ResponseWriter, r *http.Request) {
	re.JSON(w, r, http.StatusUnauthorized, errorBody{
		Error:   "unauthorized",
		Message: "login required",
	})
}

func (re *Render) NotFound(w http.ResponseWriter, r *http.Request) {
	re.Error(w, r, apierr.NotFound("%s not found", r.URL.Path))
}

// Decode reads a JSON body into v and checks its `valid` tags.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	if _, err := govalidator.ValidateStruct(v); err != nil {
		return apierr.Validation("%v", err)
	}
	return nil
}

func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
