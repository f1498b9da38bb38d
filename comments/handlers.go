package comments

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
)

// ServeMux serves /{commentID} routes.
func (c *Comments) ServeMux() http.Handler {
	router := chi.NewRouter()

	router.Route("/{commentID:[0-9]+}", func(r chi.Router) {
		r.Put("/", c.UpdateHandler)
		r.Delete("/", c.DeleteHandler)
	})

	return router
}

// PhotoMux serves the comments of one photo. It is mounted below a route
// carrying the photoID parameter.
func (c *Comments) PhotoMux() http.Handler {
	router := chi.NewRouter()

	router.Get("/", c.ListHandler)
	router.Post("/", c.CreateHandler)

	return router
}

func urlID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apierr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

func (c *Comments) requester(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user := auth.User(r.Context())
	if user == nil {
		c.render.Unauthorized(w, r)
		return models.User{}, false
	}
	return *user, true
}

type commentBody struct {
	Content string `json:"content" valid:"required"`
}

func (c *Comments) ListHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.requester(w, r); !ok {
		return
	}
	id, err := urlID(r, "photoID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	comments, err := c.List(r.Context(), id)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, comments)
}

func (c *Comments) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "photoID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body commentBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	commentID, err := c.Create(r.Context(), id, body.Content, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusCreated, map[string]uint{"commentId": commentID})
}

func (c *Comments) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "commentID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body commentBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.Update(r.Context(), id, body.Content, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

func (c *Comments) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "commentID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.Delete(r.Context(), id, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}
