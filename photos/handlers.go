package photos

import (
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/pkg/errors"
)

const maxUploadMemory = 32 << 20

func (c *Photos) ServeMux() http.Handler {
	router := chi.NewRouter()

	router.Get("/", c.ListHandler)
	router.Post("/upload", c.UploadHandler)
	router.Get("/map", c.MapHandler)

	router.Route("/{photoID:[0-9]+}", func(r chi.Router) {
		r.Get("/", c.GetHandler)
		r.Patch("/", c.UpdateHandler)
		r.Delete("/", c.DeleteHandler)
		r.Put("/day", c.MoveHandler)
		if c.comments != nil {
			r.Mount("/comments", c.comments)
		}
	})

	return router
}

func photoID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "photoID"), 10, 64)
	if err != nil {
		return 0, apierr.Validation("invalid photo id")
	}
	return uint(id), nil
}

func (c *Photos) requester(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user := auth.User(r.Context())
	if user == nil {
		c.render.Unauthorized(w, r)
		return models.User{}, false
	}
	return *user, true
}

func (c *Photos) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	unassigned, _ := strconv.ParseBool(r.URL.Query().Get("unassigned"))
	photos, err := c.List(r.Context(), user, unassigned)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, photos)
}

func readFile(header *multipart.FileHeader) (File, error) {
	f, err := header.Open()
	if err != nil {
		return File{}, errors.Wrapf(err, "could not open %s", header.Filename)
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return File{}, errors.Wrapf(err, "could not read %s", header.Filename)
	}
	return File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (c *Photos) UploadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		c.render.Error(w, r, apierr.Validation("invalid multipart form: %v", err))
		return
	}

	var metas []Meta
	if err := render.Unmarshal([]byte(r.FormValue("metadata")), &metas); err != nil {
		c.render.Error(w, r, apierr.Validation("invalid metadata: %v", err))
		return
	}

	headers := r.MultipartForm.File["files"]
	files := make([]File, 0, len(headers))
	for _, header := range headers {
		file, err := readFile(header)
		if err != nil {
			c.render.Error(w, r, err)
			return
		}
		files = append(files, file)
	}

	photos, err := c.Upload(r.Context(), files, metas, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusCreated, photos)
}

func (c *Photos) MapHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	markers, err := c.MapMarkers(r.Context(), user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, markers)
}

func (c *Photos) GetHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.requester(w, r); !ok {
		return
	}
	id, err := photoID(r)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	photo, err := c.Get(r.Context(), id)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, photo)
}

type updateBody struct {
	TakenAt   *string  `json:"takenAt"`
	DayID     *uint    `json:"dayId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (c *Photos) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := photoID(r)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body updateBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	req := UpdateRequest{
		DayID:     body.DayID,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
	}
	if body.TakenAt != nil {
		takenAt, err := ParseTakenAt(*body.TakenAt)
		if err != nil {
			c.render.Error(w, r, err)
			return
		}
		req.TakenAt = &takenAt
	}
	if err := c.Update(r.Context(), id, req, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

type moveBody struct {
	DayID uint `json:"dayId" valid:"required"`
}

func (c *Photos) MoveHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := photoID(r)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body moveBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.Move(r.Context(), id, body.DayID, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

func (c *Photos) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := photoID(r)
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
