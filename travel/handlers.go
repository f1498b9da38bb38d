package travel

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
)

func (c *Travel) ServeMux() http.Handler {
	router := chi.NewRouter()

	router.Get("/", c.ListHandler)
	router.Post("/", c.CreateHandler)

	router.Get("/share/{token}", c.SharedHandler)

	router.Route("/{travelID:[0-9]+}", func(r chi.Router) {
		r.Get("/", c.DetailHandler)
		r.Patch("/", c.UpdateHandler)
		r.Delete("/", c.DeleteHandler)
		r.Put("/representative", c.RepresentativeHandler)
		r.Get("/share", c.ShareHandler)
		r.Post("/days", c.AddDayHandler)
		r.Get("/days/{dayNumber:[0-9]+}", c.DayHandler)
	})

	router.Route("/days/{dayID:[0-9]+}", func(r chi.Router) {
		r.Delete("/", c.DeleteDayHandler)
		r.Post("/photos", c.AddPhotosHandler)
		r.Post("/logs", c.CreateLogHandler)
	})

	router.Route("/logs/{logID:[0-9]+}", func(r chi.Router) {
		r.Put("/", c.UpdateLogHandler)
		r.Delete("/", c.DeleteLogHandler)
	})

	return router
}

func urlID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apierr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

func (c *Travel) requester(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user := auth.User(r.Context())
	if user == nil {
		c.render.Unauthorized(w, r)
		return models.User{}, false
	}
	return *user, true
}

func (c *Travel) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	travels, err := c.List(r.Context(), user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, travels)
}

type createBody struct {
	Title                 string `json:"title" valid:"required"`
	Region                string `json:"trvRegion"`
	StartDate             string `json:"startDate"`
	EndDate               string `json:"endDate"`
	PhotoIDs              []uint `json:"photoIds"`
	RepresentativePhotoID *uint  `json:"representativePhotoId"`
}

func (c *Travel) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}

	var body createBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	req := CreateRequest{
		Title:                 body.Title,
		Region:                body.Region,
		PhotoIDs:              body.PhotoIDs,
		RepresentativePhotoID: body.RepresentativePhotoID,
	}
	if body.StartDate != "" && body.EndDate != "" {
		start, err := models.ParseDate(body.StartDate)
		if err != nil {
			c.render.Error(w, r, apierr.Validation("invalid start date %q", body.StartDate))
			return
		}
		end, err := models.ParseDate(body.EndDate)
		if err != nil {
			c.render.Error(w, r, apierr.Validation("invalid end date %q", body.EndDate))
			return
		}
		req.StartDate, req.EndDate = &start, &end
	}

	id, err := c.Create(r.Context(), req, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusCreated, map[string]uint{"travelId": id})
}

func (c *Travel) DetailHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	detail, err := c.Detail(r.Context(), id, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, detail)
}

func (c *Travel) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var req UpdateRequest
	if err := render.Decode(r, &req); err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.Update(r.Context(), id, req, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

func (c *Travel) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
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

type representativeBody struct {
	PhotoID *uint `json:"photoId"`
}

func (c *Travel) RepresentativeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body representativeBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.UpdateRepresentativePhoto(r.Context(), id, body.PhotoID, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

func (c *Travel) ShareHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	url, err := c.ShareURL(r.Context(), id, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, map[string]interface{}{
		"travelId": id,
		"shareUrl": url,
	})
}

func (c *Travel) SharedHandler(w http.ResponseWriter, r *http.Request) {
	detail, err := c.ResolveShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, detail)
}

type addDayBody struct {
	Date string `json:"date" valid:"required"`
}

func (c *Travel) AddDayHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body addDayBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	date, err := models.ParseDate(body.Date)
	if err != nil {
		c.render.Error(w, r, apierr.Validation("invalid date %q", body.Date))
		return
	}
	dayID, err := c.AddDay(r.Context(), id, date, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusCreated, map[string]interface{}{
		"dayId": dayID,
		"date":  models.DateKey(date),
	})
}

func (c *Travel) DayHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "travelID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "dayNumber"))
	if err != nil {
		c.render.NotFound(w, r)
		return
	}
	day, err := c.GetDay(r.Context(), id, number, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, day)
}

func (c *Travel) DeleteDayHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "dayID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.DeleteDay(r.Context(), id, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

type addPhotosBody struct {
	PhotoIDs []uint `json:"photoIds"`
}

func (c *Travel) AddPhotosHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "dayID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body addPhotosBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	count, err := c.AddPhotosToDay(r.Context(), id, body.PhotoIDs, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, map[string]interface{}{
		"dayId":      id,
		"addedCount": count,
	})
}

type logBody struct {
	Content string `json:"content" valid:"required"`
}

func (c *Travel) CreateLogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "dayID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body logBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	logID, err := c.CreateLog(r.Context(), id, body.Content, user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusCreated, map[string]uint{"logId": logID})
}

func (c *Travel) UpdateLogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "logID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	var body logBody
	if err := render.Decode(r, &body); err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.UpdateLog(r.Context(), id, body.Content, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}

func (c *Travel) DeleteLogHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := c.requester(w, r)
	if !ok {
		return
	}
	id, err := urlID(r, "logID")
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	if err := c.DeleteLog(r.Context(), id, user); err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.NoContent(w, r)
}
