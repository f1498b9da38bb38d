package travel

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/matematik7/journal-go/testutil"
)

func (f *fixture) do(t *testing.T, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	f.c.ServeMux().ServeHTTP(rec, req)
	return rec
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status: want=%d got=%d body=%s", status, rec.Code, rec.Body.String())
	}
}

func TestHandlersCreateAndDetail(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-15 10:00"), nil)
	b := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-16 10:00"), nil)

	rec := f.do(t, nil, http.MethodGet, "/", "")
	wantStatus(t, rec, http.StatusUnauthorized)

	rec = f.do(t, &f.owner, http.MethodPost, "/", `{"photoIds":[1]}`)
	wantStatus(t, rec, http.StatusBadRequest)

	rec = f.do(t, &f.owner, http.MethodPost, "/", fmt.Sprintf(`{"title":"Jeju","photoIds":[%d,%d]}`, a.ID, b.ID))
	wantStatus(t, rec, http.StatusCreated)
	var created struct {
		TravelID uint `json:"travelId"`
	}
	if err := render.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	path := fmt.Sprintf("/%d", created.TravelID)
	rec = f.do(t, &f.other, http.MethodGet, path, "")
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, &f.owner, http.MethodGet, path, "")
	wantStatus(t, rec, http.StatusOK)
	var detail Detail
	if err := render.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Title != "Jeju" || len(detail.Days) != 2 || detail.Days[1].DayNumber != 2 {
		t.Fatalf("detail: got=%+v", detail)
	}

	rec = f.do(t, &f.owner, http.MethodPost, path+"/days", `{"date":"2025-01-16"}`)
	wantStatus(t, rec, http.StatusConflict)
	rec = f.do(t, &f.owner, http.MethodPost, path+"/days", `{"date":"16.01.2025"}`)
	wantStatus(t, rec, http.StatusBadRequest)
	rec = f.do(t, &f.owner, http.MethodPost, path+"/days", `{"date":"2025-01-17"}`)
	wantStatus(t, rec, http.StatusCreated)

	rec = f.do(t, &f.owner, http.MethodGet, path+"/days/3", "")
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"date":"2025-01-17"`) {
		t.Fatalf("day 3: got=%s", rec.Body.String())
	}
	rec = f.do(t, &f.owner, http.MethodGet, "/9999", "")
	wantStatus(t, rec, http.StatusNotFound)
}

func TestHandlersShare(t *testing.T) {
	f := newFixture(t)
	travelID := f.create(t, testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-15 10:00"), nil))

	rec := f.do(t, &f.owner, http.MethodGet, fmt.Sprintf("/%d/share", travelID), "")
	wantStatus(t, rec, http.StatusOK)
	var shared struct {
		ShareURL string `json:"shareUrl"`
	}
	if err := render.Unmarshal(rec.Body.Bytes(), &shared); err != nil {
		t.Fatalf("decode share: %v", err)
	}
	token := strings.TrimPrefix(shared.ShareURL, "https://journal.test/share/")

	rec = f.do(t, nil, http.MethodGet, "/share/"+token, "")
	wantStatus(t, rec, http.StatusOK)
	rec = f.do(t, nil, http.MethodGet, "/share/nope", "")
	wantStatus(t, rec, http.StatusNotFound)
}

func TestHandlersDayAndLogs(t *testing.T) {
	f := newFixture(t)
	travelID := f.create(t, testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-15 10:00"), nil))
	day := f.days(t, travelID)[0]
	loose := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-20 10:00"), nil)

	rec := f.do(t, &f.owner, http.MethodPost, fmt.Sprintf("/days/%d/photos", day.ID), fmt.Sprintf(`{"photoIds":[%d]}`, loose.ID))
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"addedCount":1`) {
		t.Fatalf("add photos: got=%s", rec.Body.String())
	}

	rec = f.do(t, &f.owner, http.MethodPost, fmt.Sprintf("/days/%d/logs", day.ID), `{"content":""}`)
	wantStatus(t, rec, http.StatusBadRequest)
	rec = f.do(t, &f.owner, http.MethodPost, fmt.Sprintf("/days/%d/logs", day.ID), `{"content":"sunny"}`)
	wantStatus(t, rec, http.StatusCreated)
	var created struct {
		LogID uint `json:"logId"`
	}
	if err := render.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode log: %v", err)
	}

	rec = f.do(t, &f.owner, http.MethodPut, fmt.Sprintf("/logs/%d", created.LogID), `{"content":"rainy"}`)
	wantStatus(t, rec, http.StatusNoContent)
	rec = f.do(t, &f.other, http.MethodDelete, fmt.Sprintf("/logs/%d", created.LogID), "")
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, &f.owner, http.MethodDelete, fmt.Sprintf("/days/%d", day.ID), "")
	wantStatus(t, rec, http.StatusNoContent)
	if n := count(t, f.DB, &models.DiaryLog{}, ""); n != 0 {
		t.Fatalf("diary logs: want=0 got=%d", n)
	}

	rec = f.do(t, &f.owner, http.MethodDelete, fmt.Sprintf("/%d", travelID), "")
	wantStatus(t, rec, http.StatusNoContent)
}
