package photos

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/matematik7/journal-go/testutil"
	"github.com/matematik7/journal-go/travel"
	"github.com/pkg/errors"
)

type fixture struct {
	c      *Photos
	travel *travel.Travel
	DB     *gorm.DB
	blobs  *testutil.Blobs
	owner  models.User
	other  models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	DB := testutil.OpenDB(t)
	log := testutil.QuietLog()
	blobs := testutil.NewBlobs()
	travels := travel.New(DB, render.New(log), log, testutil.NewResolver(), blobs, "https://journal.test/share")
	return &fixture{
		c:      New(DB, render.New(log), log, blobs, travels),
		travel: travels,
		DB:     DB,
		blobs:  blobs,
		owner:  testutil.SeedUser(t, DB, "owner@journal.test"),
		other:  testutil.SeedUser(t, DB, "other@journal.test"),
	}
}

func (f *fixture) photo(t *testing.T, id uint) models.Photo {
	t.Helper()
	var photo models.Photo
	if err := f.DB.First(&photo, id).Error; err != nil {
		t.Fatalf("get photo %d: %v", id, err)
	}
	return photo
}

func wantKind(t *testing.T, err error, kind apierr.Kind) {
	t.Helper()
	if apierr.KindOf(err) != kind || err == nil {
		t.Fatalf("want %v error, got %v", kind, err)
	}
}

func float(v float64) *float64 {
	return &v
}

func TestParseTakenAt(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "2024-08-02T22:38:06+09:00", want: "2024-08-02 22:38:06"},
		{in: "2024-08-02T01:00:00-05:00", want: "2024-08-02 01:00:00"},
		{in: "2025-11-12T10:00:00Z", want: "2025-11-12 10:00:00"},
		{in: "2025-11-12T10:00:00", want: "2025-11-12 10:00:00"},
		{in: "12.11.2025 10:00", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		got, err := ParseTakenAt(tt.in)
		if tt.err {
			if !apierr.Is(err, apierr.KindValidation) {
				t.Fatalf("ParseTakenAt(%q): want validation error got=%v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTakenAt(%q): %v", tt.in, err)
		}
		if s := got.Format("2006-01-02 15:04:05"); s != tt.want || got.Location() != time.UTC {
			t.Fatalf("ParseTakenAt(%q): want=%s got=%s", tt.in, tt.want, got)
		}
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	files := []File{
		{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("a")},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte("b")},
	}
	metas := []Meta{
		{OriginalName: "IMG_1.jpg", TakenAt: "2024-08-02T22:38:06+09:00", Latitude: float(33.5), Longitude: float(126.5)},
		{TakenAt: "2024-08-03T08:00:00", Latitude: float(33.5)},
	}

	infos, err := f.c.Upload(context.Background(), files, metas, f.owner)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(infos) != 2 || len(f.blobs.Stored) != 2 {
		t.Fatalf("Upload: want 2 photos and blobs got %d/%d", len(infos), len(f.blobs.Stored))
	}

	first := f.photo(t, infos[0].ID)
	if first.DayID != nil || first.UserID != f.owner.ID || first.FilePath != f.blobs.Stored[0] {
		t.Fatalf("first photo: got=%+v", first)
	}
	if first.TakenAt.Format("2006-01-02 15:04") != "2024-08-02 22:38" {
		t.Fatalf("first takenAt: got=%s", first.TakenAt)
	}
	if lat, lon, ok := first.Coordinates(); !ok || lat != 33.5 || lon != 126.5 {
		t.Fatalf("first coordinates: got %v,%v,%v", lat, lon, ok)
	}

	second := f.photo(t, infos[1].ID)
	if second.OriginalName != "b.jpg" {
		t.Fatalf("second name: want=b.jpg got=%s", second.OriginalName)
	}
	if _, _, ok := second.Coordinates(); ok || second.Latitude != nil {
		t.Fatalf("second coordinates: want none got=%v,%v", second.Latitude, second.Longitude)
	}
}

func TestUploadRejected(t *testing.T) {
	f := newFixture(t)
	files := []File{{Name: "a.jpg", Data: []byte("a")}}

	_, err := f.c.Upload(context.Background(), files, nil, f.owner)
	wantKind(t, err, apierr.KindValidation)
	_, err = f.c.Upload(context.Background(), files, []Meta{{TakenAt: "yesterday"}}, f.owner)
	wantKind(t, err, apierr.KindValidation)

	if len(f.blobs.Stored) != 0 {
		t.Fatalf("blobs: want none stored got=%v", f.blobs.Stored)
	}
}

func TestListAndMarkers(t *testing.T) {
	f := newFixture(t)
	located := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-02 10:00"), &testutil.Loc{Lat: 1, Lon: 2})
	plain := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-01 10:00"), nil)
	testutil.SeedPhoto(t, f.DB, f.other.ID, testutil.At("2025-01-01 10:00"), &testutil.Loc{Lat: 3, Lon: 4})

	list, err := f.c.List(context.Background(), f.owner, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != plain.ID || list[1].ID != located.ID {
		t.Fatalf("List: want [%d %d] got=%+v", plain.ID, located.ID, list)
	}

	markers, err := f.c.MapMarkers(context.Background(), f.owner)
	if err != nil {
		t.Fatalf("MapMarkers: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != located.ID || markers[0].ThumbnailURL != located.FilePath {
		t.Fatalf("MapMarkers: got=%+v", markers)
	}

	if _, err := f.travel.Create(context.Background(), travel.CreateRequest{Title: "t", PhotoIDs: []uint{plain.ID}}, f.owner); err != nil {
		t.Fatalf("Create travel: %v", err)
	}
	unassigned, err := f.c.List(context.Background(), f.owner, true)
	if err != nil {
		t.Fatalf("List unassigned: %v", err)
	}
	if len(unassigned) != 1 || unassigned[0].ID != located.ID {
		t.Fatalf("List unassigned: got=%+v", unassigned)
	}

	_, err = f.c.Get(context.Background(), 9999)
	wantKind(t, err, apierr.KindNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	photo := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-01 10:00"), nil)
	loose := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-05 10:00"), nil)
	travelID, err := f.travel.Create(context.Background(), travel.CreateRequest{Title: "t", PhotoIDs: []uint{photo.ID}}, f.owner)
	if err != nil {
		t.Fatalf("Create travel: %v", err)
	}
	day, err := f.travel.GetDay(context.Background(), travelID, 1, f.owner)
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}

	err = f.c.Update(context.Background(), loose.ID, UpdateRequest{Latitude: float(1)}, f.other)
	wantKind(t, err, apierr.KindForbidden)

	takenAt := testutil.At("2025-01-06 12:00")
	err = f.c.Update(context.Background(), loose.ID, UpdateRequest{
		TakenAt:  &takenAt,
		DayID:    &day.ID,
		Latitude: float(10),
	}, f.owner)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := f.photo(t, loose.ID)
	if got.DayID == nil || *got.DayID != day.ID {
		t.Fatalf("day: want=%d got=%v", day.ID, got.DayID)
	}
	if !got.TakenAt.Equal(takenAt) {
		t.Fatalf("takenAt: want=%s got=%s", takenAt, got.TakenAt)
	}
	if got.Latitude != nil {
		t.Fatalf("latitude: want unchanged got=%v", *got.Latitude)
	}

	err = f.c.Update(context.Background(), loose.ID, UpdateRequest{Latitude: float(10), Longitude: float(20)}, f.owner)
	if err != nil {
		t.Fatalf("Update coordinates: %v", err)
	}
	if lat, lon, ok := f.photo(t, loose.ID).Coordinates(); !ok || lat != 10 || lon != 20 {
		t.Fatalf("coordinates: got %v,%v,%v", lat, lon, ok)
	}
}

func TestUpdateRollsBackMove(t *testing.T) {
	f := newFixture(t)
	photo := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-01 10:00"), nil)
	loose := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-05 10:00"), nil)
	travelID, err := f.travel.Create(context.Background(), travel.CreateRequest{Title: "t", PhotoIDs: []uint{photo.ID}}, f.owner)
	if err != nil {
		t.Fatalf("Create travel: %v", err)
	}
	day, err := f.travel.GetDay(context.Background(), travelID, 1, f.owner)
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}

	// the day move goes through, the taken-at write fails
	f.DB.Callback().Update().After("gorm:assign_updating_attributes").Register("test:fail_taken_at", func(scope *gorm.Scope) {
		attrs, ok := scope.InstanceGet("gorm:update_attrs")
		if !ok {
			return
		}
		if _, ok := attrs.(map[string]interface{})["taken_at"]; ok {
			scope.Err(errors.New("disk full"))
		}
	})

	takenAt := testutil.At("2025-01-06 12:00")
	err = f.c.Update(context.Background(), loose.ID, UpdateRequest{TakenAt: &takenAt, DayID: &day.ID}, f.owner)
	if err == nil {
		t.Fatalf("Update: expected error")
	}
	got := f.photo(t, loose.ID)
	if got.DayID != nil {
		t.Fatalf("day: want unassigned got=%d", *got.DayID)
	}
	if !got.TakenAt.Equal(testutil.At("2025-01-05 10:00")) {
		t.Fatalf("takenAt: want unchanged got=%s", got.TakenAt)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	photo := testutil.SeedPhoto(t, f.DB, f.owner.ID, testutil.At("2025-01-01 10:00"), nil)
	travelID, err := f.travel.Create(context.Background(), travel.CreateRequest{
		Title:                 "t",
		PhotoIDs:              []uint{photo.ID},
		RepresentativePhotoID: &photo.ID,
	}, f.owner)
	if err != nil {
		t.Fatalf("Create travel: %v", err)
	}
	comment := models.Comment{PhotoID: photo.ID, WriterID: f.other.ID, Content: "wow"}
	if err := f.DB.Create(&comment).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	f.blobs.Failing[photo.FilePath] = true

	err = f.c.Delete(context.Background(), photo.ID, f.other)
	wantKind(t, err, apierr.KindForbidden)
	if err := f.c.Delete(context.Background(), photo.ID, f.owner); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var n int
	f.DB.Model(&models.Photo{}).Count(&n)
	if n != 0 {
		t.Fatalf("photos: want=0 got=%d", n)
	}
	f.DB.Model(&models.Comment{}).Count(&n)
	if n != 0 {
		t.Fatalf("comments: want=0 got=%d", n)
	}
	var trip models.Travel
	if err := f.DB.First(&trip, travelID).Error; err != nil {
		t.Fatalf("get travel: %v", err)
	}
	if trip.RepresentativePhotoID != nil {
		t.Fatalf("representative: want cleared got=%d", *trip.RepresentativePhotoID)
	}
}

func TestUploadHandler(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("files", "a.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("jpeg"))
	form.WriteField("metadata", `[{"originalName":"a.jpg","takenAt":"2025-01-01T09:00:00+01:00"}]`)
	form.Close()
	payload := body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(payload))
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	f.c.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upload: want=401 got=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(payload))
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = req.WithContext(auth.WithUser(req.Context(), f.owner))
	rec = httptest.NewRecorder()
	f.c.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}

	var infos []Info
	if err := render.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].OriginalName != "a.jpg" {
		t.Fatalf("upload: got=%+v", infos)
	}
}
