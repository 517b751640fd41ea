package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/user"
)

// newUploadRequest builds a multipart upload with a `file` part plus
// title/description fields.
func newUploadRequest(t *testing.T, token, title, filename, contentType, contents string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if _, err = part.Write([]byte(contents)); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = w.WriteField("title", title); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/resources", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func uploadResource(t *testing.T, uploadedBy, title, filename, contentType, contents string) resource.Resource {
	t.Helper()

	res, err := resSvc.Upload(uploadedBy, resource.NewResource{
		Title:       title,
		Filename:    filename,
		ContentType: contentType,
	}, strings.NewReader(contents))
	if err != nil {
		t.Fatalf("uploadResource() failed: %v", err)
	}
	return res
}

func Test_resourceApi_upload(t *testing.T) {
	setup(t)

	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	// parents have no library access at all
	req, rec := newUploadRequest(t, getToken(t, parent), "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// title is required
	req, rec = newUploadRequest(t, getToken(t, teacher), "", "scales.pdf", "application/pdf", "%PDF-1.4 lol")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// teachers fill the library too
	req, rec = newUploadRequest(t, getToken(t, teacher), "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var created resource.Resource
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if created.Filename != "scales.pdf" || created.ContentType != "application/pdf" {
		t.Errorf("failed! resource = %+v", created)
	}
	if created.Size != int64(len("%PDF-1.4 lol")) {
		t.Errorf("failed! size = %d", created.Size)
	}
	if created.UploadedBy != teacher.ID {
		t.Errorf("failed! uploaded_by = %q; want %q", created.UploadedBy, teacher.ID)
	}
}

func Test_resourceApi_query(t *testing.T) {
	setup(t)

	parent := createUser(t, "Parent", "parent1", "parent@test.cd", "", []string{user.RoleParent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)

	res1 := uploadResource(t, staff.ID, "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")
	res2 := uploadResource(t, staff.ID, "Seating chart", "seating.png", "image/png", "not really a png")

	tests := []httpTest{
		{name: "Auth required", path: "/v1/resources", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated)},
		{
			name: "parents have no library", path: "/v1/resources", token: getToken(t, parent),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Get all", path: "/v1/resources", token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallList(t, res1, res2),
		},
		{
			name: "retrieve", path: "/v1/resources/" + res1.ID, token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, res1),
		},
		{
			name: "unknown resource", path: "/v1/resources/lol", token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resourceApi_download(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)

	res := uploadResource(t, staff.ID, "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")

	rec := serve(t, httpTest{method: http.MethodGet, path: "/v1/resources/" + res.ID + "/download", token: getToken(t, teacher)})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("failed! Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="scales.pdf"` {
		t.Errorf("failed! Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "%PDF-1.4 lol" {
		t.Errorf("failed! body = %q", rec.Body.String())
	}
}

func Test_resourceApi_updateAndDestroy(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)
	admin := createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdminOwner}, true)
	teacherToken := getToken(t, teacher)
	staffToken := getToken(t, staff)

	res := uploadResource(t, staff.ID, "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")

	// teachers cannot edit the library metadata
	rec := serve(t, httpTest{
		method: http.MethodPut, path: "/v1/resources/" + res.ID, token: teacherToken,
		body: marchallObj(t, resource.UpdateResource{Title: "Nope"}),
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	rec = serve(t, httpTest{
		method: http.MethodPut, path: "/v1/resources/" + res.ID, token: staffToken,
		body: marchallObj(t, resource.UpdateResource{Title: "Major scales"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var updated resource.Resource
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if updated.Title != "Major scales" {
		t.Errorf("failed! title = %q", updated.Title)
	}

	// only the uploader or an admin may delete
	rec = serve(t, httpTest{method: http.MethodDelete, path: "/v1/resources/" + res.ID, token: teacherToken})
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	rec = serve(t, httpTest{method: http.MethodDelete, path: "/v1/resources/" + res.ID, token: staffToken})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// gone, file included
	rec = serve(t, httpTest{method: http.MethodGet, path: "/v1/resources/" + res.ID + "/download", token: staffToken})
	if rec.Code != http.StatusNotFound {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
	}

	// admins may delete anyone's upload
	theirs := uploadResource(t, teacher.ID, "Etudes", "etudes.pdf", "application/pdf", "%PDF-1.4 lol")
	rec = serve(t, httpTest{method: http.MethodDelete, path: "/v1/resources/" + theirs.ID, token: getToken(t, admin)})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	// a non-admin cannot sweep someone else's uploads in a multi-delete
	mine := uploadResource(t, teacher.ID, "Scales", "scales.pdf", "application/pdf", "%PDF-1.4 lol")
	others := uploadResource(t, staff.ID, "Charts", "charts.png", "image/png", "not really a png")
	rec = serve(t, httpTest{
		method: http.MethodDelete, path: "/v1/resources?id=" + mine.ID + "&id=" + others.ID,
		token: teacherToken,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}
	if _, err := resSvc.GetByID(mine.ID); err != nil {
		t.Errorf("failed! own resource deleted despite rejected request: %v", err)
	}
}
