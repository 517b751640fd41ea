package tests

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/cadenza-app/cadenza/apps/api/echo"
	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/lead"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/session"
	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
	emailsvc "github.com/cadenza-app/cadenza/services/email"
	logsvc "github.com/cadenza-app/cadenza/services/logger"
	dummydb "github.com/cadenza-app/cadenza/storage/database/dummy"
	filestore "github.com/cadenza-app/cadenza/storage/files"
	sessionstore "github.com/cadenza-app/cadenza/storage/sessions"
)

var (
	app     Server
	sessMgr *session.Manager

	usrRepo user.Repository
	usrSvc  *user.Service
	leadSvc *lead.Service
	evtSvc  *event.Service
	ordSvc  *order.Service
	taskSvc *task.Service
	resSvc  *resource.Service

	errNotAuthenticated = httpErr{Error: "user not authenticated"}
	errPermissionDenied = httpErr{Error: "permission denied"}
	errNotFound         = httpErr{Error: "not found"}
)

// setup rebuilds the whole app on a fresh in-memory database.
func setup(t *testing.T) Server {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	files, err := filestore.NewLocalStoreAt(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.NewLocalStoreAt() failed, %v", err)
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	sessMgr = session.NewManager(sessionstore.NewMemoryStore())
	usrSvc = user.NewService(usrRepo, mailSvc)
	leadSvc = lead.NewService(dummydb.NewLeadRepository(db), mailSvc)
	evtSvc = event.NewService(dummydb.NewEventRepository(db))
	ordSvc = order.NewService(dummydb.NewOrderRepository(db))
	taskSvc = task.NewService(dummydb.NewTaskRepository(db))
	resSvc = resource.NewService(dummydb.NewResourceRepository(db), files)

	app = NewServer(
		"", /* addr */
		&Deps{
			Logger:         logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0)),
			SessionMgr:     sessMgr,
			UserSvc:        usrSvc,
			LeadSvc:        leadSvc,
			EventSvc:       evtSvc,
			OrderSvc:       ordSvc,
			TaskSvc:        taskSvc,
			ResourceSvc:    resSvc,
			DisableReqLogs: true,
		},
	)
	return app
}

func createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	cookie   string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newSessionRequest(method, path, cookieVal string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	req, rec := newAuthRequest(method, path, "", data...)
	if cookieVal != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieVal})
	}
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func startSession(t *testing.T, usr user.User) string {
	_, cookieVal, err := sessMgr.Start(usr.ID, usr.Roles)
	if err != nil {
		t.Fatalf("startSession() failed: %v", err)
	}
	return cookieVal
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	var rec *httptest.ResponseRecorder
	if tt.cookie != "" {
		req, rec = newSessionRequest(tt.method, tt.path, tt.cookie, tt.body)
	} else {
		req, rec = newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	}
	app.ServeHTTP(rec, req)
	return rec
}
