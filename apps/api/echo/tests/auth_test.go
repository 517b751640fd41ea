package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/cadenza-app/cadenza/apps/api/echo"
	"github.com/cadenza-app/cadenza/core/user"
	emailsvc "github.com/cadenza-app/cadenza/services/email"
)

func sessionCookieFrom(t *testing.T, rec interface{ Result() *http.Response }) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == echoapi.SessionCookieName {
			return c
		}
	}
	return nil
}

func Test_authApi_login(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "LolC@t123", []string{user.RoleTeacher}, true)
	createUser(t, "N Dog", "ndog", "ndog@test.cd", "LolC@t123", []string{user.RoleParent}, false)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: teacher.Username, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: teacher.Username, Password: "LolC@t123"}),
		},
		{
			name: "login with email", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: teacher.Email, Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				cookie := sessionCookieFrom(t, rec)
				if cookie == nil || cookie.Value == "" {
					t.Fatal("failed! no session cookie set")
				}
				if !cookie.HttpOnly {
					t.Error("failed! session cookie must be HttpOnly")
				}
				// the cookie must verify against the session store
				if _, err := sessMgr.Verify(cookie.Value); err != nil {
					t.Errorf("failed! cookie does not verify: %v", err)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_session(t *testing.T) {
	setup(t)

	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)
	cookieVal := startSession(t, staff)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated)},
		{
			name: "tampered cookie rejected", cookie: cookieVal + "lol",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated),
		},
		{name: "session returns the user", cookie: cookieVal, wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "JWT works too", token: getToken(t, staff), wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/auth/session"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_deactivatedSession(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	cookieVal := startSession(t, teacher)

	rec := serve(t, httpTest{method: http.MethodGet, path: "/v1/tasks/me", cookie: cookieVal})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	inactive := false
	if _, err := usrSvc.Update(teacher.ID, user.UpdateUser{IsActive: &inactive}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	// access is cut immediately, not at session expiry
	tt := httpTest{
		method: http.MethodGet, path: "/v1/tasks/me", cookie: cookieVal,
		wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
	}
	rec = serve(t, tt)
	checkCodeAndData(t, tt, rec)

	// and the session itself is gone
	if _, err := sessMgr.Verify(cookieVal); err == nil {
		t.Error("failed! session still verifies after deactivation")
	}
}

func Test_authApi_logout(t *testing.T) {
	setup(t)

	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)
	cookieVal := startSession(t, staff)

	// logout destroys the session
	rec := serve(t, httpTest{method: http.MethodPost, path: "/v1/auth/logout", cookie: cookieVal})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
	}

	// the old cookie no longer authenticates
	rec = serve(t, httpTest{method: http.MethodGet, path: "/v1/auth/session", cookie: cookieVal})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusUnauthorized)
	}
}

func Test_authApi_logoutAll(t *testing.T) {
	setup(t)

	staff := createUser(t, "Staff", "staffer", "staff@test.cd", "", []string{user.RoleStaff}, true)
	laptop := startSession(t, staff)
	phone := startSession(t, staff)

	rec := serve(t, httpTest{method: http.MethodPost, path: "/v1/auth/logout-all", cookie: laptop})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
	}

	for name, cookieVal := range map[string]string{"laptop": laptop, "phone": phone} {
		rec = serve(t, httpTest{method: http.MethodGet, path: "/v1/auth/session", cookie: cookieVal})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: failed! code = %v; wantCode %v", name, rec.Code, http.StatusUnauthorized)
		}
	}
}

func Test_authApi_token(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "LolC@t123", []string{user.RoleTeacher}, true)

	rec := serve(t, httpTest{
		method: http.MethodPost, path: "/v1/auth/token",
		body: marchallObj(t, echoapi.LoginRequest{Username: teacher.Username, Password: "LolC@t123"}),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var respData echoapi.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if respData.Token == "" {
		t.Fatal("failed! empty token")
	}

	// the token authenticates API calls
	rec = serve(t, httpTest{method: http.MethodGet, path: "/v1/auth/session", token: respData.Token})
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	setup(t)

	naughty := createUser(t, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleParent}, false)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotAuthenticated)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Token refreshed", token: getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	type extraTest struct {
		emailSent bool
	}
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.cd"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.PasswordResetRequest{Email: teacher.Email}),
			wantData: successData, extra: extraTest{emailSent: true},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			rec := serve(t, tt)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if extra.emailSent && len(emailsvc.SentMessages) != 1 {
					t.Errorf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
				}
				if !extra.emailSent && len(emailsvc.SentMessages) > 0 {
					t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
				}
			}
		})
	}
}

func Test_authApi_confirmPasswordReset(t *testing.T) {
	setup(t)

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "lol", []string{user.RoleTeacher}, true)
	validUID := user.EncodeUID(teacher)
	validToken, err := user.MakeToken(teacher)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	tests := []httpTest{
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.ResetUserPassword{Token: validToken, UID: "bG9s", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				refreshed, err := usrRepo.GetUserByID(teacher.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if err := refreshed.CheckPassword("LolC@t123"); err != nil {
					t.Error("failed to update new password")
				}
			}
		})
	}
}
