package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Retroinn/MotoCrew/database/model"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

func testAccessToken(t *testing.T, sub, email string, expiry time.Time, metadata map[string]any) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   expiry.Unix(),
	}
	if metadata != nil {
		claims["user_metadata"] = metadata
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func decodeBody(t *testing.T, r *http.Request, out any) {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read request body: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode request body %q: %v", data, err)
	}
}

func TestRemoteSignInFailureBecomesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	res, err := s.SignIn(context.Background(), "rider@example.com", "wrong")
	if err != nil {
		t.Fatalf("SignIn() error: %v, expected failure as message", err)
	}
	if res.User != nil {
		t.Fatal("SignIn() returned a user on rejected credentials")
	}
	if res.Message != "Invalid login credentials" {
		t.Errorf("message = %q, expected the provider's text", res.Message)
	}
}

func TestRemoteSignInSuccess(t *testing.T) {
	token := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(time.Hour),
		map[string]any{"name": "Meta Rider"})

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, expected password", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q", got)
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		decodeBody(t, r, &body)
		if body.Email != "rider@example.com" || body.Password != "secret" {
			t.Errorf("credentials = %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  token,
			"refresh_token": "refresh-1",
		})
	})
	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "eq.user-1" {
			t.Errorf("profile filter = %q, expected eq.user-1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+token {
			t.Errorf("profile call not authorized with the session token: %q", got)
		}
		_, _ = w.Write([]byte(`[{"name":"Remote Rider","nickname":"RR","points":420,"membership_plan":"PREMIUM"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())

	var events []SessionEvent
	s.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	res, err := s.SignIn(context.Background(), "rider@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if res.User == nil {
		t.Fatal("SignIn() returned no user")
	}
	if res.User.ID != "user-1" {
		t.Errorf("user ID = %q, expected user-1 from the token subject", res.User.ID)
	}
	if res.User.Name != "Remote Rider" {
		t.Errorf("name = %q, expected the profile row to win over metadata", res.User.Name)
	}
	if res.User.Points != 420 {
		t.Errorf("points = %d, expected 420", res.User.Points)
	}
	if res.User.MembershipPlan != model.PlanPremium {
		t.Errorf("plan = %q, expected PREMIUM", res.User.MembershipPlan)
	}
	// Columns absent from the row fall back to the named defaults.
	if res.User.MotorcycleModel != "Not specified" {
		t.Errorf("motorcycle = %q, expected the default", res.User.MotorcycleModel)
	}
	if res.User.ExperienceLevel != model.ExperienceNovice {
		t.Errorf("experience = %q, expected Novice default", res.User.ExperienceLevel)
	}

	if len(events) != 1 || events[0].Type != EventSignedIn {
		t.Fatalf("events = %+v, expected one SIGNED_IN", events)
	}
}

func TestRemoteSignUpPendingConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Email string            `json:"email"`
			Data  map[string]string `json:"data"`
		}
		decodeBody(t, r, &body)
		if body.Data["name"] != "Fresh Rider" {
			t.Errorf("signup metadata = %+v, expected the display name", body.Data)
		}
		// Identity created, confirmation mail sent, no session yet.
		_, _ = w.Write([]byte(`{"user":{"id":"user-2","email":"new@example.com"}}`))
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	res, err := s.SignUp(context.Background(), "new@example.com", "pw", "Fresh Rider")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if res.User != nil {
		t.Fatal("pending confirmation must not carry a user")
	}
	if !strings.Contains(res.Message, "confirm") {
		t.Errorf("message = %q, expected a confirmation hint", res.Message)
	}
}

func TestRemoteTokenRefresh(t *testing.T) {
	expired := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(-time.Minute), nil)
	fresh := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(time.Hour), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, expected refresh_token", got)
		}
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		decodeBody(t, r, &body)
		if body.RefreshToken != "refresh-1" {
			t.Errorf("refresh token = %q", body.RefreshToken)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
		})
	})
	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	s.setSession(&remoteSession{AccessToken: expired, RefreshToken: "refresh-1"})

	var events []SessionEvent
	s.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	user, err := s.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if user == nil {
		t.Fatal("GetSession() lost the session across a refresh")
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q", user.ID)
	}
	// No profile row: defaults apply.
	if user.Name != "Member" {
		t.Errorf("name = %q, expected the Member default", user.Name)
	}

	if len(events) != 1 || events[0].Type != EventTokenRefreshed {
		t.Fatalf("events = %+v, expected one TOKEN_REFRESHED", events)
	}
	if got := s.accessToken(); got != fresh {
		t.Error("rotated token was not stored")
	}
}

func TestRemoteRefreshFailureSignsOut(t *testing.T) {
	expired := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(-time.Minute), nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid Refresh Token"}`))
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	s.setSession(&remoteSession{AccessToken: expired, RefreshToken: "stale"})

	var events []SessionEvent
	s.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	user, err := s.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession() error: %v, a dead session is not a fault", err)
	}
	if user != nil {
		t.Fatal("GetSession() returned a user after a failed refresh")
	}
	if len(events) != 1 || events[0].Type != EventSignedOut {
		t.Fatalf("events = %+v, expected one SIGNED_OUT", events)
	}
	if s.snapshotSession() != nil {
		t.Error("session tokens survived the failed refresh")
	}
}

func TestRemoteUpdateProfilePatchesOnlySetColumns(t *testing.T) {
	token := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(time.Hour), nil)

	var patched map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			if got := r.URL.Query().Get("id"); got != "eq.user-1" {
				t.Errorf("patch filter = %q", got)
			}
			if got := r.Header.Get("Prefer"); got != "return=minimal" {
				t.Errorf("Prefer = %q", got)
			}
			decodeBody(t, r, &patched)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"nickname":"NightRider","experience_level":"Expert"}]`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	s.setSession(&remoteSession{AccessToken: token, RefreshToken: "refresh-1"})

	nickname := "NightRider"
	level := model.ExperienceExpert
	res, err := s.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
		Nickname:        &nickname,
		ExperienceLevel: &level,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if res.User == nil {
		t.Fatal("UpdateProfile() returned no user")
	}
	if res.User.Nickname != "NightRider" {
		t.Errorf("nickname = %q", res.User.Nickname)
	}

	if len(patched) != 2 {
		t.Fatalf("patch payload = %+v, expected exactly the two set columns", patched)
	}
	if patched["nickname"] != "NightRider" {
		t.Errorf("nickname column = %v", patched["nickname"])
	}
	if patched["experience_level"] != "Expert" {
		t.Errorf("experience_level column = %v", patched["experience_level"])
	}
}

func TestRemoteUpdateProfileWithoutSession(t *testing.T) {
	s := NewRemoteStore("http://unused.invalid", "anon-key", &http.Client{})

	name := "Nobody"
	res, err := s.UpdateProfile(context.Background(), "user-1", ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if res.User != nil || res.Message == "" {
		t.Fatalf("result = %+v, expected a message and no user", res)
	}
}

func TestRemoteListNotificationsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("or"); got != "(user_id.eq.user-1,user_id.eq.global)" {
			t.Errorf("or filter = %q", got)
		}
		if got := q.Get("order"); got != "created_at.desc" {
			t.Errorf("order = %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"id":"n2","user_id":"global","type":"EVENT","title":"Ride","message":"Sunday.","read":false,"created_at":"2026-08-30T10:00:00Z"},
			{"id":"n1","user_id":"user-1","type":"SYSTEM","title":"Welcome","message":"Hi.","read":true,"created_at":"2026-08-29T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	list, err := s.ListNotifications(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notifications, expected 2", len(list))
	}
	if list[0].ID != "n2" || list[0].Type != model.NotificationEvent {
		t.Errorf("first notification = %+v", list[0])
	}
	if list[1].UserID != "user-1" || !list[1].Read {
		t.Errorf("second notification = %+v", list[1])
	}
}

func TestRemoteMarkAllReadFilter(t *testing.T) {
	var gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, expected PATCH", r.Method)
		}
		gotFilter = r.URL.Query().Get("or")
		var body map[string]bool
		decodeBody(t, r, &body)
		if !body["read"] {
			t.Errorf("patch body = %+v, expected read=true", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	if err := s.MarkAllRead(context.Background(), "user-1"); err != nil {
		t.Fatalf("MarkAllRead() error: %v", err)
	}
	if gotFilter != "(user_id.eq.user-1,user_id.eq.global)" {
		t.Errorf("filter = %q", gotFilter)
	}
}

func TestRemoteBroadcast(t *testing.T) {
	var inserted notificationRow
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, expected POST", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		decodeBody(t, r, &inserted)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]notificationRow{inserted})
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	created, err := s.Broadcast(context.Background(), "Route Change", "New meeting point.", model.NotificationAlert)
	if err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}
	if created.UserID != model.BroadcastScope {
		t.Errorf("scope = %q, expected %q", created.UserID, model.BroadcastScope)
	}
	if created.ID == "" {
		t.Error("broadcast has no ID")
	}
	if inserted.Type != "ALERT" || inserted.Title != "Route Change" {
		t.Errorf("inserted row = %+v", inserted)
	}
}

func TestRemoteSignOut(t *testing.T) {
	setupTestDB(t)
	token := testAccessToken(t, "user-1", "rider@example.com", time.Now().Add(time.Hour), nil)

	logoutCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			logoutCalled = true
			if got := r.Header.Get("Authorization"); got != "Bearer "+token {
				t.Errorf("logout authorization = %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		t.Errorf("unexpected path %s", r.URL.Path)
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	s.setSession(&remoteSession{AccessToken: token, RefreshToken: "refresh-1"})

	var events []SessionEvent
	s.Subscribe(func(ev SessionEvent) { events = append(events, ev) })

	s.SignOut(context.Background())

	if !logoutCalled {
		t.Error("remote logout endpoint was never called")
	}
	if s.snapshotSession() != nil {
		t.Error("session tokens survived SignOut")
	}
	if len(events) != 1 || events[0].Type != EventSignedOut {
		t.Fatalf("events = %+v, expected one SIGNED_OUT", events)
	}
}

func TestRemoteGoogleRedirect(t *testing.T) {
	s := NewRemoteStore("https://abcdefgh.supabase.co", "anon-key", &http.Client{})
	res, err := s.SignInWithGoogle(context.Background())
	if err != nil {
		t.Fatalf("SignInWithGoogle() error: %v", err)
	}
	if res.User != nil {
		t.Error("OAuth start must not invent a user")
	}
	if !strings.HasPrefix(res.RedirectURL, "https://abcdefgh.supabase.co/auth/v1/authorize?provider=google") {
		t.Errorf("redirect URL = %q", res.RedirectURL)
	}
}

func TestRemoteResetPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/recover" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		decodeBody(t, r, &body)
		if body["email"] != "rider@example.com" {
			t.Errorf("recover body = %+v", body)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewRemoteStore(srv.URL, "anon-key", srv.Client())
	msg, err := s.ResetPassword(context.Background(), "rider@example.com")
	if err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if msg != "" {
		t.Errorf("message = %q, expected none on success", msg)
	}
}

func TestMergeProfileDefaults(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		row      *profileRow
		check    func(t *testing.T, u *model.User)
	}{
		{
			name: "no row and no metadata",
			check: func(t *testing.T, u *model.User) {
				if u.Name != "Member" {
					t.Errorf("name = %q", u.Name)
				}
				if u.Role != model.RoleMember || u.MembershipPlan != model.PlanFree {
					t.Errorf("role/plan = %q/%q", u.Role, u.MembershipPlan)
				}
				if u.MotorcycleModel != "Not specified" {
					t.Errorf("motorcycle = %q", u.MotorcycleModel)
				}
				if u.Points != 0 {
					t.Errorf("points = %d", u.Points)
				}
				if u.Badges == nil || len(u.Badges) != 0 {
					t.Errorf("badges = %v, expected empty non-nil", u.Badges)
				}
			},
		},
		{
			name:     "metadata fills gaps",
			metadata: map[string]any{"name": "Meta Rider", "avatar_url": "https://img.example/a.png"},
			check: func(t *testing.T, u *model.User) {
				if u.Name != "Meta Rider" {
					t.Errorf("name = %q", u.Name)
				}
				if u.Avatar != "https://img.example/a.png" {
					t.Errorf("avatar = %q", u.Avatar)
				}
			},
		},
		{
			name:     "row wins over metadata",
			metadata: map[string]any{"name": "Meta Rider"},
			row: &profileRow{
				Name:   strptr("Row Rider"),
				Points: intptr(99),
				Badges: []string{"Founder"},
			},
			check: func(t *testing.T, u *model.User) {
				if u.Name != "Row Rider" {
					t.Errorf("name = %q", u.Name)
				}
				if u.Points != 99 {
					t.Errorf("points = %d", u.Points)
				}
				if len(u.Badges) != 1 || u.Badges[0] != "Founder" {
					t.Errorf("badges = %v", u.Badges)
				}
			},
		},
		{
			name: "empty row strings keep defaults",
			row: &profileRow{
				Name:            strptr(""),
				MotorcycleModel: strptr(""),
			},
			check: func(t *testing.T, u *model.User) {
				if u.Name != "Member" {
					t.Errorf("name = %q", u.Name)
				}
				if u.MotorcycleModel != "Not specified" {
					t.Errorf("motorcycle = %q", u.MotorcycleModel)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := mergeProfile("user-1", "rider@example.com", tt.metadata, tt.row)
			if user.ID != "user-1" || user.Email != "rider@example.com" {
				t.Errorf("identity = %q/%q", user.ID, user.Email)
			}
			tt.check(t, user)
		})
	}
}

func TestAuthMessageExtraction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"error_description", `{"error_description":"Invalid login credentials"}`, "Invalid login credentials"},
		{"msg", `{"msg":"Email not confirmed"}`, "Email not confirmed"},
		{"message", `{"message":"User already registered"}`, "User already registered"},
		{"error only", `{"error":"invalid_grant"}`, "invalid_grant"},
		{"garbage", `not json`, "Authentication failed"},
		{"empty object", `{}`, "Authentication failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authMessage([]byte(tt.body)); got != tt.expected {
				t.Errorf("authMessage() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }
