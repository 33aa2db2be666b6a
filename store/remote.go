package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/logger"
	"github.com/Retroinn/MotoCrew/util/common"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Every remote call carries this deadline. The hosted backend offers no
// server-side cancellation, so a stalled call is cut here instead of stalling
// its caller indefinitely.
const opTimeout = 15 * time.Second

// expirySkew refreshes tokens slightly before their printed expiry so a
// request never leaves with a token that dies in flight.
const expirySkew = 30 * time.Second

// RemoteStore forwards every operation to the hosted Supabase project: GoTrue
// for auth, PostgREST for the profiles and notifications tables. It holds the
// one active session of this process; the mutex guards it against concurrent
// handlers.
type RemoteStore struct {
	emitter
	baseURL string
	apiKey  string
	http    *http.Client

	mu      sync.Mutex
	session *remoteSession

	mock *LocalStore // sign-out clears the mock keys too, defensive cleanup
}

type remoteSession struct {
	AccessToken  string
	RefreshToken string
}

func NewRemoteStore(baseURL, apiKey string, client *http.Client) *RemoteStore {
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    client,
		mock:    NewLocalStore(),
	}
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
}

// profileRow mirrors the columns of the profiles table. Every field is
// optional; merging applies the named defaults.
type profileRow struct {
	Name            *string  `json:"name"`
	Nickname        *string  `json:"nickname"`
	Role            *string  `json:"role"`
	MembershipPlan  *string  `json:"membership_plan"`
	Points          *int     `json:"points"`
	MotorcycleModel *string  `json:"motorcycle_model"`
	ExperienceLevel *string  `json:"experience_level"`
	AvatarURL       *string  `json:"avatar_url"`
	Bio             *string  `json:"bio"`
	Badges          []string `json:"badges"`
}

type notificationRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (r notificationRow) toModel() model.Notification {
	return model.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      model.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
}

// request performs one HTTP call against the project. token empty means the
// anon key authorizes the call. Non-2xx statuses are returned to the caller
// for classification, not turned into errors here.
func (s *RemoteStore) request(ctx context.Context, method, path string, query url.Values, token, prefer string, body any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	auth := token
	if auth == "" {
		auth = s.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// authMessage extracts the provider's human-readable failure text from an
// error body, whichever field it arrived in.
func authMessage(data []byte) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, candidate := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
			if candidate != "" {
				return candidate
			}
		}
	}
	return "Authentication failed"
}

type sessionClaims struct {
	Subject  string
	Email    string
	Expiry   time.Time
	Metadata map[string]any
}

// parseSessionClaims reads the subject, email and expiry out of a GoTrue
// access token. The signature is not verified here; the provider verifies it
// on every forwarded call.
func parseSessionClaims(accessToken string) (sessionClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return sessionClaims{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return sessionClaims{}, common.NewError("unexpected claims shape in access token")
	}

	out := sessionClaims{}
	out.Subject, _ = claims.GetSubject()
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expiry = exp.Time
	}
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		out.Metadata = meta
	}
	return out, nil
}

func (c sessionClaims) expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(c.Expiry)
}

// mergeProfile joins the auth identity with the profile row, applying the
// named default for every optional field.
func mergeProfile(id, email string, metadata map[string]any, row *profileRow) *model.User {
	user := &model.User{
		ID:              id,
		Email:           email,
		Name:            "Member",
		Role:            model.RoleMember,
		MembershipPlan:  model.PlanFree,
		MotorcycleModel: "Not specified",
		ExperienceLevel: model.ExperienceNovice,
		Badges:          []string{},
	}
	if name, ok := metadata["name"].(string); ok && name != "" {
		user.Name = name
	}
	if avatar, ok := metadata["avatar_url"].(string); ok {
		user.Avatar = avatar
	}
	if row == nil {
		return user
	}
	if row.Name != nil && *row.Name != "" {
		user.Name = *row.Name
	}
	if row.Nickname != nil {
		user.Nickname = *row.Nickname
	}
	if row.Role != nil && *row.Role != "" {
		user.Role = model.UserRole(*row.Role)
	}
	if row.MembershipPlan != nil && *row.MembershipPlan != "" {
		user.MembershipPlan = model.MembershipPlan(*row.MembershipPlan)
	}
	if row.Points != nil {
		user.Points = *row.Points
	}
	if row.MotorcycleModel != nil && *row.MotorcycleModel != "" {
		user.MotorcycleModel = *row.MotorcycleModel
	}
	if row.ExperienceLevel != nil && *row.ExperienceLevel != "" {
		user.ExperienceLevel = model.ExperienceLevel(*row.ExperienceLevel)
	}
	if row.AvatarURL != nil && *row.AvatarURL != "" {
		user.Avatar = *row.AvatarURL
	}
	if row.Bio != nil {
		user.Bio = *row.Bio
	}
	if row.Badges != nil {
		user.Badges = row.Badges
	}
	return user
}

// profileColumns maps a partial update onto the fixed column names. Fields
// left nil never reach the payload, so the server keeps their current values.
func profileColumns(update ProfileUpdate) map[string]any {
	columns := make(map[string]any)
	if update.Name != nil {
		columns["name"] = *update.Name
	}
	if update.Nickname != nil {
		columns["nickname"] = *update.Nickname
	}
	if update.MotorcycleModel != nil {
		columns["motorcycle_model"] = *update.MotorcycleModel
	}
	if update.Bio != nil {
		columns["bio"] = *update.Bio
	}
	if update.Avatar != nil {
		columns["avatar_url"] = *update.Avatar
	}
	if update.ExperienceLevel != nil {
		columns["experience_level"] = string(*update.ExperienceLevel)
	}
	return columns
}

func (s *RemoteStore) snapshotSession() *remoteSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	copied := *s.session
	return &copied
}

func (s *RemoteStore) setSession(sess *remoteSession) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

func (s *RemoteStore) refresh(ctx context.Context, refreshToken string) (*remoteSession, error) {
	query := url.Values{"grant_type": {"refresh_token"}}
	status, data, err := s.request(ctx, http.MethodPost, "/auth/v1/token", query, "", "",
		map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, common.NewErrorf("token refresh rejected: %s", authMessage(data))
	}
	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &remoteSession{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (s *RemoteStore) fetchProfile(ctx context.Context, userID, accessToken string) (*profileRow, error) {
	query := url.Values{
		"select": {"*"},
		"id":     {"eq." + userID},
	}
	status, data, err := s.request(ctx, http.MethodGet, "/rest/v1/profiles", query, accessToken, "", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, common.NewErrorf("profile fetch failed (%d): %s", status, authMessage(data))
	}
	var rows []profileRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetSession restores the active session, refreshing the access token when it
// has expired, then returns the merged auth+profile user. No session yields
// nil without error.
func (s *RemoteStore) GetSession(ctx context.Context) (*model.User, error) {
	sess := s.snapshotSession()
	if sess == nil {
		return nil, nil
	}

	claims, err := parseSessionClaims(sess.AccessToken)
	if err != nil {
		logger.Warning("discarding unreadable access token:", err)
		s.setSession(nil)
		return nil, nil
	}

	refreshed := false
	if claims.expired(time.Now()) {
		next, err := s.refresh(ctx, sess.RefreshToken)
		if err != nil {
			logger.Warning("session refresh failed, signing out:", err)
			s.setSession(nil)
			s.emit(SessionEvent{Type: EventSignedOut})
			return nil, nil
		}
		s.setSession(next)
		sess = next
		if claims, err = parseSessionClaims(sess.AccessToken); err != nil {
			s.setSession(nil)
			return nil, nil
		}
		refreshed = true
	}

	row, err := s.fetchProfile(ctx, claims.Subject, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	user := mergeProfile(claims.Subject, claims.Email, claims.Metadata, row)
	if refreshed {
		s.emit(SessionEvent{Type: EventTokenRefreshed, User: user})
	}
	return user, nil
}

func (s *RemoteStore) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	query := url.Values{"grant_type": {"password"}}
	status, data, err := s.request(ctx, http.MethodPost, "/auth/v1/token", query, "", "",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return AuthResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthResult{Message: authMessage(data)}, nil
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AuthResult{}, err
	}
	s.setSession(&remoteSession{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	// Re-fetch through GetSession so the result always reflects the joined
	// profile, not just the auth claims.
	user, err := s.GetSession(ctx)
	if err != nil {
		return AuthResult{}, err
	}
	s.emit(SessionEvent{Type: EventSignedIn, User: user})
	return AuthResult{User: user}, nil
}

func (s *RemoteStore) SignUp(ctx context.Context, email, password, name string) (AuthResult, error) {
	status, data, err := s.request(ctx, http.MethodPost, "/auth/v1/signup", nil, "", "",
		map[string]any{"email": email, "password": password, "data": map[string]string{"name": name}})
	if err != nil {
		return AuthResult{}, err
	}
	if status < 200 || status >= 300 {
		return AuthResult{Message: authMessage(data)}, nil
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AuthResult{}, err
	}
	if resp.User != nil && resp.AccessToken == "" {
		// Identity created but no session: confirmation mail pending. A
		// success-shaped outcome, not a failure.
		return AuthResult{Message: "Registration successful! Please confirm your email address."}, nil
	}
	s.setSession(&remoteSession{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	user, err := s.GetSession(ctx)
	if err != nil {
		return AuthResult{}, err
	}
	s.emit(SessionEvent{Type: EventSignedIn, User: user})
	return AuthResult{User: user}, nil
}

func (s *RemoteStore) SignOut(ctx context.Context) {
	if sess := s.snapshotSession(); sess != nil {
		if status, data, err := s.request(ctx, http.MethodPost, "/auth/v1/logout", nil, sess.AccessToken, "", nil); err != nil {
			logger.Warning("remote sign-out:", err)
		} else if status < 200 || status >= 300 {
			logger.Warning("remote sign-out rejected:", authMessage(data))
		}
	}
	s.setSession(nil)

	// The mock keys are cleared in every mode.
	s.mock.SignOut(ctx)
	s.emit(SessionEvent{Type: EventSignedOut})
}

func (s *RemoteStore) ResetPassword(ctx context.Context, email string) (string, error) {
	status, data, err := s.request(ctx, http.MethodPost, "/auth/v1/recover", nil, "", "",
		map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return authMessage(data), nil
	}
	return "", nil
}

// SignInWithGoogle hands back the provider's authorize URL. The user record
// materializes only after the redirect completes and GetSession runs with the
// restored tokens; callers must not expect one here.
func (s *RemoteStore) SignInWithGoogle(ctx context.Context) (OAuthResult, error) {
	authorize := fmt.Sprintf("%s/auth/v1/authorize?provider=google&access_type=offline&prompt=consent", s.baseURL)
	return OAuthResult{RedirectURL: authorize}, nil
}

func (s *RemoteStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (AuthResult, error) {
	sess := s.snapshotSession()
	if sess == nil {
		return AuthResult{Message: "No active session"}, nil
	}

	columns := profileColumns(update)
	if len(columns) > 0 {
		query := url.Values{"id": {"eq." + userID}}
		status, data, err := s.request(ctx, http.MethodPatch, "/rest/v1/profiles", query, sess.AccessToken, "return=minimal", columns)
		if err != nil {
			return AuthResult{}, err
		}
		if status < 200 || status >= 300 {
			return AuthResult{Message: authMessage(data)}, nil
		}
	}

	user, err := s.GetSession(ctx)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user}, nil
}

func visibilityFilter(userID string) string {
	return fmt.Sprintf("(user_id.eq.%s,user_id.eq.%s)", userID, model.BroadcastScope)
}

func (s *RemoteStore) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	query := url.Values{
		"select": {"*"},
		"or":     {visibilityFilter(userID)},
		"order":  {"created_at.desc"},
	}
	status, data, err := s.request(ctx, http.MethodGet, "/rest/v1/notifications", query, s.accessToken(), "", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, common.NewErrorf("notification list failed (%d): %s", status, authMessage(data))
	}
	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	list := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toModel())
	}
	return list, nil
}

func (s *RemoteStore) MarkRead(ctx context.Context, id string) error {
	query := url.Values{"id": {"eq." + id}}
	status, data, err := s.request(ctx, http.MethodPatch, "/rest/v1/notifications", query, s.accessToken(), "return=minimal",
		map[string]bool{"read": true})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return common.NewErrorf("mark read failed (%d): %s", status, authMessage(data))
	}
	return nil
}

func (s *RemoteStore) MarkAllRead(ctx context.Context, userID string) error {
	query := url.Values{"or": {visibilityFilter(userID)}}
	status, data, err := s.request(ctx, http.MethodPatch, "/rest/v1/notifications", query, s.accessToken(), "return=minimal",
		map[string]bool{"read": true})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return common.NewErrorf("mark all read failed (%d): %s", status, authMessage(data))
	}
	return nil
}

func (s *RemoteStore) Broadcast(ctx context.Context, title, message string, typ model.NotificationType) (*model.Notification, error) {
	row := notificationRow{
		ID:        uuid.NewString(),
		UserID:    model.BroadcastScope,
		Type:      string(typ),
		Title:     title,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}
	status, data, err := s.request(ctx, http.MethodPost, "/rest/v1/notifications", nil, s.accessToken(), "return=representation", row)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, common.NewErrorf("broadcast insert failed (%d): %s", status, authMessage(data))
	}
	var rows []notificationRow
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		n := rows[0].toModel()
		return &n, nil
	}
	n := row.toModel()
	return &n, nil
}

func (s *RemoteStore) accessToken() string {
	if sess := s.snapshotSession(); sess != nil {
		return sess.AccessToken
	}
	return ""
}
