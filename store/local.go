package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Retroinn/MotoCrew/database"
	"github.com/Retroinn/MotoCrew/database/model"
	"github.com/Retroinn/MotoCrew/logger"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// The mock store keeps exactly two documents in the key-value table: the one
// current user record and the full notification list.
const (
	kvUserKey          = "moto_crew_user"
	kvNotificationsKey = "moto_crew_notifications"
)

// LocalStore is the mock-mode implementation, backed by the embedded
// database. Operations are synchronous under the hood; the context-taking
// signatures exist only so callers stay storage-agnostic. The mutex
// serializes the read-modify-write cycles on the notification list, which the
// single-threaded original did not need; concurrent processes sharing the
// database file can still overwrite each other's writes.
type LocalStore struct {
	emitter
	mu sync.Mutex
}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) readKV(key string) (string, bool, error) {
	var row model.KV
	err := database.GetDB().Where("key = ?", key).First(&row).Error
	if database.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *LocalStore) writeKV(key, value string) error {
	db := database.GetDB()
	row := model.KV{Key: key, Value: value}
	if err := db.Where("key = ?", key).First(&model.KV{}).Error; database.IsNotFound(err) {
		return db.Create(&row).Error
	}
	return db.Model(&model.KV{}).Where("key = ?", key).Update("value", value).Error
}

func (s *LocalStore) deleteKV(key string) error {
	return database.GetDB().Where("key = ?", key).Delete(&model.KV{}).Error
}

// readUser returns the stored user record, or nil when it is absent or
// unreadable. A corrupt document is treated as absent, never as a fault.
func (s *LocalStore) readUser() *model.User {
	value, ok, err := s.readKV(kvUserKey)
	if err != nil || !ok {
		if err != nil {
			logger.Warning("read mock user:", err)
		}
		return nil
	}
	var user model.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		logger.Warning("stored mock user is not valid JSON:", err)
		return nil
	}
	return &user
}

func (s *LocalStore) writeUser(user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.writeKV(kvUserKey, string(data))
}

// readAllNotifications returns the stored list in stored order. The fixture
// records are seeded exactly once, on the first read that finds no document.
func (s *LocalStore) readAllNotifications() ([]model.Notification, error) {
	value, ok, err := s.readKV(kvNotificationsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		seed := fixtureNotifications()
		if err := s.writeAllNotifications(seed); err != nil {
			return nil, err
		}
		return seed, nil
	}
	var list []model.Notification
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *LocalStore) writeAllNotifications(list []model.Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.writeKV(kvNotificationsKey, string(data))
}

func fixtureNotifications() []model.Notification {
	return []model.Notification{
		{
			ID:        "1",
			UserID:    model.BroadcastScope,
			Type:      model.NotificationEvent,
			Title:     "Season Opening Ride",
			Message:   "Wheels roll this Sunday for the Belgrad Forest ride. Are you in?",
			Read:      false,
			CreatedAt: time.Now().Add(-2 * time.Hour),
		},
		{
			ID:        "2",
			UserID:    "mock-123",
			Type:      model.NotificationSystem,
			Title:     "Welcome!",
			Message:   "Thanks for joining the MotoCrew family. Don't forget to complete your profile!",
			Read:      true,
			CreatedAt: time.Now().Add(-24 * time.Hour),
		},
	}
}

func (s *LocalStore) GetSession(ctx context.Context) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUser(), nil
}

// SignIn in mock mode accepts any credentials and stores the demo member,
// echoing the given email. This mirrors the hosted flow's shape without
// reaching the network.
func (s *LocalStore) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &model.User{
		ID:              "mock-123",
		Email:           email,
		Name:            "Demo Rider",
		Nickname:        "RiderTR",
		Role:            model.RoleMember,
		MembershipPlan:  model.PlanFree,
		MotorcycleModel: "Yamaha MT-07",
		ExperienceLevel: model.ExperienceIntermediate,
		Avatar:          "https://images.unsplash.com/photo-1633332755192-727a05c4013d?w=400",
		Bio:             "Road addict. I love feeling the wind.",
		Points:          150,
		Badges:          []string{},
	}
	if err := s.writeUser(user); err != nil {
		return AuthResult{}, err
	}
	s.emit(SessionEvent{Type: EventSignedIn, User: user})
	return AuthResult{User: user}, nil
}

func (s *LocalStore) SignUp(ctx context.Context, email, password, name string) (AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &model.User{
		ID:              fmt.Sprintf("mock-%d", time.Now().UnixMilli()),
		Email:           email,
		Name:            name,
		Role:            model.RoleMember,
		MembershipPlan:  model.PlanFree,
		ExperienceLevel: model.ExperienceNovice,
		Badges:          []string{},
	}
	if err := s.writeUser(user); err != nil {
		return AuthResult{}, err
	}
	s.emit(SessionEvent{Type: EventSignedIn, User: user})
	return AuthResult{User: user}, nil
}

func (s *LocalStore) SignOut(ctx context.Context) {
	s.mu.Lock()
	if err := s.deleteKV(kvUserKey); err != nil {
		logger.Warning("clear mock user:", err)
	}
	s.mu.Unlock()
	s.emit(SessionEvent{Type: EventSignedOut})
}

func (s *LocalStore) ResetPassword(ctx context.Context, email string) (string, error) {
	// Nothing to reset without a backend.
	return "", nil
}

// SignInWithGoogle in mock mode skips the redirect entirely and stores a
// canned premium account.
func (s *LocalStore) SignInWithGoogle(ctx context.Context) (OAuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &model.User{
		ID:              "google-mock-user-1",
		Email:           "google.demo@motocrew.app",
		Name:            "Google User",
		Nickname:        "G-Moto",
		Role:            model.RoleMember,
		MembershipPlan:  model.PlanPremium,
		MotorcycleModel: "Ducati Panigale V4",
		ExperienceLevel: model.ExperienceExpert,
		Avatar:          "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=400",
		Bio:             "Signed in with a Google account.",
		Points:          850,
		Badges:          []string{"Verified Account", "Premium Member"},
	}
	if err := s.writeUser(user); err != nil {
		return OAuthResult{}, err
	}
	s.emit(SessionEvent{Type: EventSignedIn, User: user})
	return OAuthResult{User: user}, nil
}

func (s *LocalStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.readUser()
	if user == nil {
		return AuthResult{Message: "No member record found"}, nil
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Nickname != nil {
		user.Nickname = *update.Nickname
	}
	if update.MotorcycleModel != nil {
		user.MotorcycleModel = *update.MotorcycleModel
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.ExperienceLevel != nil {
		user.ExperienceLevel = *update.ExperienceLevel
	}
	if err := s.writeUser(user); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user}, nil
}

func (s *LocalStore) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAllNotifications()
	if err != nil {
		return nil, err
	}
	visible := make([]model.Notification, 0, len(all))
	for _, n := range all {
		if n.VisibleTo(userID) {
			visible = append(visible, n)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	return visible, nil
}

func (s *LocalStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAllNotifications()
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == id {
			all[i].Read = true
		}
	}
	return s.writeAllNotifications(all)
}

func (s *LocalStore) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAllNotifications()
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].VisibleTo(userID) {
			all[i].Read = true
		}
	}
	return s.writeAllNotifications(all)
}

func (s *LocalStore) Broadcast(ctx context.Context, title, message string, typ model.NotificationType) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    model.BroadcastScope,
		Type:      typ,
		Title:     title,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}
	all, err := s.readAllNotifications()
	if err != nil {
		return nil, err
	}
	all = append([]model.Notification{n}, all...)
	if err := s.writeAllNotifications(all); err != nil {
		return nil, err
	}
	return &n, nil
}
