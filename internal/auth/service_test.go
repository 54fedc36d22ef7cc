package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/users"
	pkgAuth "github.com/avilesluna/stockroom-backend/pkg/auth"
	"github.com/avilesluna/stockroom-backend/pkg/auth/session"
	"github.com/avilesluna/stockroom-backend/pkg/config"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

type fakeSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{sessions: map[string]string{}}
}

func (f *fakeSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.sessions[accessID] = token
	return token, nil
}

func (f *fakeSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	f.sessions[newID] = token
	return newID, token, nil
}

func (f *fakeSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(f.sessions, accessID)
	f.revoked = append(f.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "stockroom-test",
		ExpirationMinutes: 15,
		SessionTTLMinutes: 60,
	}
}

func newAuthTestEnv(t *testing.T) (Service, *fakeSessionManager, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessions := newFakeSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, sessions, db
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAuthTestEnv(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:     " Ana@Example.com ",
		Password:  "supersecret",
		FirstName: "Ana",
		LastName:  "Torres",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %s", registered.User.Email)
	}
	if registered.User.Role != enums.UserRoleStaff {
		t.Fatalf("expected staff role, got %s", registered.User.Role)
	}
	if registered.AccessToken == "" || registered.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != registered.User.ID || claims.Role != enums.UserRoleStaff {
		t.Fatalf("unexpected claims %+v", claims)
	}

	logged, err := svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.LastLoginAt == nil {
		t.Fatal("expected last login timestamp")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAuthTestEnv(t)
	ctx := context.Background()

	req := RegisterRequest{
		Email:     "dup@example.com",
		Password:  "supersecret",
		FirstName: "Ana",
		LastName:  "Torres",
	}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(ctx, req)
	if err == nil {
		t.Fatal("expected conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoginRejectsBadPasswordAndInactive(t *testing.T) {
	t.Parallel()

	svc, _, db := newAuthTestEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Email:     "ana@example.com",
		Password:  "supersecret",
		FirstName: "Ana",
		LastName:  "Torres",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("expected unauthorized")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := db.Model(&models.User{}).Where("email = ?", "ana@example.com").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "supersecret"})
	if err == nil {
		t.Fatal("expected unauthorized for inactive user")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newAuthTestEnv(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:     "ana@example.com",
		Password:  "supersecret",
		FirstName: "Ana",
		LastName:  "Torres",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == registered.AccessToken {
		t.Fatal("expected a new access token")
	}
	if refreshed.RefreshToken == registered.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// The old pair is burned after rotation.
	_, err = svc.Refresh(ctx, RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	if err == nil {
		t.Fatal("expected replayed refresh to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions.sessions) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions.sessions))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newAuthTestEnv(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:     "ana@example.com",
		Password:  "supersecret",
		FirstName: "Ana",
		LastName:  "Torres",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if err := svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != claims.ID {
		t.Fatalf("expected session %s revoked, got %v", claims.ID, sessions.revoked)
	}
}
