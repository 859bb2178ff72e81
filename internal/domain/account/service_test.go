package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/auth"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/session"
)

// ── Mock Repository ──

type mockAccountRepo struct {
	events []*AuthEvent
	err    error
}

func (m *mockAccountRepo) CreateEvent(_ context.Context, ev *AuthEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

type testEnv struct {
	svc      *Service
	repo     *mockAccountRepo
	sessions *session.MemoryStore
	rec      *events.Recorder
}

func newTestEnv(signingKey string) testEnv {
	repo := &mockAccountRepo{}
	sessions := session.NewMemoryStore()
	rec := &events.Recorder{}
	issuer := auth.NewTokenIssuer(signingKey, "fhir-portal", time.Hour)
	svc := NewService(repo, issuer, sessions, events.NewEmitter(rec, zerolog.Nop()), zerolog.Nop())
	return testEnv{svc: svc, repo: repo, sessions: sessions, rec: rec}
}

type ttlStore struct {
	session.Store
	ttl time.Duration
}

func (s *ttlStore) Save(ctx context.Context, token string, sess session.Session, ttl time.Duration) error {
	s.ttl = ttl
	return s.Store.Save(ctx, token, sess, ttl)
}

func TestLogin_SessionTTLBounds(t *testing.T) {
	cases := []struct {
		name      string
		expiresIn interface{}
		want      time.Duration
	}{
		{"overflowing", float64(1e15), maxSessionTTL},
		{"negative", -5, time.Hour},
		{"in range", 120, 2 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &ttlStore{Store: session.NewMemoryStore()}
			issuer := auth.NewTokenIssuer("", "fhir-portal", time.Hour)
			svc := NewService(&mockAccountRepo{}, issuer, store, events.NewEmitter(&events.Recorder{}, zerolog.Nop()), zerolog.Nop())

			doc, err := svc.Login(context.Background(), document.Document{"expiresIn": tc.expiresIn})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.ttl != tc.want {
				t.Errorf("session ttl = %v, want %v", store.ttl, tc.want)
			}
			if _, err := svc.Session(context.Background(), doc.String("accessToken", "")); err != nil {
				t.Errorf("session should be readable: %v", err)
			}
		})
	}
}

func TestLogin_Defaults(t *testing.T) {
	env := newTestEnv("")
	doc, err := env.svc.Login(context.Background(), document.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(doc.String("accessToken", ""), "access-token-") {
		t.Errorf("accessToken = %v", doc["accessToken"])
	}
	if !strings.HasPrefix(doc.String("refreshToken", ""), "refresh-token-") {
		t.Errorf("refreshToken = %v", doc["refreshToken"])
	}
	if doc["tokenType"] != "Bearer" || doc["expiresIn"] != 3600 {
		t.Errorf("tokenType/expiresIn = %v %v", doc["tokenType"], doc["expiresIn"])
	}
	user := doc.Map("user")
	if user["email"] != "user@example.com" || !strings.HasPrefix(user.String("id", ""), "user-") {
		t.Errorf("user = %v", user)
	}
	if perms := user.List("permissions"); len(perms) != 2 || perms[0] != "read:own_records" {
		t.Errorf("permissions = %v", perms)
	}
	if len(env.repo.events) != 1 || env.repo.events[0].EventType != EventLogin {
		t.Errorf("auth events = %+v", env.repo.events)
	}
	if types := env.rec.Types(); len(types) != 1 || types[0] != "user.authenticated.v1" {
		t.Errorf("events = %v", types)
	}
}

func TestLogin_SignedTokenVerifies(t *testing.T) {
	env := newTestEnv("secret-key")
	doc, err := env.svc.Login(context.Background(), document.Document{
		"username": "jane@example.com",
		"user":     map[string]interface{}{"id": "user-42"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	issuer := auth.NewTokenIssuer("secret-key", "fhir-portal", time.Hour)
	claims, err := issuer.Verify(doc.String("accessToken", ""))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" || claims.Email != "jane@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "patient" {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestLogin_TokenOverridesAndSession(t *testing.T) {
	env := newTestEnv("")
	ctx := context.Background()
	doc, _ := env.svc.Login(ctx, document.Document{
		"accessToken": "tok-1",
		"email":       "a@b.c",
		"expiresIn":   "120",
	})
	if doc["accessToken"] != "tok-1" || doc["expiresIn"] != 120 {
		t.Errorf("overrides = %v %v", doc["accessToken"], doc["expiresIn"])
	}

	sess, err := env.svc.Session(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess["email"] != "a@b.c" {
		t.Errorf("session = %v", sess)
	}
	if _, err := env.svc.Session(ctx, "unknown"); !IsUnknownSession(err) {
		t.Errorf("expected unknown session, got %v", err)
	}
}

func TestLogin_RepoFailure(t *testing.T) {
	env := newTestEnv("")
	env.repo.err = errors.New("db down")
	if _, err := env.svc.Login(context.Background(), document.Document{}); err == nil {
		t.Error("expected error")
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	env := newTestEnv("")
	doc, err := env.svc.Register(context.Background(), document.Document{
		"email":    "new@example.com",
		"password": "s3cret!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["status"] != "registered" || doc["verificationMethod"] != "email" {
		t.Errorf("unexpected doc: %v", doc)
	}
	ev := env.repo.events[0]
	hash := ev.Metadata.String("passwordHash", "")
	if hash == "" || hash == "s3cret!" {
		t.Fatalf("password stored as %q", hash)
	}
	if !auth.CheckPassword(hash, "s3cret!") {
		t.Error("hash does not match password")
	}
	if ev.Username != "new@example.com" {
		t.Errorf("username = %q", ev.Username)
	}
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv("")
	doc, _ := env.svc.PasswordReset(context.Background(), document.Document{})
	if doc["status"] != "sent" || doc["message"] != "Password reset instructions sent to email" {
		t.Errorf("unexpected doc: %v", doc)
	}
	id := doc.String("resetTokenId", "")
	if !strings.HasPrefix(id, "reset-") || doc["expiresIn"] != 3600 {
		t.Errorf("resetTokenId/expiresIn = %v %v", id, doc["expiresIn"])
	}
	if env.repo.events[0].UserID != id {
		t.Errorf("user id should fall back to the reset token id")
	}
}

func TestMFASetup(t *testing.T) {
	env := newTestEnv("")
	doc, _ := env.svc.MFASetup(context.Background(), document.Document{"backupCodes": []interface{}{}})
	if doc["qrCode"] != "data:image/png;base64,PLACEHOLDER" || doc["secret"] != "SAMPLESECRET" {
		t.Errorf("unexpected doc: %v", doc)
	}
	if codes := doc.List("backupCodes"); len(codes) != 2 {
		t.Errorf("backupCodes = %v", codes)
	}
}
