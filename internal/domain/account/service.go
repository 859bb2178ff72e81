package account

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/auth"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
	"github.com/ehr/fhirportal/internal/platform/session"
)

type Service struct {
	repo     AccountRepository
	tokens   *auth.TokenIssuer
	sessions session.Store
	events   *events.Emitter
	log      zerolog.Logger
}

func NewService(repo AccountRepository, tokens *auth.TokenIssuer, sessions session.Store, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
		events:   em,
		log:      log.With().Str("domain", "account").Logger(),
	}
}

func userSubject(id string) events.Subject {
	return events.Subject{Type: "User", ID: id}
}

// Login answers with a token pair. Tokens in the payload are echoed back
// unchanged; otherwise they are minted by the issuer.
func (s *Service) Login(ctx context.Context, payload document.Document) (document.Document, error) {
	email := payload.String("username", "")
	if email == "" {
		email = payload.String("email", "user@example.com")
	}
	user := document.Document{
		"id":          payload.Map("user").String("id", ident.Generate("user")),
		"email":       email,
		"roles":       document.EnsureList(payload["roles"], document.Strings("patient")),
		"permissions": document.EnsureList(payload["permissions"], document.Strings("read:own_records", "write:own_profile")),
	}
	userID := user.String("id", "")

	access, refresh, err := s.tokens.Issue(auth.Principal{
		UserID:      userID,
		Email:       email,
		Roles:       stringList(user.List("roles")),
		Permissions: stringList(user.List("permissions")),
	})
	if err != nil {
		return nil, err
	}
	if tok, ok := payload["accessToken"].(string); ok {
		access = tok
	}
	if tok, ok := payload["refreshToken"].(string); ok {
		refresh = tok
	}
	issuedAt := isotime.Now()

	doc := document.Document{
		"accessToken":  access,
		"refreshToken": refresh,
		"tokenType":    payload.Value("tokenType", "Bearer"),
		"expiresIn":    payload.Int("expiresIn", int(s.tokens.TTL().Seconds())),
		"user":         user,
		"issuedAt":     isotime.Format(&issuedAt),
	}

	err = s.repo.CreateEvent(ctx, &AuthEvent{
		UserID:     userID,
		EventType:  EventLogin,
		Username:   email,
		DeviceInfo: payload.Value("deviceInfo", document.Document{}),
		Metadata:   document.Document{"mfaCode": payload["mfaCode"]},
	})
	if err != nil {
		return nil, err
	}

	if access != "" {
		ttl := s.sessionTTL(doc.Int("expiresIn", 0))
		sess := session.Session{
			UserID:       userID,
			Email:        email,
			Roles:        stringList(user.List("roles")),
			RefreshToken: refresh,
			IssuedAt:     issuedAt,
		}
		if err := s.sessions.Save(ctx, access, sess, ttl); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("session not cached")
		}
	}
	s.events.Emit(ctx, "user.authenticated.v1", userSubject(userID), document.Document{"method": "password"})
	return doc, nil
}

// maxSessionTTL caps how long a cached login session lives.
const maxSessionTTL = 24 * time.Hour

// sessionTTL turns the echoed expiresIn into a cache lifetime. Missing or
// non-positive values fall back to the issuer's TTL.
func (s *Service) sessionTTL(expiresIn int) time.Duration {
	if expiresIn <= 0 {
		return s.tokens.TTL()
	}
	if expiresIn > int(maxSessionTTL/time.Second) {
		return maxSessionTTL
	}
	return time.Duration(expiresIn) * time.Second
}

// Session resolves an access token issued by Login.
func (s *Service) Session(ctx context.Context, token string) (document.Document, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return document.Document{
		"userId":   sess.UserID,
		"email":    sess.Email,
		"roles":    sess.Roles,
		"issuedAt": isotime.Format(&sess.IssuedAt),
	}, nil
}

// Register records a registration. A supplied password is only ever stored
// as a bcrypt hash.
func (s *Service) Register(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"status":             payload.Value("status", "registered"),
		"userId":             ident.FromValue("user", payload["userId"]),
		"verificationMethod": payload.Value("verificationMethod", "email"),
	}
	userID := doc.String("userId", "")

	meta := document.Document{
		"profile":     payload.Value("profile", document.Document{}),
		"acceptTerms": payload["acceptTerms"],
	}
	if pw := payload.String("password", ""); pw != "" {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return nil, err
		}
		meta["passwordHash"] = hash
	}

	err := s.repo.CreateEvent(ctx, &AuthEvent{
		UserID:    userID,
		EventType: EventRegister,
		Username:  payload.String("email", ""),
		Metadata:  meta,
	})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "user.registered.v1", userSubject(userID), document.Document{
		"verificationMethod": doc["verificationMethod"],
	})
	return doc, nil
}

func (s *Service) PasswordReset(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"status":       payload.Value("status", "sent"),
		"message":      payload.Value("message", "Password reset instructions sent to email"),
		"resetTokenId": ident.FromValue("reset", payload["resetTokenId"]),
		"expiresIn":    payload.Int("expiresIn", 3600),
	}
	err := s.repo.CreateEvent(ctx, &AuthEvent{
		UserID:    payload.String("userId", doc.String("resetTokenId", "")),
		EventType: EventPasswordReset,
		Username:  payload.String("email", ""),
		Metadata:  document.Document{"resetMethod": payload["resetMethod"]},
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) MFASetup(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"qrCode":      payload.Value("qrCode", "data:image/png;base64,PLACEHOLDER"),
		"secret":      payload.Value("secret", "SAMPLESECRET"),
		"backupCodes": document.EnsureList(payload["backupCodes"], document.Strings("12345678", "87654321")),
	}
	err := s.repo.CreateEvent(ctx, &AuthEvent{
		UserID:    payload.String("userId", ident.Generate("user")),
		EventType: EventMFASetup,
		Username:  payload.String("email", ""),
		Metadata:  document.Document{"method": payload["method"], "deviceName": payload["deviceName"]},
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// IsUnknownSession reports whether err means the token has no session.
func IsUnknownSession(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound)
}
