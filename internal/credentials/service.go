package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/models"
	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/internal/secrets"
	"github.com/vitalboard/server/pkg/crypto"
	apperrors "github.com/vitalboard/server/pkg/errors"
	"github.com/vitalboard/server/pkg/logger"
	"github.com/vitalboard/server/pkg/mail"
)

const (
	defaultCodeTTL = 5 * time.Minute

	recordPrefix   = "users/"
	verifyKeyScope = "verify:"
)

// Option customises the credential service.
type Option func(*Service)

// WithCodeTTL overrides the verification code lifetime.
func WithCodeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.codeTTL = d
		}
	}
}

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Identity is the public account identity returned by credential
// operations. Nothing else about an account ever leaves this package.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Code     string
}

// ResetInput carries a password reset request.
type ResetInput struct {
	Email    string
	Code     string
	Password string
}

// Service orchestrates registration, login, password reset, and
// verification code issuance against the record and secret stores.
//
// Each operation is a short-lived request-response unit; the service
// holds no mutable state between calls.
type Service struct {
	records records.Store
	secrets secrets.Store
	tokens  *auth.JWTService
	mailer  mail.Mailer
	codeTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewService constructs a credential service with the provided collaborators.
func NewService(recordStore records.Store, secretStore secrets.Store, tokens *auth.JWTService, mailer mail.Mailer, opts ...Option) (*Service, error) {
	if recordStore == nil {
		return nil, errors.New("credentials: record store is required")
	}
	if secretStore == nil {
		return nil, errors.New("credentials: secret store is required")
	}
	if tokens == nil {
		return nil, errors.New("credentials: token service is required")
	}

	service := &Service{
		records: recordStore,
		secrets: secretStore,
		tokens:  tokens,
		mailer:  mailer,
		codeTTL: defaultCodeTTL,
		now:     time.Now,
		log:     logger.WithModule("credentials"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// SendVerificationCode issues a fresh 6-digit code for the email,
// overwriting any outstanding one, and dispatches it by mail. A dispatch
// failure is reported to the caller but the stored code stays valid: the
// mail may still arrive.
func (s *Service) SendVerificationCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewBadRequest("email is required")
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.secrets.Put(ctx, verifyKey(email), code, s.codeTTL); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if s.mailer == nil {
		return apperrors.ErrMailNotConfigured
	}

	msg := mail.Message{
		To:      email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.\n", code, int(s.codeTTL.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("verification mail dispatch failed", zap.Error(err))
		if errors.Is(err, mail.ErrSMTPDisabled) {
			return apperrors.ErrMailNotConfigured
		}
		return apperrors.ErrMailDispatchFailed
	}

	return nil
}

// Register creates an account. The code check runs strictly before the
// duplicate check so a guessed code cannot probe whether an email is
// registered. No session is issued; the caller logs in afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	in.Email = strings.TrimSpace(in.Email)

	if err := s.checkCode(ctx, in.Email, in.Code); err != nil {
		return Identity{}, err
	}

	existing, err := s.records.Find(ctx, userPrefix(in.Email))
	if err != nil {
		return Identity{}, apperrors.ErrInternalServer.WithInternal(err)
	}
	if len(existing) > 0 {
		return Identity{}, apperrors.ErrEmailAlreadyRegistered
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return Identity{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	record := models.UserRecord{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	body, err := json.Marshal(record)
	if err != nil {
		return Identity{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	if _, err := s.records.Write(ctx, newRecordPath(in.Email), body); err != nil {
		return Identity{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.secrets.Delete(ctx, verifyKey(in.Email)); err != nil {
		return Identity{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	return Identity{Name: record.Name, Email: record.Email}, nil
}

// Login verifies the password and mints a session token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, string, error) {
	email = strings.TrimSpace(email)

	record, _, err := s.resolveRecord(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return Identity{}, "", apperrors.ErrInvalidCredentials
		}
		return Identity{}, "", err
	}

	if !crypto.VerifyPassword(record.PasswordHash, password) {
		return Identity{}, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(record.Email, record.Name)
	if err != nil {
		return Identity{}, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	return Identity{Name: record.Name, Email: record.Email}, token, nil
}

// ResetPassword replaces the stored hash for an existing account. The
// merged record is written back to the same physical path resolved
// during lookup so the account does not fork into two objects.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	in.Email = strings.TrimSpace(in.Email)

	if err := s.checkCode(ctx, in.Email, in.Code); err != nil {
		return err
	}

	record, path, err := s.resolveRecord(ctx, in.Email)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	record.PasswordHash = hash
	record.UpdatedAt = s.now().UTC()

	body, err := json.Marshal(record)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if _, err := s.records.Write(ctx, path, body); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.secrets.Delete(ctx, verifyKey(in.Email)); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	return nil
}

// checkCode validates the outstanding verification code for the
// email without consuming it; consumption happens after the operation
// using it has succeeded.
func (s *Service) checkCode(ctx context.Context, email, code string) error {
	if email == "" || strings.TrimSpace(code) == "" {
		return apperrors.ErrInvalidCode
	}

	stored, err := s.secrets.Get(ctx, verifyKey(email))
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return apperrors.ErrInvalidCode
		}
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	// The store may hand values back with incidental whitespace or
	// numeric formatting; compare normalised strings only.
	if strings.TrimSpace(stored) != strings.TrimSpace(code) {
		return apperrors.ErrInvalidCode
	}

	return nil
}

// resolveRecord looks up the record set for an email via prefix scan.
// When the store holds more than one physical record for the email, the
// lexicographically first path wins; this is defined degraded behavior,
// not an error (the store offers no way to prevent the duplicate race).
func (s *Service) resolveRecord(ctx context.Context, email string) (models.UserRecord, string, error) {
	refs, err := s.records.Find(ctx, userPrefix(email))
	if err != nil {
		return models.UserRecord{}, "", apperrors.ErrInternalServer.WithInternal(err)
	}
	if len(refs) == 0 {
		return models.UserRecord{}, "", apperrors.ErrAccountNotFound
	}
	if len(refs) > 1 {
		s.log.Warn("multiple records for one email, picking first",
			zap.String("prefix", userPrefix(email)),
			zap.Int("count", len(refs)),
		)
	}

	body, err := s.records.Read(ctx, refs[0].Path)
	if err != nil {
		return models.UserRecord{}, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	var record models.UserRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return models.UserRecord{}, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	return record, refs[0].Path, nil
}

func verifyKey(email string) string {
	return verifyKeyScope + email
}

func userPrefix(email string) string {
	return recordPrefix + email + "-"
}

func newRecordPath(email string) string {
	return userPrefix(email) + uuid.NewString() + ".json"
}
