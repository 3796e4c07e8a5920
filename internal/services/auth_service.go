package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	providerEmail  = "email"
	providerGoogle = "google"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordRequired   = errors.New("password is required")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")
	ErrUnverifiedEmail    = errors.New("google account email is not verified")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	google   IdentityVerifier
	sessions *session.Hub
	roles    *roles.Resolver
	ledger   *session.Ledger
	changes  live.Notifier
}

// NewAuthService wires the auth flows. google may be nil, which disables
// federated sign-in. changes hears about created and deleted profiles and
// may be nil.
func NewAuthService(db *gorm.DB, cfg *config.Config, google IdentityVerifier, sessions *session.Hub,
	resolver *roles.Resolver, ledger *session.Ledger, changes live.Notifier) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		google:   google,
		sessions: sessions,
		roles:    resolver,
		ledger:   ledger,
		changes:  changes,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var existing models.User
	err := s.db.WithContext(ctx).Unscoped().Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:             uuid.New(),
		Email:          email,
		Password:       string(hash),
		Role:           string(bootstrapRole(s.cfg, email)),
		DisplayName:    strings.TrimSpace(req.DisplayName),
		AuthProvider:   providerEmail,
		SessionVersion: 1,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("user registered", "user_id", user.ID.String(), "role", user.Role)
	notifyUsers(ctx, s.changes, user.ID)

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).Take(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, &user)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ? AND revoked = false", tokenHash).Take(&stored).Error; err != nil {
			return ErrInvalidToken
		}

		if err := tx.Model(&stored).Update("revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if stored.Expired(time.Now()) {
			return ErrInvalidToken
		}

		if err := tx.Where("id = ?", stored.UserID).Take(&user).Error; err != nil {
			return ErrUserNotFound
		}
		return nil
	})
	if errors.Is(err, ErrInvalidToken) {
		// Keep the revocation of an expired token even though refresh failed.
		if rerr := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
			Where("token_hash = ?", tokenHash).Update("revoked", true).Error; rerr != nil {
			slog.Warn("failed to revoke rejected refresh token", "error", rerr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(ctx, &user)
}

// Logout revokes the given refresh token, or every token of the user when
// none is given. Once no live refresh token remains the user counts as
// signed out and their open streams are closed.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, req *dto.LogoutRequest) error {
	q := s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("user_id = ?", userID)
	if req.RefreshToken != "" {
		q = q.Where("token_hash = ?", hashToken(req.RefreshToken))
	}
	if err := q.Update("revoked", true).Error; err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	var active int64
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Scopes(models.LiveRefreshTokens(time.Now())).
		Where("user_id = ?", userID).
		Count(&active).Error
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	if active > 0 {
		return nil
	}

	// Strand every access token issued so far.
	bump := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("session_version", gorm.Expr("session_version + 1"))
	if bump.Error != nil {
		return fmt.Errorf("failed to end session: %w", bump.Error)
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "session_version").Where("id = ?", userID).Take(&user).Error; err != nil {
		return fmt.Errorf("failed to read session version: %w", err)
	}

	s.signOut(ctx, userID, user.SessionVersion)
	return nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		return ErrUserNotFound
	}

	if user.AuthProvider != providerGoogle {
		if password == "" {
			return ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.signOut(ctx, userID, user.SessionVersion+1)
	notifyUsers(ctx, s.changes, userID)
	return nil
}

// GoogleSignIn verifies a Google ID token and signs the holder in, creating
// the profile on first use and linking an existing email account otherwise.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *dto.GoogleSignInRequest) (*dto.AuthResponse, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}

	identity, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		slog.Warn("google token verification failed", "error", err)
		return nil, fmt.Errorf("failed to verify Google ID token: %w", ErrInvalidCredentials)
	}
	if identity.Email == "" || !identity.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	email := normalizeEmail(identity.Email)
	googleID := identity.Subject

	var user models.User
	err = s.db.WithContext(ctx).
		Where("google_user_id = ? OR email = ?", googleID, email).Take(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ID:             uuid.New(),
			Email:          email,
			Role:           string(bootstrapRole(s.cfg, email)),
			DisplayName:    identity.Name,
			PhotoURL:       identity.Picture,
			GoogleUserID:   &googleID,
			AuthProvider:   providerGoogle,
			SessionVersion: 1,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create Google user: %w", err)
		}
		slog.Info("user registered", "user_id", user.ID.String(), "role", user.Role, "provider", providerGoogle)
		notifyUsers(ctx, s.changes, user.ID)
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	case user.GoogleUserID == nil:
		fields := map[string]interface{}{"google_user_id": googleID}
		if user.PhotoURL == "" && identity.Picture != "" {
			fields["photo_url"] = identity.Picture
			user.PhotoURL = identity.Picture
		}
		if err := s.db.WithContext(ctx).Model(&user).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to link Google account: %w", err)
		}
		user.GoogleUserID = &googleID
	}

	return s.generateTokenPair(ctx, &user)
}

// signOut records version as the user's session and closes their streams.
// The ledger moves first so a stream opened concurrently either sees the
// new version or receives the sign-out.
func (s *AuthService) signOut(ctx context.Context, userID uuid.UUID, version int) {
	if s.ledger != nil {
		s.ledger.Advance(ctx, userID, version)
	}
	if s.roles != nil {
		s.roles.Invalidate(ctx, userID)
	}
	if s.sessions != nil {
		if err := s.sessions.SignedOut(ctx, userID); err != nil {
			slog.Warn("failed to broadcast sign-out", "user_id", userID.String(), "error", err)
		}
	}
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         ToUserResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"sv":    user.SessionVersion,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		Provider:  user.AuthProvider,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

// ToUserResponse is the public view of a user record.
func ToUserResponse(user *models.User) dto.UserResponse {
	role, _ := access.ParseRole(user.Role)
	return dto.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PhotoURL:     user.PhotoURL,
		Role:         role.String(),
		IsGoogleUser: user.AuthProvider == providerGoogle,
	}
}

// bootstrapRole is the role a new profile starts with. Only configured
// addresses start elevated.
func bootstrapRole(cfg *config.Config, email string) access.Role {
	switch {
	case containsFold(cfg.OwnerEmails, email):
		return access.RoleOwner
	case containsFold(cfg.AdminEmails, email):
		return access.RoleAdmin
	default:
		return access.DefaultRole
	}
}

func containsFold(list []string, val string) bool {
	return slices.ContainsFunc(list, func(item string) bool {
		return strings.EqualFold(item, val)
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
