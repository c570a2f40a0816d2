package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/escape-room-reservation/internal/model"
	"github.com/iliyamo/escape-room-reservation/internal/repository"
	"github.com/iliyamo/escape-room-reservation/internal/utils"
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Session is a freshly issued token pair for a member.
type Session struct {
	Member  model.Member
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// AuthService registers members and issues access/refresh token pairs.
type AuthService struct {
	store repository.Store
	cfg   AuthConfig
}

func NewAuthService(store repository.Store, cfg AuthConfig) *AuthService {
	return &AuthService{store: store, cfg: cfg}
}

var errInvalidCredentials = model.Errorf(model.KindUnauthorized, "invalid credentials")

// Register creates a USER member and signs them in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return Session{}, model.Errorf(model.KindInvalidArgument, "name, email and password are required")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, err
	}
	m := model.Member{Name: name, Email: email, PasswordHash: hash, Role: model.RoleUser}
	if err := s.store.Members().Create(ctx, &m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, model.Errorf(model.KindInUse, "email %s is already registered", email)
		}
		return Session{}, err
	}
	return s.issue(ctx, m)
}

// EnsureAdmin creates an ADMIN member with email unless one exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (model.Member, error) {
	if m, err := s.store.Members().FindByEmail(ctx, email); err == nil {
		return m, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Member{}, err
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.Member{}, err
	}
	m := model.Member{Name: "admin", Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.store.Members().Create(ctx, &m); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// Login verifies the password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	m, err := s.store.Members().FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(m.PasswordHash, password) {
		return Session{}, errInvalidCredentials
	}
	return s.issue(ctx, m)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	var sess Session
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		memberID, err := tx.Tokens().ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Errorf(model.KindUnauthorized, "invalid refresh token")
		}
		if err != nil {
			return err
		}
		if err := tx.Tokens().RevokeByHash(ctx, hash); err != nil {
			return err
		}
		m, err := tx.Members().FindByID(ctx, memberID)
		if err != nil {
			return storeErr(err, "member no longer exists", "")
		}
		sess, err = issueWith(ctx, tx, s.cfg, m)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout revokes one refresh token, or every token of memberID when raw is
// empty.
func (s *AuthService) Logout(ctx context.Context, memberID uint64, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		return s.store.Tokens().RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	}
	if memberID == 0 {
		return model.Errorf(model.KindInvalidArgument, "refresh_token required")
	}
	return s.store.Tokens().RevokeAllForMember(ctx, memberID)
}

// Me returns the member behind an authenticated caller.
func (s *AuthService) Me(ctx context.Context, memberID uint64) (model.Member, error) {
	m, err := s.store.Members().FindByID(ctx, memberID)
	if err != nil {
		return model.Member{}, storeErr(err, "member not found", "")
	}
	return m, nil
}

func (s *AuthService) issue(ctx context.Context, m model.Member) (Session, error) {
	return issueWith(ctx, s.store, s.cfg, m)
}

func issueWith(ctx context.Context, store repository.Store, cfg AuthConfig, m model.Member) (Session, error) {
	access, err := utils.NewAccessToken(cfg.JWTSecret, m.ID, string(m.Role), cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, err
	}
	if err := store.Tokens().StoreRefresh(ctx, m.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{Member: m, Access: access, Refresh: refresh}, nil
}
