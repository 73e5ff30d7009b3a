package admin

import (
	"context"
	"strings"
	"time"

	"rehab-service/internal/config"
	"rehab-service/internal/model"
	pkgAuth "rehab-service/pkg/auth"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/utils/random"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength       = 8
	generatedPasswordLength = 12
)

// Service manages back-office accounts. An admin token acts as host on every game.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	Admin    AdminInfo `json:"admin"`
}

type AdminInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, expireAt, err := pkgAuth.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(admin).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error; err != nil {
		return nil, err
	}
	admin.LastLoginAt = &now

	logger.Log.Info("admin logged in", zap.Int64("adminID", admin.ID))
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		Admin:    sanitizeAdmin(*admin),
	}, nil
}

// ChangePassword re-checks the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, adminID int64, current, next string) error {
	var admin model.Admin
	if err := s.db.WithContext(ctx).First(&admin, adminID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.ErrAdminNotFound
		}
		return err
	}
	if _, err := s.authenticate(ctx, admin.Username, current); err != nil {
		return err
	}
	next = strings.TrimSpace(next)
	if len(next) < minPasswordLength {
		return appErr.ErrInvalidAdminPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&admin).
		Updates(map[string]interface{}{
			"password_hash": string(hash),
			"updated_at":    s.now(),
		}).Error
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidAdminPassword
	}

	var admin model.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrAdminNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(admin.Status, "active") {
		return nil, appErr.ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidAdminPassword
	}
	return &admin, nil
}

func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	cfg := config.GlobalConfig.Admin
	if cfg.DefaultUsername == "" {
		logger.Log.Warn("default admin username not configured; skipping bootstrap")
		return nil
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("username = ?", cfg.DefaultUsername).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	password, generated := cfg.DefaultPassword, false
	if password == "" {
		password, generated = random.Code(generatedPasswordLength), true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.Admin{
		Username:     cfg.DefaultUsername,
		PasswordHash: string(hash),
		DisplayName:  cfg.DefaultUsername,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}
	if generated {
		// Shown once; change it with PUT /admin/auth/password.
		logger.Log.Warn("default admin account created with generated password",
			zap.String("username", cfg.DefaultUsername),
			zap.String("password", password))
		return nil
	}
	logger.Log.Info("default admin account created",
		zap.String("username", cfg.DefaultUsername))
	return nil
}

func sanitizeAdmin(admin model.Admin) AdminInfo {
	return AdminInfo{
		ID:          admin.ID,
		Username:    admin.Username,
		DisplayName: admin.DisplayName,
		Status:      admin.Status,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
	}
}
