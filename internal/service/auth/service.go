package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rehab-service/internal/config"
	"rehab-service/internal/model"
	usersvc "rehab-service/internal/service/user"
	pkgAuth "rehab-service/pkg/auth"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"
	"rehab-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stateLength = 24

type Service struct {
	db       *gorm.DB
	states   StateStore
	line     LineProvider
	stateTTL time.Duration
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return NewServiceWith(db, NewRedisStateStore(rdb), NewLineClient(config.GlobalConfig.Line))
}

// NewServiceWith wires explicit state storage and LINE provider implementations.
func NewServiceWith(db *gorm.DB, states StateStore, line LineProvider) *Service {
	return &Service{
		db:       db,
		states:   states,
		line:     line,
		stateTTL: 10 * time.Minute,
	}
}

// BeginLineLogin issues a one-time state and the LINE authorize URL the
// browser should be sent to.
func (s *Service) BeginLineLogin(ctx context.Context) (*types.LineStart, error) {
	state := random.State(stateLength)
	if err := s.states.Put(ctx, state, s.stateTTL); err != nil {
		return nil, err
	}

	conf := config.GlobalConfig.Line
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", conf.ChannelID)
	q.Set("redirect_uri", conf.RedirectURI)
	q.Set("state", state)
	q.Set("scope", "profile openid")

	return &types.LineStart{
		AuthorizeURL: conf.AuthorizeURL + "?" + q.Encode(),
		State:        state,
	}, nil
}

// LineLogin completes the LINE callback: the state must have been issued by
// BeginLineLogin and is consumed on first use.
func (s *Service) LineLogin(ctx context.Context, code, state string) (*types.LoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErr.ErrLineExchange
	}
	ok, err := s.states.Take(ctx, strings.TrimSpace(state))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidLoginState
	}

	profile, err := s.line.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warn("line exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrLineExchange, err)
	}

	user, err := s.upsertLineUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// DevLogin signs in by display name without LINE. Only available in debug mode.
func (s *Service) DevLogin(ctx context.Context, name string) (*types.LoginResult, error) {
	if !strings.EqualFold(config.GlobalConfig.Server.Mode, "debug") {
		return nil, appErr.ErrDevLoginDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.ErrInvalidProfile
	}
	user, err := s.upsertLineUser(ctx, &LineProfile{UserID: "dev:" + name, DisplayName: name})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *Service) upsertLineUser(ctx context.Context, profile *LineProfile) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("line_user_id = ?", profile.UserID).First(&user).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		lineID := profile.UserID
		user = model.User{
			LineUserID:  &lineID,
			DisplayName: profile.DisplayName,
			Avatar:      profile.PictureURL,
			Level:       usersvc.MinLevel,
			Status:      "normal",
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("user registered via line", zap.Int64("userID", user.ID))
	case err != nil:
		return nil, err
	default:
		if profile.PictureURL != "" && profile.PictureURL != user.Avatar {
			if err := s.db.WithContext(ctx).Model(&user).Update("avatar", profile.PictureURL).Error; err != nil {
				return nil, err
			}
		}
	}

	if strings.EqualFold(user.Status, "banned") {
		return nil, appErr.ErrUserBanned
	}
	return &user, nil
}

func (s *Service) issue(user *model.User) (*types.LoginResult, error) {
	token, expireAt, err := pkgAuth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &types.LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		User:     usersvc.ToDTO(*user),
	}, nil
}
