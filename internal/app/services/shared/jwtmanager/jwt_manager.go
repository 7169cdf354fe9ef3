package jwtmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"go.uber.org/zap"
)

// JWTManager signs the bearer tokens attached to outbound notification
// webhook calls. HS256 with the shared secret from configuration.
type JWTManager struct {
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(cfg *config.Notification, log *zap.Logger) (*JWTManager, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return nil, fmt.Errorf("NOTIFICATION_JWT_SECRET is empty")
	}

	ttl := time.Duration(cfg.TokenTTLInMinute) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &JWTManager{
		log:    log,
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// CreateToken generates a signed token with sub set to the event id.
func (j *JWTManager) CreateToken(ctx context.Context, subject string) (string, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	j.log.Info("JWTManager.CreateToken called", zap.String(constvars.LoggingRequestIDKey, requestID))

	if strings.TrimSpace(subject) == "" {
		return "", exceptions.ErrTokenGenerate(fmt.Errorf("subject is required"))
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(j.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", exceptions.ErrTokenGenerate(err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the claims.
func (j *JWTManager) VerifyToken(ctx context.Context, token string) (jwt.MapClaims, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	j.log.Info("JWTManager.VerifyToken called", zap.String(constvars.LoggingRequestIDKey, requestID))

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
