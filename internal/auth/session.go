package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "wt-service-session||"
	tokensSetKey     = "wt-service-sessions"
)

var (
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrInvalidSessionValue = errors.New("invalid session value")
)

// LoginSession is what a token resolves to.
type LoginSession struct {
	Token     string
	UserID    int
	CreatedAt time.Time
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// sessionValue is stored in redis as "<user id>|<created at unix>".
func sessionValue(userID int, createdAt time.Time) string {
	return fmt.Sprintf("%d|%d", userID, createdAt.Unix())
}

func parseSessionValue(token, value string) (*LoginSession, error) {
	userIDStr, createdAtStr, found := strings.Cut(value, "|")
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionValue, value)
	}

	userID, err := strconv.Atoi(userIDStr)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: user id %q", ErrInvalidSessionValue, userIDStr)
	}

	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: created at %q", ErrInvalidSessionValue, createdAtStr)
	}

	return &LoginSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

// TokenHeader carries the login token on every authenticated request.
const TokenHeader = "X-WT-TOKEN"
