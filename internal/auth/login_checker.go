package auth

import (
	"context"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
)

const tokenCacheSize = 1024 * 1024 // 1MB, freecache minimum is 512KB

var _ Checker = (*LoginChecker)(nil)

// Checker resolves a login token to the id of the logged-in user.
type Checker interface {
	CurrentUser(ctx context.Context, token string) (int, error)
}

// LoginChecker resolves tokens against redis, with an in-process cache in front of it.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
	clock       clockwork.Clock
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client, clock clockwork.Clock) *LoginChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(tokenCacheSize),
		clock:       clock,
	}
}

// CurrentUser returns the user id behind the token, or ErrNotLoggedIn.
func (lc *LoginChecker) CurrentUser(ctx context.Context, token string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.checker.currentuser")
	defer func() {
		if errors.Is(err, ErrNotLoggedIn) {
			span.End()
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if token == "" {
		return 0, ErrNotLoggedIn
	}

	value, err := lc.cache.Get([]byte(token))
	if err == nil {
		session, err := parseSessionValue(token, string(value))
		if err == nil && lc.clock.Since(session.CreatedAt) <= lc.ttl {
			return session.UserID, nil
		}
		lc.cache.Del([]byte(token))
	}

	cmd := lc.redisClient.Get(ctx, sessionKey(token))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotLoggedIn
		}
		return 0, err
	}

	session, err := parseSessionValue(token, cmd.Val())
	if err != nil {
		return 0, err
	}

	remaining := lc.ttl - lc.clock.Since(session.CreatedAt)
	if remaining <= 0 {
		return 0, ErrNotLoggedIn
	}

	if err := lc.cache.Set([]byte(token), []byte(cmd.Val()), int(remaining.Seconds())+1); err != nil {
		log.Warnf("login checker, cache token: %s", err)
	}

	return session.UserID, nil
}

// Forget drops the token from the local cache, used on logout.
func (lc *LoginChecker) Forget(token string) {
	lc.cache.Del([]byte(token))
}
