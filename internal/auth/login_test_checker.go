package auth

import "context"

var _ Checker = (*LoginTestChecker)(nil)

// LoginTestChecker is an in-memory Checker for handler and middleware tests.
type LoginTestChecker struct {
	Sessions map[string]int
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		Sessions: map[string]int{},
	}
}

func (c *LoginTestChecker) CurrentUser(_ context.Context, token string) (int, error) {
	userID, ok := c.Sessions[token]
	if !ok {
		return 0, ErrNotLoggedIn
	}
	return userID, nil
}
