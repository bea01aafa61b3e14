//go:build integration

package test

import (
	"net/http"

	"github.com/2beens/workouttracker/internal/users"
)

func (s *IntegrationTestSuite) TestRegisterLoginLogout() {
	user := s.registerUser()

	var stored struct {
		username string
		email    string
		hash     string
	}
	err := s.DB.QueryRow(
		`SELECT username, email, password_hash FROM users WHERE id = $1`, user.ID,
	).Scan(&stored.username, &stored.email, &stored.hash)
	s.Require().NoError(err)
	s.Equal(user.Username, stored.username)
	s.Equal(user.Email, stored.email)
	s.NotEqual(user.Password, stored.hash)

	var loginResp users.LoginResponse
	s.doJSON(http.MethodPost, "/a/login", "", users.LoginInput{
		Username: user.Username,
		Password: user.Password,
	}, http.StatusOK, &loginResp)
	s.NotEmpty(loginResp.Token)
	s.Equal(user.ID, loginResp.User.ID)

	status, _ := s.doRequest(http.MethodPost, "/a/login", "", users.LoginInput{
		Username: user.Username,
		Password: "definitely-wrong",
	})
	s.Equal(http.StatusUnauthorized, status)

	var settings users.User
	s.doJSON(http.MethodGet, "/settings", loginResp.Token, nil, http.StatusOK, &settings)
	s.Equal(user.Username, settings.Username)

	status, _ = s.doRequest(http.MethodGet, "/a/logout", loginResp.Token, nil)
	s.Equal(http.StatusOK, status)

	status, _ = s.doRequest(http.MethodGet, "/settings", loginResp.Token, nil)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *IntegrationTestSuite) TestRegister_DuplicateUsername() {
	user := s.registerUser()

	in := newFakeRegisterInput()
	in.Username = user.Username
	status, body := s.doRequest(http.MethodPost, "/a/register", "", in)
	s.Equal(http.StatusBadRequest, status, string(body))
}
