package users

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2beens/workouttracker/pkg"
)

const (
	DefaultLevel     = 1
	DefaultLevelName = "Beginner"

	minUsernameLen = 2
	maxUsernameLen = 20
	minEmailLen    = 5
	maxEmailLen    = 50
	minPasswordLen = 8
	// bcrypt rejects longer passwords
	maxPasswordBytes = 72
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()?]*$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9.+_-]+@[a-zA-Z0-9._-]+\.[a-zA-Z]*$`)
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TOSAccept    bool      `json:"tosAccept"`
	Level        int       `json:"level"`
	LevelName    string    `json:"levelName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterInput struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
	TOSAccept            bool   `json:"tosAccept"`
}

// Validate checks the field rules only; uniqueness is checked against the store by the service.
func (in RegisterInput) Validate() pkg.Messages {
	var msgs pkg.Messages
	validateUsername(&msgs, in.Username)
	validateEmail(&msgs, in.Email)
	validatePassword(&msgs, in.Password, in.PasswordConfirmation)
	if !in.TOSAccept {
		msgs.Add("Terms of service must be accepted.")
	}
	return msgs
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SettingsInput changes the username, email and, when Password is set, the password.
type SettingsInput struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func (in SettingsInput) Validate() pkg.Messages {
	var msgs pkg.Messages
	validateUsername(&msgs, in.Username)
	validateEmail(&msgs, in.Email)
	if in.Password != "" || in.PasswordConfirmation != "" {
		validatePassword(&msgs, in.Password, in.PasswordConfirmation)
	}
	return msgs
}

func validateUsername(msgs *pkg.Messages, username string) {
	length := utf8.RuneCountInString(username)
	if length < minUsernameLen || length > maxUsernameLen {
		msgs.Add("Username is required and must be between 2 and 20 characters long.")
	}
	if !usernameRegex.MatchString(username) {
		msgs.Add("Username must contain letters, numbers, and basic characters only.")
	}
}

func validateEmail(msgs *pkg.Messages, email string) {
	length := utf8.RuneCountInString(email)
	if length < minEmailLen || length > maxEmailLen {
		msgs.Add("Email must be between 5 and 50 characters.")
	}
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		msgs.Add("Email is not a valid email format.")
	}
}

func validatePassword(msgs *pkg.Messages, password, confirmation string) {
	if len(password) < minPasswordLen || password != confirmation {
		msgs.Add("Password fields are required and must match and be at least 8 characters.")
	}
	if len(password) > maxPasswordBytes {
		msgs.Add("Password must not be longer than 72 bytes.")
	}
}
