package users

import (
	"context"
	"sync"
)

var _ usersRepo = (*repoMock)(nil)

type repoMock struct {
	Users map[int]*User
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users: make(map[int]*User),
	}
}

func (r *repoMock) Add(_ context.Context, user User) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == user.Username {
			return nil, ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, ErrEmailTaken
		}
	}

	user.ID = len(r.Users) + 1
	r.Users[user.ID] = &user
	stored := user
	return &stored, nil
}

func (r *repoMock) Get(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := *u
	return &user, nil
}

func (r *repoMock) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == username {
			user := *u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) Taken(_ context.Context, username, email string, excludeID int) (bool, bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var usernameTaken, emailTaken bool
	for _, u := range r.Users {
		if u.ID == excludeID {
			continue
		}
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || u.Email == email
	}
	return usernameTaken, emailTaken, nil
}

func (r *repoMock) Update(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Users[user.ID]; !ok {
		return ErrUserNotFound
	}
	updated := *user
	r.Users[user.ID] = &updated
	return nil
}
