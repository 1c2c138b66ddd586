package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrLocked is returned after too many failed login attempts.
	ErrLocked = errors.New("too many failed attempts, access blocked")
	// ErrBadCredentials is returned on a password mismatch.
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrDuplicateID is returned when registering an already-used ID.
	ErrDuplicateID = errors.New("user id already exists")
	// ErrDuplicateCity is returned when saving a city a user already has.
	ErrDuplicateCity = errors.New("city already saved for this user")
	// ErrInvalidUser is returned when a registration payload is rejected.
	ErrInvalidUser = errors.New("invalid user")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	maxLoginAttempts = 5
	maxSavedCities   = 5
)

// User is one record of the flat JSON user file.
type User struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	CheckLogin bool     `json:"check_login"`
	Attempts   int      `json:"attempts"`
	Cities     []string `json:"cities"`
}

// Users is a user store backed by a single JSON file. Every operation reads
// the whole file and writes it back under a mutex; durability is exactly
// "overwrite the file", nothing more.
type Users struct {
	mu   sync.Mutex
	path string
}

// NewUsers creates a store over the given file path. The file is created on
// first use; a corrupt or missing file degrades to an empty list.
func NewUsers(path string) *Users {
	return &Users{path: path}
}

// Register adds a new user. Attempts and login state cannot be preset.
func (s *Users) Register(u User) error {
	if u.Attempts != 0 || u.CheckLogin {
		return fmt.Errorf("%w: attempts and check_login cannot be set manually", ErrInvalidUser)
	}
	if !emailPattern.MatchString(u.Email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidUser)
	}
	if u.Password == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidUser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.ID == u.ID {
			return ErrDuplicateID
		}
	}

	users = append(users, u)
	return s.writeAll(users)
}

// Login authenticates by email and password. Five failed attempts lock the
// account; a success resets the counter and marks the user logged in.
func (s *Users) Login(email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return User{}, err
	}

	for i := range users {
		if users[i].Email != email {
			continue
		}
		if users[i].Attempts >= maxLoginAttempts {
			return User{}, ErrLocked
		}
		if users[i].Password != password {
			users[i].Attempts++
			remaining := maxLoginAttempts - users[i].Attempts
			if err := s.writeAll(users); err != nil {
				return User{}, err
			}
			return User{}, fmt.Errorf("%w: %d attempts remaining", ErrBadCredentials, remaining)
		}

		users[i].CheckLogin = true
		users[i].Attempts = 0
		if err := s.writeAll(users); err != nil {
			return User{}, err
		}
		return users[i], nil
	}

	return User{}, ErrNotFound
}

// Logout clears the login flag for the user with the given email.
func (s *Users) Logout(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == email {
			users[i].CheckLogin = false
			return s.writeAll(users)
		}
	}
	return ErrNotFound
}

// Get returns the user with the given ID.
func (s *Users) Get(id int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// AppendCity saves a city into a user's history. Duplicates are rejected
// case-insensitively; the history keeps at most five entries, evicting the
// oldest.
func (s *Users) AppendCity(id int, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return fmt.Errorf("%w: empty city", ErrInvalidUser)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return err
	}

	for i := range users {
		if users[i].ID != id {
			continue
		}
		for _, existing := range users[i].Cities {
			if strings.EqualFold(existing, city) {
				return ErrDuplicateCity
			}
		}
		if len(users[i].Cities) >= maxSavedCities {
			users[i].Cities = users[i].Cities[1:]
		}
		users[i].Cities = append(users[i].Cities, city)
		return s.writeAll(users)
	}

	return ErrNotFound
}

// AllCities returns the distinct saved cities across all users, in first-seen
// order. Used by the digest scheduler.
func (s *Users) AllCities() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var cities []string
	for _, u := range users {
		for _, c := range u.Cities {
			key := strings.ToLower(c)
			if !seen[key] {
				seen[key] = true
				cities = append(cities, c)
			}
		}
	}
	return cities, nil
}

func (s *Users) readAll() ([]User, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.WriteFile(s.path, []byte("[]"), 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		// A corrupt file degrades to an empty list.
		return nil, nil
	}
	return users, nil
}

func (s *Users) writeAll(users []User) error {
	raw, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}
