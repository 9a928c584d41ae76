package state

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

// Users returns a copy of the user collection.
func (s *Store) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]User(nil), s.data.Users...)
}

// UserByUsername looks up a user case-insensitively.
func (s *Store) UserByUsername(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.Users {
		if equalFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

// AddUser stores a new user. Usernames are globally unique, compared
// case-insensitively.
func (s *Store) AddUser(actor string, u User) (User, error) {
	s.mu.Lock()
	for _, existing := range s.data.Users {
		if equalFold(existing.Username, u.Username) {
			s.mu.Unlock()
			return User{}, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.data.Users = append(s.data.Users, u)
	s.logActivityLocked(actor, enums.ActivityUser, fmt.Sprintf("user %s created (%s)", u.Username, u.Role))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return u, nil
}

// SaveUser writes back a mutated user record by ID. It raises pending and
// mirrors but appends no activity entry: the auth service logs its own
// security events with the detail it alone knows.
func (s *Store) SaveUser(u User) error {
	s.mu.Lock()
	idx := -1
	for i := range s.data.Users {
		if s.data.Users[i].ID == u.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return notFound("user")
	}
	s.data.Users[idx] = u
	s.pending = true
	s.pendingSince = s.now()
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

// DeactivateUser flips the active flag. Deletion is intentionally not offered
// here; history keeps referring to the username.
func (s *Store) DeactivateUser(actor, username string) error {
	s.mu.Lock()
	var target *User
	for i := range s.data.Users {
		if equalFold(s.data.Users[i].Username, username) {
			target = &s.data.Users[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return notFound("user")
	}
	target.Active = false
	s.logActivityLocked(actor, enums.ActivityUser, fmt.Sprintf("user %s deactivated", username))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}

// AdminCount reports how many active admin users exist.
func (s *Store) AdminCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, u := range s.data.Users {
		if u.Role == enums.RoleAdmin && u.Active {
			count++
		}
	}
	return count
}

// Invites returns a copy of the open invites.
func (s *Store) Invites() []UserInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UserInvite(nil), s.data.Invites...)
}

// AddInvite stores a one-time provisioning code.
func (s *Store) AddInvite(actor string, invite UserInvite) (UserInvite, error) {
	if !invite.Role.IsValid() {
		return UserInvite{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid invite role")
	}
	s.mu.Lock()
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = s.now()
	}
	s.data.Invites = append(s.data.Invites, invite)
	s.logActivityLocked(actor, enums.ActivitySecurity, fmt.Sprintf("invite created for role %s", invite.Role))
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return invite, nil
}

// InviteByCode finds an open invite by its exact code.
func (s *Store) InviteByCode(code string) (UserInvite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, invite := range s.data.Invites {
		if invite.Code == code {
			return invite, true
		}
	}
	return UserInvite{}, false
}

// DeleteInvite removes an invite after redemption or revocation.
func (s *Store) DeleteInvite(actor, code string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.data.Invites {
		if s.data.Invites[i].Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return notFound("invite")
	}
	s.data.Invites = append(s.data.Invites[:idx], s.data.Invites[idx+1:]...)
	s.logActivityLocked(actor, enums.ActivitySecurity, "invite consumed")
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
	return nil
}
