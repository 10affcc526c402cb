package memory

import (
	"context"
	"sort"

	domainuser "padicrib/internal/domain/user"
)

type userRepo struct{ u *Unit }

func (r userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	if err := r.u.check("users.by_id"); err != nil {
		return nil, err
	}
	user, ok := r.u.tx.users[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	if err := r.u.check("users.by_email"); err != nil {
		return nil, err
	}
	email = domainuser.NormalizeEmail(email)
	for _, user := range r.u.tx.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, domainuser.ErrNotFound
}

func (r userRepo) FirstByRole(ctx context.Context, role domainuser.Role) (*domainuser.User, error) {
	if err := r.u.check("users.first_by_role"); err != nil {
		return nil, err
	}
	var best *domainuser.User
	for _, user := range r.u.tx.users {
		if user.Role != role {
			continue
		}
		if best == nil || user.ID < best.ID {
			found := user
			best = &found
		}
	}
	if best == nil {
		return nil, domainuser.ErrNotFound
	}
	return best, nil
}

func (r userRepo) List(ctx context.Context) ([]*domainuser.User, error) {
	if err := r.u.check("users.list"); err != nil {
		return nil, err
	}
	out := make([]*domainuser.User, 0, len(r.u.tx.users))
	for _, user := range r.u.tx.users {
		found := user
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r userRepo) Create(ctx context.Context, user *domainuser.User) error {
	if err := r.u.check("users.create"); err != nil {
		return err
	}
	for _, existing := range r.u.tx.users {
		if existing.Email == user.Email {
			return domainuser.ErrEmailAlreadyUsed
		}
	}
	user.ID = domainuser.ID(r.u.tx.nextID())
	r.u.tx.users[user.ID] = *user
	return nil
}

func (r userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if err := r.u.check("users.save"); err != nil {
		return err
	}
	if _, ok := r.u.tx.users[user.ID]; !ok {
		return domainuser.ErrNotFound
	}
	r.u.tx.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(ctx context.Context, id domainuser.ID) error {
	if err := r.u.check("users.delete"); err != nil {
		return err
	}
	if _, ok := r.u.tx.users[id]; !ok {
		return domainuser.ErrNotFound
	}
	for _, l := range r.u.tx.listings {
		if l.OwnerID == id {
			return domainuser.ErrOwnsListings
		}
	}
	delete(r.u.tx.users, id)
	kept := r.u.tx.suspensions[:0:0]
	for _, s := range r.u.tx.suspensions {
		if s.UserID != id {
			kept = append(kept, s)
		}
	}
	r.u.tx.suspensions = kept
	for mid, m := range r.u.tx.messages {
		if m.SenderID != nil && *m.SenderID == id {
			m.SenderID = nil
			r.u.tx.messages[mid] = m
		}
	}
	return nil
}

func (r userRepo) RecordSuspension(ctx context.Context, s domainuser.Suspension) error {
	if err := r.u.check("users.record_suspension"); err != nil {
		return err
	}
	r.u.tx.suspensions = append(r.u.tx.suspensions, s)
	return nil
}

// SeedUser inserts a user directly; used by tests and local bootstrapping.
func (s *Store) SeedUser(user domainuser.User) domainuser.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = domainuser.ID(s.current.nextID())
	} else if int64(user.ID) > s.current.seq {
		s.current.seq = int64(user.ID)
	}
	if user.Status == "" {
		user.Status = domainuser.StatusActive
	}
	s.current.users[user.ID] = user
	return user.ID
}
