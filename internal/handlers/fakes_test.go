package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/types"
)

type sentNotification struct {
	memberID int
	title    string
	body     string
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (d *recordingDispatcher) Notify(_ context.Context, memberID int, title, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentNotification{memberID: memberID, title: title, body: body})
}

func (d *recordingDispatcher) Broadcast(_ context.Context, title, body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentNotification{title: title, body: body})
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int]types.Profile
}

func (f *fakeProfiles) GetProfile(_ context.Context, id int) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) put(p types.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, p types.Profile) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; !ok {
		return types.Profile{}, store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p types.Profile) (types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; ok {
		return types.Profile{}, store.ErrConflict
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) ListByStatus(_ context.Context, status types.VerificationStatus, _, _ int) ([]types.Profile, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Profile
	for _, p := range f.profiles {
		if p.VerificationStatus == status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeProfiles) CountByStatus(context.Context) (map[types.VerificationStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[types.VerificationStatus]int{}
	for _, p := range f.profiles {
		counts[p.VerificationStatus]++
	}
	return counts, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.profiles, id)
	return nil
}

// fakeAccounts creates the profile row alongside each account, as the
// account repository does.
type fakeAccounts struct {
	mu       sync.Mutex
	profiles *fakeProfiles
	byID     map[int]types.Account
	sessions map[string]types.AuthSession
	nextID   int
}

func (f *fakeAccounts) GetByMobile(_ context.Context, mobile string) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Mobile == mobile {
			return a, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeAccounts) CreateWithProfile(_ context.Context, a types.Account, fullName string) (types.Account, types.Profile, error) {
	f.mu.Lock()
	for _, existing := range f.byID {
		if existing.Mobile == a.Mobile {
			f.mu.Unlock()
			return types.Account{}, types.Profile{}, store.ErrConflict
		}
	}
	f.nextID++
	a.ID = f.nextID
	f.byID[a.ID] = a
	f.mu.Unlock()

	p := types.Profile{ID: a.ID, FullName: fullName, Mobile: a.Mobile, VerificationStatus: types.VerificationNone}
	f.profiles.put(p)
	return a, p, nil
}

func (f *fakeAccounts) CreateSession(_ context.Context, s types.AuthSession) (types.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeAccounts) GetSession(_ context.Context, id string) (types.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return types.AuthSession{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeAccounts) RevokeSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	f.sessions[id] = s
	return nil
}

func (f *fakeAccounts) RevokeAllSessions(_ context.Context, accountID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			now := time.Now()
			s.RevokedAt = &now
			f.sessions[id] = s
		}
	}
	return nil
}

type fakeRoles struct {
	mu     sync.Mutex
	grants map[int][]types.Role
}

func (f *fakeRoles) HasRole(_ context.Context, memberID int, role types.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.grants[memberID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) List(_ context.Context, memberID int) ([]types.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.RoleAssignment
	for _, r := range f.grants[memberID] {
		out = append(out, types.RoleAssignment{MemberID: memberID, Role: r})
	}
	return out, nil
}

func (f *fakeRoles) Assign(_ context.Context, memberID int, role types.Role) (types.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[memberID] = append(f.grants[memberID], role)
	return types.RoleAssignment{MemberID: memberID, Role: role}, nil
}

func (f *fakeRoles) Revoke(_ context.Context, memberID int, role types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roles := f.grants[memberID]
	for i, r := range roles {
		if r == role {
			f.grants[memberID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakePandits struct {
	pandits  []types.Pandit
	bookings []types.Booking
}

func (f *fakePandits) List(context.Context, int, int) ([]types.Pandit, int, error) {
	return f.pandits, len(f.pandits), nil
}

func (f *fakePandits) Get(_ context.Context, id int) (types.Pandit, error) {
	for _, p := range f.pandits {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Pandit{}, store.ErrNotFound
}

func (f *fakePandits) CreateBooking(_ context.Context, b types.Booking) (types.Booking, error) {
	b.ID = len(f.bookings) + 1
	f.bookings = append(f.bookings, b)
	return b, nil
}

func (f *fakePandits) ListBookingsByMember(_ context.Context, memberID int) ([]types.Booking, error) {
	var out []types.Booking
	for _, b := range f.bookings {
		if b.MemberID == memberID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakePandits) ListBookings(context.Context, types.BookingStatus, int, int) ([]types.Booking, error) {
	return f.bookings, nil
}

func (f *fakePandits) UpdateBookingStatus(context.Context, int, types.BookingStatus) error {
	return nil
}

func (f *fakePandits) ListReviews(context.Context, int) ([]types.Review, error) { return nil, nil }

func (f *fakePandits) GetReview(context.Context, int) (types.Review, error) {
	return types.Review{}, store.ErrNotFound
}

func (f *fakePandits) CreateReview(_ context.Context, r types.Review) (types.Review, error) {
	r.ID = 1
	return r, nil
}

func (f *fakePandits) UpdateReview(_ context.Context, r types.Review) (types.Review, error) {
	return r, nil
}

func (f *fakePandits) DeleteReview(context.Context, int) error { return nil }
