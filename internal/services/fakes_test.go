package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/samajportal/apiserver/internal/storage"
	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/types"
)

var errBackend = errors.New("backend unavailable")

type sentNotification struct {
	memberID  int
	broadcast bool
	title     string
	body      string
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
	d.sent = append(d.sent, sentNotification{broadcast: true, title: title, body: body})
}

type fakeProfiles struct {
	profiles  map[int]types.Profile
	getErr    error
	updateErr error
	updates   int
}

func newFakeProfiles(ps ...types.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[int]types.Profile{}}
	for _, p := range ps {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, id int) (types.Profile, error) {
	if f.getErr != nil {
		return types.Profile{}, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, p types.Profile) (types.Profile, error) {
	if f.updateErr != nil {
		return types.Profile{}, f.updateErr
	}
	if _, ok := f.profiles[p.ID]; !ok {
		return types.Profile{}, store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	f.profiles[p.ID] = p
	f.updates++
	return p, nil
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p types.Profile) (types.Profile, error) {
	if _, ok := f.profiles[p.ID]; ok {
		return types.Profile{}, store.ErrConflict
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) ListByStatus(_ context.Context, status types.VerificationStatus, _, _ int) ([]types.Profile, int, error) {
	var out []types.Profile
	for _, p := range f.profiles {
		if p.VerificationStatus == status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeProfiles) CountByStatus(context.Context) (map[types.VerificationStatus]int, error) {
	counts := map[types.VerificationStatus]int{}
	for _, p := range f.profiles {
		counts[p.VerificationStatus]++
	}
	return counts, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id int) error {
	if _, ok := f.profiles[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.profiles, id)
	return nil
}

type fakeAccounts struct {
	byID     map[int]types.Account
	sessions map[string]types.AuthSession
	nextID   int
	revoked  []int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[int]types.Account{}, sessions: map[string]types.AuthSession{}, nextID: 1}
}

func (f *fakeAccounts) GetByMobile(_ context.Context, mobile string) (types.Account, error) {
	for _, a := range f.byID {
		if a.Mobile == mobile {
			return a, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (f *fakeAccounts) CreateWithProfile(_ context.Context, a types.Account, fullName string) (types.Account, types.Profile, error) {
	for _, existing := range f.byID {
		if existing.Mobile == a.Mobile {
			return types.Account{}, types.Profile{}, store.ErrConflict
		}
	}
	a.ID = f.nextID
	f.nextID++
	f.byID[a.ID] = a
	return a, types.Profile{ID: a.ID, FullName: fullName, Mobile: a.Mobile, VerificationStatus: types.VerificationNone}, nil
}

func (f *fakeAccounts) CreateSession(_ context.Context, s types.AuthSession) (types.AuthSession, error) {
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeAccounts) GetSession(_ context.Context, id string) (types.AuthSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return types.AuthSession{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeAccounts) RevokeSession(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.RevokedAt == nil {
		now := time.Now()
		s.RevokedAt = &now
		f.sessions[id] = s
	}
	return nil
}

func (f *fakeAccounts) RevokeAllSessions(_ context.Context, accountID int) error {
	f.revoked = append(f.revoked, accountID)
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
	grants map[int][]types.Role
	err    error
}

func (f *fakeRoles) HasRole(_ context.Context, memberID int, role types.Role) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, r := range f.grants[memberID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) List(_ context.Context, memberID int) ([]types.RoleAssignment, error) {
	var out []types.RoleAssignment
	for _, r := range f.grants[memberID] {
		out = append(out, types.RoleAssignment{MemberID: memberID, Role: r})
	}
	return out, nil
}

func (f *fakeRoles) Assign(_ context.Context, memberID int, role types.Role) (types.RoleAssignment, error) {
	if f.grants == nil {
		f.grants = map[int][]types.Role{}
	}
	f.grants[memberID] = append(f.grants[memberID], role)
	return types.RoleAssignment{MemberID: memberID, Role: role}, nil
}

func (f *fakeRoles) Revoke(_ context.Context, memberID int, role types.Role) error {
	roles := f.grants[memberID]
	for i, r := range roles {
		if r == role {
			f.grants[memberID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memoryObjects struct {
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) EnsureBucket(context.Context) error { return nil }

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) Bucket() string { return "test-gallery" }
