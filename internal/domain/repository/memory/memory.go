package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository"
)

// Store is an in-memory implementation of the repository interfaces. It is
// safe for concurrent use and is intended for tests and local development.
// Uniqueness (user email, scholarship slug, application transaction id) and the
// conditional owner update are enforced under the store lock, matching the
// guarantees the Postgres schema gives.
type Store struct {
	mu sync.RWMutex

	users     map[string]model.User
	userOrder []string

	scholarships     map[string]model.Scholarship
	scholarshipOrder []string

	applications     map[string]model.Application
	applicationOrder []string
	applicationsByTx map[string]string

	reviews     map[string]model.Review
	reviewOrder []string

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:            make(map[string]model.User),
		scholarships:     make(map[string]model.Scholarship),
		applications:     make(map[string]model.Application),
		applicationsByTx: make(map[string]string),
		reviews:          make(map[string]model.Review),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository               { return userStore{s} }
func (s *Store) Scholarships() repository.ScholarshipRepository { return scholarshipStore{s} }
func (s *Store) Applications() repository.ApplicationRepository { return applicationStore{s} }
func (s *Store) Reviews() repository.ReviewRepository           { return reviewStore{s} }

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// newestFirst walks ids from the latest insert backwards, so records with equal
// timestamps keep insertion-descending order after the stable sort.
func newestFirst[T any](order []string, items map[string]T, at func(T) time.Time, keep func(T) bool) []T {
	out := make([]T, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		item := items[order[i]]
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).After(at(out[j])) })
	return out
}

// Users -------------------------------------------------------------------------

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *model.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, common.ErrConflict)
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s already exists: %w", user.ID, common.ErrConflict)
	}

	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	s.userOrder = append(s.userOrder, user.ID)
	return nil
}

func (u userStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (u userStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &user, nil
}

func (u userStore) List(_ context.Context) ([]model.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	return newestFirst(s.userOrder, s.users, func(v model.User) time.Time { return v.CreatedAt }, nil), nil
}

func (u userStore) UpdateRole(_ context.Context, id string, role model.Role) (*model.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = s.now()
	s.users[id] = user
	return &user, nil
}

func (u userStore) Delete(_ context.Context, id string) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.users, id)
	s.userOrder = removeID(s.userOrder, id)
	return nil
}

// Scholarships ------------------------------------------------------------------

type scholarshipStore struct{ s *Store }

func cloneScholarship(sc model.Scholarship) *model.Scholarship {
	if sc.ApplicationDeadline != nil {
		d := *sc.ApplicationDeadline
		sc.ApplicationDeadline = &d
	}
	return &sc
}

func (st scholarshipStore) Create(_ context.Context, sc *model.Scholarship) error {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.scholarships {
		if existing.Slug == sc.Slug {
			return fmt.Errorf("scholarship with this slug already exists: %w", common.ErrConflict)
		}
	}
	if _, exists := s.scholarships[sc.ID]; exists {
		return fmt.Errorf("scholarship %s already exists: %w", sc.ID, common.ErrConflict)
	}

	sc.UpdatedAt = s.now()
	s.scholarships[sc.ID] = *cloneScholarship(*sc)
	s.scholarshipOrder = append(s.scholarshipOrder, sc.ID)
	return nil
}

func (st scholarshipStore) FindByID(_ context.Context, id string) (*model.Scholarship, error) {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scholarships[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneScholarship(sc), nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (st scholarshipStore) List(_ context.Context, filter model.ScholarshipFilter) ([]model.Scholarship, int, error) {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := newestFirst(s.scholarshipOrder, s.scholarships,
		func(v model.Scholarship) time.Time { return v.PostedAt },
		func(v model.Scholarship) bool {
			if filter.Search != "" && !containsFold(v.ScholarshipName, filter.Search) &&
				!containsFold(v.UniversityName, filter.Search) && !containsFold(v.Degree, filter.Search) {
				return false
			}
			if filter.Category != "" && !strings.EqualFold(v.ScholarshipCategory, filter.Category) {
				return false
			}
			if filter.Country != "" && !containsFold(v.UniversityCountry, filter.Country) {
				return false
			}
			return true
		})

	total := len(matches)
	if filter.Limit > 0 {
		start := filter.Offset
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matches = matches[start:end]
	}

	out := make([]model.Scholarship, 0, len(matches))
	for _, sc := range matches {
		out = append(out, *cloneScholarship(sc))
	}
	return out, total, nil
}

func (st scholarshipStore) Update(_ context.Context, id string, patch model.ScholarshipPatch) (*model.Scholarship, error) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scholarships[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	patch.Apply(&sc)
	sc.UpdatedAt = s.now()
	s.scholarships[id] = sc
	return cloneScholarship(sc), nil
}

func (st scholarshipStore) Delete(_ context.Context, id string) error {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scholarships[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.scholarships, id)
	s.scholarshipOrder = removeID(s.scholarshipOrder, id)
	return nil
}

// Applications ------------------------------------------------------------------

type applicationStore struct{ s *Store }

func cloneApplication(app model.Application) *model.Application {
	if app.TransactionID != nil {
		tx := *app.TransactionID
		app.TransactionID = &tx
	}
	return &app
}

func (st applicationStore) insertLocked(app *model.Application) {
	s := st.s
	app.UpdatedAt = s.now()
	s.applications[app.ID] = *cloneApplication(*app)
	s.applicationOrder = append(s.applicationOrder, app.ID)
	if app.TransactionID != nil {
		s.applicationsByTx[*app.TransactionID] = app.ID
	}
}

func (st applicationStore) Create(_ context.Context, app *model.Application) error {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.ID]; exists {
		return fmt.Errorf("application %s already exists: %w", app.ID, common.ErrConflict)
	}
	if app.TransactionID != nil {
		if _, exists := s.applicationsByTx[*app.TransactionID]; exists {
			return fmt.Errorf("transaction %s already recorded: %w", *app.TransactionID, common.ErrConflict)
		}
	}
	st.insertLocked(app)
	return nil
}

func (st applicationStore) CreateIdempotent(_ context.Context, app *model.Application) (*model.Application, bool, error) {
	if app.TransactionID == nil {
		return nil, false, fmt.Errorf("memory.CreateIdempotent: transaction id required: %w", common.ErrBadRequest)
	}

	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.applicationsByTx[*app.TransactionID]; exists {
		return cloneApplication(s.applications[id]), false, nil
	}
	st.insertLocked(app)
	return cloneApplication(*app), true, nil
}

func (st applicationStore) FindByID(_ context.Context, id string) (*model.Application, error) {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (st applicationStore) FindByTransactionID(_ context.Context, transactionID string) (*model.Application, error) {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.applicationsByTx[transactionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneApplication(s.applications[id]), nil
}

func (st applicationStore) list(keep func(model.Application) bool) []model.Application {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := newestFirst(s.applicationOrder, s.applications,
		func(v model.Application) time.Time { return v.AppliedAt }, keep)
	for i := range apps {
		apps[i] = *cloneApplication(apps[i])
	}
	return apps
}

func (st applicationStore) List(_ context.Context) ([]model.Application, error) {
	return st.list(nil), nil
}

func (st applicationStore) ListByUserEmail(_ context.Context, email string) ([]model.Application, error) {
	return st.list(func(v model.Application) bool { return v.UserEmail == email }), nil
}

func (st applicationStore) Update(_ context.Context, id string, patch model.ApplicationPatch) (*model.Application, error) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	patch.Apply(&app)
	app.UpdatedAt = s.now()
	s.applications[id] = app
	return cloneApplication(app), nil
}

func (st applicationStore) UpdateIfPending(_ context.Context, id, owner string, patch model.ApplicationPatch) (*model.Application, bool, error) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok || app.UserEmail != owner || !app.Editable() {
		return nil, false, nil
	}
	patch.Apply(&app)
	app.UpdatedAt = s.now()
	s.applications[id] = app
	return cloneApplication(app), true, nil
}

func (st applicationStore) DeleteOwned(_ context.Context, id, owner string) (bool, error) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[id]
	if !ok || app.UserEmail != owner {
		return false, nil
	}
	delete(s.applications, id)
	s.applicationOrder = removeID(s.applicationOrder, id)
	if app.TransactionID != nil {
		delete(s.applicationsByTx, *app.TransactionID)
	}
	return true, nil
}

// Reviews -----------------------------------------------------------------------

type reviewStore struct{ s *Store }

func (st reviewStore) Create(_ context.Context, review *model.Review) error {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviews[review.ID]; exists {
		return fmt.Errorf("review %s already exists: %w", review.ID, common.ErrConflict)
	}
	s.reviews[review.ID] = *review
	s.reviewOrder = append(s.reviewOrder, review.ID)
	return nil
}

func (st reviewStore) FindByID(_ context.Context, id string) (*model.Review, error) {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &rv, nil
}

func (st reviewStore) list(keep func(model.Review) bool, limit int) []model.Review {
	s := st.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := newestFirst(s.reviewOrder, s.reviews, func(v model.Review) time.Time { return v.ReviewDate }, keep)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (st reviewStore) ListRecent(_ context.Context, limit int) ([]model.Review, error) {
	return st.list(nil, limit), nil
}

func (st reviewStore) ListByScholarship(_ context.Context, scholarshipID string) ([]model.Review, error) {
	return st.list(func(v model.Review) bool { return v.ScholarshipID == scholarshipID }, 0), nil
}

func (st reviewStore) ListByUserEmail(_ context.Context, email string) ([]model.Review, error) {
	return st.list(func(v model.Review) bool { return v.UserEmail == email }, 0), nil
}

func (st reviewStore) ListAll(_ context.Context) ([]model.Review, error) {
	return st.list(nil, 0), nil
}

func (st reviewStore) Update(_ context.Context, id string, patch model.ReviewPatch) (*model.Review, error) {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	patch.Apply(&rv)
	s.reviews[id] = rv
	return &rv, nil
}

func (st reviewStore) Delete(_ context.Context, id string) error {
	s := st.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.reviews, id)
	s.reviewOrder = removeID(s.reviewOrder, id)
	return nil
}
