package service

import (
	"context"
	"sync"
	"testing"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/domain/repository/memory"
	"scholarstream/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var (
	alice = &model.Identity{Subject: "uid-alice", Email: "alice@example.com", Name: "Alice"}
	bob   = &model.Identity{Subject: "uid-bob", Email: "bob@example.com", Name: "Bob"}
	mod   = &model.Identity{Subject: "uid-mod", Email: "mod@example.com", Name: "Mod"}
	admin = &model.Identity{Subject: "uid-admin", Email: "admin@example.com", Name: "Admin"}
)

type fixture struct {
	store   *memory.Store
	policy  *AccessPolicy
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	log, _ := test.NewNullLogger()
	f := &fixture{
		store:   store,
		policy:  NewAccessPolicy(store.Users()),
		metrics: metrics.New(),
		log:     log,
	}
	f.seedUser(t, mod, model.RoleModerator)
	f.seedUser(t, admin, model.RoleAdmin)
	return f
}

func (f *fixture) seedUser(t *testing.T, id *model.Identity, role model.Role) {
	t.Helper()
	require.NoError(t, f.store.Users().Create(context.Background(), &model.User{
		ID: uuid.NewString(), Email: id.Email, Name: id.Name, Role: role,
	}))
}

// fakeProcessor serves canned sessions and records created ones.
type fakeProcessor struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession
	created  []model.CheckoutSessionParams
	err      error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*model.CheckoutSession)}
}

func (p *fakeProcessor) CreateCheckoutSession(_ context.Context, params model.CheckoutSessionParams) (*model.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.created = append(p.created, params)
	id := "cs_" + uuid.NewString()[:8]
	sess := &model.CheckoutSession{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		PaymentStatus: "unpaid",
		AmountTotal:   params.LineItem.UnitAmount * params.LineItem.Quantity,
		Metadata:      params.Metadata,
	}
	p.sessions[id] = sess
	return sess, nil
}

func (p *fakeProcessor) RetrieveCheckoutSession(_ context.Context, id string) (*model.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	sess, ok := p.sessions[id]
	if !ok {
		return nil, common.Errorf("no such session %s: %w", id, common.ErrNotFound)
	}
	copied := *sess
	return &copied, nil
}

func (p *fakeProcessor) put(sess *model.CheckoutSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sess.ID] = sess
}
