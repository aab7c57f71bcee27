package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(f *fixture, p *fakeProcessor) *PaymentService {
	urls := CheckoutURLs{
		Success:  "http://client/payment-success?session_id={CHECKOUT_SESSION_ID}",
		Cancel:   "http://client/payment-failed",
		Currency: "usd",
	}
	return NewPaymentService(p, f.store.Applications(), f.policy, urls, f.metrics, f.log)
}

func paidSession(id, email, fee string) *model.CheckoutSession {
	return &model.CheckoutSession{
		ID:              id,
		PaymentStatus:   model.SessionPaymentStatusPaid,
		PaymentIntentID: "pi_" + id,
		AmountTotal:     7500,
		Metadata: map[string]string{
			model.MetaScholarshipID:   "sch1",
			model.MetaUserEmail:       email,
			model.MetaApplicationFees: fee,
		},
	}
}

func TestInitiateCheckoutBuildsSession(t *testing.T) {
	ctx := context.Background()
	p := newFakeProcessor()
	svc := newPaymentService(newFixture(t), p)

	resp, err := svc.InitiateCheckout(ctx, alice, InitiateCheckoutRequest{
		ScholarshipID: "sch1", ScholarshipName: "STEM Grant", UniversityName: "MIT",
		Amount: 50.5, ApplicationFees: 50,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.URL, resp.SessionID)
	require.Len(t, p.created, 1)
	params := p.created[0]
	assert.EqualValues(t, 5050, params.LineItem.UnitAmount)
	assert.EqualValues(t, 1, params.LineItem.Quantity)
	assert.Equal(t, "usd", params.LineItem.Currency)
	assert.Equal(t, alice.Email, params.Metadata[model.MetaUserEmail])
	assert.Equal(t, "50", params.Metadata[model.MetaApplicationFees])

	all, err := svc.appRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "initiating a checkout persists nothing")
}

func TestInitiateCheckoutValidation(t *testing.T) {
	ctx := context.Background()
	p := newFakeProcessor()
	svc := newPaymentService(newFixture(t), p)

	_, err := svc.InitiateCheckout(ctx, nil, InitiateCheckoutRequest{})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.InitiateCheckout(ctx, alice, InitiateCheckoutRequest{ScholarshipName: "x", UniversityName: "y", Amount: 5})
	assert.ErrorIs(t, err, common.ErrMissingParameter)

	_, err = svc.InitiateCheckout(ctx, alice, InitiateCheckoutRequest{ScholarshipID: "s", ScholarshipName: "x", UniversityName: "y"})
	assert.ErrorIs(t, err, common.ErrValidation)

	p.err = common.Errorf("stripe down: %w", common.ErrUpstream)
	_, err = svc.InitiateCheckout(ctx, alice, InitiateCheckoutRequest{ScholarshipID: "s", ScholarshipName: "x", UniversityName: "y", Amount: 1})
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestFinalizeCheckoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newFakeProcessor()
	p.put(paidSession("S", alice.Email, "50"))
	svc := newPaymentService(f, p)

	first, err := svc.FinalizeCheckout(ctx, alice, "S")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.True(t, first.Created)

	second, err := svc.FinalizeCheckout(ctx, alice, "S")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.False(t, second.Created)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)

	apps, err := f.store.Applications().List(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	app := apps[0]
	assert.Equal(t, 50.0, app.ApplicationFees)
	assert.Equal(t, model.ApplicationPaid, app.ApplicationStatus)
	assert.Equal(t, model.PaymentPaid, app.PaymentStatus)
	require.NotNil(t, app.TransactionID)
	assert.Equal(t, "pi_S", *app.TransactionID)
	assert.Equal(t, "sch1", app.ScholarshipID)
	assert.Equal(t, alice.Email, app.UserEmail)
}

func TestFinalizeCheckoutConcurrentCallsCreateOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newFakeProcessor()
	p.put(paidSession("S", alice.Email, "50"))
	svc := newPaymentService(f, p)

	var wg sync.WaitGroup
	results := make([]*FinalizeResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.FinalizeCheckout(ctx, alice, "S")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].ApplicationID, r.ApplicationID)
		if r.Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	apps, err := f.store.Applications().List(ctx)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestFinalizeCheckoutFeeFallsBackToChargedTotal(t *testing.T) {
	ctx := context.Background()
	for _, fee := range []string{"", "0", "abc", "-3"} {
		f := newFixture(t)
		p := newFakeProcessor()
		p.put(paidSession("S", alice.Email, fee))
		svc := newPaymentService(f, p)

		res, err := svc.FinalizeCheckout(ctx, alice, "S")
		require.NoError(t, err, fee)

		app, err := f.store.Applications().FindByID(ctx, res.ApplicationID)
		require.NoError(t, err)
		assert.Equal(t, 75.0, app.ApplicationFees, "fee metadata %q", fee)
	}
}

func TestFinalizeCheckoutFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newFakeProcessor()
	unpaid := paidSession("U", alice.Email, "50")
	unpaid.PaymentStatus = "unpaid"
	p.put(unpaid)
	p.put(paidSession("A", alice.Email, "50"))
	svc := newPaymentService(f, p)

	_, err := svc.FinalizeCheckout(ctx, nil, "A")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.FinalizeCheckout(ctx, alice, "  ")
	assert.ErrorIs(t, err, common.ErrMissingParameter)

	_, err = svc.FinalizeCheckout(ctx, alice, "U")
	assert.ErrorIs(t, err, common.ErrPaymentIncomplete)

	_, err = svc.FinalizeCheckout(ctx, bob, "A")
	assert.ErrorIs(t, err, common.ErrForbidden)

	p.err = common.Errorf("timeout: %w", common.ErrUpstream)
	_, err = svc.FinalizeCheckout(ctx, alice, "A")
	assert.ErrorIs(t, err, common.ErrUpstream)

	apps, err := f.store.Applications().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestFinalizeCheckoutByStaffKeepsMetadataOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newFakeProcessor()
	p.put(paidSession("A", alice.Email, "50"))
	svc := newPaymentService(f, p)

	res, err := svc.FinalizeCheckout(ctx, mod, "A")
	require.NoError(t, err)

	app, err := f.store.Applications().FindByID(ctx, res.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, app.UserEmail)
	assert.Empty(t, app.UserName)
}

func TestFinalizedApplicationIsWithdrawableNotEditable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := newFakeProcessor()
	p.put(paidSession("S", alice.Email, "50"))
	pay := newPaymentService(f, p)
	apps := newApplicationService(f)

	res, err := pay.FinalizeCheckout(ctx, alice, "S")
	require.NoError(t, err)

	_, err = apps.OwnerUpdate(ctx, alice, res.ApplicationID, model.ApplicationOwnerPatch{UserPhone: strPtr("1")})
	assert.True(t, errors.Is(err, common.ErrInvalidState))
	assert.NoError(t, apps.OwnerDelete(ctx, alice, res.ApplicationID))
}
