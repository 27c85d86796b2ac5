package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/application/services/testhelpers"
	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sweeperConfig = config.WorkerConfig{
	Interval:   time.Minute,
	BatchSize:  50,
	PollGrace:  2 * time.Minute,
	SessionTTL: 24 * time.Hour,
}

func openSession(t *testing.T, f *testhelpers.Fixture, country string, reference string) (*domain.Order, *domain.PaymentSession) {
	t.Helper()
	f.Geo.Country = country
	order := f.CreateOrder(t, testhelpers.BoutiqueOrderCommand())
	if country == "NG" {
		f.ProviderA.On("CreateSession", mock.Anything, mock.Anything).Return(testhelpers.ProviderASession(reference), nil).Once()
	} else {
		f.ProviderB.On("CreateCheckout", mock.Anything, mock.Anything).Return(testhelpers.ProviderBSession(reference), nil).Once()
	}
	session, err := f.Checkout.CreatePaymentSession(context.Background(), services.CreatePaymentSessionCommand{OrderID: order.ID})
	require.NoError(t, err)
	return order, session
}

func newSweeper(f *testhelpers.Fixture, at time.Duration) *worker.SessionSweeper {
	return worker.NewSessionSweeper(f.Repo, f.Gateway, f.Scheduler, sweeperConfig, testhelpers.NewTestLogger()).
		WithClock(func() time.Time { return testhelpers.FixedNow.Add(at) })
}

func TestSessionSweeper_RepollsProviderBAfterGrace(t *testing.T) {
	f := testhelpers.NewFixture(t)
	order, session := openSession(t, f, "US", "pb_lost")
	openSession(t, f, "NG", "pa_waiting")
	scheduledAtCheckout := f.Scheduler.Scheduled()

	report, err := newSweeper(f, time.Minute).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, worker.SweepReport{}, report, "inside the grace period")

	report, err = newSweeper(f, 3*time.Minute).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repolled)
	assert.Zero(t, report.Expired)
	require.Equal(t, scheduledAtCheckout+1, f.Scheduler.Scheduled())
	assert.Equal(t, [2]string{order.ID, session.ID}, f.Scheduler.Calls[len(f.Scheduler.Calls)-1])
}

func TestSessionSweeper_ExpiresStaleSessions(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	orderA, sessionA := openSession(t, f, "NG", "pa_old")
	orderB, sessionB := openSession(t, f, "US", "pb_old")
	scheduled := f.Scheduler.Scheduled()

	report, err := newSweeper(f, 25*time.Hour).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Expired)
	assert.Zero(t, report.Repolled, "expired sessions are not polled again")
	assert.Equal(t, scheduled, f.Scheduler.Scheduled())

	storedA, err := f.Orders.GetOrder(ctx, orderA.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, storedA.Session(sessionA.ID).State)
	assert.Equal(t, domain.StatusPendingPayment, storedA.Status)

	storedB, err := f.Orders.GetOrder(ctx, orderB.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, storedB.Session(sessionB.ID).State)

	report, err = newSweeper(f, 26*time.Hour).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, worker.SweepReport{}, report)
}

func TestSessionSweeper_IgnoresSettledSessions(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	_, _ = openSession(t, f, "NG", "pa_paid")

	_, err := f.Gateway.HandleProviderACallback(ctx, services.ProviderACallback{
		Reference: "pa_paid",
		Status:    "success",
		Amount:    testhelpers.MustDecimal("45000"),
		Currency:  domain.NGN,
	})
	require.NoError(t, err)

	report, err := newSweeper(f, 48*time.Hour).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, worker.SweepReport{}, report)
}

func TestSessionSweeper_ExpiresSessionsOfFinishedOrders(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(t)
	order, session := openSession(t, f, "US", "pb_unused")
	scheduled := f.Scheduler.Scheduled()

	// Paid by bank transfer and delivered while the card checkout was left open.
	for _, event := range []string{
		"AdminVerifiedPayment",
		"AdminMarksInProduction",
		"AdminMarksReady",
		"AdminMarksCompleted",
		"AdminMarksDelivered",
	} {
		_, err := f.Orders.AdminTransition(ctx, services.AdminTransitionCommand{OrderID: order.ID, Event: event, StaffID: "kemi"})
		require.NoError(t, err, event)
	}

	report, err := newSweeper(f, 3*time.Minute).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, worker.SweepReport{Expired: 1}, report)
	assert.Equal(t, scheduled, f.Scheduler.Scheduled(), "finished orders are not polled")

	stored, err := f.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)
	assert.Equal(t, domain.SessionExpired, stored.Session(session.ID).State)
}
