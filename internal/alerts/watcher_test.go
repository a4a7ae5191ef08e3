package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/testutil"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func withMonthlyLimit(t *testing.T, ledger *testutil.TestLedger, amount string) {
	t.Helper()
	limit := decimal.RequireFromString(amount)
	ledger.Store.UpdateProfile(context.Background(), func(p *model.Profile) {
		p.Name = "Ada"
		p.Budget.Period = model.PeriodMonthly
		p.Budget.MonthlyLimit = &limit
	})
}

func TestWatcher_PublishesOnFirstCrossing(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	withMonthlyLimit(t, ledger, "100")

	pub := &mockPublisher{}
	var sent []byte
	pub.On("Publish", mock.Anything, "budget.exceeded", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]byte) }).
		Return(nil).Once()

	w := NewWatcher(ledger.Store, pub, "budget.exceeded")
	stop := w.Watch(context.Background())
	defer stop()

	now := time.Now()
	ledger.AddExpense("Groceries", "60", "Food", now)
	ledger.AddExpense("Concert", "50", "Entertainment", now)
	// Still exceeded: no second alert.
	ledger.AddExpense("Snack", "5", "Food", now)

	pub.AssertExpectations(t)
	require.NotNil(t, sent)

	alert, err := BudgetAlertFromJSON(sent)
	require.NoError(t, err)
	assert.Equal(t, "Ada", alert.ProfileName)
	assert.Equal(t, "USD", alert.Currency)
	assert.Equal(t, model.PeriodMonthly, alert.Period)
	assert.True(t, decimal.RequireFromString("110").Equal(alert.Spent))
	assert.True(t, decimal.RequireFromString("100").Equal(alert.Limit))
	assert.True(t, decimal.RequireFromString("10").Equal(alert.Overspent))
}

func TestWatcher_RealertsAfterRecovery(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	withMonthlyLimit(t, ledger, "50")

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, "alerts", mock.Anything).Return(nil)

	w := NewWatcher(ledger.Store, pub, "alerts")
	stop := w.Watch(context.Background())
	defer stop()

	now := time.Now()
	big := ledger.AddExpense("TV", "80", "Shopping", now)
	ledger.Store.DeleteExpense(context.Background(), big.ID)
	ledger.AddExpense("Phone", "70", "Shopping", now)

	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestWatcher_BaselineAlreadyExceeded(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	withMonthlyLimit(t, ledger, "10")
	ledger.AddExpense("Dinner", "40", "Food", time.Now())

	pub := &mockPublisher{}
	w := NewWatcher(ledger.Store, pub, "alerts")

	sent, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatcher_NoLimitNeverAlerts(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	pub := &mockPublisher{}

	w := NewWatcher(ledger.Store, pub, "alerts")
	stop := w.Watch(context.Background())
	defer stop()

	ledger.AddExpense("Car", "25000", "Transport", time.Now())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatcher_PublishFailure(t *testing.T) {
	ledger := testutil.SetupLedger(t)
	withMonthlyLimit(t, ledger, "10")

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, "alerts", mock.Anything).Return(errors.New("broker down"))

	w := NewWatcher(ledger.Store, pub, "alerts")
	ledger.AddExpense("Dinner", "40", "Food", time.Now())

	sent, err := w.Check(context.Background())
	assert.False(t, sent)
	assert.EqualError(t, err, "broker down")
}
