package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"go-route-guard/internal/interfaces/mock"
	"go-route-guard/internal/models"
)

var user = models.Session{UserID: "u1", Authenticated: true, EmailConfirmed: true}

func TestInterceptor_Navigate_AllowedPushes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := NewMemoryHistory("/")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Allow(models.ReasonLicenseActive))

	result, err := interceptor.Navigate(context.Background(), "/dashboard")

	require.NoError(t, err)
	assert.True(t, result.Decision.CanAccess)
	assert.Equal(t, "/dashboard", result.Current)
	entries, _ := history.Entries()
	assert.Equal(t, []string{"/", "/dashboard"}, entries)
}

func TestInterceptor_Navigate_DeniedReplaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := NewMemoryHistory("/")
	history.Push("/pricing")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Deny("/renew", models.ReasonLicenseExpired))

	result, err := interceptor.Navigate(context.Background(), "/dashboard")

	require.NoError(t, err)
	assert.False(t, result.Decision.CanAccess)
	assert.Equal(t, "/renew", result.Current)

	// The denied path never entered history, so Back does not lead to it
	entries, _ := history.Entries()
	assert.Equal(t, []string{"/", "/renew"}, entries)
}

func TestInterceptor_PopState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := NewMemoryHistory("/")
	history.Push("/budgets/1")
	history.Push("/pricing")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	// Back to a page the user can no longer see
	path, _ := history.Back()
	evaluator.EXPECT().Evaluate(gomock.Any(), path, user).Return(models.Deny("/no-license", models.ReasonLicenseNotFound))

	result, err := interceptor.PopState(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/no-license", result.Current)

	// Forward to an allowed page leaves history untouched
	path, _ = history.Forward()
	evaluator.EXPECT().Evaluate(gomock.Any(), path, user).Return(models.Allow(models.ReasonPublic))

	result, err = interceptor.PopState(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/pricing", result.Current)
	entries, _ := history.Entries()
	assert.Equal(t, []string{"/", "/no-license", "/pricing"}, entries)
}

func TestInterceptor_SupersededNavigationIsDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := NewMemoryHistory("/")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})

	// The first navigation waits on a slow license check that ends up denying
	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).DoAndReturn(
		func(context.Context, string, models.Session) models.AccessDecision {
			close(slowStarted)
			<-releaseSlow
			return models.Deny("/renew", models.ReasonLicenseExpired)
		})
	evaluator.EXPECT().Evaluate(gomock.Any(), "/pricing", user).Return(models.Allow(models.ReasonPublic))

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = interceptor.Navigate(context.Background(), "/dashboard")
	}()

	<-slowStarted
	result, err := interceptor.Navigate(context.Background(), "/pricing")
	require.NoError(t, err)
	assert.Equal(t, "/pricing", result.Current)

	close(releaseSlow)
	wg.Wait()

	assert.ErrorIs(t, slowErr, models.ErrSuperseded)
	entries, _ := history.Entries()
	assert.Equal(t, []string{"/", "/pricing"}, entries, "the stale denial must not overwrite the newer page")
}

func TestInterceptor_Reevaluate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := NewMemoryHistory("/")
	history.Push("/dashboard")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	var redirected []Result
	interceptor.OnRedirect(func(r Result) { redirected = append(redirected, r) })

	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Allow(models.ReasonLicenseActive))
	_, err := interceptor.Reevaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, redirected)

	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Deny("/renew", models.ReasonLicenseExpired))
	result, err := interceptor.Reevaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/renew", result.Current)
	require.Len(t, redirected, 1)
	assert.Equal(t, models.ReasonLicenseExpired, redirected[0].Decision.Reason)
}

func TestInterceptor_SetSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	interceptor := NewInterceptor(evaluator, NewMemoryHistory("/"), models.Session{}, zaptest.NewLogger(t))

	interceptor.SetSession(user)
	evaluator.EXPECT().Evaluate(gomock.Any(), "/account", user).Return(models.Allow(models.ReasonAllowed))

	_, err := interceptor.Navigate(context.Background(), "/account")
	assert.NoError(t, err)
	assert.Equal(t, user, interceptor.Session())
}

func TestInterceptor_Watch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	cache := mock.NewMockSharedCache(ctrl)
	history := NewMemoryHistory("/")
	history.Push("/dashboard")
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	var listener func(models.ChangeEvent)
	unsubscribed := false
	cache.EXPECT().OnChange(gomock.Any()).DoAndReturn(func(l func(models.ChangeEvent)) func() {
		listener = l
		return func() { unsubscribed = true }
	})

	keyOf := func(userID string) string { return "license:" + userID }
	unsubscribe := interceptor.Watch(context.Background(), cache, keyOf)
	require.NotNil(t, listener)

	// Ignored: local update, someone else's key
	listener(models.ChangeEvent{Type: models.MessageUpdate, Key: "license:u1"})
	listener(models.ChangeEvent{Type: models.MessageInvalidate, Key: "license:u2", Remote: true})

	evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Deny("/renew", models.ReasonLicenseExpired))
	listener(models.ChangeEvent{Type: models.MessageInvalidate, Key: "license:u1", Remote: true})

	assert.Eventually(t, func() bool { return history.Current() == "/renew" }, time.Second, 5*time.Millisecond)

	// A cache clear re-checks whatever page the session is on
	evaluated := make(chan struct{})
	evaluator.EXPECT().Evaluate(gomock.Any(), "/renew", user).DoAndReturn(
		func(context.Context, string, models.Session) models.AccessDecision {
			close(evaluated)
			return models.Allow(models.ReasonAllowed)
		})
	listener(models.ChangeEvent{Type: models.MessageClear})

	select {
	case <-evaluated:
	case <-time.After(time.Second):
		t.Fatal("clear did not trigger a re-evaluation")
	}

	unsubscribe()
	assert.True(t, unsubscribed)
}

func TestInterceptor_CommitsThroughHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	evaluator := mock.NewMockAccessEvaluator(ctrl)
	history := mock.NewMockHistory(ctrl)
	interceptor := NewInterceptor(evaluator, history, user, zaptest.NewLogger(t))

	gomock.InOrder(
		evaluator.EXPECT().Evaluate(gomock.Any(), "/dashboard", user).Return(models.Allow(models.ReasonLicenseActive)),
		history.EXPECT().Push("/dashboard"),
		history.EXPECT().Current().Return("/dashboard"),
	)
	result, err := interceptor.Navigate(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", result.Current)

	// an allowed popstate leaves history untouched
	gomock.InOrder(
		evaluator.EXPECT().Evaluate(gomock.Any(), "/pricing", user).Return(models.Allow(models.ReasonPublic)),
		history.EXPECT().Current().Return("/pricing"),
	)
	result, err = interceptor.PopState(context.Background(), "/pricing")
	require.NoError(t, err)
	assert.Equal(t, "/pricing", result.Current)

	gomock.InOrder(
		evaluator.EXPECT().Evaluate(gomock.Any(), "/budgets/1", user).Return(models.Deny("/no-license", models.ReasonLicenseNotFound)),
		history.EXPECT().Replace("/no-license"),
		history.EXPECT().Current().Return("/no-license"),
	)
	result, err = interceptor.PopState(context.Background(), "/budgets/1")
	require.NoError(t, err)
	assert.Equal(t, "/no-license", result.Current)
}
