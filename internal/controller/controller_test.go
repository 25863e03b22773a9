package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mez0/TempBox/internal/events"
	"github.com/Mez0/TempBox/internal/models"
)

const eventually = 2 * time.Second

// --- fakes ----------------------------------------------------------

type fakeAccounts struct {
	active   chan []models.Account
	archived chan []models.Account

	mu             sync.Mutex
	activateCalls  int
	archiveCalls   int
	removeCalls    int
	deleteCalls    int
	refreshCalls   int
	deleteErr      error
	refreshErr     error
	refreshedToken string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		active:   make(chan []models.Account, 16),
		archived: make(chan []models.Account, 16),
	}
}

func (f *fakeAccounts) ActiveAccounts() <-chan []models.Account { return f.active }

func (f *fakeAccounts) ArchivedAccounts() <-chan []models.Account { return f.archived }

func (f *fakeAccounts) Activate(context.Context, models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	return nil
}

func (f *fakeAccounts) Archive(context.Context, models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveCalls++
	return nil
}

func (f *fakeAccounts) Remove(context.Context, models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	return nil
}

func (f *fakeAccounts) Delete(context.Context, models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeAccounts) Refresh(_ context.Context, account models.Account) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return models.Account{}, f.refreshErr
	}
	account.Token = f.refreshedToken
	return account, nil
}

func (f *fakeAccounts) counts() (activate, archive, remove, del, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activateCalls, f.archiveCalls, f.removeCalls, f.deleteCalls, f.refreshCalls
}

type fakeMessages struct {
	mu            sync.Mutex
	listing       []models.Message
	listErr       error
	listCalls     int
	listedTokens  []string
	getCalls      int
	markSeenCalls int
	getResult     models.Message
	markResult    models.Message
	markErr       error
}

func (f *fakeMessages) GetAllMessages(_ context.Context, token string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.listedTokens = append(f.listedTokens, token)
	return f.listing, f.listErr
}

func (f *fakeMessages) GetMessage(context.Context, string, string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return f.getResult, nil
}

func (f *fakeMessages) MarkMessageSeen(context.Context, string, bool, string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markSeenCalls++
	return f.markResult, f.markErr
}

func (f *fakeMessages) DeleteMessage(context.Context, string, string) error { return nil }

func (f *fakeMessages) counts() (list, get, mark int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.getCalls, f.markSeenCalls
}

func (f *fakeMessages) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listedTokens...)
}

type fakeListener struct {
	received chan models.AccountMessage
	deleted  chan models.AccountMessageID
	status   chan map[string]models.ConnectionState

	mu      sync.Mutex
	added   []string
	removed []string
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		received: make(chan models.AccountMessage, 16),
		deleted:  make(chan models.AccountMessageID, 16),
		status:   make(chan map[string]models.ConnectionState, 16),
	}
}

func (f *fakeListener) Received() <-chan models.AccountMessage { return f.received }

func (f *fakeListener) Deleted() <-chan models.AccountMessageID { return f.deleted }

func (f *fakeListener) Status() <-chan map[string]models.ConnectionState { return f.status }

func (f *fakeListener) AddChannel(account models.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, account.ID)
}

func (f *fakeListener) RemoveChannel(account models.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, account.ID)
}

func (f *fakeListener) channels() (added, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...), append([]string(nil), f.removed...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []Notification
}

func (f *fakeNotifier) Deliver(_ context.Context, notification Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, notification)
	return nil
}

func (f *fakeNotifier) notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.delivered...)
}

// --- harness --------------------------------------------------------

type harness struct {
	controller *Controller
	accounts   *fakeAccounts
	messages   *fakeMessages
	listener   *fakeListener
	notifier   *fakeNotifier
	publisher  *events.InMemoryPublisher
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()

	h := &harness{
		accounts:  newFakeAccounts(),
		messages:  &fakeMessages{},
		listener:  newFakeListener(),
		notifier:  &fakeNotifier{},
		publisher: events.NewInMemoryPublisher(),
	}
	h.controller = New(config, h.accounts, h.messages, h.listener, h.notifier, h.publisher)

	require.NoError(t, h.controller.Start(context.Background()))
	t.Cleanup(func() {
		if err := h.controller.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			t.Errorf("stop: %v", err)
		}
		h.publisher.Close()
	})
	return h
}

// pushActive sends a snapshot and waits until the loop has absorbed it.
func (h *harness) pushActive(t *testing.T, accounts ...models.Account) {
	t.Helper()
	h.accounts.active <- accounts
	require.Eventually(t, func() bool {
		return len(h.controller.ActiveAccounts()) == len(accounts)
	}, eventually, 5*time.Millisecond)
}

// collect subscribes to an event type and returns an accessor for the
// events seen so far.
func (h *harness) collect(t *testing.T, eventType models.EventType) func() []*models.Event {
	t.Helper()

	var mu sync.Mutex
	var seen []*models.Event
	err := h.publisher.Subscribe(string(eventType)+"-probe", events.Filter{
		EventTypes: []models.EventType{eventType},
	}, func(event *models.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event)
	})
	require.NoError(t, err)

	return func() []*models.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*models.Event(nil), seen...)
	}
}

// --- lifecycle ------------------------------------------------------

func TestStartStop(t *testing.T) {
	h := &harness{
		accounts:  newFakeAccounts(),
		messages:  &fakeMessages{},
		listener:  newFakeListener(),
		notifier:  &fakeNotifier{},
		publisher: events.NewInMemoryPublisher(),
	}
	c := New(Config{}, h.accounts, h.messages, h.listener, h.notifier, h.publisher)

	require.NoError(t, c.Start(context.Background()))
	require.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, c.Stop())
	require.ErrorIs(t, c.Stop(), ErrNotRunning)
}

// --- reconciliation -------------------------------------------------

func TestActivationBootstrapsAccount(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a"}}

	h.pushActive(t, acc("a"))

	added, _ := h.listener.channels()
	assert.Equal(t, []string{"a"}, added)

	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching && len(store.Messages) == 1
	}, eventually, 5*time.Millisecond)
}

func TestDeactivationTearsDownAccount(t *testing.T) {
	h := newHarness(t, Config{})

	h.pushActive(t, acc("a"), acc("b"))
	h.pushActive(t, acc("b"))

	_, removed := h.listener.channels()
	assert.Equal(t, []string{"a"}, removed)

	_, ok := h.controller.Store("a")
	assert.False(t, ok, "deactivated account keeps no store")
	_, ok = h.controller.Store("b")
	assert.True(t, ok)
}

// Repeating an identical snapshot must not re-run the transitions.
func TestReconcileIsExactlyOnce(t *testing.T) {
	h := newHarness(t, Config{})

	h.pushActive(t, acc("a"))
	h.pushActive(t, acc("a"))
	h.controller.Sync()

	added, removed := h.listener.channels()
	assert.Equal(t, []string{"a"}, added)
	assert.Empty(t, removed)

	list, _, _ := h.messages.counts()
	assert.Equal(t, 1, list, "one bulk fetch per activation")
}

// A reordered snapshot changes nobody's membership, so it must not
// tear down or re-bootstrap any account.
func TestReorderedSnapshotKeepsAccounts(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "b"}}

	h.pushActive(t, acc("a"), acc("b"))
	require.Eventually(t, func() bool {
		list, _, _ := h.messages.counts()
		return list == 2
	}, eventually, 5*time.Millisecond)

	h.accounts.active <- []models.Account{acc("b"), acc("a")}
	require.Eventually(t, func() bool {
		accounts := h.controller.ActiveAccounts()
		return len(accounts) == 2 && accounts[0].ID == "b"
	}, eventually, 5*time.Millisecond)
	h.controller.Sync()

	added, removed := h.listener.channels()
	assert.Equal(t, []string{"a", "b"}, added)
	assert.Empty(t, removed, "a moved account keeps its channel")

	list, _, _ := h.messages.counts()
	assert.Equal(t, 2, list, "a moved account keeps its store without a re-fetch")

	store, ok := h.controller.Store("b")
	require.True(t, ok)
	assert.Len(t, store.Messages, 1)
}

func TestDeactivationClearsSelection(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a", Seen: true, IsComplete: true}}

	h.pushActive(t, acc("a"))
	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching
	}, eventually, 5*time.Millisecond)

	h.controller.SelectMessage("a", "m1")
	h.controller.Sync()
	require.Equal(t, "m1", h.controller.Selection().MessageID)

	h.pushActive(t)
	assert.True(t, h.controller.Selection().IsZero())
	_, ok := h.controller.SelectedMessage()
	assert.False(t, ok)
}

// --- message flow ---------------------------------------------------

func TestReceivedMessageNotifiesOnce(t *testing.T) {
	h := newHarness(t, Config{})
	h.pushActive(t, acc("a"))

	message := models.Message{ID: "m1", AccountID: "a", Subject: "hi", Intro: "Hello"}
	h.listener.received <- models.AccountMessage{Account: acc("a"), Message: message}
	h.listener.received <- models.AccountMessage{Account: acc("a"), Message: message}

	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && len(store.Messages) == 1
	}, eventually, 5*time.Millisecond)
	h.controller.Sync()

	require.Eventually(t, func() bool {
		return len(h.notifier.notifications()) == 1
	}, eventually, 5*time.Millisecond, "one notification per new message id")
	notifications := h.notifier.notifications()
	assert.Equal(t, "a", notifications[0].AccountID)
	assert.Equal(t, "m1", notifications[0].MessageID)
	assert.Equal(t, "Hello", notifications[0].Body)
}

// Routing metadata must come from the owning channel; a backend
// listing may omit the message's accountId field.
func TestNotificationRoutesByOwningAccount(t *testing.T) {
	h := newHarness(t, Config{})
	h.pushActive(t, acc("a"))

	h.listener.received <- models.AccountMessage{
		Account: acc("a"),
		Message: models.Message{ID: "m1", Subject: "hi"},
	}

	require.Eventually(t, func() bool {
		return len(h.notifier.notifications()) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, "a", h.notifier.notifications()[0].AccountID)
	assert.Equal(t, "m1", h.notifier.notifications()[0].MessageID)
}

func TestReceivedForInactiveAccountIsDropped(t *testing.T) {
	h := newHarness(t, Config{})
	h.pushActive(t, acc("a"))

	h.listener.received <- models.AccountMessage{
		Account: acc("ghost"),
		Message: models.Message{ID: "m1", AccountID: "ghost"},
	}
	h.controller.Sync()

	assert.Empty(t, h.notifier.notifications())
	_, ok := h.controller.Store("ghost")
	assert.False(t, ok)
}

func TestDeletedMessageLeavesStore(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a"}, {ID: "m2", AccountID: "a"}}
	h.pushActive(t, acc("a"))

	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && len(store.Messages) == 2
	}, eventually, 5*time.Millisecond)

	h.listener.deleted <- models.AccountMessageID{Account: acc("a"), MessageID: "m1"}

	require.Eventually(t, func() bool {
		store, _ := h.controller.Store("a")
		return len(store.Messages) == 1 && store.Messages[0].ID == "m2"
	}, eventually, 5*time.Millisecond)
}

// --- selection pipeline ---------------------------------------------

func TestSelectUnseenIssuesBothRequests(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a"}}
	h.messages.markResult = models.Message{ID: "m1", AccountID: "a", Seen: true}
	h.messages.getResult = models.Message{ID: "m1", AccountID: "a", Seen: true, Text: "body", IsComplete: true}

	h.pushActive(t, acc("a"))
	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching
	}, eventually, 5*time.Millisecond)

	h.controller.SelectMessage("a", "m1")

	require.Eventually(t, func() bool {
		message, ok := h.controller.SelectedMessage()
		return ok && message.Seen && message.IsComplete && message.Text == "body"
	}, eventually, 5*time.Millisecond)

	_, get, mark := h.messages.counts()
	assert.Equal(t, 1, get)
	assert.Equal(t, 1, mark)
}

func TestSelectSeenCompleteIssuesNothing(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a", Seen: true, IsComplete: true}}

	h.pushActive(t, acc("a"))
	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching
	}, eventually, 5*time.Millisecond)

	h.controller.SelectMessage("a", "m1")
	h.controller.Sync()

	_, get, mark := h.messages.counts()
	assert.Zero(t, get, "complete message needs no full fetch")
	assert.Zero(t, mark, "seen message needs no mark-seen")
}

func TestMarkSeenFailureLeavesMessageUnseen(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a", IsComplete: true}}
	h.messages.markErr = errors.New("backend sulking")

	h.pushActive(t, acc("a"))
	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching
	}, eventually, 5*time.Millisecond)

	h.controller.SelectMessage("a", "m1")
	h.controller.Sync()
	h.controller.Sync()

	store, _ := h.controller.Store("a")
	assert.False(t, store.Messages[0].Seen, "failed mark-seen must not flip local state")
}

func TestOpenFromNotification(t *testing.T) {
	h := newHarness(t, Config{})
	h.messages.listing = []models.Message{{ID: "m1", AccountID: "a", Seen: true, IsComplete: true}}

	h.pushActive(t, acc("a"))
	require.Eventually(t, func() bool {
		store, ok := h.controller.Store("a")
		return ok && !store.IsFetching
	}, eventually, 5*time.Millisecond)

	h.controller.OpenFromNotification("a", "m1")
	h.controller.Sync()
	assert.Equal(t, models.Selection{AccountID: "a", MessageID: "m1"}, h.controller.Selection())

	// Unknown message: selection stays put.
	h.controller.OpenFromNotification("a", "gone")
	h.controller.Sync()
	assert.Equal(t, "m1", h.controller.Selection().MessageID)

	// Deactivated account: signal is dropped.
	h.controller.OpenFromNotification("ghost", "m1")
	h.controller.Sync()
	assert.Equal(t, "a", h.controller.Selection().AccountID)
}

// --- account lifecycle ----------------------------------------------

func TestActivateBeyondLimitRaisesAdvisory(t *testing.T) {
	h := newHarness(t, Config{MaxActiveAccounts: 2})
	advisories := h.collect(t, models.EventTypeAdvisory)

	h.pushActive(t, acc("a"), acc("b"))

	h.controller.ActivateAccount(acc("c"))
	h.controller.Sync()

	activate, _, _, _, _ := h.accounts.counts()
	assert.Zero(t, activate, "no request may be issued at the limit")
	require.Eventually(t, func() bool {
		return len(advisories()) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, "Account limit reached", advisories()[0].Metadata["title"])
}

func TestActivateWithinLimitIssuesRequest(t *testing.T) {
	h := newHarness(t, Config{MaxActiveAccounts: 2})
	h.pushActive(t, acc("a"))

	h.controller.ActivateAccount(acc("b"))
	h.controller.Sync()

	require.Eventually(t, func() bool {
		activate, _, _, _, _ := h.accounts.counts()
		return activate == 1
	}, eventually, 5*time.Millisecond)
}

type backendFailure struct{ message string }

func (e *backendFailure) Error() string          { return e.message }
func (e *backendFailure) BackendMessage() string { return e.message }

func TestDeleteBackendErrorRaisesAdvisory(t *testing.T) {
	h := newHarness(t, Config{})
	advisories := h.collect(t, models.EventTypeAdvisory)
	h.accounts.deleteErr = &backendFailure{message: "mailbox is gone already"}

	h.controller.DeleteAccount(acc("a"))
	h.controller.Sync()
	h.controller.Sync()

	require.Eventually(t, func() bool {
		return len(advisories()) == 1
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, "mailbox is gone already", advisories()[0].Metadata["message"])
}

func TestDeleteTransportErrorIsLoggedOnly(t *testing.T) {
	h := newHarness(t, Config{})
	advisories := h.collect(t, models.EventTypeAdvisory)
	h.accounts.deleteErr = errors.New("connection refused")

	h.controller.DeleteAccount(acc("a"))
	h.controller.Sync()
	h.controller.Sync()

	_, _, _, del, _ := h.accounts.counts()
	assert.Equal(t, 1, del)
	assert.Empty(t, advisories(), "transport failures never surface as advisories")
}

func TestRefreshRestartsChannelAndFetch(t *testing.T) {
	h := newHarness(t, Config{})
	h.accounts.refreshedToken = "jwt-2"

	stale := acc("a")
	stale.Token = "jwt-1"
	h.pushActive(t, stale)
	require.Eventually(t, func() bool {
		list, _, _ := h.messages.counts()
		return list == 1
	}, eventually, 5*time.Millisecond)

	h.controller.RefreshAccount(stale)

	require.Eventually(t, func() bool {
		added, removed := h.listener.channels()
		return len(removed) == 1 && len(added) == 2
	}, eventually, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		list, _, _ := h.messages.counts()
		return list == 2
	}, eventually, 5*time.Millisecond)

	// The re-fetch must run with the refreshed credentials, not the
	// token the pre-refresh snapshot still holds.
	assert.Equal(t, []string{"jwt-1", "jwt-2"}, h.messages.tokens())
}

func TestRefreshFailureLeavesChannelAlone(t *testing.T) {
	h := newHarness(t, Config{})
	h.accounts.refreshErr = errors.New("token endpoint down")
	h.pushActive(t, acc("a"))

	h.controller.RefreshAccount(acc("a"))
	h.controller.Sync()
	h.controller.Sync()

	added, removed := h.listener.channels()
	assert.Equal(t, []string{"a"}, added)
	assert.Empty(t, removed)
}

// --- connection state -----------------------------------------------

func TestConnectionStateDefaultsToClosed(t *testing.T) {
	h := newHarness(t, Config{})

	assert.Equal(t, models.ConnectionClosed, h.controller.ConnectionState("unknown"))

	h.listener.status <- map[string]models.ConnectionState{"a": models.ConnectionOpened}
	require.Eventually(t, func() bool {
		return h.controller.ConnectionState("a") == models.ConnectionOpened
	}, eventually, 5*time.Millisecond)
	assert.Equal(t, models.ConnectionClosed, h.controller.ConnectionState("b"))
}

// --- fetch sequencing -----------------------------------------------

// An in-flight fetch superseded by a newer one must not install its
// result when it finally lands.
func TestStaleFetchCompletionIsDiscarded(t *testing.T) {
	c := bareController()
	c.stores["a"] = models.NewFetchingStore()
	c.fetchSeq["a"] = 2

	c.dispatch(fetchCompletedEvent{
		accountID: "a",
		seq:       1,
		messages:  []models.Message{{ID: "stale"}},
	})
	assert.True(t, c.stores["a"].IsFetching, "stale completion must not install")

	c.dispatch(fetchCompletedEvent{
		accountID: "a",
		seq:       2,
		messages:  []models.Message{{ID: "fresh"}},
	})
	require.Len(t, c.stores["a"].Messages, 1)
	assert.Equal(t, "fresh", c.stores["a"].Messages[0].ID)
}

func TestFetchCompletionForDeactivatedAccountIsDropped(t *testing.T) {
	c := bareController()

	c.dispatch(fetchCompletedEvent{accountID: "gone", seq: 1, messages: []models.Message{{ID: "m1"}}})
	_, ok := c.stores["gone"]
	assert.False(t, ok)
}
