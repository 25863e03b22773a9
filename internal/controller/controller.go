// Package controller implements the state-reconciliation core of
// TempBox: it keeps the active accounts, their message stores, the
// selection and the per-account connection states consistent with the
// backend, driven by a single serialized event loop.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Mez0/TempBox/internal/events"
	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/models"
)

// Controller errors.
var (
	ErrAlreadyRunning = errors.New("controller already running")
	ErrNotRunning     = errors.New("controller not running")
)

// Config contains controller settings.
type Config struct {
	// MaxActiveAccounts bounds the active set. Activating beyond the
	// bound raises an advisory instead of issuing a request.
	// Default: 3
	MaxActiveAccounts int

	// EventBuffer is the capacity of the inbound event channel.
	// Default: 256
	EventBuffer int

	// NotifySound plays a sound with new-message notifications.
	NotifySound bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxActiveAccounts: 3,
		EventBuffer:       256,
		NotifySound:       true,
	}
}

// Controller owns the active/archived account sequences, the
// per-account message stores, the connection-state map and the
// selection. All mutations are serialized onto one loop goroutine;
// external services only push events or answer requests.
type Controller struct {
	config    Config
	accounts  AccountService
	messages  MessageService
	listener  ListenerService
	notifier  Notifier
	publisher events.Publisher
	logger    zerolog.Logger

	inbound chan event

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	requests sync.WaitGroup

	// stateMu guards cross-goroutine reads of loop-owned state. The
	// loop goroutine is the only writer.
	stateMu    sync.RWMutex
	active     []models.Account
	archived   []models.Account
	stores     map[string]*models.MessageStore
	connection map[string]models.ConnectionState
	selection  models.Selection
	selected   *models.Message
	fetchSeq   map[string]uint64

	// pending collects events to publish once the state lock is
	// released; subscribers may call queries from their handlers.
	pending []*models.Event
}

// New creates a Controller wired to its collaborating services.
// publisher and notifier may be nil, disabling the respective outputs.
func New(config Config, accounts AccountService, messages MessageService, listener ListenerService, notifier Notifier, publisher events.Publisher) *Controller {
	if config.MaxActiveAccounts <= 0 {
		config.MaxActiveAccounts = DefaultConfig().MaxActiveAccounts
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultConfig().EventBuffer
	}

	return &Controller{
		config:     config,
		accounts:   accounts,
		messages:   messages,
		listener:   listener,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logging.Component("controller"),
		inbound:    make(chan event, config.EventBuffer),
		stores:     make(map[string]*models.MessageStore),
		connection: make(map[string]models.ConnectionState),
		fetchSeq:   make(map[string]uint64),
	}
}

// Start launches the event loop and the stream forwarders.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true

	c.logger.Info().
		Int("max_active", c.config.MaxActiveAccounts).
		Msg("controller starting")

	c.wg.Add(1)
	go c.runLoop()

	forward(c, c.accounts.ActiveAccounts(), func(snapshot []models.Account) event {
		return activeSnapshotEvent{accounts: snapshot}
	})
	forward(c, c.accounts.ArchivedAccounts(), func(snapshot []models.Account) event {
		return archivedSnapshotEvent{accounts: snapshot}
	})
	forward(c, c.listener.Received(), func(in models.AccountMessage) event {
		return messageReceivedEvent{account: in.Account, message: in.Message}
	})
	forward(c, c.listener.Deleted(), func(in models.AccountMessageID) event {
		return messageDeletedEvent{account: in.Account, messageID: in.MessageID}
	})
	forward(c, c.listener.Status(), func(in map[string]models.ConnectionState) event {
		return statusSnapshotEvent{states: in}
	})

	return nil
}

// Stop halts the event loop and waits for in-flight requests.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.requests.Wait()
	c.wg.Wait()
	c.logger.Info().Msg("controller stopped")
	return nil
}

// forward turns an external stream into inbound events.
func forward[T any](c *Controller, ch <-chan T, wrap func(T) event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case in, ok := <-ch:
				if !ok {
					return
				}
				c.post(wrap(in))
			}
		}
	}()
}

// post enqueues an event, dropping it if the controller is stopping.
func (c *Controller) post(e event) {
	select {
	case c.inbound <- e:
	case <-c.ctx.Done():
	}
}

// runLoop is the serialized event-processing sequence. It is the only
// goroutine that mutates controller state.
func (c *Controller) runLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case e := <-c.inbound:
			c.handle(e)
		}
	}
}

func (c *Controller) handle(e event) {
	c.stateMu.Lock()
	c.dispatch(e)
	pending := c.pending
	c.pending = nil
	c.stateMu.Unlock()

	if c.publisher != nil {
		for _, ev := range pending {
			c.publisher.Publish(ev)
		}
	}
}

func (c *Controller) dispatch(e event) {
	switch ev := e.(type) {
	case activeSnapshotEvent:
		c.reconcileActive(ev.accounts)
	case archivedSnapshotEvent:
		c.archived = ev.accounts
	case messageReceivedEvent:
		if c.upsert(ev.account.ID, ev.message) {
			c.dispatchNotification(ev.account.ID, ev.message)
			c.publish(models.EventTypeMessageReceived, models.EntityTypeMessage, ev.message.ID)
		}
	case messageDeletedEvent:
		c.removeMessage(ev.account.ID, ev.messageID)
		c.publish(models.EventTypeMessageDeleted, models.EntityTypeMessage, ev.messageID)
	case statusSnapshotEvent:
		c.connection = ev.states
		c.publish(models.EventTypeConnectionChanged, models.EntityTypeSystem, "")
	case fetchCompletedEvent:
		c.handleFetchCompleted(ev)
	case markSeenCompletedEvent:
		c.handleMarkSeenCompleted(ev)
	case fetchMessageCompletedEvent:
		c.handleFetchMessageCompleted(ev)
	case selectEvent:
		c.handleSelect(ev.selection)
	case openSignalEvent:
		c.handleOpenSignal(ev)
	case activateAccountEvent:
		c.handleActivateAccount(ev.account)
	case archiveAccountEvent:
		c.issueAccountRequest("archive", ev.account, c.accounts.Archive)
	case removeAccountEvent:
		c.issueAccountRequest("remove", ev.account, c.accounts.Remove)
	case deleteAccountEvent:
		c.handleDeleteAccount(ev.account)
	case deleteCompletedEvent:
		c.handleDeleteCompleted(ev)
	case refreshAccountEvent:
		c.handleRefreshAccount(ev.account)
	case refreshCompletedEvent:
		c.handleRefreshCompleted(ev)
	case syncEvent:
		close(ev.done)
	}
}

// --- commands -------------------------------------------------------

// SelectMessage selects a message under an account, driving the
// mark-seen and full-fetch pipeline.
func (c *Controller) SelectMessage(accountID, messageID string) {
	c.post(selectEvent{selection: models.Selection{AccountID: accountID, MessageID: messageID}})
}

// SelectAccount selects an account without selecting a message.
func (c *Controller) SelectAccount(accountID string) {
	c.post(selectEvent{selection: models.Selection{AccountID: accountID}})
}

// ClearSelection deselects everything.
func (c *Controller) ClearSelection() {
	c.post(selectEvent{})
}

// OpenFromNotification resolves a notification's routing metadata and,
// if both the account and the message still exist, sets the selection.
func (c *Controller) OpenFromNotification(accountID, messageID string) {
	c.post(openSignalEvent{accountID: accountID, messageID: messageID})
}

// ActivateAccount requests activation, guarded by the configured
// active-account limit.
func (c *Controller) ActivateAccount(account models.Account) {
	c.post(activateAccountEvent{account: account})
}

// ArchiveAccount requests archiving.
func (c *Controller) ArchiveAccount(account models.Account) {
	c.post(archiveAccountEvent{account: account})
}

// RemoveAccount requests removal of the local record.
func (c *Controller) RemoveAccount(account models.Account) {
	c.post(removeAccountEvent{account: account})
}

// DeleteAccount requests deletion of the backend mailbox.
func (c *Controller) DeleteAccount(account models.Account) {
	c.post(deleteAccountEvent{account: account})
}

// RefreshAccount requests a credential refresh; on success the live
// channel is restarted and the bulk fetch re-triggered.
func (c *Controller) RefreshAccount(account models.Account) {
	c.post(refreshAccountEvent{account: account})
}

// --- queries --------------------------------------------------------

// ActiveAccounts returns the current active-account sequence.
func (c *Controller) ActiveAccounts() []models.Account {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	out := make([]models.Account, len(c.active))
	copy(out, c.active)
	return out
}

// ArchivedAccounts returns the current archived-account sequence.
func (c *Controller) ArchivedAccounts() []models.Account {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	out := make([]models.Account, len(c.archived))
	copy(out, c.archived)
	return out
}

// Store returns a copy of the account's message store, or false when
// the account is not active.
func (c *Controller) Store(accountID string) (models.MessageStore, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	store, ok := c.stores[accountID]
	if !ok {
		return models.MessageStore{}, false
	}
	out := models.MessageStore{
		IsFetching: store.IsFetching,
		Err:        store.Err,
		Messages:   make([]models.Message, len(store.Messages)),
	}
	copy(out.Messages, store.Messages)
	return out, true
}

// ConnectionState returns the account's live-channel state, defaulting
// to closed when absent.
func (c *Controller) ConnectionState(accountID string) models.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if state, ok := c.connection[accountID]; ok {
		return state
	}
	return models.ConnectionClosed
}

// Selection returns the current selection.
func (c *Controller) Selection() models.Selection {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.selection
}

// SelectedMessage returns the backing value of the selected message.
func (c *Controller) SelectedMessage() (models.Message, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.selected == nil {
		return models.Message{}, false
	}
	return *c.selected, true
}

// --- internals ------------------------------------------------------

// findActive returns the active account with the given id.
func (c *Controller) findActive(accountID string) (models.Account, bool) {
	for _, account := range c.active {
		if account.ID == accountID {
			return account, true
		}
	}
	return models.Account{}, false
}

// startFetch begins the initial bulk fetch for an account. The
// fetching flag is set synchronously so the presentation layer can
// show a loading state without racing the request.
func (c *Controller) startFetch(account models.Account) {
	store, ok := c.stores[account.ID]
	if !ok {
		return
	}
	store.IsFetching = true
	c.publish(models.EventTypeStoreFetching, models.EntityTypeAccount, account.ID)

	c.fetchSeq[account.ID]++
	seq := c.fetchSeq[account.ID]

	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		messages, err := c.messages.GetAllMessages(c.ctx, account.Token)
		c.post(fetchCompletedEvent{accountID: account.ID, seq: seq, messages: messages, err: err})
	}()
}

func (c *Controller) handleFetchCompleted(ev fetchCompletedEvent) {
	// Completions for deactivated accounts or superseded requests are
	// dropped; only the newest fetch may install a store.
	if _, ok := c.stores[ev.accountID]; !ok {
		return
	}
	if ev.seq != c.fetchSeq[ev.accountID] {
		c.logger.Debug().Str("account_id", ev.accountID).Msg("stale fetch discarded")
		return
	}

	if ev.err != nil {
		c.logger.Warn().
			Str("account_id", ev.accountID).
			Str("error", logging.RedactErr(ev.err)).
			Msg("bulk fetch failed")
	}
	c.bulkReplace(ev.accountID, ev.messages, ev.err)
}

// issueAccountRequest runs a pass-through account request off the
// loop, logging any failure.
func (c *Controller) issueAccountRequest(op string, account models.Account, call func(context.Context, models.Account) error) {
	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		if err := call(c.ctx, account); err != nil {
			c.logger.Warn().
				Str("op", op).
				Str("account_id", account.ID).
				Str("error", logging.RedactErr(err)).
				Msg("account request failed")
		}
	}()
}

func (c *Controller) handleActivateAccount(account models.Account) {
	if len(c.active) >= c.config.MaxActiveAccounts {
		c.raiseAdvisory(
			"Account limit reached",
			activationLimitMessage(c.config.MaxActiveAccounts),
		)
		return
	}
	c.issueAccountRequest("activate", account, c.accounts.Activate)
}

func (c *Controller) handleDeleteAccount(account models.Account) {
	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		err := c.accounts.Delete(c.ctx, account)
		c.post(deleteCompletedEvent{account: account, err: err})
	}()
}

func (c *Controller) handleDeleteCompleted(ev deleteCompletedEvent) {
	if ev.err == nil {
		return
	}
	if message, ok := asAdvisoryError(ev.err); ok {
		c.raiseAdvisory("Could not delete account", message)
		return
	}
	c.logger.Warn().
		Str("account_id", ev.account.ID).
		Str("error", logging.RedactErr(ev.err)).
		Msg("account deletion failed")
}

func (c *Controller) handleRefreshAccount(account models.Account) {
	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		refreshed, err := c.accounts.Refresh(c.ctx, account)
		if err != nil {
			refreshed = account
		}
		c.post(refreshCompletedEvent{account: refreshed, err: err})
	}()
}

func (c *Controller) handleRefreshCompleted(ev refreshCompletedEvent) {
	if ev.err != nil {
		c.logger.Warn().
			Str("account_id", ev.account.ID).
			Str("error", logging.RedactErr(ev.err)).
			Msg("account refresh failed")
		return
	}
	// The account may have been deactivated while the refresh was in
	// flight; a restart would resurrect its channel.
	if _, ok := c.stores[ev.account.ID]; !ok {
		return
	}

	// ev.account carries the refreshed token, which supersedes the one
	// the live channel and the stored active entry still hold; restart
	// the subscription and reload the store with it.
	c.listener.RemoveChannel(ev.account)
	c.listener.AddChannel(ev.account)
	c.startFetch(ev.account)
}

// raiseAdvisory publishes a user-facing, non-fatal error notice.
func (c *Controller) raiseAdvisory(title, message string) {
	c.logger.Info().Str("title", title).Str("message", message).Msg("advisory raised")
	ev := events.New(models.EventTypeAdvisory, models.EntityTypeSystem, "")
	ev.Metadata = map[string]string{"title": title, "message": message}
	c.pending = append(c.pending, ev)
}

func (c *Controller) publish(eventType models.EventType, entityType models.EntityType, entityID string) {
	c.pending = append(c.pending, events.New(eventType, entityType, entityID))
}

func (c *Controller) publishStoreUpdated(accountID string) {
	c.publish(models.EventTypeStoreUpdated, models.EntityTypeAccount, accountID)
}

// Sync waits until all events posted before the call are processed.
func (c *Controller) Sync() {
	done := make(chan struct{})
	c.post(syncEvent{done: done})
	select {
	case <-done:
	case <-c.ctx.Done():
	}
}
