package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/models"
)

// Listener errors.
var (
	ErrListenerAlreadyRunning = errors.New("listener already running")
	ErrListenerNotRunning     = errors.New("listener not running")
)

// ListenerConfig contains settings for the live channels.
type ListenerConfig struct {
	// PollInterval is how often each account channel polls the backend.
	// Default: 5s
	PollInterval time.Duration

	// ReconnectBackoff is the wait after a failed poll before retrying.
	// Default: 10s
	ReconnectBackoff time.Duration
}

// DefaultListenerConfig returns sensible defaults.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		PollInterval:     5 * time.Second,
		ReconnectBackoff: 10 * time.Second,
	}
}

// accountChannel tracks one account's live subscription.
type accountChannel struct {
	account models.Account
	cancel  context.CancelFunc
}

// Listener maintains one live channel per active account, pushing
// received/deleted message events and connection-state snapshots.
type Listener struct {
	config ListenerConfig
	client *Client
	logger zerolog.Logger

	received chan models.AccountMessage
	deleted  chan models.AccountMessageID
	status   chan map[string]models.ConnectionState

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	channels map[string]*accountChannel
	states   map[string]models.ConnectionState
}

// NewListener creates a Listener backed by the given client.
func NewListener(config ListenerConfig, client *Client) *Listener {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultListenerConfig().PollInterval
	}
	if config.ReconnectBackoff <= 0 {
		config.ReconnectBackoff = DefaultListenerConfig().ReconnectBackoff
	}
	return &Listener{
		config:   config,
		client:   client,
		logger:   logging.Component("listener"),
		received: make(chan models.AccountMessage, 64),
		deleted:  make(chan models.AccountMessageID, 64),
		status:   make(chan map[string]models.ConnectionState, 16),
		channels: make(map[string]*accountChannel),
		states:   make(map[string]models.ConnectionState),
	}
}

// Received returns the stream of pushed messages.
func (l *Listener) Received() <-chan models.AccountMessage {
	return l.received
}

// Deleted returns the stream of deleted message ids.
func (l *Listener) Deleted() <-chan models.AccountMessageID {
	return l.deleted
}

// Status returns the stream of connection-state snapshots.
func (l *Listener) Status() <-chan map[string]models.ConnectionState {
	return l.status
}

// Start makes the listener ready to accept channels.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrListenerAlreadyRunning
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.running = true
	l.logger.Info().Dur("poll_interval", l.config.PollInterval).Msg("listener starting")
	return nil
}

// Stop tears down all account channels.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrListenerNotRunning
	}
	l.cancel()
	l.running = false
	l.channels = make(map[string]*accountChannel)
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info().Msg("listener stopped")
	return nil
}

// AddChannel starts the live subscription for an account. Adding an
// account that already has a channel is a no-op.
func (l *Listener) AddChannel(account models.Account) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	if _, exists := l.channels[account.ID]; exists {
		l.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(l.ctx)
	l.channels[account.ID] = &accountChannel{account: account, cancel: cancel}
	l.mu.Unlock()

	l.setState(account.ID, models.ConnectionConnecting)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.watch(ctx, account)
	}()
}

// RemoveChannel stops the live subscription for an account.
func (l *Listener) RemoveChannel(account models.Account) {
	l.mu.Lock()
	ch, exists := l.channels[account.ID]
	if exists {
		delete(l.channels, account.ID)
	}
	l.mu.Unlock()

	if !exists {
		return
	}
	ch.cancel()
	l.clearState(account.ID)
}

// watch is the per-account poll loop. The first successful poll seeds
// the known-id set without emitting events; the initial population of
// the store belongs to the bulk fetch, not the live channel.
func (l *Listener) watch(ctx context.Context, account models.Account) {
	logger := l.logger.With().Str("account_id", account.ID).Logger()

	known := make(map[string]bool)
	seeded := false

	for {
		messages, err := l.client.GetAllMessages(ctx, account.Token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Str("error", logging.RedactErr(err)).Msg("channel poll failed")
			l.setState(account.ID, models.ConnectionErrored)
			if !l.sleep(ctx, l.config.ReconnectBackoff) {
				return
			}
			continue
		}

		l.setState(account.ID, models.ConnectionOpened)

		current := make(map[string]bool, len(messages))
		for _, m := range messages {
			current[m.ID] = true
		}

		if seeded {
			for _, m := range messages {
				if known[m.ID] {
					continue
				}
				select {
				case l.received <- models.AccountMessage{Account: account, Message: m}:
				case <-ctx.Done():
					return
				}
			}
			for id := range known {
				if current[id] {
					continue
				}
				select {
				case l.deleted <- models.AccountMessageID{Account: account, MessageID: id}:
				case <-ctx.Done():
					return
				}
			}
		}

		known = current
		seeded = true

		if !l.sleep(ctx, l.config.PollInterval) {
			return
		}
	}
}

// sleep waits for d, returning false if the context was canceled.
func (l *Listener) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// setState records a connection transition and pushes a snapshot of
// the whole status map. Unchanged states push nothing.
func (l *Listener) setState(accountID string, state models.ConnectionState) {
	l.mu.Lock()
	if l.states[accountID] == state {
		l.mu.Unlock()
		return
	}
	l.states[accountID] = state
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.pushSnapshot(snapshot)
}

// clearState drops an account from the status map entirely.
func (l *Listener) clearState(accountID string) {
	l.mu.Lock()
	delete(l.states, accountID)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.pushSnapshot(snapshot)
}

func (l *Listener) snapshotLocked() map[string]models.ConnectionState {
	snapshot := make(map[string]models.ConnectionState, len(l.states))
	for id, s := range l.states {
		snapshot[id] = s
	}
	return snapshot
}

// pushSnapshot delivers the latest snapshot, displacing the oldest
// buffered one if the consumer is behind. Only the newest snapshot
// matters; intermediate ones are safe to drop.
func (l *Listener) pushSnapshot(snapshot map[string]models.ConnectionState) {
	for {
		select {
		case l.status <- snapshot:
			return
		default:
		}
		select {
		case <-l.status:
		default:
		}
	}
}
