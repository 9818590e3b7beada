package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog/log"
)

// WSConfig configures reconnect behavior for the account stream.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// UpdateBuffer is the capacity of the merged update channel.
	UpdateBuffer int
}

// DefaultWSConfig returns default stream configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		UpdateBuffer:      4096,
	}
}

// wsSession is one live connection with its per-connection lifecycle state.
type wsSession struct {
	client *ws.Client
	ctx    context.Context
	cancel context.CancelFunc
	errCh  chan error
	wg     sync.WaitGroup
}

// WSStream subscribes to every tracked account over a single websocket
// connection and merges all notifications into one channel. Any subscription
// error tears the connection down and reconnects with exponential backoff,
// re-subscribing the full account set. Accounts added via Subscribe while a
// connection is live are subscribed on it immediately.
type WSStream struct {
	endpoint string
	config   WSConfig
	updates  chan AccountUpdate

	mu       sync.Mutex
	accounts map[solana.PublicKey]struct{}
	session  *wsSession
}

func NewWSStream(endpoint string, config WSConfig) *WSStream {
	return &WSStream{
		endpoint: endpoint,
		config:   config,
		updates:  make(chan AccountUpdate, config.UpdateBuffer),
		accounts: make(map[solana.PublicKey]struct{}),
	}
}

func (s *WSStream) Updates() <-chan AccountUpdate {
	return s.updates
}

// Subscribe adds accounts to the tracked set and, when connected, opens the
// subscriptions on the live connection. A subscription failure reports an
// error and leaves the accounts tracked for the next reconnect.
func (s *WSStream) Subscribe(accounts ...solana.PublicKey) error {
	s.mu.Lock()
	session := s.session
	fresh := make([]solana.PublicKey, 0, len(accounts))
	for _, account := range accounts {
		if _, ok := s.accounts[account]; ok {
			continue
		}
		s.accounts[account] = struct{}{}
		fresh = append(fresh, account)
	}
	s.mu.Unlock()

	if session == nil || len(fresh) == 0 {
		return nil
	}
	for _, account := range fresh {
		if err := s.subscribeOne(session, account); err != nil {
			return err
		}
	}
	return nil
}

// Run connects and streams until ctx is cancelled. The updates channel is
// closed on return.
func (s *WSStream) Run(ctx context.Context) error {
	defer close(s.updates)

	delay := s.config.ReconnectDelay
	for {
		started := time.Now()
		err := s.runConn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that survived a while earns a fresh backoff.
		if time.Since(started) > s.config.MaxReconnectDelay {
			delay = s.config.ReconnectDelay
		}
		log.Warn().
			Err(err).
			Dur("retry_in", delay).
			Msg("[AccountStream] connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

func (s *WSStream) runConn(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client, err := ws.Connect(ctx, s.endpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	session := &wsSession{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		errCh:  make(chan error, 1),
	}

	s.mu.Lock()
	tracked := make([]solana.PublicKey, 0, len(s.accounts))
	for account := range s.accounts {
		tracked = append(tracked, account)
	}
	s.session = session
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
	}()

	for _, account := range tracked {
		if err := s.subscribeOne(session, account); err != nil {
			cancel()
			session.wg.Wait()
			return err
		}
	}

	log.Info().
		Int("accounts", len(tracked)).
		Str("endpoint", s.endpoint).
		Msg("[AccountStream] subscribed")

	var runErr error
	select {
	case runErr = <-session.errCh:
		cancel()
	case <-ctx.Done():
		runErr = ctx.Err()
	}
	session.wg.Wait()
	return runErr
}

func (s *WSStream) subscribeOne(session *wsSession, account solana.PublicKey) error {
	sub, err := session.client.AccountSubscribeWithOpts(account, rpc.CommitmentConfirmed, solana.EncodingBase64)
	if err != nil {
		return err
	}
	session.wg.Add(1)
	go func() {
		defer session.wg.Done()
		defer sub.Unsubscribe()
		s.pump(session, account, sub)
	}()
	return nil
}

func (s *WSStream) pump(session *wsSession, account solana.PublicKey, sub *ws.AccountSubscription) {
	for {
		result, err := sub.Recv(session.ctx)
		if err != nil {
			select {
			case session.errCh <- err:
			default:
			}
			return
		}
		if result == nil || result.Value.Data == nil {
			continue
		}
		update := AccountUpdate{
			Account: account,
			Data:    result.Value.Data.GetBinary(),
			Slot:    result.Context.Slot,
		}
		select {
		case s.updates <- update:
		case <-session.ctx.Done():
			return
		}
	}
}
