package solana

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
)

// Watch transports.
const (
	WatchModeSubscription = "subscription"
	WatchModePolling      = "polling"
)

// pollCyclesBeforeRetry is how many poll intervals pass before the watcher
// tries to re-establish the websocket subscription.
const pollCyclesBeforeRetry = 20

// BalanceWatcher keeps a live snapshot of one owner's pair balances. It
// prefers account subscriptions over the websocket endpoint and falls back
// to interval polling when the socket cannot be established.
type BalanceWatcher struct {
	client       *rpc.Client
	wsURL        string
	owner        solana.PublicKey
	pair         pair.Pair
	pollInterval time.Duration
	logger       *log.Logger

	mu           sync.RWMutex
	last         *PairBalances
	mode         string
	onModeChange func(mode string)

	updates  chan PairBalances
	stopChan chan struct{}
}

// NewBalanceWatcher creates a watcher for one owner. An empty wsURL
// disables subscriptions and polls only.
func NewBalanceWatcher(client *rpc.Client, wsURL string, owner solana.PublicKey, p pair.Pair, pollInterval time.Duration, logger *log.Logger) *BalanceWatcher {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &BalanceWatcher{
		client:       client,
		wsURL:        wsURL,
		owner:        owner,
		pair:         p,
		pollInterval: pollInterval,
		logger:       logger,
		mode:         WatchModePolling,
		updates:      make(chan PairBalances, 8),
		stopChan:     make(chan struct{}),
	}
}

// Start launches the watch loop.
func (w *BalanceWatcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop terminates the watch loop.
func (w *BalanceWatcher) Stop() {
	close(w.stopChan)
}

// Updates emits a snapshot after every refresh. Slow consumers miss
// snapshots instead of blocking the watcher.
func (w *BalanceWatcher) Updates() <-chan PairBalances {
	return w.updates
}

// Mode reports the transport currently in use.
func (w *BalanceWatcher) Mode() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

// Last returns the most recent snapshot, nil before the first refresh
// succeeds.
func (w *BalanceWatcher) Last() *PairBalances {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// OnModeChange registers a callback fired when the transport changes.
// Must be called before Start.
func (w *BalanceWatcher) OnModeChange(fn func(mode string)) {
	w.onModeChange = fn
}

func (w *BalanceWatcher) run(ctx context.Context) {
	// Seed the snapshot before choosing a transport
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}

		if w.wsURL != "" {
			if err := w.watchSubscription(ctx); err != nil {
				w.logger.Printf("⚠️ Account subscription unavailable (%v), falling back to polling", err)
			}
		}

		if stopped := w.pollLoop(ctx, pollCyclesBeforeRetry); stopped {
			return
		}
	}
}

// watchSubscription refreshes on account change notifications for the
// owner wallet and its token account. Returns when the stream breaks.
func (w *BalanceWatcher) watchSubscription(ctx context.Context) error {
	client, err := ws.Connect(ctx, w.wsURL)
	if err != nil {
		return fmt.Errorf("websocket connect failed: %w", err)
	}
	defer client.Close()

	ownerSub, err := client.AccountSubscribe(w.owner, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("account subscribe failed: %w", err)
	}
	defer ownerSub.Unsubscribe()

	// The token balance lives on the associated token account
	ata, _, err := solana.FindAssociatedTokenAddress(w.owner, w.pair.Token.Mint)
	if err != nil {
		return fmt.Errorf("failed to derive token account: %w", err)
	}
	tokenSub, err := client.AccountSubscribe(ata, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("token account subscribe failed: %w", err)
	}
	defer tokenSub.Unsubscribe()

	w.setMode(WatchModeSubscription)
	defer w.setMode(WatchModePolling)
	w.logger.Printf("Watching balances for %s over account subscriptions", w.owner)

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := make(chan struct{}, 2)
	errs := make(chan error, 2)

	recv := func(sub *ws.AccountSubscription) {
		for {
			if _, err := sub.Recv(recvCtx); err != nil {
				select {
				case errs <- err:
				default:
				}
				return
			}
			select {
			case notifications <- struct{}{}:
			default:
			}
		}
	}
	go recv(ownerSub)
	go recv(tokenSub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopChan:
			return nil
		case err := <-errs:
			return fmt.Errorf("subscription stream ended: %w", err)
		case <-notifications:
			// A swap touches both accounts at once, let the
			// notifications coalesce before refreshing
			time.Sleep(400 * time.Millisecond)
			for len(notifications) > 0 {
				<-notifications
			}
			w.refresh(ctx)
		}
	}
}

// pollLoop refreshes on the configured interval. It returns true when the
// watcher is stopping, false when it is time to retry the subscription.
func (w *BalanceWatcher) pollLoop(ctx context.Context, cycles int) bool {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for i := 0; cycles <= 0 || i < cycles; i++ {
		select {
		case <-ctx.Done():
			return true
		case <-w.stopChan:
			return true
		case <-ticker.C:
			w.refresh(ctx)
		}

		// No point retrying the socket when none is configured
		if w.wsURL == "" {
			i = 0
		}
	}
	return false
}

func (w *BalanceWatcher) refresh(ctx context.Context) {
	balances, err := GetBalances(ctx, w.client, w.owner, w.pair)
	if err != nil {
		w.logger.Printf("⚠️ Balance refresh failed: %v", err)
		return
	}

	w.mu.Lock()
	w.last = balances
	w.mu.Unlock()

	select {
	case w.updates <- *balances:
	default:
	}
}

func (w *BalanceWatcher) setMode(mode string) {
	w.mu.Lock()
	changed := w.mode != mode
	w.mode = mode
	fn := w.onModeChange
	w.mu.Unlock()

	if changed && fn != nil {
		fn(mode)
	}
}
