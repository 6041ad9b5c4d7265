package solana

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// blockhashTTL is well under the ~60s a blockhash stays valid, so a cached
// value always leaves room for signing and broadcasting.
const blockhashTTL = 20 * time.Second

// BlockhashCache caches the latest blockhash so bursts of transactions do
// not each pay an RPC round trip.
type BlockhashCache struct {
	client *rpc.Client

	mu        sync.Mutex
	blockhash solana.Hash
	lastValid uint64
	expiry    time.Time
	ttl       time.Duration
}

// NewBlockhashCache creates a cache bound to the given RPC client.
func NewBlockhashCache(client *rpc.Client) *BlockhashCache {
	return &BlockhashCache{
		client: client,
		ttl:    blockhashTTL,
	}
}

// Latest returns a recent blockhash and its last valid block height,
// refreshing from the node when the cached value has expired.
func (c *BlockhashCache) Latest(ctx context.Context) (solana.Hash, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.expiry) {
		return c.blockhash, c.lastValid, nil
	}

	block, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	c.blockhash = block.Value.Blockhash
	c.lastValid = block.Value.LastValidBlockHeight
	c.expiry = time.Now().Add(c.ttl)

	return c.blockhash, c.lastValid, nil
}

// Invalidate drops the cached value so the next Latest call hits the node.
func (c *BlockhashCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiry = time.Time{}
}
