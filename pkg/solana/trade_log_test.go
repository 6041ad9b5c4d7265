package solana

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeLogRecordAndSummarize(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTradeLog(dir)
	require.NoError(t, err)

	require.NoError(t, log.RecordSwap("sol_to_token", "1.5 SOL", "2500 USDC", 5000, "sig1"))
	require.NoError(t, log.RecordSwap("token_to_sol", "1000 USDC", "0.6 SOL", 5000, "sig2"))
	require.NoError(t, log.RecordWithdrawal("SOL", "0.25 SOL", "EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf", 10000, "sig3"))

	summary, err := log.Summary()
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Swaps24h)
	assert.Equal(t, 2, summary.SwapsWeek)
	assert.Equal(t, 1, summary.Withdrawals24h)
	assert.Equal(t, 1, summary.WithdrawalsWeek)
	assert.InDelta(t, 0.00002, summary.FeesSolWeek, 1e-9)
	assert.InDelta(t, 0.00002, summary.FeesSol24h, 1e-9)
}

func TestTradeLogMonthlyFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTradeLog(dir)
	require.NoError(t, err)

	require.NoError(t, log.RecordSwap("sol_to_token", "1 SOL", "1700 USDC", 5000, "sig"))

	expected := filepath.Join(dir, "trades_"+time.Now().Format("2006-01")+".csv")
	data, err := os.ReadFile(expected)
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "Timestamp,"), "first row should be the header")
	assert.Contains(t, content, "SWAP")
	assert.Contains(t, content, "1700 USDC")
	assert.Contains(t, content, "sig")
}

func TestTradeLogSummaryExcludesOldRecords(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTradeLog(dir)
	require.NoError(t, err)

	// Two weeks old, should not count in either window.
	require.NoError(t, log.append(TradeRecord{
		Timestamp: time.Now().Add(-14 * 24 * time.Hour),
		Kind:      KindSwap,
		Detail:    "sol_to_token",
		AmountIn:  "1 SOL",
		AmountOut: "1700 USDC",
		Fee:       5000,
		Signature: "old",
	}))
	// Two days old, counts in the week but not the day.
	require.NoError(t, log.append(TradeRecord{
		Timestamp: time.Now().Add(-48 * time.Hour),
		Kind:      KindSwap,
		Detail:    "sol_to_token",
		AmountIn:  "1 SOL",
		AmountOut: "1700 USDC",
		Fee:       5000,
		Signature: "recent",
	}))

	summary, err := log.Summary()
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Swaps24h)
	assert.Equal(t, 1, summary.SwapsWeek)
}

func TestParseSolToLamports(t *testing.T) {
	assert.Equal(t, uint64(5000), parseSolToLamports("0.000005000"))
	assert.Equal(t, uint64(1_000_000_000), parseSolToLamports("1.0"))
	assert.Equal(t, uint64(0), parseSolToLamports("garbage"))
	assert.Equal(t, uint64(0), parseSolToLamports(""))
}
