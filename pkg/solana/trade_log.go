package solana

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TradeKind represents the kind of recorded operation
type TradeKind string

const (
	// KindSwap represents a swap between the two legs of the pair
	KindSwap TradeKind = "SWAP"
	// KindWithdrawal represents a transfer out to an external wallet
	KindWithdrawal TradeKind = "WITHDRAWAL"
)

// TradeRecord is one row of the trade history.
type TradeRecord struct {
	Timestamp time.Time
	Kind      TradeKind
	Detail    string // swap direction or withdrawn asset
	AmountIn  string
	AmountOut string
	Fee       uint64 // in lamports
	Recipient string
	Signature string
}

// TradeSummary aggregates recent activity.
type TradeSummary struct {
	Swaps24h        int     `json:"swaps24h"`
	SwapsWeek       int     `json:"swapsWeek"`
	Withdrawals24h  int     `json:"withdrawals24h"`
	WithdrawalsWeek int     `json:"withdrawalsWeek"`
	FeesSol24h      float64 `json:"feesSol24h"`
	FeesSolWeek     float64 `json:"feesSolWeek"`
}

// TradeLog records swaps and withdrawals to monthly CSV files.
type TradeLog struct {
	dataDir string
	mu      sync.Mutex
}

// NewTradeLog creates a new trade log rooted at dataDir.
func NewTradeLog(dataDir string) (*TradeLog, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &TradeLog{
		dataDir: dataDir,
	}, nil
}

// RecordSwap records a completed swap. Amounts are display strings
// including the symbol, e.g. "1.5 SOL".
func (t *TradeLog) RecordSwap(direction, amountIn, amountOut string, feeLamports uint64, signature string) error {
	return t.append(TradeRecord{
		Timestamp: time.Now(),
		Kind:      KindSwap,
		Detail:    direction,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fee:       feeLamports,
		Signature: signature,
	})
}

// RecordWithdrawal records a completed withdrawal to an external wallet.
func (t *TradeLog) RecordWithdrawal(asset, amount, recipient string, feeLamports uint64, signature string) error {
	return t.append(TradeRecord{
		Timestamp: time.Now(),
		Kind:      KindWithdrawal,
		Detail:    asset,
		AmountIn:  amount,
		Fee:       feeLamports,
		Recipient: recipient,
		Signature: signature,
	})
}

// Summary aggregates the last day and week of activity.
func (t *TradeLog) Summary() (TradeSummary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := TradeSummary{}
	now := time.Now()
	last24h := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	files, err := t.tradeFiles()
	if err != nil {
		return summary, err
	}

	for _, file := range files {
		records, err := t.readTradeFile(file)
		if err != nil {
			continue
		}

		for _, record := range records {
			if record.Timestamp.Before(lastWeek) {
				continue
			}

			feeSol := float64(record.Fee) / 1_000_000_000
			summary.FeesSolWeek += feeSol
			recent := record.Timestamp.After(last24h)
			if recent {
				summary.FeesSol24h += feeSol
			}

			switch record.Kind {
			case KindSwap:
				summary.SwapsWeek++
				if recent {
					summary.Swaps24h++
				}
			case KindWithdrawal:
				summary.WithdrawalsWeek++
				if recent {
					summary.Withdrawals24h++
				}
			}
		}
	}

	return summary, nil
}

// tradeFiles returns the monthly CSV files, oldest first.
func (t *TradeLog) tradeFiles() ([]string, error) {
	pattern := filepath.Join(t.dataDir, "trades_*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to find trade files: %w", err)
	}
	return matches, nil
}

// readTradeFile reads and parses one monthly file.
func (t *TradeLog) readTradeFile(filePath string) ([]TradeRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	var records []TradeRecord

	// Skip header row
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 8 {
			continue
		}

		timestamp, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}

		records = append(records, TradeRecord{
			Timestamp: timestamp,
			Kind:      TradeKind(row[1]),
			Detail:    row[2],
			AmountIn:  row[3],
			AmountOut: row[4],
			Fee:       parseSolToLamports(row[5]),
			Recipient: row[6],
			Signature: row[7],
		})
	}

	return records, nil
}

// parseSolToLamports converts a SOL string value back to lamports
func parseSolToLamports(solValue string) uint64 {
	solValue = strings.TrimSpace(solValue)

	value, err := strconv.ParseFloat(solValue, 64)
	if err != nil {
		return 0
	}

	return uint64(value * 1_000_000_000)
}

// append writes one record to the current month's CSV file
func (t *TradeLog) append(record TradeRecord) error {
	if t == nil {
		return fmt.Errorf("trade log is not initialized")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	filename := fmt.Sprintf("trades_%s.csv", record.Timestamp.Format("2006-01"))
	path := filepath.Join(t.dataDir, filename)

	fileExists := false
	if _, err := os.Stat(path); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trade file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if !fileExists {
		header := []string{
			"Timestamp", "Kind", "Detail", "Amount In", "Amount Out",
			"Fee (SOL)", "Recipient", "Signature",
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	feeSol := float64(record.Fee) / 1_000_000_000

	row := []string{
		record.Timestamp.Format(time.RFC3339),
		string(record.Kind),
		record.Detail,
		record.AmountIn,
		record.AmountOut,
		fmt.Sprintf("%.9f", feeSol),
		record.Recipient,
		record.Signature,
	}

	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}
