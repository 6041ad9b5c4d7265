package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// TelegramClient handles sending notifications to Telegram
type TelegramClient struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramClient creates a new Telegram client
func NewTelegramClient(botToken, chatID string, enabled bool) *TelegramClient {
	return &TelegramClient{
		BotToken: botToken,
		ChatID:   chatID,
		Enabled:  enabled,
	}
}

// SendMessage sends a plain text message to Telegram
func (t *TelegramClient) SendMessage(message string) error {
	if t == nil || !t.Enabled || t.BotToken == "" || t.ChatID == "" {
		return nil // Silently ignore if Telegram is not configured
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)

	payload := map[string]interface{}{
		"chat_id":                  t.ChatID,
		"text":                     message,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned non-OK status: %d", resp.StatusCode)
	}

	return nil
}

// ActivitySummary contains recent trading activity totals
type ActivitySummary struct {
	Swaps24h    int     // Swaps in the last 24 hours
	SwapsWeek   int     // Swaps in the last week
	FeesSol24h  float64 // Fees paid in SOL in the last 24 hours
	FeesSolWeek float64 // Fees paid in SOL in the last week
}

// SendSwapNotification notifies about a successfully executed swap
func (t *TelegramClient) SendSwapNotification(inAmount, outAmount string, feeSol float64, summary *ActivitySummary, txID string) {
	// Format the message with emojis
	message := fmt.Sprintf(
		"💱 <b>Swap Complete!</b> 💱\n\n"+
			"📥 <b>Sent:</b> %s\n"+
			"📤 <b>Received:</b> %s\n"+
			"⛽ <b>Fee:</b> %.6f SOL\n"+
			"🕒 <b>Time:</b> %s\n"+
			"🔗 <b>Transaction:</b> <a href=\"https://solscan.io/tx/%s\">View on Solscan</a>",
		inAmount, outAmount, feeSol,
		time.Now().Format("2006-01-02 15:04:05"),
		txID,
	)

	// Add activity summary if available
	if summary != nil {
		summaryText := fmt.Sprintf(
			"\n\n📈 <b>Activity Summary:</b>\n"+
				"• <b>Swaps last 24h:</b> %d (%.6f SOL in fees)\n"+
				"• <b>Swaps last week:</b> %d (%.6f SOL in fees)",
			summary.Swaps24h, summary.FeesSol24h,
			summary.SwapsWeek, summary.FeesSolWeek,
		)

		message += summaryText
	}

	if err := t.SendMessage(message); err != nil {
		log.Printf("Failed to send swap notification: %v", err)
	}
}

// SendSwapErrorNotification notifies about failed swap attempts
func (t *TelegramClient) SendSwapErrorNotification(direction, amount, errorMessage string, attempts int) {
	// Format the message with emojis
	message := fmt.Sprintf(
		"❌ <b>Swap Failed!</b> ❌\n\n"+
			"🔀 <b>Direction:</b> %s\n"+
			"💰 <b>Amount:</b> %s\n"+
			"🔄 <b>Attempts:</b> %d\n"+
			"⚠️ <b>Error:</b> %s\n"+
			"🕒 <b>Time:</b> %s",
		direction, amount, attempts,
		errorMessage,
		time.Now().Format("2006-01-02 15:04:05"),
	)

	if err := t.SendMessage(message); err != nil {
		log.Printf("Failed to send swap error notification: %v", err)
	}
}

// SendWithdrawalNotification notifies about a completed withdrawal
func (t *TelegramClient) SendWithdrawalNotification(asset, amount, recipient, txID string) {
	// Format the message with emojis
	message := fmt.Sprintf(
		"📤 <b>Withdrawal Sent!</b> 📤\n\n"+
			"🪙 <b>Asset:</b> %s\n"+
			"💰 <b>Amount:</b> %s\n"+
			"🎯 <b>Recipient:</b> <code>%s</code>\n"+
			"🕒 <b>Time:</b> %s\n"+
			"🔗 <b>Transaction:</b> <a href=\"https://solscan.io/tx/%s\">View on Solscan</a>",
		asset, amount, recipient,
		time.Now().Format("2006-01-02 15:04:05"),
		txID,
	)

	if err := t.SendMessage(message); err != nil {
		log.Printf("Failed to send withdrawal notification: %v", err)
	}
}

// SendWelcomeMessage sends an initial message with server information and settings
func (t *TelegramClient) SendWelcomeMessage(walletAddress, tokenSymbol string, pollInterval time.Duration) {
	// Format the welcome message with emojis and server information
	message := fmt.Sprintf(
		"👋 <b>Swap Server Started!</b> 👋\n\n"+
			"🤖 <b>About this server:</b>\n"+
			"This server quotes and executes swaps between SOL and %s, "+
			"tracks pair balances, and records every trade.\n\n"+
			"⚙️ <b>Current Settings:</b>\n"+
			"🔍 <b>Wallet:</b> %s\n"+
			"🪙 <b>Pair:</b> SOL/%s\n"+
			"⏱️ <b>Balance refresh:</b> %s\n\n"+
			"🔔 <b>Notifications:</b>\n"+
			"• Swap success and failure\n"+
			"• Withdrawals\n\n"+
			"🚀 <b>Server is now running!</b> You'll receive notifications automatically.",
		tokenSymbol,
		walletAddress,
		tokenSymbol,
		pollInterval.String(),
	)

	if err := t.SendMessage(message); err != nil {
		log.Printf("Failed to send welcome message: %v", err)
	}
}
