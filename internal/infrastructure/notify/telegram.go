package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/token_swap_level/internal/domain"
	"github.com/vitos/token_swap_level/internal/usecase"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram delivers status lines to a single chat and serves a small
// command set over long polling. Delivery is best effort: Send never
// blocks the caller and failures are only logged.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	logger  *zap.Logger

	bot     *usecase.CycleController
	tokens  *usecase.TokenService
	backend domain.SwapBackend
}

func NewTelegram(token, chatID string, bot *usecase.CycleController, tokens *usecase.TokenService, backend domain.SwapBackend, logger *zap.Logger) *Telegram {
	return &Telegram{
		baseURL: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 40 * time.Second},
		logger:  logger,
		bot:     bot,
		tokens:  tokens,
		backend: backend,
	}
}

// Send posts one message to the configured chat without blocking.
func (t *Telegram) Send(text string) {
	go func() {
		if err := t.sendMessage(text); err != nil {
			t.logger.Warn("telegram send failed", zap.Error(err))
		}
	}()
}

func (t *Telegram) sendMessage(text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Listen long-polls for chat commands until ctx is cancelled. Messages
// from chats other than the configured one are ignored.
func (t *Telegram) Listen(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := t.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("telegram poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if strconv.FormatInt(u.Message.Chat.ID, 10) != t.chatID {
				continue
			}
			if reply := t.handleCommand(ctx, u.Message.Text); reply != "" {
				if err := t.sendMessage(reply); err != nil {
					t.logger.Warn("telegram reply failed", zap.Error(err))
				}
			}
		}
	}
}

func (t *Telegram) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=30&offset=%d", t.baseURL, t.token, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if !payload.OK {
		return nil, fmt.Errorf("telegram getUpdates returned ok=false")
	}
	return payload.Result, nil
}

func (t *Telegram) handleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	// Commands may arrive as /status@MyBot in group chats.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/status":
		if t.bot.Running() {
			return "bot is RUNNING"
		}
		return "bot is IDLE"

	case "/start":
		if err := t.bot.Start(); err != nil {
			return fmt.Sprintf("start failed: %v", err)
		}
		return "bot started"

	case "/stop":
		if err := t.bot.Stop(); err != nil {
			return fmt.Sprintf("stop failed: %v", err)
		}
		return "bot stopped"

	case "/toggle":
		if len(fields) < 2 {
			return "usage: /toggle <ticker>"
		}
		tok, err := t.tokens.ToggleToken(ctx, fields[1])
		if err != nil {
			return fmt.Sprintf("toggle failed: %v", err)
		}
		state := "inactive"
		if tok.IsActive {
			state = "active"
		}
		return fmt.Sprintf("%s is now %s", tok.Ticker, state)

	case "/active":
		tokens, err := t.tokens.ActiveTokens(ctx)
		if err != nil {
			return fmt.Sprintf("failed to list tokens: %v", err)
		}
		return formatTokenList("active tokens", tokens)

	case "/list":
		tokens, err := t.tokens.AllTokens(ctx)
		if err != nil {
			return fmt.Sprintf("failed to list tokens: %v", err)
		}
		return formatTokenList("tracked tokens", tokens)

	case "/balance":
		bal, err := t.backend.AccountBalance(ctx)
		if err != nil {
			return fmt.Sprintf("balance check failed: %v", err)
		}
		return fmt.Sprintf("%s: %s RON", t.backend.AccountAddress(), bal)

	case "/help":
		return "/status /start /stop /toggle <ticker> /active /list /balance"
	}
	return ""
}

func formatTokenList(title string, tokens []*domain.Token) string {
	if len(tokens) == 0 {
		return title + ": none"
	}
	var b strings.Builder
	b.WriteString(title + ":")
	for _, t := range tokens {
		fmt.Fprintf(&b, "\n%s [%s] buy=%s sell=%s", t.Ticker, t.AlgoType, trigger(t.NextBuy), trigger(t.NextSell))
		if !t.IsActive {
			b.WriteString(" (inactive)")
		}
	}
	return b.String()
}

func trigger(v *float64) string {
	if v == nil {
		return "unset"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
