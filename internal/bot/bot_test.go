package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tarolog/internal/storage/stubs"
	"tarolog/internal/tarot"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// fakeAPI records everything the bot sends instead of calling Telegram
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) GetWebhookInfo() (tgbotapi.WebhookInfo, error) {
	return tgbotapi.WebhookInfo{URL: "https://example.com/hook"}, nil
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// failingLedger returns an error from every operation
type failingLedger struct {
	*stubs.MockDB
}

var errLedgerDown = errors.New("ledger unavailable")

func (failingLedger) EnsureAccount(ctx context.Context, userID int64, username string) error {
	return errLedgerDown
}

func (failingLedger) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return decimal.Zero, errLedgerDown
}

// closableLedger counts operations that arrive after it was closed
type closableLedger struct {
	*stubs.MockDB
	closed atomic.Bool
	late   atomic.Int32
}

func (l *closableLedger) EnsureAccount(ctx context.Context, userID int64, username string) error {
	if l.closed.Load() {
		l.late.Add(1)
	}
	return l.MockDB.EnsureAccount(ctx, userID, username)
}

func (l *closableLedger) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	if l.closed.Load() {
		l.late.Add(1)
	}
	return l.MockDB.GetBalance(ctx, userID)
}

func (l *closableLedger) Close() error {
	l.closed.Store(true)
	return nil
}

func newTestBot(t *testing.T, allowed ...int64) (*Bot, *fakeAPI, *stubs.MockDB) {
	t.Helper()

	api := &fakeAPI{}
	db := stubs.NewMockDB(nil)
	drawer := tarot.NewDrawer(tarot.DefaultDeck(), rand.NewPCG(7, 7))
	return newBot(api, db, drawer, allowed, zap.NewNop()), api, db
}

func commandMessage(userID int64, user, text string) *tgbotapi.Message {
	command := strings.Fields(text)[0]
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: user},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(command)},
		},
	}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func TestBot_StartCreatesAccountAndShowsMenu(t *testing.T) {
	bot, api, db := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, commandMessage(42, "alice", "/start"))

	account, ok := db.GetAccount(42)
	require.True(t, ok, "expected account to be created")
	assert.Equal(t, "alice", account.Username)
	assert.True(t, account.Balance.IsZero())

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, welcomeText, msgs[0].Text)

	keyboard, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok, "expected a reply keyboard")
	require.Len(t, keyboard.Keyboard, 2)
	assert.Len(t, keyboard.Keyboard[0], 2)
	assert.Len(t, keyboard.Keyboard[1], 2)
	assert.Equal(t, buttonSpread, keyboard.Keyboard[0][0].Text)
	assert.Equal(t, buttonHelp, keyboard.Keyboard[1][1].Text)
	assert.True(t, keyboard.ResizeKeyboard)
	assert.True(t, keyboard.OneTimeKeyboard)
}

func TestBot_StartDoesNotOverwriteAccount(t *testing.T) {
	bot, _, db := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, commandMessage(42, "alice", "/start"))
	require.NoError(t, db.AdjustBalance(ctx, 42, decimal.NewFromInt(150)))
	bot.handleMessage(ctx, commandMessage(42, "bob", "/start"))

	account, _ := db.GetAccount(42)
	assert.Equal(t, "alice", account.Username)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(150)))
}

func TestBot_Spread(t *testing.T) {
	testCases := []struct {
		name    string
		message *tgbotapi.Message
	}{
		{name: "command", message: commandMessage(42, "alice", "/spread")},
		{name: "menu button", message: textMessage(42, buttonSpread)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bot, api, _ := newTestBot(t)
			bot.handleMessage(context.Background(), tc.message)

			msgs := api.messages()
			require.Len(t, msgs, 1)

			lines := strings.Split(msgs[0].Text, "\n")
			require.Len(t, lines, SpreadSize+1)
			assert.Equal(t, "Your spread:", lines[0])
			for _, line := range lines[1:] {
				assert.True(t, strings.HasPrefix(line, "- "), "unexpected line %q", line)
				assert.True(t, strings.Contains(line, "(Upright): ") || strings.Contains(line, "(Reversed): "),
					"missing orientation in %q", line)
			}
		})
	}
}

func TestBot_SpreadDeckTooSmall(t *testing.T) {
	api := &fakeAPI{}
	drawer := tarot.NewDrawer(tarot.DefaultDeck()[:2], nil)
	bot := newBot(api, stubs.NewMockDB(nil), drawer, nil, zap.NewNop())

	bot.handleMessage(context.Background(), commandMessage(42, "alice", "/spread"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Not enough cards in the deck. Available: 2.", msgs[0].Text)
}

func TestBot_Account(t *testing.T) {
	bot, api, db := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, db.EnsureAccount(ctx, 42, "alice"))
	require.NoError(t, db.AdjustBalance(ctx, 42, decimal.NewFromFloat(150.5)))

	bot.handleMessage(ctx, textMessage(42, buttonAccount))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Your balance: 150.50 rubles\n\nWhat would you like to do?", msgs[0].Text)

	keyboard, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "expected an inline keyboard")
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	assert.Equal(t, "Top up", keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, callbackReplenish, *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "Edit data", keyboard.InlineKeyboard[0][1].Text)
	assert.Equal(t, callbackEditData, *keyboard.InlineKeyboard[0][1].CallbackData)
}

func TestBot_AccountUnknownUserDoesNotCreate(t *testing.T) {
	bot, api, db := newTestBot(t)

	bot.handleMessage(context.Background(), commandMessage(999, "carl", "/account"))

	_, ok := db.GetAccount(999)
	assert.False(t, ok)

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Your balance: 0.00 rubles"))
}

func TestBot_StaticTexts(t *testing.T) {
	testCases := []struct {
		name     string
		message  *tgbotapi.Message
		expected string
	}{
		{name: "about button", message: textMessage(1, buttonAbout), expected: aboutText},
		{name: "help button", message: textMessage(1, buttonHelp), expected: helpText},
		{name: "help command", message: commandMessage(1, "", "/help"), expected: helpText},
		{name: "menu button", message: textMessage(1, buttonMenu), expected: welcomeText},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bot, api, _ := newTestBot(t)
			bot.handleMessage(context.Background(), tc.message)

			msgs := api.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, tc.expected, msgs[0].Text)
		})
	}
}

func TestBot_IgnoresUnknownInput(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, textMessage(1, "hello there"))
	bot.handleMessage(ctx, commandMessage(1, "", "/unknown"))

	assert.Empty(t, api.messages())
}

func TestBot_LedgerFailure(t *testing.T) {
	api := &fakeAPI{}
	ledger := failingLedger{MockDB: stubs.NewMockDB(nil)}
	core, logs := observer.New(zap.ErrorLevel)
	bot := newBot(api, ledger, tarot.NewDrawer(tarot.DefaultDeck(), nil), nil, zap.New(core))
	ctx := context.Background()

	bot.handleMessage(ctx, commandMessage(42, "alice", "/start"))
	bot.handleMessage(ctx, commandMessage(42, "alice", "/account"))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, failureText, msgs[0].Text)
	assert.Equal(t, failureText, msgs[1].Text)
	assert.Equal(t, 1, logs.FilterMessage("Failed to ensure account").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to get balance").Len())
}

func TestBot_PanicRecovery(t *testing.T) {
	api := &fakeAPI{}
	bot := newBot(api, stubs.NewMockDB(nil), nil, nil, zap.NewNop()) // nil drawer panics on spread

	assert.NotPanics(t, func() {
		bot.handleMessage(context.Background(), commandMessage(42, "alice", "/spread"))
	})

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "An error occurred")
}

func TestBot_Unauthorized(t *testing.T) {
	bot, api, db := newTestBot(t, 100)

	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(42, "alice", "/start")})

	_, ok := db.GetAccount(42)
	assert.False(t, ok)

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Sorry, you are not authorized to use this bot.", msgs[0].Text)
}

func TestBot_CallbackQueryIsAcknowledged(t *testing.T) {
	bot, api, db := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureAccount(ctx, 42, "alice"))

	bot.HandleUpdate(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 42},
		Data: callbackReplenish,
	}})

	require.Len(t, api.requests, 1)
	callback, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", callback.CallbackQueryID)
	assert.Empty(t, api.messages())

	balance, err := db.GetBalance(ctx, 42)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestBot_SendFailureIsLogged(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("network down")}
	core, logs := observer.New(zap.ErrorLevel)
	bot := newBot(api, stubs.NewMockDB(nil), tarot.NewDrawer(tarot.DefaultDeck(), nil), nil, zap.New(core))

	bot.handleMessage(context.Background(), textMessage(1, buttonHelp))

	assert.Equal(t, 1, logs.FilterMessage("Failed to send message").Len())
}

func TestBot_DispatchHandlesConcurrently(t *testing.T) {
	bot, api, db := newTestBot(t)

	for i := int64(1); i <= 20; i++ {
		bot.Dispatch(tgbotapi.Update{Message: commandMessage(i, "user", "/start")})
	}
	bot.Wait()

	assert.Len(t, api.messages(), 20)
	for i := int64(1); i <= 20; i++ {
		_, ok := db.GetAccount(i)
		assert.True(t, ok, "account %d missing", i)
	}
}

func TestBot_StartPollingStopsOnCancel(t *testing.T) {
	bot, api, db := newTestBot(t)
	api.updates = make(chan tgbotapi.Update, 1)
	api.updates <- tgbotapi.Update{Message: commandMessage(42, "alice", "/start")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Start(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := db.GetAccount(42)
		return ok
	}, timeout, tick)

	cancel()
	require.NoError(t, <-done)
	bot.Wait()
	assert.True(t, api.stopped)
}

func TestBot_StartIgnoresQueuedUpdatesAfterCancel(t *testing.T) {
	bot, api, db := newTestBot(t)
	api.updates = make(chan tgbotapi.Update, 100)
	for i := int64(1); i <= 100; i++ {
		api.updates <- tgbotapi.Update{Message: commandMessage(i, "user", "/start")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, bot.Start(ctx))
	bot.Wait()

	for i := int64(1); i <= 100; i++ {
		_, ok := db.GetAccount(i)
		assert.False(t, ok, "account %d created after cancel", i)
	}
	assert.True(t, api.stopped)
}

func TestBot_NoLedgerCallsAfterShutdown(t *testing.T) {
	for round := 0; round < 50; round++ {
		api := &fakeAPI{updates: make(chan tgbotapi.Update, 100)}
		ledger := &closableLedger{MockDB: stubs.NewMockDB(nil)}
		drawer := tarot.NewDrawer(tarot.DefaultDeck(), rand.NewPCG(7, 7))
		bot := newBot(api, ledger, drawer, nil, zap.NewNop())

		for i := int64(1); i <= 100; i++ {
			api.updates <- tgbotapi.Update{Message: commandMessage(i, "user", "/start")}
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = bot.Start(ctx)
		}()

		require.Eventually(t, func() bool {
			_, ok := ledger.GetAccount(1)
			return ok
		}, timeout, tick)

		// Same order as the application shutdown
		cancel()
		<-done
		bot.Wait()
		require.NoError(t, ledger.Close())

		time.Sleep(time.Millisecond)
		require.Zero(t, ledger.late.Load(), "round %d", round)
	}
}

func TestBot_StartWebhook(t *testing.T) {
	bot, api, _ := newTestBot(t)

	require.NoError(t, bot.StartWebhook("https://example.com/hook"))

	require.Len(t, api.requests, 2)
	webhook, ok := api.requests[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/hook", webhook.URL.String())
	_, ok = api.requests[1].(tgbotapi.SetMyCommandsConfig)
	assert.True(t, ok)
}

func TestHTTPServer_Routes(t *testing.T) {
	bot, api, _ := newTestBot(t)
	router := NewHTTPServer(bot, "/secret").Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secret", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":5,"is_bot":false,"first_name":"A"},` +
		`"chat":{"id":5,"type":"private"},"date":0,"text":"❓ Help"}}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/secret", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	bot.Wait()
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, helpText, msgs[0].Text)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
