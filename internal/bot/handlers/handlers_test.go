package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/domain"
	"github.com/edgard/mentorbot/internal/profile"
)

type sentMessage struct {
	chatID string
	text   string
}

type fakeAPI struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeAPI) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func newTestBot(t *testing.T) (*tgbot.Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		api.mu.Lock()
		api.sent = append(api.sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)

	b, err := tgbot.New("123:abc", tgbot.WithSkipGetMe(), tgbot.WithServerURL(srv.URL))
	require.NoError(t, err)
	return b, api
}

type fakePublisher struct {
	mu      sync.Mutex
	userIDs []string
	records []domain.ConversationRecord
	err     error
}

func (f *fakePublisher) Publish(userID string, rec domain.ConversationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.userIDs = append(f.userIDs, userID)
	f.records = append(f.records, rec)
	return nil
}

type fakeProfiles struct {
	stores map[string]*profile.Store
	err    error
}

func (f *fakeProfiles) Reader(_ context.Context, userID string) (profile.Reader, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.stores[userID]
	if !ok {
		s = profile.New(userID)
	}
	return s, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.AllowedUserIDs = []int64{42}
	cfg.Telegram.Messages = config.DefaultTelegramMessages
	return cfg
}

func testDeps(pub RecordPublisher, prof ProfileSource) HandlerDeps {
	return HandlerDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:   testConfig(),
		Records:  pub,
		Profiles: prof,
	}
}

func textUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Date: 1714554000,
			Text: text,
			Chat: models.Chat{ID: userID},
			From: &models.User{ID: userID, Username: "ada"},
		},
	}
}

func TestIngressHandler(t *testing.T) {
	t.Parallel()

	t.Run("publishes authorized text", func(t *testing.T) {
		t.Parallel()
		b, api := newTestBot(t)
		pub := &fakePublisher{}
		NewIngressHandler(testDeps(pub, nil))(context.Background(), b, textUpdate(42, "I need to finish the report by tomorrow."))

		require.Len(t, pub.records, 1)
		assert.Equal(t, "42", pub.userIDs[0])
		assert.Equal(t, "tg-42-10", pub.records[0].ID)
		assert.Equal(t, []string{"ada"}, pub.records[0].Participants)
		assert.Equal(t, time.Unix(1714554000, 0).UTC(), pub.records[0].Timestamp)
		assert.Empty(t, api.messages())
	})

	t.Run("rejects unauthorized users", func(t *testing.T) {
		t.Parallel()
		b, api := newTestBot(t)
		pub := &fakePublisher{}
		NewIngressHandler(testDeps(pub, nil))(context.Background(), b, textUpdate(7, "hello"))

		assert.Empty(t, pub.records)
		msgs := api.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, config.DefaultTelegramMessages.NotAuthorized, msgs[0].text)
	})

	t.Run("ignores commands and blanks", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestBot(t)
		pub := &fakePublisher{}
		h := NewIngressHandler(testDeps(pub, nil))
		h(context.Background(), b, textUpdate(42, "/unknown"))
		h(context.Background(), b, textUpdate(42, "   "))
		h(context.Background(), b, &models.Update{ID: 2})
		assert.Empty(t, pub.records)
	})

	t.Run("reports publish failure", func(t *testing.T) {
		t.Parallel()
		b, api := newTestBot(t)
		pub := &fakePublisher{err: errors.New("closed")}
		NewIngressHandler(testDeps(pub, nil))(context.Background(), b, textUpdate(42, "hello there"))

		msgs := api.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, config.DefaultTelegramMessages.GeneralError, msgs[0].text)
	})
}

func TestRecordFromMessage_FallsBackToFullName(t *testing.T) {
	t.Parallel()

	rec := RecordFromMessage(&models.Message{
		ID:   3,
		Text: "hi",
		Chat: models.Chat{ID: -100},
		From: &models.User{ID: 5, FirstName: "Ada", LastName: "Lovelace"},
	})
	assert.Equal(t, "tg--100-3", rec.ID)
	assert.Equal(t, []string{"Ada Lovelace"}, rec.Participants)
}

func TestStartHandler(t *testing.T) {
	t.Parallel()

	b, api := newTestBot(t)
	NewStartHandler(testDeps(nil, nil))(context.Background(), b, textUpdate(42, "/start"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0].chatID)
	assert.Equal(t, config.DefaultTelegramMessages.Welcome, msgs[0].text)
}

func TestProfileAndPendingHandlers(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	store := profile.New("42", profile.WithClock(clock))
	store.UpdateProfile(domain.ConversationRecord{ID: "r1", Text: "I need to finish the report by tomorrow. It was a great meeting."})
	profiles := &fakeProfiles{stores: map[string]*profile.Store{"42": store}}

	b, api := newTestBot(t)
	deps := testDeps(nil, profiles)

	NewProfileHandler(deps)(context.Background(), b, textUpdate(42, "/profile"))
	NewPendingHandler(deps)(context.Background(), b, textUpdate(42, "/pending"))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "Conversations: 1")
	assert.Contains(t, msgs[0].text, "Action items: 1")
	assert.Contains(t, msgs[0].text, "work (1)")
	assert.Contains(t, msgs[1].text, "Pending notifications (1):")
	assert.Contains(t, msgs[1].text, "[high] Action Item")
}

func TestPendingHandler_Empty(t *testing.T) {
	t.Parallel()

	b, api := newTestBot(t)
	NewPendingHandler(testDeps(nil, &fakeProfiles{}))(context.Background(), b, textUpdate(42, "/pending"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, config.DefaultTelegramMessages.NoPending, msgs[0].text)
}

func TestProfileHandler_Error(t *testing.T) {
	t.Parallel()

	b, api := newTestBot(t)
	NewProfileHandler(testDeps(nil, &fakeProfiles{err: domain.ErrSessionClosed}))(context.Background(), b, textUpdate(42, "/profile"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, config.DefaultTelegramMessages.GeneralError, msgs[0].text)
}

func TestAuthorizedMiddleware(t *testing.T) {
	t.Parallel()

	b, api := newTestBot(t)
	var called int
	h := Authorized(testDeps(nil, nil))(func(context.Context, *tgbot.Bot, *models.Update) { called++ })

	h(context.Background(), b, textUpdate(42, "/profile"))
	h(context.Background(), b, textUpdate(7, "/profile"))

	assert.Equal(t, 1, called)
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "7", msgs[0].chatID)
}

func TestFormatProfile_Empty(t *testing.T) {
	t.Parallel()

	got := FormatProfile(domain.MentorProfile{Style: domain.StyleDefault})
	assert.Contains(t, got, "Mood: no data yet")
	assert.Contains(t, got, "Top topics: none yet")
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	cmds := RegisterAllCommands(testDeps(nil, nil))
	assert.Len(t, cmds, 3)
	assert.Empty(t, cmds["/start"].Middleware)
	assert.Len(t, cmds["/profile"].Middleware, 1)
	assert.Len(t, cmds["/pending"].Middleware, 1)
}
