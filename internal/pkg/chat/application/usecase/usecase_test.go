package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "jobboard/internal/pkg/chat/application/domain"
	"jobboard/internal/pkg/chat/chattest"
	identity "jobboard/internal/pkg/identity/application/domain"
)

type fixture struct {
	repo     *chattest.MemoryRepository
	dir      *chattest.StaticDirectory
	notifier *chattest.RecordingNotifier
	start    *StartChatUseCase
	append   *AppendMessageUseCase
	history  *GetChatHistoryUseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo: chattest.NewMemoryRepository(),
		dir: chattest.NewStaticDirectory(map[string]identity.Role{
			"H":  identity.RoleOwner,
			"HR": identity.RoleHR,
		}),
		notifier: &chattest.RecordingNotifier{},
	}
	tick := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	f.start = NewStartChatUseCase(f.dir, f.repo, f.notifier)
	f.start.Now = now
	f.append = NewAppendMessageUseCase(f.repo, f.notifier)
	f.append.Now = now
	f.history = NewGetChatHistoryUseCase(f.repo)
	return f
}

func bodies(c *chat.Conversation) []string {
	out := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, m.SenderID+":"+m.Body)
	}
	return out
}

func TestStartChat_OwnerToApplicantCreatesConversation(t *testing.T) {
	f := newFixture()

	got, err := f.start.Execute(context.Background(), StartChatInput{SenderID: "H", ReceiverID: "U", Message: "Hi, are you available?"})
	require.NoError(t, err)

	assert.Equal(t, "H", got.Conversation.SenderID)
	assert.Equal(t, "U", got.Conversation.ReceiverID)
	assert.Equal(t, []string{"H:Hi, are you available?"}, bodies(got.Conversation))
	assert.False(t, got.Message.CreatedAt.IsZero())

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, got.Conversation.ID, calls[0].Event.ConversationID)
	assert.Equal(t, got.Message, calls[0].Event.Message)
	assert.ElementsMatch(t, []string{"H", "U"}, calls[0].Recipients)
}

func TestStartChat_HRMayStartChat(t *testing.T) {
	f := newFixture()
	_, err := f.start.Execute(context.Background(), StartChatInput{SenderID: "HR", ReceiverID: "U", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.Creates)
}

func TestStartChat_Unauthorized(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		receiver string
	}{
		{name: "regular sender", sender: "U", receiver: "V"},
		{name: "receiver is owner", sender: "HR", receiver: "H"},
		{name: "receiver is HR", sender: "H", receiver: "HR"},
		{name: "self chat", sender: "H", receiver: "H"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.start.Execute(context.Background(), StartChatInput{SenderID: tt.sender, ReceiverID: tt.receiver, Message: "hi"})
			assert.ErrorIs(t, err, chat.ErrUnauthorized)
			assert.Empty(t, f.repo.Conversations())
			assert.Empty(t, f.notifier.Calls())
		})
	}
}

func TestStartChat_SequentialCallsShareOneConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "one"})
	require.NoError(t, err)
	second, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "two"})
	require.NoError(t, err)

	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	convs := f.repo.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, []string{"H:one", "H:two"}, bodies(convs[0]))
	assert.Equal(t, 1, f.repo.Creates)
	assert.Equal(t, 1, f.repo.Appends)
	assert.Len(t, f.notifier.Calls(), 2)
}

func TestStartChat_LostCreateRaceRetriesAsAppend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.repo.BeforeCreate = func() {
		_, err := f.repo.CreateConversation(ctx, "H", "U", chat.Message{SenderID: "H", Body: "winner", CreatedAt: time.Now()})
		require.NoError(t, err)
	}

	got, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "loser"})
	require.NoError(t, err)

	convs := f.repo.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, convs[0].ID, got.Conversation.ID)
	assert.Equal(t, []string{"H:winner", "H:loser"}, bodies(convs[0]))
	assert.Len(t, f.notifier.Calls(), 1)
}

func TestStartChat_ConcurrentFirstContact(t *testing.T) {
	f := newFixture()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.start.Execute(context.Background(), StartChatInput{SenderID: "H", ReceiverID: "U", Message: fmt.Sprintf("m%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	convs := f.repo.Conversations()
	require.Len(t, convs, 1)
	assert.Len(t, convs[0].Messages, n)
	assert.Len(t, f.notifier.Calls(), n)
}

func TestStartChat_PersistenceFailureSendsNoNotification(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{name: "find", setup: func(f *fixture) { f.repo.FailFind = errors.New("down") }},
		{name: "create", setup: func(f *fixture) { f.repo.FailCreate = errors.New("down") }},
		{name: "directory", setup: func(f *fixture) { f.dir.Err = errors.New("down") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			_, err := f.start.Execute(context.Background(), StartChatInput{SenderID: "H", ReceiverID: "U", Message: "hi"})
			assert.ErrorIs(t, err, ErrPersistence)
			assert.Empty(t, f.notifier.Calls())
		})
	}
}

func TestStartChat_AppendFailureSendsNoNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "one"})
	require.NoError(t, err)

	f.repo.FailAppend = errors.New("write conflict")
	_, err = f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "two"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, f.notifier.Calls(), 1)
}

func TestStartChat_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		in      StartChatInput
		wantErr error
	}{
		{name: "no sender", in: StartChatInput{ReceiverID: "U", Message: "hi"}, wantErr: chat.ErrMissingIdentity},
		{name: "no receiver", in: StartChatInput{SenderID: "H", Message: "hi"}, wantErr: chat.ErrMissingIdentity},
		{name: "blank message", in: StartChatInput{SenderID: "H", ReceiverID: "U", Message: "   "}, wantErr: chat.ErrEmptyMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.start.Execute(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.dir.Calls)
		})
	}
}

func TestStartChat_RoleChangeTakesEffectImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.start.Execute(ctx, StartChatInput{SenderID: "P", ReceiverID: "U", Message: "hi"})
	require.ErrorIs(t, err, chat.ErrUnauthorized)

	f.dir.Set("P", identity.RoleHR)
	_, err = f.start.Execute(ctx, StartChatInput{SenderID: "P", ReceiverID: "U", Message: "hi"})
	require.NoError(t, err)
}

func TestAppendMessage_ReplyNotifiesStoredParticipants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	started, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "Hi, are you available?"})
	require.NoError(t, err)

	reply, err := f.append.Execute(ctx, AppendMessageInput{ConversationID: started.Conversation.ID, SenderID: "U", Message: "Yes!"})
	require.NoError(t, err)
	assert.Equal(t, []string{"H:Hi, are you available?", "U:Yes!"}, bodies(reply.Conversation))
	assert.True(t, reply.Conversation.Messages[1].CreatedAt.After(reply.Conversation.Messages[0].CreatedAt))

	calls := f.notifier.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"H", "U"}, calls[1].Recipients)
	assert.Equal(t, "U", calls[1].Event.Message.SenderID)
	assert.Equal(t, "Yes!", calls[1].Event.Message.Body)
}

func TestAppendMessage_SkipsAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	started, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "hi"})
	require.NoError(t, err)
	callsBefore := f.dir.Calls

	// Demotion after the conversation exists does not block replies.
	f.dir.Set("H", identity.RoleRegular)
	_, err = f.append.Execute(ctx, AppendMessageInput{ConversationID: started.Conversation.ID, SenderID: "H", Message: "still here"})
	require.NoError(t, err)
	assert.Equal(t, callsBefore, f.dir.Calls)
}

func TestAppendMessage_NotFound(t *testing.T) {
	for _, id := range []string{"missing", "", "  "} {
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			f := newFixture()
			_, err := f.append.Execute(context.Background(), AppendMessageInput{ConversationID: id, SenderID: "U", Message: "hi"})
			assert.ErrorIs(t, err, chat.ErrConversationNotFound)
			assert.Empty(t, f.notifier.Calls())
			assert.Zero(t, f.repo.Appends)
		})
	}
}

func TestAppendMessage_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	started, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "hi"})
	require.NoError(t, err)

	_, err = f.append.Execute(ctx, AppendMessageInput{ConversationID: started.Conversation.ID, SenderID: "U", Message: " "})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	f.repo.FailAppend = errors.New("down")
	_, err = f.append.Execute(ctx, AppendMessageInput{ConversationID: started.Conversation.ID, SenderID: "U", Message: "x"})
	assert.ErrorIs(t, err, ErrPersistence)

	f.repo.FailFind = errors.New("down")
	_, err = f.append.Execute(ctx, AppendMessageInput{ConversationID: started.Conversation.ID, SenderID: "U", Message: "x"})
	assert.ErrorIs(t, err, ErrPersistence)

	assert.Len(t, f.notifier.Calls(), 1)
}

func TestAppendMessage_ValidateDoesNotWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	started, err := f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "hi"})
	require.NoError(t, err)
	id := started.Conversation.ID

	assert.NoError(t, f.append.Validate(ctx, AppendMessageInput{ConversationID: id, SenderID: "U", Message: "Yes!"}))
	assert.ErrorIs(t, f.append.Validate(ctx, AppendMessageInput{ConversationID: id, SenderID: "U", Message: "  "}), chat.ErrEmptyMessage)
	assert.ErrorIs(t, f.append.Validate(ctx, AppendMessageInput{ConversationID: "missing", SenderID: "U", Message: "Yes!"}), chat.ErrConversationNotFound)

	f.repo.FailFind = errors.New("down")
	assert.ErrorIs(t, f.append.Validate(ctx, AppendMessageInput{ConversationID: id, SenderID: "U", Message: "Yes!"}), ErrPersistence)

	assert.Zero(t, f.repo.Appends)
	assert.Len(t, f.notifier.Calls(), 1)
}

func TestGetChatHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	conv, err := f.history.Execute(ctx, GetChatHistoryInput{UserID: "U", PeerID: "H"})
	require.NoError(t, err)
	assert.Nil(t, conv)

	_, err = f.start.Execute(ctx, StartChatInput{SenderID: "H", ReceiverID: "U", Message: "hi"})
	require.NoError(t, err)

	// Either ordering finds the same conversation.
	fromU, err := f.history.Execute(ctx, GetChatHistoryInput{UserID: "U", PeerID: "H"})
	require.NoError(t, err)
	fromH, err := f.history.Execute(ctx, GetChatHistoryInput{UserID: "H", PeerID: "U"})
	require.NoError(t, err)
	require.NotNil(t, fromU)
	assert.Equal(t, fromU.ID, fromH.ID)

	_, err = f.history.Execute(ctx, GetChatHistoryInput{UserID: "U"})
	assert.ErrorIs(t, err, chat.ErrMissingIdentity)

	f.repo.FailFind = errors.New("down")
	_, err = f.history.Execute(ctx, GetChatHistoryInput{UserID: "U", PeerID: "H"})
	assert.ErrorIs(t, err, ErrPersistence)
}
