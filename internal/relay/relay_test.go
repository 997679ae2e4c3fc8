package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/codex-relay/internal/cursor"
	"github.com/HendryAvila/codex-relay/internal/framing"
	"github.com/HendryAvila/codex-relay/internal/proc"
	"github.com/HendryAvila/codex-relay/internal/session"
)

type runCall struct {
	exe  string
	args []string
}

// fakeRunner answers every run with reply(runID-aware prompt).
type fakeRunner struct {
	calls []runCall
	reply func(prompt string) string
	err   error
}

func (f *fakeRunner) RunStreamed(_ context.Context, exe string, args []string, onChunk func(string)) (proc.Output, error) {
	f.calls = append(f.calls, runCall{exe: exe, args: args})
	if f.err != nil {
		return proc.Output{}, f.err
	}
	out := ""
	if f.reply != nil {
		out = f.reply(args[len(args)-1])
	}
	if onChunk != nil && out != "" {
		onChunk(out)
	}
	return proc.Output{Stdout: out}, nil
}

func (f *fakeRunner) lastPrompt(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.calls)
	args := f.calls[len(f.calls)-1].args
	return args[len(args)-1]
}

type recordingObserver struct {
	runs  []string
	pages []string
}

func (o *recordingObserver) CodexRun(status string)  { o.runs = append(o.runs, status) }
func (o *recordingObserver) PageServed(kind string) { o.pages = append(o.pages, kind) }

const testRunID = "01testrun"

// answerWith echoes the framed prompt (as codex sometimes does) and then
// writes the answer after the sentinel.
func answerWith(answer string) func(string) string {
	return func(prompt string) string {
		return prompt + "\n" + answer + "\n"
	}
}

type fixture struct {
	svc      *Service
	runner   *fakeRunner
	sessions *session.MemoryStore
	pages    *cursor.Store
	observer *recordingObserver
}

func newFixture(t *testing.T, reply func(string) string) *fixture {
	t.Helper()
	f := &fixture{
		runner:   &fakeRunner{reply: reply},
		sessions: session.NewMemoryStore(),
		pages:    cursor.NewStore(),
		observer: &recordingObserver{},
	}
	svc, err := NewService(Config{}, f.sessions, f.pages, f.runner,
		WithRunIDSource(func() string { return testRunID }),
		WithObserver(f.observer),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Config{}, nil, cursor.NewStore(), &fakeRunner{})
	require.Error(t, err)
	_, err = NewService(Config{}, session.NewMemoryStore(), nil, &fakeRunner{})
	require.Error(t, err)
	_, err = NewService(Config{}, session.NewMemoryStore(), cursor.NewStore(), nil)
	require.Error(t, err)
}

func TestRun_SinglePage(t *testing.T) {
	f := newFixture(t, answerWith("hello"))

	res, err := f.svc.Run(context.Background(), Request{Prompt: "Say hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Empty(t, res.NextPageToken)
	assert.False(t, res.NotFound)
	assert.Equal(t, []string{"ok"}, f.observer.runs)
	assert.Equal(t, []string{"first"}, f.observer.pages)
}

func TestRun_InvokesCodexWithFramedPrompt(t *testing.T) {
	f := newFixture(t, answerWith("ok"))

	_, err := f.svc.Run(context.Background(), Request{
		Prompt:  "  trimmed  ",
		Options: InvocationOptions{Model: "o4-mini high", Sandbox: true},
	})
	require.NoError(t, err)

	call := f.runner.calls[0]
	assert.Equal(t, proc.Executable("codex"), call.exe)
	assert.Equal(t, []string{"exec", "-m", "o4-mini", "-c", "model_reasoning_effort=high", "--sandbox"}, call.args[:len(call.args)-1])
	assert.Equal(t, framing.Frame(testRunID, nil, "trimmed"), f.runner.lastPrompt(t))
}

func TestRun_EmptyOutputUsesPlaceholder(t *testing.T) {
	f := newFixture(t, func(string) string { return "" })

	res, err := f.svc.Run(context.Background(), Request{Prompt: "anything"})
	require.NoError(t, err)
	assert.Equal(t, NoOutputText, res.Text)
	assert.Empty(t, res.NextPageToken)
}

func TestRun_PaginatesLargeAnswer(t *testing.T) {
	answer := strings.Repeat("x", 50000)
	f := newFixture(t, answerWith(answer))

	res, err := f.svc.Run(context.Background(), Request{Prompt: "big", PageSize: 1000})
	require.NoError(t, err)
	require.NotEmpty(t, res.NextPageToken)
	require.Len(t, res.Text, 1000)

	var sb strings.Builder
	sb.WriteString(res.Text)
	pages := 1
	token := res.NextPageToken
	for token != "" {
		next, err := f.svc.Run(context.Background(), Request{PageToken: token, PageSize: 1000})
		require.NoError(t, err)
		require.False(t, next.NotFound)
		require.True(t, next.Continuation)
		if next.NextPageToken != "" {
			assert.Equal(t, token, next.NextPageToken, "continuation reuses the token")
		}
		sb.WriteString(next.Text)
		token = next.NextPageToken
		pages++
	}

	assert.Equal(t, 50, pages)
	assert.Equal(t, answer, sb.String())
	assert.Zero(t, f.pages.Len(), "entry removed after the last page")
	assert.Len(t, f.runner.calls, 1, "continuations never rerun codex")
}

func TestRun_PageSizeIsClamped(t *testing.T) {
	f := newFixture(t, answerWith(strings.Repeat("y", 1500)))

	res, err := f.svc.Run(context.Background(), Request{Prompt: "p", PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Text, MinPageSize)
	assert.NotEmpty(t, res.NextPageToken)
}

func TestRun_PageTokenTakesPrecedence(t *testing.T) {
	f := newFixture(t, answerWith("unused"))
	token := f.pages.Save("stored page")

	res, err := f.svc.Run(context.Background(), Request{Prompt: "ignored", PageToken: token})
	require.NoError(t, err)
	assert.Equal(t, "stored page", res.Text)
	assert.Empty(t, res.NextPageToken)
	assert.Empty(t, f.runner.calls)
}

func TestRun_UnknownPageToken(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Run(context.Background(), Request{PageToken: "pg_missing"})
	require.NoError(t, err)
	assert.True(t, res.NotFound)
	assert.Equal(t, NotFoundText, res.Text)
}

func TestRun_ExpiredPageToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	pages := cursor.NewStore(cursor.WithTTL(time.Minute), cursor.WithClock(clock))
	runner := &fakeRunner{reply: answerWith(strings.Repeat("z", 3000))}
	svc, err := NewService(Config{DefaultPageSize: 1000}, session.NewMemoryStore(), pages, runner,
		WithRunIDSource(func() string { return testRunID }))
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	require.NotEmpty(t, res.NextPageToken)

	now = now.Add(2 * time.Minute)
	next, err := svc.Run(context.Background(), Request{PageToken: res.NextPageToken})
	require.NoError(t, err)
	assert.True(t, next.NotFound)
	assert.Contains(t, next.Text, "No data found for pageToken")
}

func TestRun_MissingPrompt(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Run(context.Background(), Request{Prompt: "   "})
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindValidation, rerr.Kind)
	assert.Contains(t, err.Error(), "invalid arguments for codex")
	assert.Empty(t, f.runner.calls)
}

func TestRun_RunnerFailure(t *testing.T) {
	cause := errors.New("spawn failed")
	f := newFixture(t, nil)
	f.runner.err = cause

	_, err := f.svc.Run(context.Background(), Request{Prompt: "p", SessionID: "s1"})
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindExecution, rerr.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"error"}, f.observer.runs)

	turns, err := f.sessions.Transcript("s1")
	require.NoError(t, err)
	assert.Empty(t, turns, "failed runs record nothing")
}

func TestRun_SessionStitchesHistory(t *testing.T) {
	f := newFixture(t, answerWith("first answer"))
	ctx := context.Background()

	_, err := f.svc.Run(ctx, Request{Prompt: "first question", SessionID: "s1"})
	require.NoError(t, err)
	assert.NotContains(t, f.runner.lastPrompt(t), framing.Start(framing.TagContext, testRunID))

	f.runner.reply = answerWith("second answer")
	res, err := f.svc.Run(ctx, Request{Prompt: "second question", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "second answer", res.Text)

	stitched := "User: first question\nAssistant: first answer"
	assert.Equal(t, framing.Frame(testRunID, &stitched, "second question"), f.runner.lastPrompt(t))

	turns, err := f.sessions.Transcript("s1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, session.RoleUser, turns[2].Role)
	assert.Equal(t, "second question", turns[2].Text)
	assert.Equal(t, "second answer", turns[3].Text)
}

func TestRun_SessionRecordsFullAnswerWhenPaginated(t *testing.T) {
	answer := strings.Repeat("a", 2500)
	f := newFixture(t, answerWith(answer))

	res, err := f.svc.Run(context.Background(), Request{Prompt: "p", SessionID: "s1", PageSize: 1000})
	require.NoError(t, err)
	require.NotEmpty(t, res.NextPageToken)

	turns, err := f.sessions.Transcript("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, answer, turns[1].Text)
}

func TestRun_ResetSession(t *testing.T) {
	f := newFixture(t, answerWith("old"))
	ctx := context.Background()

	_, err := f.svc.Run(ctx, Request{Prompt: "before", SessionID: "s1"})
	require.NoError(t, err)

	f.runner.reply = answerWith("new")
	_, err = f.svc.Run(ctx, Request{Prompt: "after", SessionID: "s1", ResetSession: true})
	require.NoError(t, err)

	assert.Equal(t, framing.Frame(testRunID, nil, "after"), f.runner.lastPrompt(t), "no stitched context after reset")

	turns, err := f.sessions.Transcript("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "after", turns[0].Text)
	assert.Equal(t, "new", turns[1].Text)
}

func TestRun_UnicodePagesNeverSplitRunes(t *testing.T) {
	answer := strings.Repeat("日本語", 700)
	f := newFixture(t, answerWith(answer))

	res, err := f.svc.Run(context.Background(), Request{Prompt: "p", PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000, cursor.RuneLen(res.Text))

	next, err := f.svc.Run(context.Background(), Request{PageToken: res.NextPageToken, PageSize: 1000})
	require.NoError(t, err)
	last, err := f.svc.Run(context.Background(), Request{PageToken: next.NextPageToken, PageSize: 1000})
	require.NoError(t, err)
	assert.Empty(t, last.NextPageToken)
	assert.Equal(t, answer, res.Text+next.Text+last.Text)
}

func TestClampPageSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, MinPageSize},
		{999, MinPageSize},
		{1000, 1000},
		{40000, 40000},
		{200000, 200000},
		{500000, MaxPageSize},
	}
	for _, tt := range tests {
		if got := ClampPageSize(tt.in); got != tt.want {
			t.Errorf("ClampPageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
