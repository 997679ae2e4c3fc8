// Package relay turns a stateless codex invocation into a conversational,
// paginated one: it stitches session history into the prompt, extracts the
// new answer from raw output and slices oversized answers into pages.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/HendryAvila/codex-relay/internal/cursor"
	"github.com/HendryAvila/codex-relay/internal/framing"
	"github.com/HendryAvila/codex-relay/internal/proc"
	"github.com/HendryAvila/codex-relay/internal/runid"
	"github.com/HendryAvila/codex-relay/internal/session"
)

// ToolName is the MCP tool this service backs.
const ToolName = "codex"

const (
	MinPageSize     = 1000
	MaxPageSize     = 200000
	DefaultPageSize = 40000

	// NoOutputText replaces an empty answer.
	NoOutputText = "No output from Codex"
	// NotFoundText is returned for unknown or expired page tokens.
	NotFoundText = "No data found for pageToken (it may have expired)."
)

// Runner executes the codex binary.
type Runner interface {
	RunStreamed(ctx context.Context, exe string, args []string, onChunk func(string)) (proc.Output, error)
}

// Pages stores the unread remainder of oversized answers.
type Pages interface {
	Save(remaining string) string
	Peek(token string) (string, bool)
	Advance(token string, consumed int)
}

// Observer receives run and page events, typically for metrics.
type Observer interface {
	CodexRun(status string)
	PageServed(kind string)
}

type noopObserver struct{}

func (noopObserver) CodexRun(string)   {}
func (noopObserver) PageServed(string) {}

// Config holds the service-wide defaults.
type Config struct {
	CodexBin        string
	DefaultPageSize int
	DefaultModel    string
}

// Request is one call of the codex tool.
type Request struct {
	Prompt       string
	PageToken    string
	SessionID    string
	ResetSession bool
	PageSize     int
	Options      InvocationOptions
}

// Result is one page of an answer.
type Result struct {
	Text          string
	NextPageToken string
	// NotFound is set when PageToken named nothing live.
	NotFound bool
	// Continuation is set when Text came from a stored page.
	Continuation bool
}

// Service orchestrates sessions, framing, execution and pagination.
type Service struct {
	sessions session.Store
	pages    Pages
	runner   Runner
	cfg      Config
	newRunID func() string
	observer Observer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRunIDSource overrides run id generation.
func WithRunIDSource(fn func() string) Option {
	return func(s *Service) { s.newRunID = fn }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

var _ Pages = (*cursor.Store)(nil)

// NewService wires the orchestrator. All collaborators are required.
func NewService(cfg Config, sessions session.Store, pages Pages, runner Runner, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("relay: session store must not be nil")
	}
	if pages == nil {
		return nil, errors.New("relay: page store must not be nil")
	}
	if runner == nil {
		return nil, errors.New("relay: runner must not be nil")
	}
	if cfg.CodexBin == "" {
		cfg.CodexBin = "codex"
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	cfg.DefaultPageSize = ClampPageSize(cfg.DefaultPageSize)
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = DefaultModel
	}

	s := &Service{
		sessions: sessions,
		pages:    pages,
		runner:   runner,
		cfg:      cfg,
		newRunID: runid.New,
		observer: noopObserver{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ClampPageSize bounds n to [MinPageSize, MaxPageSize].
func ClampPageSize(n int) int {
	switch {
	case n < MinPageSize:
		return MinPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// Run serves one request: either the next page of a stored answer or a
// fresh codex invocation.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	pageSize := s.cfg.DefaultPageSize
	if req.PageSize > 0 {
		pageSize = ClampPageSize(req.PageSize)
	}

	if req.SessionID != "" && req.ResetSession {
		if err := s.sessions.Clear(req.SessionID); err != nil {
			return Result{}, newError(KindExecution, "failed to reset session", err)
		}
		s.logger.Debug("session reset", "session_id", req.SessionID)
	}

	if req.PageToken != "" {
		return s.nextPage(req.PageToken, pageSize), nil
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, newError(KindValidation, "missing required 'prompt' (or provide a 'pageToken')", nil)
	}

	stitched, err := s.stitch(req.SessionID)
	if err != nil {
		return Result{}, newError(KindExecution, "failed to load session", err)
	}

	runID := s.newRunID()
	framed := framing.Frame(runID, stitched, prompt)
	args := BuildArgs(req.Options, s.cfg.DefaultModel, framed)

	var streamed int
	out, err := s.runner.RunStreamed(ctx, proc.Executable(s.cfg.CodexBin), args, func(chunk string) {
		streamed += len(chunk)
	})
	if err != nil {
		s.observer.CodexRun("error")
		return Result{}, newError(KindExecution, "failed to execute codex command", err)
	}
	s.observer.CodexRun("ok")
	s.logger.Debug("codex finished", "run_id", runID, "stdout_bytes", streamed)

	answer := framing.Extract(runID, stitched, out.Stdout)
	if answer == "" {
		answer = NoOutputText
	}

	if req.SessionID != "" {
		if err := s.record(req.SessionID, prompt, answer); err != nil {
			return Result{}, newError(KindExecution, "failed to record session turns", err)
		}
	}

	head, tail := cursor.SplitRunes(answer, pageSize)
	res := Result{Text: head}
	if tail != "" {
		res.NextPageToken = s.pages.Save(tail)
	}
	s.observer.PageServed("first")
	return res, nil
}

func (s *Service) nextPage(token string, pageSize int) Result {
	remaining, ok := s.pages.Peek(token)
	if !ok {
		s.logger.Debug("page token not found", "token", token)
		return Result{Text: NotFoundText, NotFound: true}
	}

	head, tail := cursor.SplitRunes(remaining, pageSize)
	s.pages.Advance(token, cursor.RuneLen(head))

	res := Result{Text: head, Continuation: true}
	if tail != "" {
		res.NextPageToken = token
	}
	s.observer.PageServed("continuation")
	return res
}

// stitch renders the transcript as "User: ..." / "Assistant: ..." lines.
// It returns nil when there is no prior context.
func (s *Service) stitch(sessionID string) (*string, error) {
	if sessionID == "" {
		return nil, nil
	}
	turns, err := s.sessions.Transcript(sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "Assistant"
		if t.Role == session.RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, t.Text))
	}
	stitched := strings.Join(lines, "\n")
	return &stitched, nil
}

func (s *Service) record(sessionID, prompt, answer string) error {
	if err := s.sessions.AppendTurn(sessionID, session.RoleUser, prompt); err != nil {
		return err
	}
	return s.sessions.AppendTurn(sessionID, session.RoleAssistant, answer)
}
