package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aatumaykin/dmbot/internal/constants"
	"github.com/aatumaykin/dmbot/internal/logger"
	"github.com/aatumaykin/dmbot/internal/messages"
	"github.com/aatumaykin/dmbot/internal/metrics"
	"github.com/aatumaykin/dmbot/internal/store"
)

// Request is one chat command from one user.
type Request struct {
	UserID  int64
	Command string // lower case, without the leading slash
	Args    string
}

// Handler turns chat commands into service calls and reply text. It knows
// nothing about the chat transport.
type Handler struct {
	svc     *Service
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a new command handler. m may be nil.
func NewHandler(svc *Service, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		logger:  log.With(logger.Field{Key: "component", Value: "commands"}),
		metrics: m,
	}
}

// ParseCommand splits "/cmd@bot args" into its command and arguments. ok is
// false when text is not a command.
func ParseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// HandleCommand processes a command and returns the reply to send back.
func (h *Handler) HandleCommand(ctx context.Context, req Request) string {
	var (
		reply string
		err   error
	)

	if req.Command != constants.CommandStart && req.Command != constants.CommandHelp {
		banned, err := h.svc.IsBanned(ctx, req.UserID)
		if err != nil {
			h.logger.ErrorCtx(ctx, "failed to check user", err, logger.Field{Key: "user_id", Value: req.UserID})
			h.metrics.RecordCommand(req.Command, "error")
			return constants.MsgInternalError
		}
		if banned {
			h.metrics.RecordCommand(req.Command, "rejected")
			return constants.MsgBanned
		}
	}

	switch req.Command {
	case constants.CommandStart:
		reply = constants.MsgWelcome
	case constants.CommandHelp:
		reply = constants.MsgHelp
	case constants.CommandOnce:
		reply, err = h.handleOnce(ctx, req)
	case constants.CommandDaily:
		reply, err = h.handleDaily(ctx, req)
	case constants.CommandList:
		reply, err = h.handleList(ctx, req)
	case constants.CommandCancel:
		reply, err = h.handleCancel(ctx, req)
	default:
		h.logger.DebugCtx(ctx, "unknown command",
			logger.Field{Key: "command", Value: req.Command},
			logger.Field{Key: "user_id", Value: req.UserID})
		h.metrics.RecordCommand("unknown", "rejected")
		return constants.MsgUnknownCommand
	}

	result := "ok"
	if err != nil {
		reply, result = h.errorReply(ctx, req, err)
	}
	h.metrics.RecordCommand(req.Command, result)

	return reply
}

func (h *Handler) errorReply(ctx context.Context, req Request, err error) (string, string) {
	var usage *usageError
	if errors.As(err, &usage) {
		return usage.text, "rejected"
	}

	if messages.IsUserError(err) {
		h.logger.InfoCtx(ctx, "command rejected",
			logger.Field{Key: "command", Value: req.Command},
			logger.Field{Key: "user_id", Value: req.UserID},
			logger.Field{Key: "reason", Value: err.Error()})

		var nf *notFoundError
		if errors.As(err, &nf) {
			return fmt.Sprintf(constants.MsgNotFound, nf.id), "rejected"
		}
		return messages.FormatUserError(err), "rejected"
	}

	h.logger.ErrorCtx(ctx, "command failed", err,
		logger.Field{Key: "command", Value: req.Command},
		logger.Field{Key: "user_id", Value: req.UserID})
	return constants.MsgInternalError, "error"
}

func (h *Handler) handleOnce(ctx context.Context, req Request) (string, error) {
	parts := splitArgs(req.Args)
	if len(parts) < 4 {
		return "", &usageError{text: constants.MsgUsageOnce}
	}

	target, err := resolveTarget(parts[0], req.UserID)
	if err != nil {
		return "", &usageError{text: constants.MsgUsageOnce}
	}
	n := len(parts)
	message := strings.Join(parts[1:n-2], " "+constants.CommandArgSeparator+" ")

	created, err := h.svc.CreateOnce(ctx, req.UserID, target, message, parts[n-2], parts[n-1])
	if err != nil {
		return "", err
	}
	return messages.FormatActionCreated(created.ID, created.Kind, created.NextAt), nil
}

func (h *Handler) handleDaily(ctx context.Context, req Request) (string, error) {
	parts := splitArgs(req.Args)
	if len(parts) < 3 {
		return "", &usageError{text: constants.MsgUsageDaily}
	}

	target, err := resolveTarget(parts[0], req.UserID)
	if err != nil {
		return "", &usageError{text: constants.MsgUsageDaily}
	}
	n := len(parts)
	message := strings.Join(parts[1:n-1], " "+constants.CommandArgSeparator+" ")

	created, err := h.svc.CreateDaily(ctx, req.UserID, target, message, parts[n-1])
	if err != nil {
		return "", err
	}
	return messages.FormatActionCreated(created.ID, created.Kind, created.NextAt), nil
}

func (h *Handler) handleList(ctx context.Context, req Request) (string, error) {
	actions, err := h.svc.ListPending(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	return messages.FormatActionList(actions, h.svc.now(), h.svc.Location()), nil
}

func (h *Handler) handleCancel(ctx context.Context, req Request) (string, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(req.Args), "#"), 10, 64)
	if err != nil || id <= 0 {
		return "", &usageError{text: constants.MsgUsageCancel}
	}

	if err := h.svc.Cancel(ctx, id, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", &notFoundError{id: id, err: err}
		}
		return "", err
	}
	return fmt.Sprintf(constants.MsgActionCancelled, id), nil
}

// splitArgs splits on the argument separator and trims every field.
func splitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, constants.CommandArgSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func resolveTarget(s string, self int64) (int64, error) {
	if strings.EqualFold(s, constants.CommandTargetSelf) {
		return self, nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("user id must be positive")
	}
	return id, nil
}

type usageError struct {
	text string
}

func (e *usageError) Error() string { return e.text }

type notFoundError struct {
	id  int64
	err error
}

func (e *notFoundError) Error() string { return fmt.Sprintf("action %d: %v", e.id, e.err) }
func (e *notFoundError) Unwrap() error { return e.err }
