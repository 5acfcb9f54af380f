// Package bot turns chat commands into ledger operations. Dispatcher holds
// the command semantics and knows nothing about Telegram; Bot is the
// Telegram long-polling transport in front of it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finbot/internal/config"
	"finbot/internal/core"
	applog "finbot/internal/log"
	"finbot/internal/middleware/trace"
	"finbot/internal/report"
	"finbot/internal/services"
)

// Command is a parsed chat command.
type Command struct {
	UserID    int64
	FirstName string
	ChatID    int64
	// Name is the lowercased command without the leading slash.
	Name string
	Args []string
}

// Reply is what the transport sends back: the text first, then each chart.
type Reply struct {
	Text   string
	Charts []Chart
}

type Chart struct {
	Name string
	PNG  []byte
}

type (
	Authorizer interface {
		Authorize(userID int64) (config.Account, error)
	}

	Ledger interface {
		AddTransaction(ctx context.Context, target string, typ core.TransactionType, amount int64, note string, now time.Time) (services.Appended, error)
		BuildReport(ctx context.Context, target, title string) (*services.Report, error)
	}

	Renderer interface {
		Render(s report.Series) ([]byte, error)
	}

	// Limiter decides whether a user may run another command now.
	Limiter interface {
		Allow(userID int64) bool
	}

	// ErrorReporter receives errors the user cannot fix, e.g. to forward them to Sentry.
	ErrorReporter func(ctx context.Context, err error, cmd Command)
)

type Options struct {
	Currency string
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
	Report   ErrorReporter
	Limiter  Limiter
	Metrics  *trace.Recorder
}

type Dispatcher struct {
	auth     Authorizer
	ledger   Ledger
	renderer Renderer
	currency string
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	report   ErrorReporter
	limiter  Limiter
	metrics  *trace.Recorder
	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, cmd Command) (Reply, error)

const (
	msgNoData         = "No data"
	msgInternal       = "Error: something went wrong, please try again later"
	msgTimeout        = "Error: the ledger did not answer in time, please try again"
	msgRateLimited    = "Error: too many commands, please wait a minute"
	usageAdd          = "Usage: /%s <amount> <notes>"
	usageReport       = "Usage: /%s [title] | [month year]"
	unknownCommandFmt = "Unknown command /%s. Send /help to see the available commands."
)

var helpText = strings.Join([]string{
	"/in <amount> <notes> add new income (also /add_income)",
	"/out <amount> <notes> add new outcome (also /add_outcome)",
	"/info [title] | [month year] show income vs outcome, default current month (also /report)",
	"/whoami show your name and user id (also /user_info)",
	"/help show this help",
}, "\n")

func NewDispatcher(auth Authorizer, ledger Ledger, renderer Renderer, opts Options) *Dispatcher {
	d := &Dispatcher{
		auth:     auth,
		ledger:   ledger,
		renderer: renderer,
		currency: opts.Currency,
		loc:      opts.Location,
		now:      opts.Now,
		logger:   opts.Logger,
		report:   opts.Report,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
	}
	if d.loc == nil {
		d.loc = time.Local
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.metrics == nil {
		d.metrics = &trace.Recorder{}
	}

	add := func(typ core.TransactionType) handlerFunc {
		return func(ctx context.Context, cmd Command) (Reply, error) { return d.add(ctx, cmd, typ) }
	}
	d.handlers = map[string]handlerFunc{
		"whoami":      d.whoami,
		"user_info":   d.whoami,
		"add_income":  add(core.Income),
		"in":          add(core.Income),
		"add_outcome": add(core.Outcome),
		"out":         add(core.Outcome),
		"report":      d.buildReport,
		"info":        d.buildReport,
		"help":        d.help,
		"start":       d.help,
	}
	return d
}

// Metrics returns the command counters collected so far.
func (d *Dispatcher) Metrics() trace.Metrics {
	return d.metrics.GetMetrics()
}

// Dispatch runs one command and always produces a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Reply {
	start := time.Now()
	requestID := trace.GenerateRequestID()
	ctx = trace.WithRequestID(ctx, requestID)
	logger := d.logger.With(
		applog.FieldRequestID, requestID,
		applog.FieldUserID, cmd.UserID,
		applog.FieldChatID, cmd.ChatID,
		applog.FieldCommand, cmd.Name,
	)

	h, ok := d.handlers[cmd.Name]
	if !ok {
		return Reply{Text: fmt.Sprintf(unknownCommandFmt, cmd.Name)}
	}
	if d.limiter != nil && !d.limiter.Allow(cmd.UserID) {
		logger.WarnContext(ctx, "Command rate limited")
		return Reply{Text: msgRateLimited}
	}

	reply, err := h(ctx, cmd)
	if err != nil {
		reply = d.errorReply(ctx, logger, cmd, err)
	}
	d.metrics.Observe(time.Since(start), err != nil)

	logger.InfoContext(ctx, "Command handled",
		applog.FieldSuccess, err == nil,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return reply
}

func (d *Dispatcher) errorReply(ctx context.Context, logger *slog.Logger, cmd Command, err error) Reply {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		logger.WarnContext(ctx, "Rejected unauthorized user", applog.FieldErrorType, applog.ErrorTypeAuth)
		return Reply{Text: "Error: " + core.ErrUnauthorized.Error()}
	case errors.Is(err, core.ErrUsage):
		return Reply{Text: usage(cmd.Name)}
	case errors.Is(err, core.ErrNotFound):
		logger.InfoContext(ctx, "No data for report", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeNotFound)
		return Reply{Text: msgNoData}
	case errors.As(err, &verr):
		return Reply{Text: "Error: " + verr.Msg}
	case errors.Is(err, core.ErrParse):
		logger.ErrorContext(ctx, "Ledger holds malformed rows", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeParse)
		return Reply{Text: "Error: " + err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		logger.ErrorContext(ctx, "Command timed out", applog.FieldError, err)
		d.reportError(ctx, err, cmd)
		return Reply{Text: msgTimeout}
	default:
		logger.ErrorContext(ctx, "Command failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeInternal)
		d.reportError(ctx, err, cmd)
		return Reply{Text: msgInternal}
	}
}

func (d *Dispatcher) reportError(ctx context.Context, err error, cmd Command) {
	if d.report != nil {
		d.report(ctx, err, cmd)
	}
}

func usage(name string) string {
	switch name {
	case "add_income", "in", "add_outcome", "out":
		return fmt.Sprintf(usageAdd, name)
	case "report", "info":
		return fmt.Sprintf(usageReport, name)
	default:
		return helpText
	}
}

func (d *Dispatcher) whoami(_ context.Context, cmd Command) (Reply, error) {
	return Reply{Text: fmt.Sprintf("Hello %s, your id is %d", cmd.FirstName, cmd.UserID)}, nil
}

func (d *Dispatcher) help(context.Context, Command) (Reply, error) {
	return Reply{Text: helpText}, nil
}

// add handles /in and /out: the first argument is the amount, the rest is
// the note.
func (d *Dispatcher) add(ctx context.Context, cmd Command, typ core.TransactionType) (Reply, error) {
	account, err := d.auth.Authorize(cmd.UserID)
	if err != nil {
		return Reply{}, err
	}
	if len(cmd.Args) < 2 {
		return Reply{}, core.ErrUsage
	}
	amount, err := core.ParseAmount(cmd.Args[0])
	if err != nil {
		return Reply{}, err
	}
	note := strings.Join(cmd.Args[1:], " ")

	res, err := d.ledger.AddTransaction(ctx, account.SheetURL, typ, amount, note, d.now().In(d.loc))
	if err != nil {
		return Reply{}, err
	}

	d.logger.InfoContext(ctx, "Transaction added",
		applog.FieldRequestID, trace.GetRequestID(ctx),
		applog.FieldUserID, cmd.UserID,
		applog.FieldTitle, res.Title,
		applog.FieldTxType, string(typ),
		applog.FieldAmount, amount,
		applog.FieldRowRef, res.RowRef)

	return Reply{Text: "Added " + string(typ)}, nil
}

func (d *Dispatcher) buildReport(ctx context.Context, cmd Command) (Reply, error) {
	account, err := d.auth.Authorize(cmd.UserID)
	if err != nil {
		return Reply{}, err
	}
	title, err := core.ResolveTitle(cmd.Args, d.now().In(d.loc))
	if err != nil {
		return Reply{}, err
	}

	rep, err := d.ledger.BuildReport(ctx, account.SheetURL, title)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Text: rep.Text(d.currency)}
	charts, err := d.render(ctx, rep.Series())
	if err != nil {
		// The summary is still worth sending without the pictures.
		d.logger.ErrorContext(ctx, "Chart rendering failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldTitle, title,
			applog.FieldError, err)
		d.reportError(ctx, err, cmd)
		return reply, nil
	}
	reply.Charts = charts
	return reply, nil
}

// render draws every non-empty series concurrently, keeping series order.
func (d *Dispatcher) render(ctx context.Context, series []report.Series) ([]Chart, error) {
	if d.renderer == nil {
		return nil, nil
	}

	out := make([]Chart, len(series))
	g, _ := errgroup.WithContext(ctx)
	for i, s := range series {
		if s.Empty() {
			continue
		}
		i, s := i, s
		g.Go(func() error {
			png, err := d.renderer.Render(s)
			if err != nil {
				return err
			}
			out[i] = Chart{Name: fmt.Sprintf("chart-%d.png", i+1), PNG: png}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	charts := out[:0]
	for _, c := range out {
		if c.PNG != nil {
			charts = append(charts, c)
		}
	}
	return charts, nil
}
