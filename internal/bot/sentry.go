package bot

import (
	"context"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// SentryReporter forwards unexpected command errors to Sentry, using the
// hub stored on ctx when there is one.
func SentryReporter() ErrorReporter {
	return func(ctx context.Context, err error, cmd Command) {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetUser(sentry.User{ID: strconv.FormatInt(cmd.UserID, 10)})
			scope.SetTag("command", cmd.Name)
			scope.SetContext("command", map[string]interface{}{
				"chat_id": cmd.ChatID,
				"args":    len(cmd.Args),
			})
			hub.CaptureException(err)
		})
	}
}
