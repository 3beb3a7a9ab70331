package log

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

var sentryHookLevels = []logrus.Level{
	logrus.ErrorLevel,
	logrus.FatalLevel,
	logrus.PanicLevel,
}

// SentrySettings configures error reporting. Errors matching one of Expected
// are user mistakes, not faults, and are never sent.
type SentrySettings struct {
	DSN         string
	Environment string
	Release     string
	Expected    []error
}

// InitSentry connects a Sentry client to logger so error-level entries are
// reported. Without a DSN it returns a nil hub and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if settings.DSN == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          settings.Release,
		AttachStacktrace: true,
		BeforeSend:       dropExpected(settings.Expected),
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.Scope().SetTag("app", "quicklink")
	logger.AddHook(sentrylogrus.NewLogHookFromClient(sentryHookLevels, client))

	return hub, func() { hub.Flush(sentryFlushTimeout) }, nil
}

func dropExpected(expected []error) func(*sentry.Event, *sentry.EventHint) *sentry.Event {
	return func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		if hint == nil || hint.OriginalException == nil {
			return event
		}
		for _, target := range expected {
			if errors.Is(hint.OriginalException, target) {
				return nil
			}
		}
		return event
	}
}
