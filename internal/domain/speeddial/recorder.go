package speeddial

import (
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

type errorRecorder struct {
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	component string
}

func newErrorRecorder(logger *logrus.Logger, hub *sentry.Hub, component string) errorRecorder {
	return errorRecorder{logger: logger, sentryHub: hub, component: component}
}

func (r errorRecorder) entry(fields logrus.Fields) *logrus.Entry {
	entry := r.logger.WithField("component", r.component)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}

// record logs err and forwards it to Sentry.
func (r errorRecorder) record(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if r.logger != nil {
		r.entry(fields).WithField("error", err.Error()).Error(message)
	}

	if r.sentryHub != nil {
		r.sentryHub.CaptureException(err)
	}
}

func (r errorRecorder) warn(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.entry(fields).Warn(message)
}

func (r errorRecorder) info(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.entry(fields).Info(message)
}
