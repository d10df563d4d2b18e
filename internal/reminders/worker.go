// Package reminders runs the periodic scan for books nearing or past their
// due date and notifies the users holding them.
package reminders

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"datalib/internal/models"
	"datalib/internal/notify"
)

const (
	DefaultPeriod      = 24 * time.Hour
	DefaultSendTimeout = 30 * time.Second
)

const instrumentationName = "datalib/internal/reminders"

// Source finds the reminders due in the current cycle.
type Source interface {
	GetItemsToRemind(ctx context.Context) ([]models.ReminderInfo, error)
}

type Options struct {
	// Period between the start of one cycle and the next. Defaults to DefaultPeriod.
	Period time.Duration

	// SendTimeout bounds a single notification. Defaults to DefaultSendTimeout.
	SendTimeout time.Duration

	// MeterProvider receives the reminder counters. Defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// Worker scans for reminders on a fixed period and dispatches them one by
// one. A failing cycle is logged and the next one runs as scheduled.
//
// There is no memory of earlier cycles, so a book that stays out keeps being
// reminded about on every cycle.
type Worker struct {
	source   Source
	notifier notify.Notifier
	opts     Options

	sent   metric.Int64Counter
	failed metric.Int64Counter
}

// CycleResult summarises one scan and dispatch cycle.
type CycleResult struct {
	Found  int
	Sent   int
	Failed int
}

func NewWorker(source Source, notifier notify.Notifier, opts Options) *Worker {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}

	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	sent, err := meter.Int64Counter("reminders.sent",
		metric.WithDescription("Reminder notifications handed to the notifier."))
	if err != nil {
		sent = noop.Int64Counter{}
	}
	failed, err := meter.Int64Counter("reminders.failed",
		metric.WithDescription("Reminder notifications that could not be sent."))
	if err != nil {
		failed = noop.Int64Counter{}
	}

	return &Worker{
		source:   source,
		notifier: notifier,
		opts:     opts,
		sent:     sent,
		failed:   failed,
	}
}

// Run executes a cycle immediately and then once per period until ctx is
// cancelled. It always returns nil; cycle errors are only logged.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[INFO] ReminderWorker: started, period %s", w.opts.Period)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] ReminderWorker: stopped")
			return nil
		case <-timer.C:
		}

		log.Printf("[INFO] ReminderWorker: running at %s", time.Now().Format(time.RFC3339))
		res, err := w.RunOnce(ctx)
		if err != nil {
			log.Printf("[ERROR] ReminderWorker: error detecting reminders: %v", err)
		} else {
			log.Printf("[INFO] ReminderWorker: cycle done, %d found, %d sent, %d failed", res.Found, res.Sent, res.Failed)
		}

		timer.Reset(w.opts.Period)
	}
}

// RunOnce scans for reminders and dispatches them sequentially. Cancellation
// is honoured between dispatches; a notification already being sent is
// allowed to finish. The returned error is only set when the scan fails.
func (w *Worker) RunOnce(ctx context.Context) (CycleResult, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "ReminderWorker.RunOnce")
	defer span.End()

	var res CycleResult
	if err := ctx.Err(); err != nil {
		return res, nil
	}

	infos, err := w.source.GetItemsToRemind(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, fmt.Errorf("get items to remind: %w", err)
	}
	res.Found = len(infos)

	for _, info := range infos {
		if ctx.Err() != nil {
			log.Printf("[WARN] ReminderWorker: cancelled, %d reminder(s) left undispatched", res.Found-res.Sent-res.Failed)
			break
		}

		subject, body := Compose(info)
		if err := w.dispatch(ctx, info.Email, subject, body); err != nil {
			log.Printf("[ERROR] ReminderWorker: failed to send reminder to %s: %v", info.Email, err)
			w.failed.Add(ctx, 1)
			res.Failed++
			continue
		}
		w.sent.Add(ctx, 1)
		res.Sent++
	}

	span.SetAttributes(
		attribute.Int("reminders.found", res.Found),
		attribute.Int("reminders.sent", res.Sent),
		attribute.Int("reminders.failed", res.Failed),
	)
	return res, nil
}

func (w *Worker) dispatch(ctx context.Context, address, subject, body string) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.SendTimeout)
	defer cancel()
	return w.notifier.Send(sendCtx, address, subject, body)
}

// Compose renders the subject and body of the reminder for one checkout.
func Compose(info models.ReminderInfo) (subject, body string) {
	subject = fmt.Sprintf("Reminder about checkout from %s", info.IssuedOn.Format("Monday, January 2, 2006"))

	var b strings.Builder
	b.WriteString("Just a kind reminder, that these titles need to returned: \n")
	for _, line := range info.AuthorsAndTitles {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("Have a nice day!\n")
	return subject, b.String()
}
