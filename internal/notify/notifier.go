package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/platform/mailer"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

// Stage names the step an operator notification stopped at.
type Stage string

const (
	StageEnrich Stage = "enrich"
	StageRender Stage = "render"
	StageVerify Stage = "verify"
	StageSend   Stage = "send"
	StageDone   Stage = "done"
)

type TourLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Tour, error)
}

// Result describes one notification attempt. Err is nil when Stage is
// StageDone.
type Result struct {
	BookingID int64
	Transport string
	Enriched  bool
	Stage     Stage
	MessageID string
	Err       error
	Duration  time.Duration
}

func (r Result) Sent() bool { return r.Stage == StageDone && r.Err == nil }

type Notifier struct {
	tours     TourLookup
	transport mailer.Transport
	recorder  Recorder
	to        string
	subject   string
	now       func() time.Time
}

func NewNotifier(tours TourLookup, transport mailer.Transport, recorder Recorder, to, subject string) *Notifier {
	if recorder == nil {
		recorder = LogRecorder{}
	}
	return &Notifier{
		tours:     tours,
		transport: transport,
		recorder:  recorder,
		to:        to,
		subject:   subject,
		now:       time.Now,
	}
}

// Notify emails the operator about b. Enrichment failures downgrade the
// email; transport failures end the attempt. Either way the outcome goes to
// the recorder and never back to the booking submitter.
func (n *Notifier) Notify(ctx context.Context, b domain.Booking) Result {
	start := n.now()
	ctx = logger.WithBookingID(ctx, b.ID)
	res := Result{BookingID: b.ID, Transport: n.transport.Name()}

	tour := n.enrich(ctx, b)
	res.Enriched = tour != nil

	finish := func(stage Stage, err error) Result {
		res.Stage = stage
		res.Err = err
		res.Duration = n.now().Sub(start)
		n.recorder.Record(ctx, res)
		return res
	}

	html, text, err := Render(BuildView(b, tour, n.now()))
	if err != nil {
		return finish(StageRender, err)
	}

	if err := n.transport.Verify(ctx); err != nil {
		return finish(StageVerify, fmt.Errorf("verify %s transport: %w", res.Transport, err))
	}

	id, err := n.transport.Send(ctx, mailer.Message{
		To:      n.to,
		Subject: n.subject,
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		return finish(StageSend, fmt.Errorf("send via %s: %w", res.Transport, err))
	}
	res.MessageID = id
	return finish(StageDone, nil)
}

func (n *Notifier) enrich(ctx context.Context, b domain.Booking) *domain.Tour {
	if b.TourID == nil {
		return nil
	}
	tour, err := n.tours.GetByID(ctx, *b.TourID)
	if err != nil {
		logger.WarnContext(ctx, "Tour enrichment failed", "tour_id", *b.TourID, "stage", StageEnrich, "error", err)
		return nil
	}
	if tour == nil {
		logger.WarnContext(ctx, "Tour for booking not found", "tour_id", *b.TourID, "stage", StageEnrich)
	}
	return tour
}
