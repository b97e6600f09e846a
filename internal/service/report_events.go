package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ReportEvent describes a lifecycle outcome published to interested
// consumers (mailers, schedule runners).
type ReportEvent struct {
	ReportID    uint      `json:"report_id"`
	ReportType  string    `json:"report_type"`
	Status      string    `json:"status"`
	ArtifactRef string    `json:"artifact_ref,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ReportEventPublisher fans report lifecycle outcomes out to a broker.
type ReportEventPublisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}

type natsReportPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSReportPublisher constructs a publisher emitting to
// "<subjectBase>.<status>" subjects.
func NewNATSReportPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) ReportEventPublisher {
	if subjectBase == "" {
		subjectBase = "reports"
	}
	return &natsReportPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "report_events").Logger(),
	}
}

func (p *natsReportPublisher) Publish(_ context.Context, event ReportEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := p.subjectBase + "." + event.Status
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}

	p.logger.Debug().Str("subject", subject).Uint("report_id", event.ReportID).Msg("report event published")
	return nil
}
