package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/ticketdesk/internal/config"
	"github.com/spec-kit/ticketdesk/internal/domain"
	"github.com/spec-kit/ticketdesk/internal/repository"
)

// idFormat describes how a kind renders its sequence number.
type idFormat struct {
	prefix string
	width  int
	base   int64
}

// IDGenerator formats per-kind sequence numbers into ticket ids such as
// INC0010001 or MAINT001. Padding is a minimum width, so ids keep sorting
// lexicographically until a kind outgrows it.
type IDGenerator struct {
	store   repository.SequenceStore
	formats map[domain.Kind]idFormat
}

// NewIDGenerator builds a generator on top of a sequence store.
func NewIDGenerator(store repository.SequenceStore, cfg config.TicketsConfig) *IDGenerator {
	return &IDGenerator{
		store: store,
		formats: map[domain.Kind]idFormat{
			domain.KindIncident:        {prefix: "INC", width: 7, base: cfg.IncidentSequenceBase},
			domain.KindChangeRequest:   {prefix: "CHG", width: 7, base: cfg.ChangeSequenceBase},
			domain.KindMaintenanceTask: {prefix: "MAINT", width: 3, base: cfg.MaintenanceSeqBase},
		},
	}
}

// Next allocates the next id for the kind.
func (g *IDGenerator) Next(ctx context.Context, kind domain.Kind) (string, error) {
	format, ok := g.formats[kind]
	if !ok {
		return "", fmt.Errorf("no id format for kind %q", kind)
	}
	seq, err := g.store.Next(ctx, kind.Namespace())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", format.prefix, format.width, format.base+seq), nil
}
