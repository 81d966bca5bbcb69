package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoicer/internal/domain"
	"invoicer/internal/parser"
	"invoicer/internal/port"
	"invoicer/internal/validator"
)

// InterpretInput is the DTO for interpreting a natural-language request.
// At most one of InvoiceID and InvoiceContext may be set.
type InterpretInput struct {
	TenantID       uuid.UUID
	UserID         uuid.UUID
	Prompt         string
	InvoiceID      *uuid.UUID
	InvoiceContext string
}

// InterpretResult holds the commands recovered from one request.
type InterpretResult struct {
	RequestID     uuid.UUID
	Commands      []domain.Command
	Findings      []validator.Finding
	Statuses      []validator.Status
	TranscriptKey string
}

// CommandService defines the command interpretation contract.
type CommandService interface {
	Interpret(ctx context.Context, input InterpretInput) (*InterpretResult, error)
}

type commandService struct {
	pipeline    *parser.Pipeline
	invoiceRepo port.InvoiceRepository
	validation  *validator.Engine
	transcripts *TranscriptRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewCommandService creates a new CommandService implementation.
func NewCommandService(
	generator port.TextGenerator,
	invoiceRepo port.InvoiceRepository,
	validation *validator.Engine,
	transcripts *TranscriptRecorder,
	logger *zap.Logger,
) CommandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validation == nil {
		validation = validator.NewEngine(validator.NewDefaultRegistry())
	}
	return &commandService{
		pipeline:    parser.NewPipeline(generator),
		invoiceRepo: invoiceRepo,
		validation:  validation,
		transcripts: transcripts,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *commandService) Interpret(ctx context.Context, input InterpretInput) (*InterpretResult, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", domain.ErrInvalidArgument)
	}
	if input.InvoiceID != nil && strings.TrimSpace(input.InvoiceContext) != "" {
		return nil, fmt.Errorf("%w: invoice_id and invoice_context are mutually exclusive", domain.ErrInvalidArgument)
	}

	requestID := uuid.New()
	log := s.logger.With(
		zap.String("request_id", requestID.String()),
		zap.String("tenant_id", input.TenantID.String()),
	)

	invoiceContext, snapshot, err := s.resolveContext(ctx, input)
	if err != nil {
		return nil, err
	}

	start := s.now()
	res, err := s.pipeline.Run(ctx, input.Prompt, invoiceContext)
	if err != nil {
		log.Warn("service.CommandService.Interpret: pipeline failed", zap.Error(err))
		return nil, err
	}

	findings := s.validation.Validate(ctx, res.Commands, &validator.Context{Invoice: snapshot})

	key := s.transcripts.Record(ctx, &Transcript{
		RequestID: requestID,
		TenantID:  input.TenantID,
		UserID:    input.UserID,
		Prompt:    res.Prompt,
		Raw:       res.RawResponse,
		Sanitized: res.Sanitized,
		Commands:  domain.Envelopes(res.Commands),
		CreatedAt: start.UTC(),
	})

	log.Info("service.CommandService.Interpret: interpreted request",
		zap.Int("commands", len(res.Commands)),
		zap.Int("findings", len(findings)),
		zap.Bool("with_invoice", snapshot != nil),
		zap.Duration("elapsed", s.now().Sub(start)),
	)

	return &InterpretResult{
		RequestID:     requestID,
		Commands:      res.Commands,
		Findings:      findings,
		Statuses:      validator.CommandStatuses(findings, len(res.Commands)),
		TranscriptKey: key,
	}, nil
}

// resolveContext returns the prompt context string and, when it can be
// recovered, the invoice snapshot used for validation.
func (s *commandService) resolveContext(ctx context.Context, input InterpretInput) (string, *domain.InvoiceSnapshot, error) {
	if input.InvoiceID != nil {
		inv, err := s.invoiceRepo.GetByID(ctx, input.TenantID, *input.InvoiceID)
		if err != nil {
			return "", nil, fmt.Errorf("loading invoice: %w", err)
		}
		snap := inv.Snapshot()
		invoiceContext, err := snap.ContextJSON()
		if err != nil {
			return "", nil, fmt.Errorf("encoding invoice context: %w", err)
		}
		return invoiceContext, &snap, nil
	}

	if strings.TrimSpace(input.InvoiceContext) == "" {
		return "", nil, nil
	}

	// Caller-supplied context is passed through verbatim; it only feeds
	// validation when it happens to be a snapshot.
	var snap domain.InvoiceSnapshot
	if err := json.Unmarshal([]byte(input.InvoiceContext), &snap); err != nil || snap.Lines == nil {
		return input.InvoiceContext, nil, nil
	}
	return input.InvoiceContext, &snap, nil
}
