package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoicer/internal/config"
	"invoicer/internal/domain"
	"invoicer/internal/port"
)

// Transcript is one archived pipeline run.
type Transcript struct {
	RequestID uuid.UUID                `json:"request_id"`
	TenantID  uuid.UUID                `json:"tenant_id"`
	UserID    uuid.UUID                `json:"user_id"`
	Prompt    string                   `json:"prompt"`
	Raw       string                   `json:"raw"`
	Sanitized string                   `json:"sanitized"`
	Commands  []domain.CommandEnvelope `json:"commands"`
	CreatedAt time.Time                `json:"created_at"`
}

// TranscriptRecorder archives transcripts to object storage. Archiving is
// best-effort: failures are logged and never reach the caller.
type TranscriptRecorder struct {
	storage port.ObjectStorage
	cfg     config.TranscriptConfig
	logger  *zap.Logger
}

// NewTranscriptRecorder creates a recorder. A nil storage or a disabled config
// yields a recorder that does nothing.
func NewTranscriptRecorder(storage port.ObjectStorage, cfg config.TranscriptConfig, logger *zap.Logger) *TranscriptRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptRecorder{storage: storage, cfg: cfg, logger: logger}
}

// Enabled reports whether Record uploads anything.
func (r *TranscriptRecorder) Enabled() bool {
	return r != nil && r.cfg.Enabled && r.storage != nil && r.cfg.Bucket != ""
}

// Key returns the object key for t: <prefix>/<tenant>/<yyyy-mm-dd>/<request>.json.
func (r *TranscriptRecorder) Key(t *Transcript) string {
	return path.Join(r.cfg.Prefix, t.TenantID.String(), t.CreatedAt.UTC().Format("2006-01-02"), t.RequestID.String()+".json")
}

// Record uploads t. It returns the object key, or "" when nothing was stored.
func (r *TranscriptRecorder) Record(ctx context.Context, t *Transcript) string {
	if !r.Enabled() {
		return ""
	}

	body, err := json.Marshal(t)
	if err != nil {
		r.logger.Warn("service.TranscriptRecorder.Record: marshal failed",
			zap.String("request_id", t.RequestID.String()),
			zap.Error(err),
		)
		return ""
	}

	key := r.Key(t)
	_, err = r.storage.Upload(ctx, port.UploadInput{
		Bucket:      r.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Metadata: map[string]string{
			"tenant-id":  t.TenantID.String(),
			"request-id": t.RequestID.String(),
		},
	})
	if err != nil {
		r.logger.Warn("service.TranscriptRecorder.Record: upload failed",
			zap.String("bucket", r.cfg.Bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}

	r.logger.Debug("service.TranscriptRecorder.Record: stored",
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return key
}

