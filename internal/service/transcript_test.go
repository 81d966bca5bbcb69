package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"invoicer/internal/config"
	"invoicer/internal/service"
	"invoicer/mocks"
)

func TestTranscriptRecorder_Enabled(t *testing.T) {
	storage := new(mocks.MockObjectStorage)

	var nilRecorder *service.TranscriptRecorder
	assert.False(t, nilRecorder.Enabled())
	assert.False(t, service.NewTranscriptRecorder(nil, config.TranscriptConfig{Enabled: true, Bucket: "b"}, nil).Enabled())
	assert.False(t, service.NewTranscriptRecorder(storage, config.TranscriptConfig{Enabled: false, Bucket: "b"}, nil).Enabled())
	assert.False(t, service.NewTranscriptRecorder(storage, config.TranscriptConfig{Enabled: true}, nil).Enabled())
	assert.True(t, service.NewTranscriptRecorder(storage, config.TranscriptConfig{Enabled: true, Bucket: "b"}, nil).Enabled())
}

func TestTranscriptRecorder_Key(t *testing.T) {
	r := service.NewTranscriptRecorder(nil, config.TranscriptConfig{Prefix: "transcripts"}, nil)
	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	requestID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := r.Key(&service.Transcript{
		TenantID:  tenantID,
		RequestID: requestID,
		CreatedAt: time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600)),
	})

	assert.Equal(t, "transcripts/11111111-1111-1111-1111-111111111111/2024-03-10/22222222-2222-2222-2222-222222222222.json", key)
}

func TestTranscriptRecorder_RecordDisabled(t *testing.T) {
	var r *service.TranscriptRecorder
	assert.Empty(t, r.Record(context.Background(), &service.Transcript{}))
}
