package handler_test

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoicer/internal/csvexport"
	"invoicer/internal/domain"
	"invoicer/internal/engine"
	"invoicer/internal/handler"
	"invoicer/internal/middleware"
	"invoicer/internal/service"
	"invoicer/internal/validator"
	"invoicer/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setAuthContext(c *gin.Context, tenantID, userID uuid.UUID) {
	c.Set(middleware.ContextKeyTenantID, tenantID)
	c.Set(middleware.ContextKeyUserID, userID)
}

func newCommandContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/commands", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func freightResult() *service.InterpretResult {
	add := &domain.AddLine{Description: "freight", Quantity: 1, UnitPrice: decimal.NewFromInt(500)}
	add.SetFeedback("Added freight line.")
	remove := &domain.RemoveLine{LineNumber: 0}
	findings := []validator.Finding{{
		Index:    1,
		Action:   domain.ActionRemoveLine,
		RuleKey:  "cmd.line_number.range",
		Field:    "lineNumber",
		Severity: validator.SeverityError,
		Message:  "line number must be at least 1, got 0",
	}}
	return &service.InterpretResult{
		RequestID: uuid.MustParse("0a1b2c3d-0000-0000-0000-000000000000"),
		Commands:  []domain.Command{add, remove},
		Findings:  findings,
		Statuses:  validator.CommandStatuses(findings, 2),
	}
}

func TestCommandHandler_Interpret_Success(t *testing.T) {
	svc := new(mocks.MockCommandService)
	h := handler.NewCommandHandler(svc)
	tenantID, userID := uuid.New(), uuid.New()

	svc.On("Interpret", mock.Anything, service.InterpretInput{
		TenantID: tenantID,
		UserID:   userID,
		Prompt:   "add freight 500 and remove line 0",
	}).Return(freightResult(), nil)

	c, w := newCommandContext(`{"prompt":"add freight 500 and remove line 0"}`)
	setAuthContext(c, tenantID, userID)

	h.Interpret(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RequestID string                   `json:"request_id"`
			Commands  []map[string]interface{} `json:"commands"`
			Statuses  []string                 `json:"statuses"`
			Findings  []map[string]interface{} `json:"findings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Commands, 2)
	assert.Equal(t, "addLine", resp.Data.Commands[0]["action"])
	assert.Equal(t, "Added freight line.", resp.Data.Commands[0]["feedback"])
	assert.Equal(t, []string{"valid", "invalid"}, resp.Data.Statuses)
	require.Len(t, resp.Data.Findings, 1)
	svc.AssertExpectations(t)
}

func TestCommandHandler_Interpret_WithInvoiceID(t *testing.T) {
	svc := new(mocks.MockCommandService)
	h := handler.NewCommandHandler(svc)
	invoiceID := uuid.New()

	svc.On("Interpret", mock.Anything, mock.MatchedBy(func(in service.InterpretInput) bool {
		return in.InvoiceID != nil && *in.InvoiceID == invoiceID
	})).Return(freightResult(), nil)

	c, w := newCommandContext(`{"prompt":"remove line 2","invoice_id":"` + invoiceID.String() + `"}`)
	setAuthContext(c, uuid.New(), uuid.New())

	h.Interpret(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCommandHandler_Interpret_InvalidInvoiceID(t *testing.T) {
	svc := new(mocks.MockCommandService)
	h := handler.NewCommandHandler(svc)

	c, w := newCommandContext(`{"prompt":"remove line 2","invoice_id":"not-a-uuid"}`)
	setAuthContext(c, uuid.New(), uuid.New())

	h.Interpret(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
	svc.AssertNotCalled(t, "Interpret", mock.Anything, mock.Anything)
}

func TestCommandHandler_Interpret_MalformedBody(t *testing.T) {
	h := handler.NewCommandHandler(new(mocks.MockCommandService))

	c, w := newCommandContext(`{"prompt":`)
	setAuthContext(c, uuid.New(), uuid.New())

	h.Interpret(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestCommandHandler_Interpret_Unauthenticated(t *testing.T) {
	h := handler.NewCommandHandler(new(mocks.MockCommandService))

	c, w := newCommandContext(`{"prompt":"x"}`)

	h.Interpret(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommandHandler_Interpret_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"blank prompt", domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"missing invoice", domain.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
		{"busy", errors.Join(domain.ErrGeneration, domain.ErrEngineBusy), http.StatusServiceUnavailable, "ENGINE_BUSY"},
		{"not ready", domain.ErrEngineNotReady, http.StatusServiceUnavailable, "ENGINE_NOT_READY"},
		{"provider failure", errors.Join(domain.ErrGeneration, errors.New("boom")), http.StatusBadGateway, "GENERATION_FAILED"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockCommandService)
			svc.On("Interpret", mock.Anything, mock.Anything).Return(nil, tt.err)
			h := handler.NewCommandHandler(svc)

			c, w := newCommandContext(`{"prompt":"x"}`)
			setAuthContext(c, uuid.New(), uuid.New())

			h.Interpret(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestCommandHandler_Interpret_RateLimited(t *testing.T) {
	svc := new(mocks.MockCommandService)
	rlErr := engine.NewRateLimitError("all", errors.New("all backends rate limited"), 12)
	svc.On("Interpret", mock.Anything, mock.Anything).Return(nil, errors.Join(domain.ErrGeneration, rlErr))
	h := handler.NewCommandHandler(svc)

	c, w := newCommandContext(`{"prompt":"x"}`)
	setAuthContext(c, uuid.New(), uuid.New())

	h.Interpret(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "12", w.Header().Get("Retry-After"))
}

func TestCommandHandler_Export(t *testing.T) {
	svc := new(mocks.MockCommandService)
	svc.On("Interpret", mock.Anything, mock.Anything).Return(freightResult(), nil)
	h := handler.NewCommandHandler(svc)

	c, w := newCommandContext(`{"prompt":"add freight 500 and remove line 0"}`)
	setAuthContext(c, uuid.New(), uuid.New())

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "commands_0a1b2c3d_")

	body := w.Body.Bytes()
	require.True(t, len(body) >= 3)
	assert.Equal(t, csvexport.BOM, body[:3])

	records, err := csv.NewReader(strings.NewReader(string(body[3:]))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "#", records[0][0])
	assert.Equal(t, "addLine", records[1][1])
	assert.Equal(t, "valid", records[1][2])
	assert.Equal(t, "removeLine", records[2][1])
	assert.Equal(t, "invalid", records[2][2])
	assert.Contains(t, records[2][len(records[2])-1], "line number must be at least 1")
}
