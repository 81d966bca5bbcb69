package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoicer/internal/csvexport"
	"invoicer/internal/domain"
	"invoicer/internal/middleware"
	"invoicer/internal/service"
	"invoicer/internal/validator"
)

// CommandHandler handles natural-language command endpoints.
type CommandHandler struct {
	commandService service.CommandService
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(commandService service.CommandService) *CommandHandler {
	return &CommandHandler{commandService: commandService}
}

// InterpretResponse is the data payload of a successful interpretation.
type InterpretResponse struct {
	RequestID uuid.UUID                `json:"request_id"`
	Commands  []domain.CommandEnvelope `json:"commands"`
	Statuses  []validator.Status       `json:"statuses"`
	Findings  []validator.Finding      `json:"findings"`
}

// Interpret handles POST /api/v1/commands
// @Summary Interpret a natural-language request
// @Description Turns a request such as "add a freight line of 50" into typed invoice commands
// @Tags commands
// @Accept json
// @Produce json
// @Param request body InterpretRequest true "Request text and optional invoice context"
// @Success 200 {object} Response{data=InterpretResponse} "Interpreted commands"
// @Failure 400 {object} ErrorResponseBody "Blank prompt or conflicting context"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Invoice not found"
// @Failure 429 {object} ErrorResponseBody "Provider rate limited"
// @Failure 502 {object} ErrorResponseBody "Generation failed"
// @Failure 503 {object} ErrorResponseBody "Engine not ready or busy"
// @Security BearerAuth
// @Router /commands [post]
func (h *CommandHandler) Interpret(c *gin.Context) {
	res, ok := h.interpret(c)
	if !ok {
		return
	}

	RespondOK(c, InterpretResponse{
		RequestID: res.RequestID,
		Commands:  domain.Envelopes(res.Commands),
		Statuses:  res.Statuses,
		Findings:  res.Findings,
	})
}

// Export handles POST /api/v1/commands/export
// @Summary Interpret a request and export the commands as CSV
// @Tags commands
// @Accept json
// @Produce text/csv
// @Param request body InterpretRequest true "Request text and optional invoice context"
// @Success 200 {file} file "CSV of interpreted commands"
// @Failure 400 {object} ErrorResponseBody "Blank prompt or conflicting context"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /commands/export [post]
func (h *CommandHandler) Export(c *gin.Context) {
	res, ok := h.interpret(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	buf.Write(csvexport.BOM)
	w := csvexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		HandleError(c, err)
		return
	}
	if err := w.WriteCommands(res.Commands, res.Findings); err != nil {
		HandleError(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename("commands_"+res.RequestID.String()[:8], time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *CommandHandler) interpret(c *gin.Context) (*service.InterpretResult, bool) {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant context")
		return nil, false
	}
	userID, err := middleware.GetUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return nil, false
	}

	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, false
	}

	input := service.InterpretInput{
		TenantID:       tenantID,
		UserID:         userID,
		Prompt:         req.Prompt,
		InvoiceContext: req.InvoiceContext,
	}
	if req.InvoiceID != "" {
		id, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
			return nil, false
		}
		input.InvoiceID = &id
	}

	res, err := h.commandService.Interpret(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return res, true
}
