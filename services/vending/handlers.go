package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/vending-machine/vending"
)

// VendingUseCaseInterface define a interface para o use case
type VendingUseCaseInterface interface {
	ListProducts(ctx context.Context) []vending.Slot
	OpenSession(ctx context.Context) (SessionView, error)
	GetSession(ctx context.Context, sessionID string) (SessionView, error)
	Deposit(ctx context.Context, sessionID string, amount decimal.Decimal) (SessionView, error)
	SelectProduct(ctx context.Context, sessionID, slotID string) (SelectionResult, error)
	Finish(ctx context.Context, sessionID string) (FinishResult, error)
	Abandon(ctx context.Context, sessionID string) (AbandonResult, error)
}

// VendingHandler contém os handlers HTTP
type VendingHandler struct {
	useCase VendingUseCaseInterface
	tracer  trace.Tracer
}

// NewVendingHandler cria uma nova instância de VendingHandler
func NewVendingHandler(useCase VendingUseCaseInterface, tracer trace.Tracer) *VendingHandler {
	return &VendingHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// ListProducts lista os slots e seus produtos
func (h *VendingHandler) ListProducts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_products")
	defer span.End()

	slots := h.useCase.ListProducts(ctx)
	span.SetAttributes(attribute.Int("slots", len(slots)))

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// OpenSession inicia uma transação de compra
func (h *VendingHandler) OpenSession(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "open_session")
	defer span.End()

	view, err := h.useCase.OpenSession(ctx)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("session_id", view.SessionID),
		attribute.Bool("resumed", view.Resumed),
	)
	c.JSON(http.StatusCreated, view)
}

// GetSession mostra o saldo atual
func (h *VendingHandler) GetSession(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_session")
	defer span.End()

	sessionID := c.Param("id")
	span.SetAttributes(attribute.String("session_id", sessionID))

	view, err := h.useCase.GetSession(ctx, sessionID)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Deposit é o "(1) Feed Money"
func (h *VendingHandler) Deposit(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "deposit")
	defer span.End()

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.Param("id")
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("amount", req.Amount.String()),
	)

	view, err := h.useCase.Deposit(ctx, sessionID, req.Amount)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SelectProduct é o "(2) Select Product"
func (h *VendingHandler) SelectProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "select_product")
	defer span.End()

	var req SelectProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.Param("id")
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("slot_id", req.SlotID),
	)

	result, err := h.useCase.SelectProduct(ctx, sessionID, req.SlotID)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(attribute.String("product", result.Product.Name))
	c.JSON(http.StatusOK, result)
}

// Finish é o "(3) Finish Transaction"
func (h *VendingHandler) Finish(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "finish_transaction")
	defer span.End()

	sessionID := c.Param("id")
	span.SetAttributes(attribute.String("session_id", sessionID))

	result, err := h.useCase.Finish(ctx, sessionID)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("change_total", result.ChangeTotal),
		attribute.Int("products", len(result.Purchased)),
	)
	c.JSON(http.StatusOK, result)
}

// Abandon é o "(Q) Quit to Main Menu"
func (h *VendingHandler) Abandon(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "abandon_session")
	defer span.End()

	sessionID := c.Param("id")
	span.SetAttributes(attribute.String("session_id", sessionID))

	result, err := h.useCase.Abandon(ctx, sessionID)
	if err != nil {
		h.fail(c, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("policy", string(result.Policy)),
		attribute.Bool("refunded", result.Refunded),
	)
	c.JSON(http.StatusOK, result)
}

// HealthCheck verifica a saúde do serviço
func (h *VendingHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "vending-service",
	})
}

func (h *VendingHandler) fail(c *gin.Context, span trace.Span, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("rejection", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor traduz erros de domínio em status HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, vending.ErrInvalidDenomination),
		errors.Is(err, vending.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, vending.ErrSlotNotFound),
		errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vending.ErrOutOfStock),
		errors.Is(err, vending.ErrTransactionClosed),
		errors.Is(err, ErrMachineBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
