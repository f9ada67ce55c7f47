// Package webhooks exposes the payment provider callbacks.
package webhooks

import (
	"errors"
	"io"
	"net/http"
	"strings"

	wheelhttp "github.com/caiqy/prizewheel/internal/http"
	"github.com/caiqy/prizewheel/internal/payment"
	"github.com/caiqy/prizewheel/internal/webhook"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes bounds webhook payloads.
const maxBodyBytes = 1 << 20

// Handler serves the Kiwify and MercadoPago endpoints.
type Handler struct {
	svc          *webhook.Service
	kiwifySecret string
	mercadoPago  *payment.MercadoPagoClient
}

// NewHandler constructs a Handler. kiwifySecret may be empty to skip signature checks,
// and mercadoPago may be nil to trust notification bodies.
func NewHandler(svc *webhook.Service, kiwifySecret string, mercadoPago *payment.MercadoPagoClient) *Handler {
	return &Handler{svc: svc, kiwifySecret: strings.TrimSpace(kiwifySecret), mercadoPago: mercadoPago}
}

// RegisterWebhookRoutes mounts the webhook endpoints under /webhooks.
func RegisterWebhookRoutes(r *gin.Engine, h *Handler, allowedOrigins []string) {
	if r == nil || h == nil {
		return
	}
	group := r.Group("/webhooks")
	group.Use(wheelhttp.CORSMiddleware(allowedOrigins))

	group.POST("/kiwify", h.Kiwify)
	group.OPTIONS("/kiwify", preflight)
	group.POST("/mercadopago", h.MercadoPago)
	group.OPTIONS("/mercadopago", preflight)
}

// preflight gives OPTIONS a route to match; CORSMiddleware writes the response.
func preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Kiwify handles order notifications from Kiwify.
func (h *Handler) Kiwify(c *gin.Context) {
	ctx := c.Request.Context()
	body, errRead := readBody(c)
	in := webhook.Inbound{Provider: payment.ProviderKiwify, Payload: body, Origin: c.GetHeader("Origin")}
	if errRead != nil {
		h.svc.Reject(ctx, in, errRead)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	signature := c.Query("signature")
	if signature == "" {
		signature = c.GetHeader("X-Kiwify-Signature")
	}
	if !payment.VerifyKiwifySignature(h.kiwifySecret, body, signature) {
		h.svc.Reject(ctx, in, errors.New("invalid signature"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ev, errDecode := payment.DecodeKiwify(body)
	if errDecode != nil {
		h.svc.Reject(ctx, in, errDecode)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.EventType = ev.Status()
	in.ProviderEventID = ev.Order()

	notification, errNormalize := ev.Normalize()
	if errNormalize != nil {
		h.svc.Reject(ctx, in, errNormalize)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order ID not found"})
		return
	}
	h.handle(c, in, notification)
}

// MercadoPago handles payment notifications from MercadoPago.
func (h *Handler) MercadoPago(c *gin.Context) {
	ctx := c.Request.Context()
	body, errRead := readBody(c)
	in := webhook.Inbound{Provider: payment.ProviderMercadoPago, Payload: body, Origin: c.GetHeader("Origin")}
	if errRead != nil {
		h.svc.Reject(ctx, in, errRead)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ev, errDecode := payment.DecodeMercadoPago(body)
	if errDecode != nil {
		h.svc.Reject(ctx, in, errDecode)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.EventType = ev.EventType()
	in.ProviderEventID = ev.PaymentID

	notification, errNormalize := ev.Normalize()
	if errNormalize != nil {
		h.svc.Reject(ctx, in, errNormalize)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment ID not found"})
		return
	}

	if h.mercadoPago != nil && ev.IsPayment() {
		fetched, errFetch := h.mercadoPago.FetchPayment(ctx, ev.PaymentID)
		if errFetch != nil {
			log.WithError(errFetch).WithField("payment_id", ev.PaymentID).Warn("mercadopago webhook: fetch payment failed")
			h.svc.Reject(ctx, in, errFetch)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		notification = payment.NormalizeMercadoPagoPayment(ev.PaymentID, fetched)
	}
	h.handle(c, in, notification)
}

func (h *Handler) handle(c *gin.Context, in webhook.Inbound, notification payment.Notification) {
	res, errHandle := h.svc.Handle(c.Request.Context(), in, notification)
	if errHandle != nil {
		log.WithError(errHandle).WithField("provider", in.Provider).Error("webhook handling failed")
		if errors.Is(errHandle, webhook.ErrCreateFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	resp := gin.H{"success": true, "message": res.Message}
	if res.RedirectURL != "" {
		resp["redirect_url"] = res.RedirectURL
	}
	c.JSON(http.StatusOK, resp)
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
}
