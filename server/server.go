// Package server exposes the payment engine over HTTP: payment
// creation, transaction submission and the pending payment lookup.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/types"
)

// PaymentEngine is the engine surface the HTTP handlers call.
type PaymentEngine interface {
	CreateEVMPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.EVMTransaction, *types.PaymentCredential, error)
	CreateSolanaPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.SolanaTransaction, *types.PaymentCredential, error)
	EnqueueVerification(ctx context.Context, token, txHash string, family types.ChainFamily) error
	PendingPayment(ctx context.Context, id uint) (*types.PendingPayment, error)
}

type Server struct {
	engine   PaymentEngine
	validate *validator.Validate
	log      logger.Logger
}

func New(engine PaymentEngine, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{
		engine:   engine,
		validate: validator.New(),
		log:      log,
	}
}

// Router builds the gin router with all payment routes mounted.
func (s *Server) Router(enableMetrics bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	payments := r.Group("/payments")
	payments.POST("/evm", s.createEVMPayment)
	payments.POST("/sol", s.createSolanaPayment)
	payments.POST("/evm/validate", s.validatePayment(types.ChainEVM))
	payments.POST("/sol/validate", s.validatePayment(types.ChainSolana))
	payments.GET("/pending/:id", s.pendingPayment)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if enableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return r
}

func (s *Server) createEVMPayment(c *gin.Context) {
	req, ok := s.bindCreateRequest(c)
	if !ok {
		return
	}

	tx, cred, err := s.engine.CreateEVMPayment(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "credential": cred})
}

func (s *Server) createSolanaPayment(c *gin.Context) {
	req, ok := s.bindCreateRequest(c)
	if !ok {
		return
	}

	tx, cred, err := s.engine.CreateSolanaPayment(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "credential": cred})
}

func (s *Server) validatePayment(family types.ChainFamily) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			s.respondError(c, types.Unauthorized("missing bearer credential"))
			return
		}

		var req types.ValidatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, types.InvalidData("invalid request body: %v", err))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(c, types.InvalidData("invalid request: %v", err))
			return
		}

		if err := s.engine.EnqueueVerification(c.Request.Context(), token, req.TxHash, family); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "tx_hash": req.TxHash})
	}
}

func (s *Server) pendingPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		s.respondError(c, types.InvalidData("invalid payment id %q", c.Param("id")))
		return
	}

	pending, err := s.engine.PendingPayment(c.Request.Context(), uint(id))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (s *Server) bindCreateRequest(c *gin.Context) (types.CreatePaymentRequest, bool) {
	var req types.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, types.InvalidData("invalid request body: %v", err))
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(c, types.InvalidData("invalid request: %v", err))
		return req, false
	}
	return req, true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := types.CodeOf(err)

	var status int
	switch code {
	case types.CodeInvalidAddress, types.CodeInvalidData, types.CodeAssetNotSupported:
		status = http.StatusBadRequest
	case types.CodeUnauthorized:
		status = http.StatusUnauthorized
	case types.CodeNotFound:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", map[string]any{"error": err.Error()})
	}
	c.JSON(status, gin.H{"code": code, "error": err.Error()})
}
