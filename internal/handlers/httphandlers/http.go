package httphandlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/SmartLease/leaserouter/internal/config"
	"gitlab.com/SmartLease/leaserouter/internal/interfaces"
	"gitlab.com/SmartLease/leaserouter/internal/rental"
	"gitlab.com/SmartLease/leaserouter/internal/repositories/store"
)

type RentalService interface {
	Create(ctx context.Context, req rental.CreateRequest) (*store.RentalAgreement, error)
	Sign(ctx context.Context, id uint, role rental.Role, privKey string) (*rental.SignResult, error)
	RegisterPayment(ctx context.Context, id uint, kind store.PaymentType, amount uint64, privKey string) (*store.Payment, error)
	Terminate(ctx context.Context, id uint, privKey string) (*rental.TerminateResult, error)
	SimulateTime(ctx context.Context, id uint, target time.Time, privKey string) (*rental.SimulateResult, error)
	List(ctx context.Context, status store.AgreementStatus, party string) ([]store.RentalAgreement, error)
	Get(ctx context.Context, id uint) (*rental.AgreementDetail, error)
	Events(ctx context.Context, id uint) ([]store.ContractEvent, error)
}

type HTTPHandler struct {
	service RentalService
	config  *config.Config
	log     interfaces.ILogger
}

func NewHTTPHandler(service RentalService, cfg *config.Config, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		service: service,
		config:  cfg,
		log:     log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID())

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)

	r.GET("/api/contracts", handl.ListContracts)
	r.GET("/api/contracts/:ID", handl.GetContract)
	r.GET("/api/contracts/:ID/events", handl.GetContractEvents)

	r.POST("/api/contracts", handl.CreateContract)
	r.POST("/api/contracts/:ID/sign", handl.SignContract)
	r.POST("/api/contracts/:ID/payments", handl.RegisterPayment)
	r.POST("/api/contracts/:ID/terminate", handl.TerminateContract)
	r.POST("/api/contracts/:ID/simulate-time", handl.SimulateTime)

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

// requestID tags every request with a correlation id, exposed in the
// response header and carried down to the audit log.
func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Header("X-Request-ID", id)
		ctx.Request = ctx.Request.WithContext(
			context.WithValue(ctx.Request.Context(), rental.RequestIDKey{}, id))
		ctx.Next()
	}
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, ConfigResponse{
		Version: config.BuildVersion,
		Config:  h.config.GetSanitized(),
	})
}
