package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/config"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/mailer"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/models/reports"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/netsuite"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/utils"
)

const defaultPort = "8080"

// reportQuery covers the shared query params of every report tool.
// Zero values fall through to each report's documented default.
type reportQuery struct {
	AsOfDate     string `form:"as_of_date" binding:"omitempty,datetime=2006-01-02"`
	LookbackDays int    `form:"lookback_days" binding:"omitempty,gte=1"`
	Limit        int    `form:"limit" binding:"omitempty,gte=1"`
	TopN         int    `form:"top_n" binding:"omitempty,gte=1"`
}

func (q reportQuery) asOf() time.Time {
	if q.AsOfDate == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	t, _ := time.Parse("2006-01-02", q.AsOfDate)
	return t
}

func bindQuery(c *gin.Context, out any) bool {
	if err := c.ShouldBindQuery(out); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		}
		return false
	}
	return true
}

// feedError reports an upstream collaborator failure. The whole report
// call fails; there are no partial briefs.
func feedError(c *gin.Context, funcName string, err error) {
	logger := config.GetLogger()
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(logger, "server.go", funcName, "feed call", gin.H{"correlation_id": cid}, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func arAgingSummaryHandler(feed models.InvoiceFeed) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q reportQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := reports.GetARAgingSummary(c.Request.Context(), feed, reports.ARAgingSummaryParams{
			AsOfDate:     q.asOf(),
			LookbackDays: q.LookbackDays,
			Limit:        q.Limit,
			TopN:         q.TopN,
		})
		if err != nil {
			feedError(c, "arAgingSummaryHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func customerRiskProfilesHandler(feed models.InvoiceFeed) gin.HandlerFunc {
	type riskQuery struct {
		reportQuery
		MinOpenBalance float64 `form:"min_open_balance" binding:"omitempty,gte=0"`
	}
	return func(c *gin.Context) {
		var q riskQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := reports.GetCustomerRiskProfiles(c.Request.Context(), feed, reports.CustomerRiskProfilesParams{
			AsOfDate:       q.asOf(),
			LookbackDays:   q.LookbackDays,
			Limit:          q.Limit,
			MinOpenBalance: decimal.NewFromFloat(q.MinOpenBalance),
			TopN:           q.TopN,
		})
		if err != nil {
			feedError(c, "customerRiskProfilesHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func collectionsPriorityQueueHandler(feed models.InvoiceFeed) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q reportQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := reports.GetCollectionsPriorityQueue(c.Request.Context(), feed, reports.CollectionsPriorityQueueParams{
			AsOfDate:     q.asOf(),
			LookbackDays: q.LookbackDays,
			Limit:        q.Limit,
			TopN:         q.TopN,
		})
		if err != nil {
			feedError(c, "collectionsPriorityQueueHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func dailyARBriefHandler(feed models.InvoiceFeed) gin.HandlerFunc {
	type briefQuery struct {
		AsOfDate     string `form:"as_of_date" binding:"omitempty,datetime=2006-01-02"`
		LookbackDays int    `form:"lookback_days" binding:"omitempty,gte=1"`
		Limit        int    `form:"limit" binding:"omitempty,gte=1"`
		TopNQueue    int    `form:"top_n_queue" binding:"omitempty,gte=1"`
		TopNRisk     int    `form:"top_n_risk" binding:"omitempty,gte=1"`
	}
	return func(c *gin.Context) {
		var q briefQuery
		if !bindQuery(c, &q) {
			return
		}
		base := reportQuery{AsOfDate: q.AsOfDate}
		resp, err := reports.GetDailyARBrief(c.Request.Context(), feed, reports.DailyARBriefParams{
			AsOfDate:     base.asOf(),
			LookbackDays: q.LookbackDays,
			Limit:        q.Limit,
			TopNQueue:    q.TopNQueue,
			TopNRisk:     q.TopNRisk,
		})
		if err != nil {
			feedError(c, "dailyARBriefHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Request params beat env defaults; the drafting layer fills in the
// shipped defaults when both are empty.
func senderNameOrEnv(v string) string {
	if v != "" {
		return v
	}
	return config.GetEnvOrDefault("SENDER_NAME", "")
}

func companyNameOrEnv(v string) string {
	if v != "" {
		return v
	}
	return config.GetEnvOrDefault("COMPANY_NAME", "")
}

func draftCollectionsEmailsHandler(feed models.InvoiceFeed) gin.HandlerFunc {
	type draftQuery struct {
		reportQuery
		SenderName  string `form:"sender_name"`
		CompanyName string `form:"company_name"`
	}
	return func(c *gin.Context) {
		var q draftQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := reports.GetDraftCollectionsEmails(c.Request.Context(), feed, reports.DraftCollectionsEmailsParams{
			AsOfDate:     q.asOf(),
			LookbackDays: q.LookbackDays,
			Limit:        q.Limit,
			TopN:         q.TopN,
			SenderName:   senderNameOrEnv(q.SenderName),
			CompanyName:  companyNameOrEnv(q.CompanyName),
		})
		if err != nil {
			feedError(c, "draftCollectionsEmailsHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

type sendEmailsRequest struct {
	AsOfDate      string `json:"as_of_date" binding:"omitempty,datetime=2006-01-02"`
	LookbackDays  int    `json:"lookback_days" binding:"omitempty,gte=1"`
	Limit         int    `json:"limit" binding:"omitempty,gte=1"`
	TopN          int    `json:"top_n" binding:"omitempty,gte=1"`
	SenderName    string `json:"sender_name"`
	CompanyName   string `json:"company_name"`
	DryRun        *bool  `json:"dry_run"`
	TestRecipient string `json:"test_recipient"`
	MaxSend       int    `json:"max_send" binding:"omitempty,gte=1"`
}

func sendCollectionsEmailsHandler(feed models.InvoiceFeed, m mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendEmailsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			}
			return
		}
		base := reportQuery{AsOfDate: req.AsOfDate}
		resp, err := reports.SendCollectionsEmails(c.Request.Context(), feed, m, reports.SendCollectionsEmailsParams{
			DraftCollectionsEmailsParams: reports.DraftCollectionsEmailsParams{
				AsOfDate:     base.asOf(),
				LookbackDays: req.LookbackDays,
				Limit:        req.Limit,
				TopN:         req.TopN,
				SenderName:   senderNameOrEnv(req.SenderName),
				CompanyName:  companyNameOrEnv(req.CompanyName),
			},
			DryRun:        req.DryRun,
			TestRecipient: req.TestRecipient,
			MaxSend:       req.MaxSend,
		})
		if err != nil {
			if errors.Is(err, utils.ErrorMailerNotConfigured) || errors.Is(err, utils.ErrorInvalidRecipient) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			feedError(c, "sendCollectionsEmailsHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func overdueInvoicesHandler(client *netsuite.Client) gin.HandlerFunc {
	type daysQuery struct {
		Days int `form:"days" binding:"omitempty,gte=1"`
	}
	return func(c *gin.Context) {
		var q daysQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := client.GetOverdueInvoices(c.Request.Context(), q.Days)
		if err != nil {
			feedError(c, "overdueInvoicesHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func unpaidInvoicesOverThresholdHandler(client *netsuite.Client) gin.HandlerFunc {
	type thresholdQuery struct {
		Threshold float64 `form:"threshold" binding:"omitempty,gt=0"`
	}
	return func(c *gin.Context) {
		var q thresholdQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := client.GetUnpaidInvoicesOverThreshold(c.Request.Context(), q.Threshold)
		if err != nil {
			feedError(c, "unpaidInvoicesOverThresholdHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

type dateRangeQuery struct {
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"required,datetime=2006-01-02"`
	TopN      int    `form:"top_n" binding:"omitempty,gte=1"`
}

func totalRevenueHandler(client *netsuite.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dateRangeQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := client.GetTotalRevenue(c.Request.Context(), q.StartDate, q.EndDate)
		if err != nil {
			feedError(c, "totalRevenueHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func topCustomersByInvoiceAmountHandler(client *netsuite.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dateRangeQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := client.GetTopCustomersByInvoiceAmount(c.Request.Context(), q.StartDate, q.EndDate, q.TopN)
		if err != nil {
			feedError(c, "topCustomersByInvoiceAmountHandler", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	client, err := netsuite.NewClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "netsuite"}).Fatal(err.Error())
	}

	// Mailer is optional; the send tool errors per-call when a real send
	// is requested without one.
	var outbound mailer.Mailer
	if smtpMailer, mailErr := mailer.NewSMTPMailerFromEnv(); mailErr == nil {
		outbound = smtpMailer
	} else {
		logger.WithFields(logrus.Fields{"field": "mailer"}).Warn("smtp mailer disabled: " + mailErr.Error())
	}

	// Shutdown coordination: handle SIGTERM for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist; anything else allows all
	// for developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length")
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		redisClient := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, parseErr := strconv.ParseInt(v, 10, 64); parseErr == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, parseErr := strconv.ParseInt(v, 10, 64); parseErr == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(redisClient, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// AR report tools.
	r.GET("/tools/ar-aging-summary", arAgingSummaryHandler(client))
	r.GET("/tools/customer-risk-profiles", customerRiskProfilesHandler(client))
	r.GET("/tools/collections-priority-queue", collectionsPriorityQueueHandler(client))
	r.GET("/tools/daily-ar-brief", dailyARBriefHandler(client))
	r.GET("/tools/draft-collections-emails", draftCollectionsEmailsHandler(client))
	r.POST("/tools/send-collections-emails", sendCollectionsEmailsHandler(client, outbound))

	// Simple passthrough queries.
	r.GET("/tools/overdue-invoices", overdueInvoicesHandler(client))
	r.GET("/tools/unpaid-invoices-over-threshold", unpaidInvoicesOverThresholdHandler(client))
	r.GET("/tools/total-revenue", totalRevenueHandler(client))
	r.GET("/tools/top-customers-by-invoice-amount", topCustomersByInvoiceAmountHandler(client))

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{"port": port}).Info("finance assistant tool server started")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
