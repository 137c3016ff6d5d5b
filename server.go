package main

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/models"
	"github.com/epicdata/stockroom_backend/models/reports"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// operatorMiddleware resolves the opaque operator identity from the
// X-Operator-Id header. The core does not authenticate it; that belongs to
// the calling layer.
func operatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Operator-Id"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Operator-Id header is required"})
			return
		}
		operatorId, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Operator-Id must be numeric"})
			return
		}
		c.Request = c.Request.WithContext(utils.SetOperatorIdInContext(c.Request.Context(), operatorId))
		c.Next()
	}
}

func operatorFrom(c *gin.Context) int64 {
	id, _ := utils.GetOperatorIdFromContext(c.Request.Context())
	return id
}

// respondError maps the core error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var dm *utils.DepartmentMismatchError
	switch {
	case errors.As(err, &dm):
		c.JSON(http.StatusConflict, gin.H{
			"error":                err.Error(),
			"locked_department":    dm.LockedDepartment,
			"requested_department": dm.RequestedDepartment,
		})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error, retry later"})
	}
}

func openUploadedXlsx(c *gin.Context) (multipart.File, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return nil, false
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx files are accepted"})
		return nil, false
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return nil, false
	}
	return f, true
}

func importCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := openUploadedXlsx(c)
		if !ok {
			return
		}
		defer f.Close()

		summary, err := models.ImportCatalogFromXlsx(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func subtractCollectedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := openUploadedXlsx(c)
		if !ok {
			return
		}
		defer f.Close()

		summary, err := models.SubtractCollectedFromXlsx(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func searchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := models.SearchProducts(c.Request.Context(), c.Query("q"), operatorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func statsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetCatalogStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := models.GetProductByArticle(c.Request.Context(), c.Param("article"))
		if err != nil {
			respondError(c, err)
			return
		}
		available, err := models.ProductAvailability(c.Request.Context(), product.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product, "available": available})
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			respondError(c, utils.NewValidationError("id", "product id must be numeric"))
			return
		}
		product, err := models.GetProductById(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		available, err := models.ProductAvailability(c.Request.Context(), product.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": product, "available": available})
	}
}

type listItemRequest struct {
	ProductId int             `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func getListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := models.GetPickList(c.Request.Context(), operatorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func addListItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "invalid request body",
				"fields": utils.ProcessValidationErrors(err),
			})
			return
		}
		result, err := models.AddItemToPickList(c.Request.Context(), operatorFrom(c), req.ProductId, req.Quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func setListItemQuantityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, err := strconv.Atoi(c.Param("productId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "productId must be numeric"})
			return
		}
		var req struct {
			Quantity decimal.Decimal `json:"quantity"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := models.SetPickListItemQuantity(c.Request.Context(), operatorFrom(c), productId, req.Quantity); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeListItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, err := strconv.Atoi(c.Param("productId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "productId must be numeric"})
			return
		}
		if err := models.RemoveItemFromPickList(c.Request.Context(), operatorFrom(c), productId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func clearListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.ClearPickList(c.Request.Context(), operatorFrom(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func finalizeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := models.FinalizePickList(c.Request.Context(), operatorFrom(c))
		if errors.Is(err, utils.ErrorEmptyList) {
			c.JSON(http.StatusOK, gin.H{"status": "empty"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listArchivesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lists, err := models.GetSavedLists(c.Request.Context(), operatorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lists": lists})
	}
}

func getArchiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
			return
		}
		list, err := models.GetSavedListById(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func exportArchiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
			return
		}
		list, err := models.GetSavedListById(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		partition := models.PartitionFulfilled
		if c.Query("partition") == "surplus" {
			partition = models.PartitionSurplus
		}
		fulfilled, surplus := list.PartitionItems()
		items := fulfilled
		if partition == models.PartitionSurplus {
			items = surplus
		}

		filename := reports.ExportFilename(list.Department, list.OperatorId, partition, list.CreatedAt)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := reports.WriteListPartition(c.Writer, items); err != nil {
			_ = c.Error(err)
		}
	}
}

func activeListsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		infos, err := models.GetOperatorsWithActiveLists(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"active_lists": infos})
	}
}

func forceClearListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorId, err := strconv.ParseInt(c.Param("operatorId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "operatorId must be numeric"})
			return
		}
		if err := models.ClearPickList(c.Request.Context(), operatorId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			entry := logger.WithField("path", c.Request.URL.Path)
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				entry = entry.WithField("correlationId", cid)
			}
			entry.Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
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
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; until DB/Redis are ready, app endpoints
	// return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
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
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "X-Operator-Id", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/catalog/import", importCatalogHandler())
		api.POST("/catalog/subtract", subtractCollectedHandler())
		api.GET("/catalog/stats", statsHandler())
		api.GET("/catalog/items/:article", getItemHandler())
		api.GET("/catalog/products/:id", getProductHandler())

		operator := api.Group("", operatorMiddleware())
		{
			operator.GET("/catalog/search", searchHandler())
			operator.GET("/list", getListHandler())
			operator.POST("/list/items", addListItemHandler())
			operator.PATCH("/list/items/:productId", setListItemQuantityHandler())
			operator.DELETE("/list/items/:productId", removeListItemHandler())
			operator.DELETE("/list", clearListHandler())
			operator.POST("/list/finalize", finalizeHandler())
			operator.GET("/archives", listArchivesHandler())
			operator.GET("/archives/:id", getArchiveHandler())
			operator.GET("/archives/:id/export", exportArchiveHandler())
		}
	}
	r.GET("/internal/lists", activeListsHandler())
	r.DELETE("/internal/lists/:operatorId", forceClearListHandler())
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// READ COMMITTED keeps the row locks effective without gap-lock stalls
	// during bulk imports.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/api")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
