package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/export"
	"github.com/mobilepoint/apexorder/internal/service/pipeline"
	"github.com/mobilepoint/apexorder/internal/service/schema"
	"github.com/mobilepoint/apexorder/internal/tabular"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// OrderHandler computes an order from an uploaded catalog and movement report.
type OrderHandler struct {
	driver    *pipeline.Driver
	input     tabular.Options
	maxUpload int64
	logger    *zap.Logger
}

// NewOrderHandler constructs the HTTP handler adapter. maxUpload is the
// request body limit in bytes.
func NewOrderHandler(driver *pipeline.Driver, input tabular.Options, maxUpload int64, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{driver: driver, input: input, maxUpload: maxUpload, logger: logger}
}

// Create handles POST /api/orders. It expects multipart files "catalog" and
// "movement" and answers with the order as JSON, CSV or xlsx.
func (h *OrderHandler) Create(c *gin.Context) {
	if h.maxUpload > 0 {
		if c.Request.ContentLength > h.maxUpload {
			h.badUpload(c, &http.MaxBytesError{Limit: h.maxUpload})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	if _, err := c.MultipartForm(); err != nil {
		h.badUpload(c, fmt.Errorf("parse upload: %w", err))
		return
	}

	format := strings.ToLower(param(c, "format", formatJSON))
	switch format {
	case formatJSON, formatCSV, formatXLSX:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", format)})
		return
	}
	diagnostics, err := strconv.ParseBool(param(c, "diagnostics", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "diagnostics must be a boolean"})
		return
	}

	catalog, err := h.readUpload(c, "catalog")
	if err != nil {
		h.badUpload(c, err)
		return
	}
	movement, err := h.readUpload(c, "movement")
	if err != nil {
		h.badUpload(c, err)
		return
	}

	result, err := h.driver.Run(catalog, movement)
	if err != nil {
		h.pipelineError(c, err)
		return
	}

	c.Header("X-Run-ID", result.RunID)
	switch format {
	case formatCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, result.Rows, diagnostics); err != nil {
			h.internalError(c, err)
			return
		}
		attachment(c, export.DefaultBaseName+".csv")
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case formatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, result.Rows, diagnostics); err != nil {
			h.internalError(c, err)
			return
		}
		attachment(c, export.DefaultBaseName+".xlsx")
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *OrderHandler) readUpload(c *gin.Context, field string) (models.Table, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return models.Table{}, fmt.Errorf("%s file is required: %w", field, err)
	}
	return openUpload(fh, h.input)
}

func openUpload(fh *multipart.FileHeader, opts tabular.Options) (models.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Table{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return tabular.Read(fh.Filename, fh.Header.Get("Content-Type"), f, opts)
}

func (h *OrderHandler) badUpload(c *gin.Context, err error) {
	h.logger.Warn("rejected upload", zap.Error(err))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *OrderHandler) pipelineError(c *gin.Context, err error) {
	var schemaErr *schema.SchemaError
	var emptyErr *schema.EmptyInputError
	switch {
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"source":  schemaErr.Source,
			"missing": schemaErr.MissingNames(),
		})
	case errors.As(err, &emptyErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"source": emptyErr.Source,
		})
	default:
		h.internalError(c, err)
	}
}

func (h *OrderHandler) internalError(c *gin.Context, err error) {
	h.logger.Error("order request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute order"})
}

// param reads a value from the query string, then the parsed multipart form.
func param(c *gin.Context, key, fallback string) string {
	if v, ok := c.GetQuery(key); ok && v != "" {
		return v
	}
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return v
	}
	return fallback
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
}
