// internal/handler/job_handler.go
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpr-service/internal/model"
	"escpr-service/internal/repository"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

// JobHandler handles print job requests
type JobHandler struct {
	printService *service.PrintService
	maxBodySize  int64
	logger       *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(printService *service.PrintService, maxBodySize int64, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		printService: printService,
		maxBodySize:  maxBodySize,
		logger:       utils.NewServiceLogger(logger, "job-handler"),
	}
}

// RegisterRoutes registers job routes
func (h *JobHandler) RegisterRoutes(router *gin.RouterGroup) {
	jobs := router.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:job_id", h.GetJob)
	}
}

// CreateJob prints a test pattern, or the uploaded image of a multipart
// request, and waits for the job to finish
// @Summary Print a job
// @Tags Jobs
// @Accept json,multipart/form-data
// @Produce json
// @Success 201 {object} utils.APIResponse{data=model.PrintJob}
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 502 {object} utils.APIResponse{data=model.PrintJob} "Printer failed"
// @Router /api/v1/jobs [post]
func (h *JobHandler) CreateJob(c *gin.Context) {
	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}

	var req service.PrintRequest
	if err := h.bind(c, &req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.printService.Print(c.Request.Context(), &req)
	switch {
	case err == nil:
		utils.SuccessResponse(c, http.StatusCreated, "Print job completed", record)
	case errors.Is(err, service.ErrInvalidRequest):
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid print request", err)
	case record != nil:
		h.logger.Error("Print job failed", zap.String("job_id", record.ID.String()), zap.Error(err))
		utils.ErrorResponseWithData(c, http.StatusBadGateway, "Print job failed", err, record)
	default:
		h.logger.Error("Failed to start print job", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to start print job", err)
	}
}

// bind reads a JSON body, or the form fields and image file of a multipart body
func (h *JobHandler) bind(c *gin.Context, req *service.PrintRequest) error {
	if c.ContentType() != "multipart/form-data" {
		return c.ShouldBindJSON(req)
	}

	if err := c.ShouldBind(req); err != nil {
		return err
	}

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return err
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer file.Close()

	req.Image, err = io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read uploaded image: %w", err)
	}
	return nil
}

// ListJobs lists job records
// @Summary List print jobs
// @Tags Jobs
// @Produce json
// @Param status query string false "Job status"
// @Param kind query string false "Job kind (escp or escpr)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Router /api/v1/jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := &repository.JobFilter{}

	if status := c.Query("status"); status != "" {
		s := model.JobStatus(status)
		filter.Status = &s
	}
	if kind := c.Query("kind"); kind != "" {
		k := model.JobKind(kind)
		filter.Kind = &k
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"limit": err.Error()})
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"offset": err.Error()})
		return
	}

	jobs, total, err := h.printService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Jobs retrieved successfully", gin.H{
		"jobs":   jobs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetJob returns one job record
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid job ID", err)
		return
	}

	record, err := h.printService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Job not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get job", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job retrieved successfully", record)
}

func queryInt(c *gin.Context, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}
