// internal/handler/decode_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpr-service/internal/escp"
	"escpr-service/internal/model"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

// DecodeHandler decodes uploaded print streams
type DecodeHandler struct {
	decodeService *service.DecodeService
	maxBodySize   int64
	logger        *utils.ServiceLogger
}

// NewDecodeHandler creates a new decode handler
func NewDecodeHandler(decodeService *service.DecodeService, maxBodySize int64, logger *zap.Logger) *DecodeHandler {
	return &DecodeHandler{
		decodeService: decodeService,
		maxBodySize:   maxBodySize,
		logger:        utils.NewServiceLogger(logger, "decode-handler"),
	}
}

// RegisterRoutes registers decode routes
func (h *DecodeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/decode", h.Decode)
}

// DecodeResponse lists the decoded commands of a stream
type DecodeResponse struct {
	Count    int                    `json:"count"`
	Commands []model.DecodedCommand `json:"commands"`
}

// Decode decodes the request body, raw or zstd compressed
// @Summary Decode an ESC/P stream
// @Tags Decode
// @Accept application/octet-stream
// @Produce json
// @Success 200 {object} utils.APIResponse{data=DecodeResponse}
// @Failure 413 {object} utils.APIResponse "Stream too large"
// @Failure 422 {object} utils.APIResponse{data=DecodeResponse} "Malformed stream, with the commands decoded before the error"
// @Router /api/v1/decode [post]
func (h *DecodeHandler) Decode(c *gin.Context) {
	body := c.Request.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodySize)
	}

	commands, err := h.decodeService.Decode(c.Request.Context(), body)
	result := DecodeResponse{Count: len(commands), Commands: commands}
	if err == nil {
		utils.SuccessResponse(c, http.StatusOK, "Stream decoded successfully", result)
		return
	}

	var tooLarge *http.MaxBytesError
	var decodeErr *escp.DecodeError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, service.ErrTooManyCommands):
		utils.ErrorResponseWithData(c, http.StatusRequestEntityTooLarge, "Stream too large", err, result)
	case errors.As(err, &decodeErr):
		utils.ErrorResponseWithData(c, http.StatusUnprocessableEntity, "Malformed print stream", err, result)
	default:
		h.logger.Error("Failed to decode stream", zap.Error(err))
		utils.ErrorResponseWithData(c, http.StatusBadRequest, "Failed to read stream", err, result)
	}
}
