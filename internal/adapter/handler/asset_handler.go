package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/handler/dto/request"
	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/handler/dto/response"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/apperror"
	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/httputil"
)

// Room for multipart boundaries and headers on top of the image itself.
const multipartOverhead = 64 << 10

type AssetHandler struct {
	assetSvc       AssetService
	maxUploadBytes int64
}

func NewAssetHandler(assetSvc AssetService, maxUploadBytes int64) *AssetHandler {
	return &AssetHandler{assetSvc: assetSvc, maxUploadBytes: maxUploadBytes}
}

func (h *AssetHandler) Upload(c *gin.Context) {
	kind, err := valueobject.ParseKind(c.Param("kind"))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	ownerID := strings.TrimSpace(c.Param("owner_id"))
	if ownerID == "" {
		httputil.HandleError(c, apperror.BadRequest("INVALID_OWNER", "owner id is required"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.HandleError(c, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidImage, h.maxUploadBytes))
			return
		}
		httputil.HandleError(c, apperror.BadRequest("INVALID_FILE", "file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.HandleError(c, apperror.BadRequest("INVALID_FILE", "could not read file"))
		return
	}

	// Generic part types say nothing; the validator sniffs the content.
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	result, err := h.assetSvc.Ingest(c.Request.Context(), entity.SourceUpload{
		Kind:        kind,
		OwnerID:     ownerID,
		Data:        data,
		ContentType: contentType,
		Filename:    header.Filename,
	})
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	httputil.Created(c, response.AssetFromResult(result))
}

func (h *AssetHandler) Delete(c *gin.Context) {
	var req request.DeleteAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.ValidationError(c, err)
		return
	}

	if err := h.assetSvc.Remove(c.Request.Context(), req.URL); err != nil {
		httputil.HandleError(c, err)
		return
	}

	httputil.NoContent(c)
}
