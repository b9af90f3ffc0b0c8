package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/storage"
	"github.com/your-org/photovault/pkg/dto"
)

type AssetHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewAssetHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *AssetHandler {
	return &AssetHandler{db: db, minio: minio}
}

func (h *AssetHandler) List(c *gin.Context) {
	var status *models.AssetStatus
	if s := c.Query("status"); s != "" {
		st := models.AssetStatus(s)
		status = &st
	}

	limit := 50
	offset := 0
	if v, err := parseIntQuery(c, "limit"); err == nil && v > 0 {
		limit = v
	}
	if v, err := parseIntQuery(c, "offset"); err == nil && v > 0 {
		offset = v
	}

	assets, err := h.db.ListAssets(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AssetResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, assetResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"assets": resp, "total": len(resp)})
}

func (h *AssetHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	asset, err := h.db.GetAsset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.JSON(http.StatusOK, assetResponse(*asset))
}

// Thumbnail streams the stored thumbnail for an asset.
func (h *AssetHandler) Thumbnail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	asset, err := h.db.GetAsset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if asset == nil || asset.ThumbnailKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "thumbnail not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), asset.ThumbnailKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Faces lists the faces detected in an asset.
func (h *AssetHandler) Faces(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	faces, err := h.db.ListFacesByAsset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"faces": faces, "total": len(faces)})
}

func assetResponse(a models.MediaAsset) dto.AssetResponse {
	resp := dto.AssetResponse{
		ID:           a.ID,
		ContentHash:  a.ContentHash,
		SourcePath:   a.SourcePath,
		SizeBytes:    a.SizeBytes,
		MimeType:     a.MimeType,
		Status:       string(a.Status),
		DiscoveredAt: a.DiscoveredAt.Format(time.RFC3339),
	}
	if a.ThumbnailKey != "" {
		resp.ThumbnailURL = "/v1/assets/" + a.ID.String() + "/thumbnail"
	}
	if a.CompletedAt != nil {
		resp.CompletedAt = a.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func parseIntQuery(c *gin.Context, name string) (int, error) {
	return strconv.Atoi(c.Query(name))
}
