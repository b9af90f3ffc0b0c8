package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/reconcile"
	"github.com/your-org/photovault/internal/storage"
	"github.com/your-org/photovault/pkg/dto"
)

type PersonHandler struct {
	db         *storage.PostgresStore
	reconciler *reconcile.Reconciler
}

func NewPersonHandler(db *storage.PostgresStore, reconciler *reconcile.Reconciler) *PersonHandler {
	return &PersonHandler{db: db, reconciler: reconciler}
}

func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person, err := h.db.CreatePerson(c.Request.Context(), req.Name, req.SubjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, personResponse(*person))
}

func (h *PersonHandler) List(c *gin.Context) {
	persons, err := h.db.ListPersons(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PersonResponse, 0, len(persons))
	for _, p := range persons {
		resp = append(resp, personResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"persons": resp, "total": len(resp)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}
	c.JSON(http.StatusOK, personResponse(*person))
}

// ListReview returns faces awaiting manual confirmation.
func (h *PersonHandler) ListReview(c *gin.Context) {
	limit := 100
	if v, err := parseIntQuery(c, "limit"); err == nil && v > 0 {
		limit = v
	}

	faces, err := h.db.ListReviewFaces(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ReviewFaceResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, dto.ReviewFaceResponse{
			ID:                  f.ID,
			AssetID:             f.AssetID,
			BBox:                f.BBox,
			DetectConfidence:    f.DetectConfidence,
			SuggestedPersonID:   f.SuggestedPersonID,
			SuggestedConfidence: f.SuggestedConfidence,
			ImagePath:           f.ImagePath,
			CreatedAt:           f.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

// ConfirmReview assigns a reviewed face to a person (manual assignment).
func (h *PersonHandler) ConfirmReview(c *gin.Context) {
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	var req dto.ConfirmFaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	face, err := h.db.GetFace(c.Request.Context(), faceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if face == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "face not found"})
		return
	}

	confidence := 1.0
	if face.SuggestedConfidence != nil && face.SuggestedPersonID != nil && *face.SuggestedPersonID == req.PersonID {
		confidence = *face.SuggestedConfidence
	}

	if err := h.db.AssignFace(c.Request.Context(), faceID, req.PersonID, confidence, models.AssignMethodManual); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Advisory drift check right after the assignment.
	h.reconciler.QuickCheck(c.Request.Context(), req.PersonID)

	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

// RejectReview clears a face's pending suggestion.
func (h *PersonHandler) RejectReview(c *gin.Context) {
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	if err := h.db.ClearSuggestion(c.Request.Context(), faceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func personResponse(p models.Person) dto.PersonResponse {
	return dto.PersonResponse{
		ID:        p.ID,
		Name:      p.Name,
		SubjectID: p.SubjectID,
		FaceCount: p.FaceCount,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}
