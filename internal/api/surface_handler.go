package api

import (
	"net/http"

	"flow-ai/chatsync/internal/service"
)

type SurfaceHandler struct {
	service *service.SurfaceService
}

func NewSurfaceHandler(svc *service.SurfaceService) *SurfaceHandler {
	return &SurfaceHandler{service: svc}
}

// Detect godoc
// @Summary      Detect follow-up surfaces
// @Tags         Surfaces
// @Accept       json
// @Produce      json
// @Param        request  body      DetectSurfacesRequest  true  "Message"
// @Success      200      {object}  DetectSurfacesResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/surfaces/detect [post]
func (h *SurfaceHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectSurfacesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DetectSurfacesResponse{Surfaces: h.service.Detect(r.Context(), req.Content)})
}
