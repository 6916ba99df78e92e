package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
)

// GeoResolver never fails; upstream problems come back as the fallback location.
type GeoResolver interface {
	Resolve(ctx context.Context, clientAddress string) entity.GeoInfo
}

type GeoHandler struct {
	resolver GeoResolver
}

func NewGeoHandler(resolver GeoResolver) *GeoHandler {
	return &GeoHandler{resolver: resolver}
}

func (h *GeoHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), middleware.ClientIP(r)))
}
