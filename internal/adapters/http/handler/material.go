package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/core/material"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"github.com/shopspring/decimal"
)

const defaultAvailabilityMinQuantity = 1

// MaterialHandler は /api/materials 以下のエンドポイントを提供します。
type MaterialHandler struct {
	svc material.UseCase
	log *logger.Logger
}

// NewMaterialHandler は MaterialHandler を生成します。
func NewMaterialHandler(svc material.UseCase, log *logger.Logger) *MaterialHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MaterialHandler{svc: svc, log: log}
}

// Register はルートを登録します。
func (h *MaterialHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/materials")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/availability", h.Availability)
	g.GET("/low-stock", h.LowStock)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/stock", h.AdjustStock)
}

type createMaterialRequest struct {
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	SKU          string          `json:"sku"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	MinQuantity  float64         `json:"min_quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	SupplierID   *string         `json:"supplier_id"`
	Location     *string         `json:"location"`
	IsActive     *bool           `json:"is_active"`
	LastOrdered  *time.Time      `json:"last_ordered"`
}

type updateMaterialRequest struct {
	Name         *string             `json:"name"`
	Description  Optional[string]    `json:"description"`
	SKU          *string             `json:"sku"`
	Quantity     *float64            `json:"quantity"`
	Unit         *string             `json:"unit"`
	MinQuantity  *float64            `json:"min_quantity"`
	PricePerUnit *decimal.Decimal    `json:"price_per_unit"`
	SupplierID   Optional[string]    `json:"supplier_id"`
	Location     Optional[string]    `json:"location"`
	IsActive     *bool               `json:"is_active"`
	LastOrdered  Optional[time.Time] `json:"last_ordered"`
}

type adjustStockRequest struct {
	Delta float64 `json:"delta"`
}

type materialResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        *string         `json:"description"`
	SKU                string          `json:"sku"`
	Quantity           float64         `json:"quantity"`
	Unit               string          `json:"unit"`
	MinQuantity        float64         `json:"min_quantity"`
	PricePerUnit       decimal.Decimal `json:"price_per_unit"`
	SupplierID         *string         `json:"supplier_id"`
	Location           *string         `json:"location"`
	IsActive           bool            `json:"is_active"`
	LastOrdered        *time.Time      `json:"last_ordered"`
	LastUpdated        time.Time       `json:"last_updated"`
	CreatedAt          time.Time       `json:"created_at"`
	TotalValue         decimal.Decimal `json:"total_value"`
	AvailabilityStatus string          `json:"availability_status"`
	NeedsReorder       bool            `json:"needs_reorder"`
}

// List は資材の一覧を返します。search で名前を部分一致検索します。
func (h *MaterialHandler) List(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		respondError(c, h.log, "fetch materials", err)
		return
	}

	materials, err := h.svc.ListMaterials(c.Request.Context(), material.ListMaterialsInput{
		Skip:   skip,
		Limit:  limit,
		Search: queryString(c, "search"),
	})
	if err != nil {
		respondError(c, h.log, "fetch materials", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponses(materials))
}

// Create は資材を登録します。
func (h *MaterialHandler) Create(c *gin.Context) {
	var req createMaterialRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "create material", err)
		return
	}

	created, err := h.svc.CreateMaterial(c.Request.Context(), material.CreateMaterialInput{
		Name:         req.Name,
		Description:  req.Description,
		SKU:          req.SKU,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		MinQuantity:  req.MinQuantity,
		PricePerUnit: req.PricePerUnit,
		SupplierID:   req.SupplierID,
		Location:     req.Location,
		IsActive:     req.IsActive,
		LastOrdered:  req.LastOrdered,
	})
	if err != nil {
		respondError(c, h.log, "create material", err)
		return
	}
	c.JSON(http.StatusCreated, toMaterialResponse(created))
}

// Availability は在庫数が min_quantity 以上の資材を返します。
func (h *MaterialHandler) Availability(c *gin.Context) {
	minQuantity, err := queryFloat(c, "min_quantity", defaultAvailabilityMinQuantity)
	if err != nil {
		respondError(c, h.log, "fetch material availability", err)
		return
	}

	materials, err := h.svc.ListAvailable(c.Request.Context(), material.ListAvailableInput{MinQuantity: minQuantity})
	if err != nil {
		respondError(c, h.log, "fetch material availability", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponses(materials))
}

// LowStock は発注点を下回った資材を返します。
func (h *MaterialHandler) LowStock(c *gin.Context) {
	materials, err := h.svc.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "fetch low stock materials", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponses(materials))
}

// Get は資材を取得します。
func (h *MaterialHandler) Get(c *gin.Context) {
	found, err := h.svc.GetMaterial(c.Request.Context(), material.GetMaterialInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.log, "fetch material", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(found))
}

// Update は送信されたキーだけを更新します。
func (h *MaterialHandler) Update(c *gin.Context) {
	var req updateMaterialRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "update material", err)
		return
	}

	updated, err := h.svc.UpdateMaterial(c.Request.Context(), material.UpdateMaterialInput{
		ID:             c.Param("id"),
		Name:           req.Name,
		Description:    req.Description.Value,
		DescriptionSet: req.Description.Set,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		MinQuantity:    req.MinQuantity,
		PricePerUnit:   req.PricePerUnit,
		SupplierID:     req.SupplierID.Value,
		SupplierIDSet:  req.SupplierID.Set,
		Location:       req.Location.Value,
		LocationSet:    req.Location.Set,
		IsActive:       req.IsActive,
		LastOrdered:    req.LastOrdered.Value,
		LastOrderedSet: req.LastOrdered.Set,
	})
	if err != nil {
		respondError(c, h.log, "update material", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(updated))
}

// Delete は資材を削除します。
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteMaterial(c.Request.Context(), material.DeleteMaterialInput{ID: c.Param("id")}); err != nil {
		respondError(c, h.log, "delete material", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Material deleted successfully"})
}

// AdjustStock は在庫数を増減します。結果は 0 未満になりません。
func (h *MaterialHandler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, "adjust stock", err)
		return
	}

	updated, err := h.svc.AdjustStock(c.Request.Context(), material.AdjustStockInput{ID: c.Param("id"), Delta: req.Delta})
	if err != nil {
		respondError(c, h.log, "adjust stock", err)
		return
	}
	c.JSON(http.StatusOK, toMaterialResponse(updated))
}

func toMaterialResponses(materials []*material.Material) []materialResponse {
	out := make([]materialResponse, 0, len(materials))
	for _, m := range materials {
		out = append(out, toMaterialResponse(m))
	}
	return out
}

func toMaterialResponse(m *material.Material) materialResponse {
	return materialResponse{
		ID:                 m.ID,
		Name:               m.Name,
		Description:        m.Description,
		SKU:                m.SKU,
		Quantity:           m.Quantity,
		Unit:               m.Unit,
		MinQuantity:        m.MinQuantity,
		PricePerUnit:       m.PricePerUnit,
		SupplierID:         m.SupplierID,
		Location:           m.Location,
		IsActive:           m.IsActive,
		LastOrdered:        m.LastOrdered,
		LastUpdated:        m.LastUpdated,
		CreatedAt:          m.CreatedAt,
		TotalValue:         m.TotalValue(),
		AvailabilityStatus: string(m.AvailabilityStatus()),
		NeedsReorder:       m.CheckLowStock(),
	}
}
