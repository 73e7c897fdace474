package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/export"
	"product-catalog/internal/service/product"
)

const productNotFound = "The product with this id does not exist."

type productHandler struct {
	products ProductService
	logger   *zap.Logger
}

func (h *productHandler) list(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		failErr(c, h.logger, err, "")
		return
	}
	ok(c, "Products fetched successfully.", products)
}

func (h *productHandler) get(c *gin.Context) {
	id, found := idParam(c, "id", productNotFound)
	if !found {
		return
	}
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, h.logger, err, productNotFound)
		return
	}
	ok(c, "Product fetched successfully.", p)
}

func (h *productHandler) update(c *gin.Context) {
	id, found := idParam(c, "id", productNotFound)
	if !found {
		return
	}
	var in product.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "The request body is not a valid product update.", nil)
		return
	}
	p, err := h.products.Update(c.Request.Context(), id, in)
	if err != nil {
		failErr(c, h.logger, err, productNotFound)
		return
	}
	ok(c, "Product updated successfully.", p)
}

func (h *productHandler) delete(c *gin.Context) {
	id, found := idParam(c, "id", productNotFound)
	if !found {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		failErr(c, h.logger, err, productNotFound)
		return
	}
	ok(c, "Product deleted successfully.", nil)
}

func (h *productHandler) export(c *gin.Context) {
	id, found := idParam(c, "categoryId", categoryNotFound)
	if !found {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "The format must be csv or xlsx.", nil)
		return
	}
	url, err := h.products.Export(c.Request.Context(), id, format)
	if err != nil {
		failErr(c, h.logger, err, categoryNotFound)
		return
	}
	ok(c, "The CSV file has successfully generated. You can copy link to the browser to download it.", url)
}
