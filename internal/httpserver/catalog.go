package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
)

const categoryNotFound = "The category with this id does not exist."

type catalogHandler struct {
	refs   ReferenceService
	logger *zap.Logger
}

var listMessages = map[domain.ReferenceKind]string{
	domain.KindCategory:     "Categories fetched successfully.",
	domain.KindDepartment:   "Departments fetched successfully.",
	domain.KindManufacturer: "Manufacturers fetched successfully.",
}

func (h *catalogHandler) list(kind domain.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, err := h.refs.List(c.Request.Context(), kind)
		if err != nil {
			failErr(c, h.logger, err, "")
			return
		}
		ok(c, listMessages[kind], refs)
	}
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *catalogHandler) rename(kind domain.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := idParam(c, "id", categoryNotFound)
		if !found {
			return
		}
		var req renameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusUnprocessableEntity, "The request body must be a JSON object with a name.", nil)
			return
		}
		ref, err := h.refs.Rename(c.Request.Context(), kind, id, req.Name)
		if err != nil {
			failErr(c, h.logger, err, categoryNotFound)
			return
		}
		ok(c, "Category updated successfully.", ref)
	}
}

func (h *catalogHandler) delete(kind domain.ReferenceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := idParam(c, "id", categoryNotFound)
		if !found {
			return
		}
		if err := h.refs.Delete(c.Request.Context(), kind, id); err != nil {
			failErr(c, h.logger, err, categoryNotFound)
			return
		}
		ok(c, "Category deleted successfully.", nil)
	}
}

func (h *catalogHandler) categoryProducts(c *gin.Context) {
	id, found := idParam(c, "id", categoryNotFound)
	if !found {
		return
	}
	products, err := h.refs.CategoryProducts(c.Request.Context(), id)
	if err != nil {
		failErr(c, h.logger, err, categoryNotFound)
		return
	}
	ok(c, "Products fetched successfully for the specified category.", products)
}
