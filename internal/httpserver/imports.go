package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
	"product-catalog/internal/service/imports"
)

const batchNotFound = "The import with this id does not exist."

type importHandler struct {
	imports   ImportService
	logger    *zap.Logger
	maxUpload int64
}

// upload accepts a multipart "file" field and answers 202 once the file
// header has been read and the batch scheduled.
func (h *importHandler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "A CSV file is required in the \"file\" field.", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "The uploaded file could not be read.", nil)
		return
	}
	defer f.Close()

	snap, err := h.imports.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		if imports.IsFileError(err) {
			fail(c, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		failErr(c, h.logger, err, "")
		return
	}
	c.JSON(http.StatusAccepted, envelope{
		Success: true,
		Message: "The import has started.",
		Payload: gin.H{"batch_id": snap.ID, "batch": snap},
	})
}

func (h *importHandler) status(c *gin.Context) {
	snap, err := h.imports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, h.logger, err, batchNotFound)
		return
	}
	ok(c, "Import status fetched successfully.", snap)
}

func (h *importHandler) cancel(c *gin.Context) {
	snap, err := h.imports.Cancel(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, imports.ErrFinished), errors.Is(err, imports.ErrNotLocal):
		fail(c, http.StatusConflict, err.Error(), snap)
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, batchNotFound, nil)
	case err != nil:
		failErr(c, h.logger, err, batchNotFound)
	default:
		ok(c, "The import is being cancelled.", snap)
	}
}
