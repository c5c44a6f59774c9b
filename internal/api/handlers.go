// handlers.go - Page and JSON handlers for the document library
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xaenox/bwe-assistant/internal/catalog"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

// Handler serves the HTTP routes on top of a catalog service.
type Handler struct {
	service *catalog.Service
	logger  *zap.Logger
}

func NewHandler(service *catalog.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type indexPage struct {
	View  *models.CategoryView
	Flash string
	Level string
}

type updateCategoryRequest struct {
	FileID      string `json:"file_id"`
	NewCategory string `json:"new_category"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type debugFile struct {
	Filename  string `json:"filename"`
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "BWE Assistant is running",
	})
}

// HandleIndex renders the categorized library. Unknown categories redirect home.
func (h *Handler) HandleIndex(c echo.Context) error {
	selected := pathParam(c, "category")

	view, err := h.service.View(c.Request().Context(), selected)
	if errors.Is(err, catalog.ErrUnknownCategory) {
		return c.Redirect(http.StatusFound, "/")
	}
	if err != nil {
		return err
	}

	if msg := c.QueryParam("error"); msg != "" && view.Error == "" {
		view.Error = msg
	}
	page := indexPage{
		View:  view,
		Flash: c.QueryParam("flash"),
		Level: c.QueryParam("level"),
	}
	if page.Level == "" {
		page.Level = "info"
	}
	return c.Render(http.StatusOK, "index.html", page)
}

// HandleListFiles returns the categorized view as JSON, or msgpack with format=msgpack.
func (h *Handler) HandleListFiles(c echo.Context) error {
	view, err := h.service.View(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return serviceError(err)
	}

	if c.QueryParam("format") == "msgpack" {
		data, err := msgpack.Marshal(view)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, "application/msgpack", data)
	}
	return c.JSON(http.StatusOK, view)
}

// HandleUploadFile accepts a multipart "file" field and redirects to its category.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil || header.Filename == "" {
		return redirectFlash(c, "/", "No file selected", "warning")
	}

	src, err := header.Open()
	if err != nil {
		return redirectFlash(c, "/", "Failed to upload file: "+err.Error(), "danger")
	}
	defer src.Close()

	record, category, err := h.service.Upload(c.Request().Context(), header.Filename, src)
	switch {
	case errors.Is(err, catalog.ErrNoFile):
		return redirectFlash(c, "/", "No file selected", "warning")
	case errors.Is(err, catalog.ErrFileTypeNotAllowed):
		return redirectFlash(c, "/", "File type not allowed", "warning")
	case err != nil:
		h.logger.Error("Upload failed", zap.Error(err), zap.String("filename", header.Filename))
		return redirectFlash(c, "/", "Failed to upload file: "+err.Error(), "danger")
	}

	if h.service.Limited() {
		return redirectFlash(c, categoryPath(category), "File uploaded in limited mode (not added to knowledge base)", "info")
	}
	msg := fmt.Sprintf("%q has been successfully added to the knowledge base", record.Filename)
	return redirectFlash(c, categoryPath(category), msg, "success")
}

// HandleDeleteFile removes a file remotely and from the assignments
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	category, err := h.service.Delete(c.Request().Context(), pathParam(c, "id"))
	if errors.Is(err, catalog.ErrFileNotFound) {
		return NewNotFoundError("File not found in categories")
	}
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File has been deleted from " + category,
	})
}

// HandleUpdateCategory reassigns a file from a JSON body
func (h *Handler) HandleUpdateCategory(c echo.Context) error {
	var req updateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	_, err := h.service.UpdateCategory(c.Request().Context(), req.FileID, req.NewCategory)
	switch {
	case errors.Is(err, catalog.ErrMissingField):
		return NewBadRequestError("Missing file_id or new_category", nil)
	case errors.Is(err, catalog.ErrInvalidCategory):
		return NewBadRequestError("Invalid category: "+req.NewCategory, nil)
	case errors.Is(err, catalog.ErrFileNotFound):
		return NewNotFoundError("File not found: " + req.FileID)
	case err != nil:
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// HandleSearchFiles matches filenames against a JSON {query}
func (h *Handler) HandleSearchFiles(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	results, err := h.service.Search(c.Request().Context(), req.Query)
	if errors.Is(err, catalog.ErrEmptyQuery) {
		return NewBadRequestError("No search query provided", nil)
	}
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

// HandleDebugFiles dumps the live remote listing
func (h *Handler) HandleDebugFiles(c echo.Context) error {
	files, err := h.service.Files(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusOK, map[string]string{"error": err.Error()})
	}

	out := make([]debugFile, 0, len(files))
	for _, f := range files {
		out = append(out, debugFile{Filename: f.Filename, ID: f.ID, CreatedAt: f.CreatedAt})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"files": out})
}

// HandleAddCategory appends a category from the "category" form field.
func (h *Handler) HandleAddCategory(c echo.Context) error {
	name, err := h.service.AddCategory(c.Request().Context(), c.FormValue("category"))
	if errors.Is(err, catalog.ErrCategoryExists) {
		return redirectError(c, "Category already exists")
	}
	if err != nil {
		h.logger.Error("Failed to add category", zap.Error(err))
		return redirectError(c, "Failed to add category")
	}
	return c.Redirect(http.StatusFound, categoryPath(name))
}

// HandleDeleteCategory removes the category named in the "category" form field.
func (h *Handler) HandleDeleteCategory(c echo.Context) error {
	name := c.FormValue("category")
	if name == "" {
		return redirectError(c, "No category specified")
	}

	err := h.service.DeleteCategory(c.Request().Context(), name)
	switch {
	case errors.Is(err, catalog.ErrProtectedCategory), errors.Is(err, catalog.ErrInvalidCategory):
		return redirectError(c, err.Error())
	case err != nil:
		h.logger.Error("Failed to delete category", zap.Error(err), zap.String("category", name))
		return redirectError(c, "Failed to delete category")
	}
	return c.Redirect(http.StatusFound, "/")
}

func redirectFlash(c echo.Context, path, message, level string) error {
	q := url.Values{}
	q.Set("flash", message)
	q.Set("level", level)
	return c.Redirect(http.StatusFound, path+"?"+q.Encode())
}

func redirectError(c echo.Context, message string) error {
	q := url.Values{}
	q.Set("error", message)
	return c.Redirect(http.StatusFound, "/?"+q.Encode())
}

// pathParam returns an unescaped path parameter.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
