package banner

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attendboard/internal/response"
)

// Handler exposes the banner service over HTTP.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
}

// RegisterRoutes mounts the banner endpoints on r. Uploads larger than
// maxUploadBytes are rejected; zero disables the limit.
func RegisterRoutes(r gin.IRoutes, svc *Service, maxUploadBytes int64) {
	h := &Handler{svc: svc, maxUploadBytes: maxUploadBytes}

	r.POST("/banners/upload", h.UploadImage)
	r.POST("/banners", h.Create)
	r.GET("/banners", h.List)
	r.GET("/banners/active", h.Active)
	r.GET("/banners/:id", h.Get)
	r.PUT("/banners/:id/image", h.AttachImage)
	r.PUT("/banners/:id", h.Update)
	r.DELETE("/banners/:id", h.Delete)
}

func bannerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid banner id")
		return 0, false
	}
	return id, true
}

var errNoFile = errors.New("no file part")

// filePart returns the first multipart part that carries a filename. Parts
// are streamed; nothing is buffered to disk.
func (h *Handler) filePart(c *gin.Context) (*multipart.Part, error) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

func (h *Handler) rejectUpload(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFile):
		response.BadRequest(c, "No file provided")
	case errors.As(err, &tooLarge):
		response.BadRequest(c, "File too large")
	default:
		response.BadRequest(c, "Invalid multipart request")
	}
}

// POST /banners/upload
func (h *Handler) UploadImage(c *gin.Context) {
	part, err := h.filePart(c)
	if err != nil {
		h.rejectUpload(c, err)
		return
	}
	defer part.Close()

	out, err := h.svc.UploadImage(c.Request.Context(), part, part.FileName())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Image uploaded successfully", out)
}

// POST /banners
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	b, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	c.Header("Location", "/api/banners/"+strconv.FormatInt(b.ID, 10))
	response.Created(c, "Banner created", b)
}

// GET /banners?limit=
func (h *Handler) List(c *gin.Context) {
	limit := DefaultListLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	rows, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Banners fetched", rows)
}

// GET /banners/active
func (h *Handler) Active(c *gin.Context) {
	b, err := h.svc.Active(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	if IsDefault(b) {
		response.OK(c, "Default banner", b)
		return
	}
	response.OK(c, "Active banner found", b)
}

// GET /banners/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := bannerID(c)
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Banner fetched", b)
}

// PUT /banners/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := bannerID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	b, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Banner updated", b)
}

// PUT /banners/:id/image
func (h *Handler) AttachImage(c *gin.Context) {
	id, ok := bannerID(c)
	if !ok {
		return
	}
	part, err := h.filePart(c)
	if err != nil {
		h.rejectUpload(c, err)
		return
	}
	defer part.Close()

	b, err := h.svc.AttachImage(c.Request.Context(), id, part, part.FileName())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, "Banner image updated", b)
}

// DELETE /banners/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := bannerID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Empty(c, "Banner deleted")
}
