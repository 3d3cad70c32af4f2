package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kharelcodes/bloghub/internal/config"
	"github.com/kharelcodes/bloghub/internal/domain/blog"
	"github.com/kharelcodes/bloghub/internal/http/middlewares"
	"github.com/kharelcodes/bloghub/internal/storage"
)

type BlogStore interface {
	Create(ctx context.Context, b blog.Blog) (blog.Blog, error)
	GetByID(ctx context.Context, id string) (blog.Blog, error)
	List(ctx context.Context, f blog.ListFilter) ([]blog.Blog, int, error)
	Update(ctx context.Context, id string, req blog.UpdateBlogRequest) (blog.Blog, error)
	SetImageURL(ctx context.Context, id, imageURL string) error
	Delete(ctx context.Context, id string) error
}

// ListCache fronts the hot list endpoint; a nil cache means every read goes
// to the database.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type BlogsHandler struct {
	blogs  BlogStore
	cache  ListCache
	images storage.ObjectStorage
}

func NewBlogsHandler(blogs BlogStore, listCache ListCache, images storage.ObjectStorage) *BlogsHandler {
	return &BlogsHandler{blogs: blogs, cache: listCache, images: images}
}

const (
	blogListCachePrefix = "blogs:list:"
	maxImageBytes       = 5 << 20
)

func (h *BlogsHandler) Create(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req blog.CreateBlogRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.blogs.Create(cctx, blog.NewFromCreateRequest(req, userID))

	if err != nil {
		RespondInternal(ctx, "Could not create blog")
		return
	}

	h.invalidateListCache(cctx)

	ctx.JSON(http.StatusCreated, gin.H{"blog": b})
}

func (h *BlogsHandler) List(ctx *gin.Context) {
	page, limit := pageParams(ctx)

	var title *string
	if t := strings.TrimSpace(ctx.Query("title")); t != "" {
		title = &t
	}

	h.respondList(ctx, blog.ListFilter{Page: page, Limit: limit, Title: title})
}

// Search is the list endpoint with a mandatory title filter.
func (h *BlogsHandler) Search(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))

	if q == "" {
		RespondBadRequest(ctx, "Missing search query", gin.H{"field": "q"})
		return
	}

	page, limit := pageParams(ctx)

	h.respondList(ctx, blog.ListFilter{Page: page, Limit: limit, Title: &q})
}

func (h *BlogsHandler) respondList(ctx *gin.Context, f blog.ListFilter) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	key := listCacheKey(f)

	if h.cache != nil {
		if cached, err := h.cache.Get(cctx, key); err == nil {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
	}

	blogs, total, err := h.blogs.List(cctx, f)

	if err != nil {
		RespondInternal(ctx, "Could not list blogs")
		return
	}

	body := gin.H{
		"blogs": blogs,
		"page":  f.Page,
		"limit": f.Limit,
		"total": total,
	}

	if h.cache != nil {
		if raw, err := json.Marshal(body); err == nil {
			// best effort; a failed set just means the next read hits the DB
			_ = h.cache.Set(cctx, key, raw)
		}
	}

	ctx.JSON(http.StatusOK, body)
}

func listCacheKey(f blog.ListFilter) string {
	title := ""
	if f.Title != nil {
		title = *f.Title
	}

	return fmt.Sprintf("%sp%d:l%d:t%s", blogListCachePrefix, f.Page, f.Limit, title)
}

func (h *BlogsHandler) invalidateListCache(ctx context.Context) {
	if h.cache != nil {
		_ = h.cache.InvalidatePrefix(ctx, blogListCachePrefix)
	}
}

func (h *BlogsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.blogs.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not load blog")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"blog": b})
}

// loadOwned fetches the blog and enforces that the caller wrote it. Blog
// edits are strictly author-only; admins get no override here.
func (h *BlogsHandler) loadOwned(ctx *gin.Context, cctx context.Context, id string) (blog.Blog, bool) {
	b, err := h.blogs.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return blog.Blog{}, false
		}
		RespondInternal(ctx, "Could not load blog")
		return blog.Blog{}, false
	}

	actorID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || actorID != b.UserID {
		RespondForbidden(ctx, "Only the author may modify this blog.")
		return blog.Blog{}, false
	}

	return b, true
}

func (h *BlogsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req blog.UpdateBlogRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, ok := h.loadOwned(ctx, cctx, id); !ok {
		return
	}

	b, err := h.blogs.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not update blog")
		return
	}

	h.invalidateListCache(cctx)

	ctx.JSON(http.StatusOK, gin.H{"blog": b})
}

func (h *BlogsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, ok := h.loadOwned(ctx, cctx, id); !ok {
		return
	}

	err := h.blogs.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not delete blog")
		return
	}

	h.invalidateListCache(cctx)

	ctx.Status(http.StatusNoContent)
}

// UploadImage stores the multipart "image" file in object storage and points
// the blog at it.
func (h *BlogsHandler) UploadImage(ctx *gin.Context) {
	if h.images == nil {
		RespondError(ctx, http.StatusServiceUnavailable, "storage_unavailable", "Image storage is not configured.", nil)
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if _, ok := h.loadOwned(ctx, cctx, id); !ok {
		return
	}

	fileHeader, err := ctx.FormFile("image")

	if err != nil {
		RespondBadRequest(ctx, "Missing image file", gin.H{"field": "image"})
		return
	}

	if fileHeader.Size > maxImageBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "image_too_large", "Image exceeds the size limit.", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		RespondBadRequest(ctx, "File must be an image", gin.H{"field": "image"})
		return
	}

	file, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read image")
		return
	}
	defer file.Close()

	key := id + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(fileHeader.Filename))

	if err := h.images.Put(cctx, key, file, fileHeader.Size, contentType); err != nil {
		RespondInternal(ctx, "Could not store image")
		return
	}

	imageURL := h.images.URL(key)

	if err := h.blogs.SetImageURL(cctx, id, imageURL); err != nil {
		// roll back the orphaned object
		_ = h.images.Delete(cctx, key)

		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not update blog image")
		return
	}

	h.invalidateListCache(cctx)

	ctx.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}
