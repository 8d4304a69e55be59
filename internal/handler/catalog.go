package handler

import (
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

type catalogResponse struct {
	Shelves  []domain.Shelf   `json:"shelves"`
	Products []domain.Product `json:"products"`
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	shelves, err := h.repository.GetAllShelves()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	products, err := h.repository.GetAllProducts()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取目录成功", catalogResponse{
		Shelves:  shelves,
		Products: products,
	})
}

func (h *Handler) ReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "上传的文件无效或过大")
		return
	}

	shelvesFile, _, err := r.FormFile("shelves")
	if err != nil {
		h.errorResponse(w, r, "缺少货架文件")
		return
	}
	defer shelvesFile.Close()

	productsFile, _, err := r.FormFile("products")
	if err != nil {
		h.errorResponse(w, r, "缺少商品文件")
		return
	}
	defer productsFile.Close()

	c, err := catalog.Load(shelvesFile, productsFile)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.ReplaceCatalog(c); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新目录成功", catalogResponse{
		Shelves:  c.Shelves(),
		Products: c.Products(),
	})
}

// loadCatalog 读取当前目录，目录不完整时返回给用户的提示
func (h *Handler) loadCatalog(w http.ResponseWriter, r *http.Request) (*domain.Catalog, bool) {
	c, err := h.repository.GetCatalog()
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyShelves):
			h.errorResponse(w, r, "尚未上传货架")
		case errors.Is(err, domain.ErrEmptyProducts):
			h.errorResponse(w, r, "尚未上传商品")
		default:
			h.internalServerError(w, r, err)
		}
		return nil, false
	}
	return c, true
}
