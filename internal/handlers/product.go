package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/storefront/apiserver/internal/imageset"
	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageBytes      = 10 << 20
	maxImageFiles      = 10
	maxRequestBytes    = maxImageFiles*maxImageBytes + 1<<20

	formFieldTitle          = "title"
	formFieldCaption        = "caption"
	formFieldPrice          = "price"
	formFieldImages         = "images"
	formFieldImagesArray    = "images[]"
	formFieldExistingImages = "existingImages"

	// priceScale and maxPrice follow the NUMERIC(12, 2) price column.
	priceScale = 2
)

var maxPrice = decimal.New(1, 12-priceScale)

// ProductHandler provides HTTP handlers for products.
type ProductHandler struct {
	products *services.ProductService
	log      zerolog.Logger
}

// NewProductHandler constructs a handler with the provided service.
func NewProductHandler(products *services.ProductService, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

// ProductRouter registers product routes on the given router. Mutations
// require an admin token.
func ProductRouter(r chi.Router, products *services.ProductService, auth *services.AuthService, log zerolog.Logger) {
	handler := NewProductHandler(products, log)
	admin := []func(http.Handler) http.Handler{RequireAuth(auth), RequireAdmin}

	r.Get("/", handler.ListProducts)
	r.With(admin...).Post("/", handler.CreateProduct)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.With(admin...).Put("/", handler.UpdateProduct)
		r.With(admin...).Delete("/", handler.DeleteProduct)
		r.With(admin...).Delete("/images", handler.DeleteProductImage)
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		resp = append(resp, newProductResponse(product))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := parseProductForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.products.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, ProductMutationResponse{
		Msg:    "Product created",
		ID:     created.ID,
		Images: created.Images,
	})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseProductForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.products.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductMutationResponse{
		Msg:    "Product updated",
		ID:     updated.ID,
		Images: updated.Images,
	})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Msg: "Product deleted"})
}

func (h *ProductHandler) DeleteProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req DeleteImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	images, err := h.products.DeleteImage(r.Context(), id, req.ImageURL)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductMutationResponse{Msg: "Image deleted", ID: id, Images: images})
}

// ProductResponse is a product as listed by the API. ImageURL is the cover
// image, or null when the product has none.
type ProductResponse struct {
	types.Product
	ImageURL *string `json:"image_url"`
}

func newProductResponse(product types.Product) ProductResponse {
	return ProductResponse{Product: product, ImageURL: product.CoverImage()}
}

type ProductMutationResponse struct {
	Msg    string   `json:"msg"`
	ID     int      `json:"id,omitempty"`
	Images []string `json:"images"`
}

// ProductForm holds the text fields of a product form.
type ProductForm struct {
	Title   string `json:"title" validate:"required"`
	Caption string `json:"caption"`
	Price   string `json:"price" validate:"required"`
}

type DeleteImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

func parseProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}

// parseProductForm reads a multipart (or urlencoded) product form.
func parseProductForm(w http.ResponseWriter, r *http.Request) (services.ProductInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return services.ProductInput{}, errors.New("invalid multipart form")
		}
		if err := r.ParseForm(); err != nil {
			return services.ProductInput{}, errors.New("invalid form")
		}
	}

	form := ProductForm{
		Title:   strings.TrimSpace(r.FormValue(formFieldTitle)),
		Caption: strings.TrimSpace(r.FormValue(formFieldCaption)),
		Price:   strings.TrimSpace(r.FormValue(formFieldPrice)),
	}
	if err := validateRequest(form); err != nil {
		return services.ProductInput{}, err
	}
	price, err := parsePrice(form.Price)
	if err != nil {
		return services.ProductInput{}, err
	}

	uploads, err := parseImageFiles(r.MultipartForm)
	if err != nil {
		return services.ProductInput{}, err
	}

	return services.ProductInput{
		Title:      form.Title,
		Caption:    form.Caption,
		Price:      price,
		KeptImages: parseExistingImages(r.PostForm[formFieldExistingImages]),
		Uploads:    uploads,
	}, nil
}

// parsePrice rejects prices the price column cannot hold exactly.
func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.New("invalid price")
	}
	if price.IsNegative() {
		return decimal.Decimal{}, errors.New("price must not be negative")
	}
	if !price.Equal(price.Truncate(priceScale)) {
		return decimal.Decimal{}, fmt.Errorf("price must have at most %d decimal places", priceScale)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, fmt.Errorf("price must be less than %s", maxPrice)
	}
	return price, nil
}

// parseExistingImages accepts a JSON array, a bare URL, or the field
// repeated once per URL.
func parseExistingImages(values []string) []string {
	images := make([]string, 0, len(values))
	for _, value := range values {
		images = append(images, imageset.Decode(value)...)
	}
	return images
}

func parseImageFiles(form *multipart.Form) ([]services.Upload, error) {
	if form == nil {
		return nil, nil
	}

	files := make([]*multipart.FileHeader, 0, len(form.File[formFieldImages])+len(form.File[formFieldImagesArray]))
	files = append(files, form.File[formFieldImages]...)
	files = append(files, form.File[formFieldImagesArray]...)
	if len(files) > maxImageFiles {
		return nil, fmt.Errorf("at most %d images are allowed", maxImageFiles)
	}

	uploads := make([]services.Upload, 0, len(files))
	for _, fileHeader := range files {
		upload, err := readImageFile(fileHeader)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readImageFile(fileHeader *multipart.FileHeader) (services.Upload, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to read image %s", fileHeader.Filename)
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		return services.Upload{}, err
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.MIME.Type != "image" {
		return services.Upload{}, fmt.Errorf("%s is not a supported image", fileHeader.Filename)
	}

	return services.Upload{
		Filename:    fileHeader.Filename,
		ContentType: kind.MIME.Value,
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
