package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/storefront/apiserver/internal/imageset"
	"github.com/storefront/apiserver/internal/orphans"
	"github.com/storefront/apiserver/types"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentBlobCalls = 4

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context) ([]types.Product, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	UpdateImages(ctx context.Context, id int, images []string) error
	Delete(ctx context.Context, id int) error
}

// BlobStore uploads images and deletes them by public URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType, originalName string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

// OrphanReporter is told about objects no product references any more.
type OrphanReporter interface {
	Report(ctx context.Context, productID int, urls []string, reason string)
}

// Upload is an image file received with a product request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductInput is a validated create or update request.
type ProductInput struct {
	Title   string
	Caption string
	Price   decimal.Decimal
	// KeptImages is the client's view of the images to keep. Only used on
	// update, and only when no new files are uploaded.
	KeptImages []string
	Uploads    []Upload
}

// ProductService manages products and keeps the blob store in step with
// each product's image list.
type ProductService struct {
	repo    ProductRepository
	blobs   BlobStore
	orphans OrphanReporter
	log     zerolog.Logger
}

func NewProductService(repo ProductRepository, blobs BlobStore, orphans OrphanReporter, log zerolog.Logger) *ProductService {
	return &ProductService{
		repo:    repo,
		blobs:   blobs,
		orphans: orphans,
		log:     log.With().Str("component", "products").Logger(),
	}
}

func (s *ProductService) List(ctx context.Context) ([]types.Product, error) {
	return s.repo.List(ctx)
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, notFound(err, "Product not found")
	}
	return product, nil
}

// Create uploads in.Uploads and stores a product referencing them.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (types.Product, error) {
	uploaded, err := s.uploadAll(ctx, 0, in.Uploads)
	if err != nil {
		return types.Product{}, err
	}

	created, err := s.repo.Create(ctx, types.Product{
		Title:   in.Title,
		Caption: in.Caption,
		Price:   in.Price,
		Images:  uploaded,
	})
	if err != nil {
		s.orphans.Report(ctx, 0, uploaded, orphans.ReasonPersistFailed)
		return types.Product{}, err
	}
	return created, nil
}

// Update overwrites the product's fields and reconciles its images. Objects
// dropped from the image list are left in the blob store.
func (s *ProductService) Update(ctx context.Context, id int, in ProductInput) (types.Product, error) {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}

	images, err := s.ReconcileImages(ctx, id, stored.Images, in.KeptImages, in.Uploads)
	if err != nil {
		return types.Product{}, err
	}

	updated, err := s.repo.Update(ctx, types.Product{
		ID:      id,
		Title:   in.Title,
		Caption: in.Caption,
		Price:   in.Price,
		Images:  images,
	})
	if err != nil {
		if len(in.Uploads) > 0 {
			s.orphans.Report(ctx, id, images, orphans.ReasonPersistFailed)
		}
		return types.Product{}, notFound(err, "Product not found")
	}
	return updated, nil
}

// ReconcileImages computes a product's new image list. Kept images, when
// given, replace the stored list; any uploads replace both.
func (s *ProductService) ReconcileImages(ctx context.Context, productID int, stored, kept []string, uploads []Upload) ([]string, error) {
	base := imageset.Decode(kept)
	if len(base) == 0 {
		base = imageset.Decode(stored)
	}

	if len(uploads) == 0 {
		return base, nil
	}
	return s.uploadAll(ctx, productID, uploads)
}

// DeleteImage removes every occurrence of url from the product and deletes
// the object once. The product is left untouched if the deletion fails.
func (s *ProductService) DeleteImage(ctx context.Context, id int, url string) ([]string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, newError(ErrValidation, "imageUrl is required")
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(product.Images))
	for _, image := range product.Images {
		if image != url {
			filtered = append(filtered, image)
		}
	}
	if len(filtered) == len(product.Images) {
		return nil, newError(ErrNotFound, "Image not found in product")
	}

	if err := s.blobs.DeleteByURL(ctx, url); err != nil {
		return nil, storageError("delete image", err)
	}

	if err := s.repo.UpdateImages(ctx, id, filtered); err != nil {
		return nil, notFound(err, "Product not found")
	}
	return filtered, nil
}

// Delete removes the product row after attempting to delete every image.
// Failed image deletions are logged and reported as orphans; they never
// keep the row alive.
func (s *ProductService) Delete(ctx context.Context, id int) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	failed := make([]error, len(product.Images))
	var g errgroup.Group
	g.SetLimit(maxConcurrentBlobCalls)
	for i, url := range product.Images {
		g.Go(func() error {
			failed[i] = s.blobs.DeleteByURL(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	var orphaned []string
	for i, err := range failed {
		if err == nil {
			continue
		}
		orphaned = append(orphaned, product.Images[i])
		s.log.Warn().Err(err).
			Int("product_id", id).
			Str("url", product.Images[i]).
			Msg("failed to delete product image")
	}
	if len(orphaned) > 0 {
		s.orphans.Report(ctx, id, orphaned, orphans.ReasonDeleteFailed)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "Product not found")
	}
	return nil
}

// uploadAll uploads files concurrently and returns their URLs in input
// order. On the first failure the batch is abandoned and any sibling that
// did upload is reported as orphaned.
func (s *ProductService) uploadAll(ctx context.Context, productID int, uploads []Upload) ([]string, error) {
	urls := make([]string, len(uploads))
	if len(uploads) == 0 {
		return urls, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBlobCalls)
	for i, upload := range uploads {
		g.Go(func() error {
			url, err := s.blobs.Upload(gctx, upload.Data, upload.ContentType, upload.Filename)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var uploaded []string
		for _, url := range urls {
			if url != "" {
				uploaded = append(uploaded, url)
			}
		}
		if len(uploaded) > 0 {
			s.orphans.Report(ctx, productID, uploaded, orphans.ReasonBatchAborted)
		}
		return nil, storageError("upload images", err)
	}
	return urls, nil
}
