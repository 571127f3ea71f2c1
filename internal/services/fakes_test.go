package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if f.users[id].Email == email {
			return f.users[id], nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Role = current.Role
	f.users[user.ID] = user
	return user, nil
}

type fakeProductRepo struct {
	mu                sync.Mutex
	nextID            int
	products          map[int]types.Product
	createErr         error
	updateErr         error
	updateImagesCalls int
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int]types.Product)}
}

func (f *fakeProductRepo) seed(product types.Product) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	return product.ID
}

func (f *fakeProductRepo) List(context.Context) ([]types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeProductRepo) Get(_ context.Context, id int) (types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) Create(_ context.Context, product types.Product) (types.Product, error) {
	if f.createErr != nil {
		return types.Product{}, f.createErr
	}
	product.ID = f.seed(product)
	return product, nil
}

func (f *fakeProductRepo) Update(_ context.Context, product types.Product) (types.Product, error) {
	if f.updateErr != nil {
		return types.Product{}, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[product.ID]; !ok {
		return types.Product{}, store.ErrNotFound
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) UpdateImages(_ context.Context, id int, images []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateImagesCalls++
	p, ok := f.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Images = images
	f.products[id] = p
	return nil
}

func (f *fakeProductRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

const blobBase = "https://shop-assets.s3.amazonaws.com/uploads/"

type fakeBlobStore struct {
	mu         sync.Mutex
	uploaded   []string
	deleted    []string
	uploadErrs map[string]error
	deleteErrs map[string]error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		uploadErrs: make(map[string]error),
		deleteErrs: make(map[string]error),
	}
}

func (f *fakeBlobStore) Upload(_ context.Context, _ []byte, _ string, originalName string) (string, error) {
	if err := f.uploadErrs[originalName]; err != nil {
		return "", err
	}
	url := blobBase + originalName
	f.mu.Lock()
	f.uploaded = append(f.uploaded, url)
	f.mu.Unlock()
	return url, nil
}

func (f *fakeBlobStore) DeleteByURL(_ context.Context, url string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, url)
	f.mu.Unlock()
	return f.deleteErrs[url]
}

type report struct {
	productID int
	urls      []string
	reason    string
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []report
}

func (f *fakeReporter) Report(_ context.Context, productID int, urls []string, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report{productID: productID, urls: urls, reason: reason})
}

var errBoom = errors.New("boom")
