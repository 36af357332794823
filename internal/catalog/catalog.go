// Package catalog содержит статический каталог товаров сервиса квикмарт.
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/quickmart-system/internal/model"
)

// ErrProductNotFound возвращается при запросе неизвестного товара.
var ErrProductNotFound = errors.New("product not found")

// Catalog предоставляет доступ к списку товаров. После создания не изменяется.
type Catalog struct {
	products []model.Product
	byID     map[string]*model.Product
}

// New создаёт каталог из указанного списка товаров.
func New(products []model.Product) *Catalog {
	c := &Catalog{
		products: products,
		byID:     make(map[string]*model.Product, len(products)),
	}
	for i := range c.products {
		c.byID[c.products[i].ID] = &c.products[i]
	}
	return c
}

// Default создаёт каталог с демонстрационным набором продуктовых товаров.
func Default() *Catalog {
	return New(seedProducts())
}

// Products возвращает все товары каталога.
func (c *Catalog) Products() []model.Product {
	return c.products
}

// ProductsByCategory возвращает товары указанной категории.
func (c *Catalog) ProductsByCategory(category string) []model.Product {
	res := make([]model.Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			res = append(res, p)
		}
	}
	return res
}

// FindProduct возвращает товар по идентификатору.
func (c *Catalog) FindProduct(id string) (*model.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func seedProducts() []model.Product {
	type seed struct {
		name        string
		price       int64
		category    string
		image       string
		description string
	}

	seeds := []seed{
		{"Milk - Amul Full Cream", 65, "Dairy", "/images/milk.jpg", "Fresh full cream milk 1L"},
		{"Bread - Brown Bread", 40, "Bakery", "/images/bread.jpg", "Fresh brown bread loaf"},
		{"Eggs - Farm Fresh", 120, "Dairy", "/images/eggs.jpg", "12 pieces farm fresh eggs"},
		{"Banana - Robusta", 80, "Fruits", "/images/banana.jpg", "Fresh Robusta bananas 1kg"},
		{"Onion - Red", 45, "Vegetables", "/images/onion.jpg", "Fresh red onions 1kg"},
		{"Tomato - Hybrid", 60, "Vegetables", "/images/tomato.jpg", "Fresh hybrid tomatoes 1kg"},
		{"Rice - Basmati", 180, "Grains", "/images/rice.jpg", "Premium basmati rice 1kg"},
		{"Oil - Sunflower", 150, "Cooking", "/images/oil.jpg", "Sunflower cooking oil 1L"},
		{"Sugar - White", 50, "Groceries", "/images/sugar.jpg", "White sugar 1kg"},
		{"Tea - Tata Tea", 240, "Beverages", "/images/tea.jpg", "Tata tea premium 1kg"},
		{"Maggi Noodles", 48, "Instant Food", "/images/maggi.jpg", "Maggi 2-minute noodles 4 pack"},
		{"Biscuits - Parle G", 25, "Snacks", "/images/biscuits.jpg", "Parle G biscuits family pack"},
	}

	now := time.Now()
	products := make([]model.Product, 0, len(seeds))
	for _, s := range seeds {
		products = append(products, model.Product{
			ID:          uuid.NewString(),
			Name:        s.name,
			Price:       s.price * 100,
			Category:    s.category,
			Image:       s.image,
			Description: s.description,
			InStock:     true,
			CreatedAt:   now,
		})
	}
	return products
}
