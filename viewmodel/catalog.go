package viewmodel

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/model"
)

// Catalog is the product collection plus product-only behaviour: input
// validation, product detail and add-to-cart.
type Catalog struct {
	*Collection[model.Product, model.ProductInput]

	products ProductSource
	cart     *Cart
}

// NewCatalog builds a product collection. cart may be nil when the
// catalog cannot add to cart.
func NewCatalog(products ProductSource, cart *Cart, opts Options) *Catalog {
	if opts.Name == "" {
		opts.Name = "product"
	}
	return &Catalog{
		Collection: NewCollection[model.Product, model.ProductInput](products, opts),
		products:   products,
		cart:       cart,
	}
}

// ValidateProductInput checks the form before it is sent.
func ValidateProductInput(in model.ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "Product name is required")
	}
	if in.Price.IsNegative() {
		return invalid("price", "Price must be greater than or equal to 0")
	}
	if in.Image != nil && !strings.HasPrefix(strings.ToLower(in.Image.ContentType), "image/") {
		return invalid("imageFile", "Only image files can be uploaded")
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, in model.ProductInput) (model.Product, error) {
	if !c.Capabilities().CanEdit {
		return model.Product{}, ErrNotPermitted
	}
	if err := ValidateProductInput(in); err != nil {
		return model.Product{}, err
	}
	return c.Collection.Create(ctx, in)
}

func (c *Catalog) Update(ctx context.Context, id string, in model.ProductInput) (model.Product, error) {
	if !c.Capabilities().CanEdit {
		return model.Product{}, ErrNotPermitted
	}
	if err := ValidateProductInput(in); err != nil {
		return model.Product{}, err
	}
	return c.Collection.Update(ctx, id, in)
}

func (c *Catalog) AddToCart(ctx context.Context, productID string, quantity int) error {
	if !c.Capabilities().CanAddToCart || c.cart == nil {
		return ErrNotPermitted
	}
	return c.cart.Add(ctx, productID, quantity)
}

// Product fetches one product for the detail view.
func (c *Catalog) Product(ctx context.Context, id string) (model.Product, error) {
	p, err := c.products.Get(ctx, id)
	if err != nil {
		c.opts.Logger.Warn("product fetch failed", zap.String("product_id", id), zap.Error(err))
		failure(c.opts.Notifier, UserMessage(err, "Failed to fetch product"))
		return model.Product{}, err
	}
	return p, nil
}
