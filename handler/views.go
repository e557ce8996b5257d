package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/model"
	"storefront/session"
	"storefront/viewmodel"
)

// view shapes rendered by the storefront front end

type productView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	PriceLabel  string          `json:"priceLabel"`
	Image       string          `json:"image,omitempty"`
}

func toProductView(p model.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PriceLabel:  model.FormatUSD(p.Price),
		Image:       p.Image,
	}
}

type criteriaView struct {
	Term     string           `json:"term,omitempty"`
	MinPrice *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
	Sort     string           `json:"sort,omitempty"`
}

type gridView struct {
	Items       []productView          `json:"items"`
	CurrentPage int                    `json:"currentPage"`
	PageSize    int                    `json:"pageSize"`
	TotalItems  int                    `json:"totalItems"`
	TotalPages  int                    `json:"totalPages"`
	HasPrev     bool                   `json:"hasPreviousPage"`
	HasNext     bool                   `json:"hasNextPage"`
	Mode        viewmodel.Mode         `json:"mode"`
	Criteria    *criteriaView          `json:"criteria,omitempty"`
	Loading     bool                   `json:"loading"`
	Error       string                 `json:"error,omitempty"`
	Actions     viewmodel.Capabilities `json:"actions"`
}

func toGridView(c *viewmodel.Catalog) gridView {
	st := c.State()
	items := make([]productView, 0, len(st.Items))
	for _, p := range st.Items {
		items = append(items, toProductView(p))
	}
	g := gridView{
		Items:       items,
		CurrentPage: st.CurrentPage,
		PageSize:    st.PageSize,
		TotalItems:  st.TotalItems,
		TotalPages:  st.TotalPages,
		HasPrev:     st.HasPrev,
		HasNext:     st.HasNext,
		Mode:        st.Mode,
		Loading:     st.Loading,
		Error:       st.Err,
		Actions:     c.Capabilities(),
	}
	if g.Mode == "" {
		g.Mode = viewmodel.ModeListing
	}
	if cr := st.Criteria; cr != nil {
		cv := &criteriaView{Term: cr.Term, MinPrice: cr.MinPrice, MaxPrice: cr.MaxPrice}
		if cr.SortOrder != nil {
			cv.Sort = cr.SortOrder.String()
		}
		g.Criteria = cv
	}
	return g
}

type productDetailView struct {
	Product productView            `json:"product"`
	Actions viewmodel.Capabilities `json:"actions"`
}

type cartLineView struct {
	ProductID         string          `json:"productId"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	PriceLabel        string          `json:"priceLabel"`
	Quantity          int             `json:"quantity"`
	ImageURL          string          `json:"imageUrl,omitempty"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	TotalLabel        string          `json:"totalLabel"`
	Updating          bool            `json:"updating"`
	DecrementDisabled bool            `json:"decrementDisabled"`
}

type cartView struct {
	Status      viewmodel.CartStatus `json:"status"`
	ID          string               `json:"id,omitempty"`
	Items       []cartLineView       `json:"items"`
	TotalAmount decimal.Decimal      `json:"totalAmount"`
	TotalLabel  string               `json:"totalLabel"`
	TotalItems  int                  `json:"totalItems"`
	Loading     bool                 `json:"loading"`
	Error       string               `json:"error,omitempty"`
}

func toCartView(st viewmodel.CartState) cartView {
	v := cartView{
		Status:     st.Status,
		Items:      []cartLineView{},
		TotalLabel: model.FormatUSD(decimal.Zero),
		Loading:    st.Loading,
		Error:      st.Err,
	}
	if st.Cart == nil {
		return v
	}
	v.ID = st.Cart.ID
	v.TotalAmount = st.Cart.TotalAmount
	v.TotalLabel = model.FormatUSD(st.Cart.TotalAmount)
	v.TotalItems = st.Cart.TotalItems
	for _, it := range st.Cart.Items {
		busy := st.Updating[it.ProductID]
		v.Items = append(v.Items, cartLineView{
			ProductID:         it.ProductID,
			Name:              it.Name,
			Price:             it.Price,
			PriceLabel:        model.FormatUSD(it.Price),
			Quantity:          it.Quantity,
			ImageURL:          it.ImageURL,
			TotalPrice:        it.TotalPrice,
			TotalLabel:        model.FormatUSD(it.TotalPrice),
			Updating:          busy,
			DecrementDisabled: busy || it.Quantity <= 1,
		})
	}
	return v
}

type orderLineView struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceLabel string `json:"priceLabel"`
	TotalLabel string `json:"totalLabel"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

type orderView struct {
	ID              string            `json:"id"`
	Status          model.OrderStatus `json:"status"`
	Items           []orderLineView   `json:"items"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	TotalLabel      string            `json:"totalLabel"`
	TotalItems      int               `json:"totalItems"`
	ShippingAddress string            `json:"shippingAddress"`
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	ReceiptURL      string            `json:"receiptUrl"`
}

func toOrderView(o model.Order) orderView {
	items := make([]orderLineView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderLineView{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			PriceLabel: model.FormatUSD(it.Price),
			TotalLabel: model.FormatUSD(it.TotalPrice),
			ImageURL:   it.ImageURL,
		})
	}
	return orderView{
		ID:              o.ID,
		Status:          o.Status,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		TotalLabel:      model.FormatUSD(o.TotalAmount),
		TotalItems:      o.TotalItems,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.Time,
		ReceiptURL:      "/orders/" + o.ID + "/receipt.pdf",
	}
}

type ordersView struct {
	Orders []orderView `json:"orders"`
	Error  string      `json:"error,omitempty"`
}

type checkoutView struct {
	Phase viewmodel.Phase `json:"phase"`
	Order *orderView      `json:"order,omitempty"`
	Error string          `json:"error,omitempty"`
	Cart  cartView        `json:"cart"`
}

func toCheckoutView(ws *Workspace) checkoutView {
	st := ws.Checkout.State()
	v := checkoutView{Phase: st.Phase, Error: st.Err, Cart: toCartView(ws.Cart.State())}
	if st.Order != nil {
		ov := toOrderView(*st.Order)
		v.Order = &ov
	}
	return v
}

type identityView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toIdentityView(id session.Identity) identityView {
	return identityView{
		ID:        id.Subject,
		Email:     id.Email,
		Name:      id.Name,
		Role:      id.Role,
		IsAdmin:   id.IsAdmin(),
		ExpiresAt: id.ExpiresAt,
	}
}
