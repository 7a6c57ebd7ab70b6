package models

// Product is a catalog entry as the storefront sees it. Stock is advisory
// only; the orders API is authoritative at submission time.
type Product struct {
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       Amount `json:"price"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Stock       *int   `json:"stock,omitempty"`
}

// CartLine is one product's presence in the cart. Name, price, image and
// stock are snapshotted at add time and never refreshed from the catalog.
type CartLine struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   Amount `json:"price"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl,omitempty"`
	StockAtAdd  *int   `json:"stock,omitempty"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() Amount {
	return l.UnitPrice.MulInt(l.Quantity)
}

// User is the authenticated buyer, resolved upstream.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DeliveryDetails is the validated output of the checkout details step.
// Address is the composed human-readable string sent to the orders API.
type DeliveryDetails struct {
	Name     string `json:"deliveryName"`
	Phone    string `json:"deliveryPhone"`
	Email    string `json:"deliveryEmail"`
	DoorNo   string `json:"doorNo,omitempty"`
	Area     string `json:"area,omitempty"`
	Landmark string `json:"landmark,omitempty"`
	City     string `json:"city"`
	District string `json:"district"`
	Pincode  string `json:"pincode"`
	Address  string `json:"deliveryAddress"`
}

// OrderItem is one cart line as carried in the order payload. SellerID is
// the referring seller resolved from the stored affiliate record, when any.
type OrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     Amount `json:"price"`
	SellerID  *int64 `json:"sellerId"`
}

// OrderPayload is the single order-creation request built at submit time.
type OrderPayload struct {
	BuyerID         int64       `json:"buyerId"`
	Items           []OrderItem `json:"items"`
	TotalAmount     Amount      `json:"totalAmount"`
	PaymentProofURL string      `json:"paymentProofUrl"`
	DeliveryAddress string      `json:"deliveryAddress"`
	DeliveryPhone   string      `json:"deliveryPhone"`
	DeliveryName    string      `json:"deliveryName"`
	DeliveryEmail   string      `json:"deliveryEmail"`
	AffiliateCode   *string     `json:"affiliateCode"`
}

// OrderConfirmation is the orders API response. Status carries whatever the
// server returned; the storefront displays it and never interprets it.
type OrderConfirmation struct {
	OrderID         int64       `json:"orderId"`
	TotalAmount     Amount      `json:"totalAmount"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	DeliveryName    string      `json:"deliveryName"`
	DeliveryAddress string      `json:"deliveryAddress"`
	DeliveryPhone   string      `json:"deliveryPhone"`
	DeliveryEmail   string      `json:"deliveryEmail"`
	CreatedAt       string      `json:"createdAt"`
}
