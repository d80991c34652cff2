package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

type OrderPaymentStatus string

const (
	OrderPaymentUnpaid OrderPaymentStatus = "unpaid"
	OrderPaymentPaid   OrderPaymentStatus = "paid"
)

// Order is owned by the storefront; this service creates it or marks it paid.
type Order struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	TotalAmount     decimal.Decimal    `gorm:"type:numeric(18,2);not null" json:"total_amount"`
	Currency        string             `gorm:"type:char(3);not null" json:"currency"`
	Status          OrderStatus        `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus   OrderPaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	PaymentMethod   string             `gorm:"type:varchar(50)" json:"payment_method"`
	ShippingAddress datatypes.JSONMap  `gorm:"type:jsonb" json:"shipping_address,omitempty"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID string          `gorm:"type:varchar(64);not null" json:"product_id"`
	Name      string          `gorm:"type:varchar(255)" json:"name,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
