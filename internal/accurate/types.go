package accurate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DateLayout is the dd/mm/yyyy format Accurate uses for dates, both in
// responses and in list filters.
const DateLayout = "02/01/2006"

// PrintedTimeLayout is the format of the printedTime field.
const PrintedTimeLayout = "02/01/2006, 15:04"

// Number is a numeric field that may be absent, null, a JSON number or a
// numeric string. Valid is false for absent and null.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*n = Number{}
		return nil
	}

	s := string(raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("accurate: invalid number %s: %w", raw, err)
	}
	*n = Number{Value: d, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// Int64 returns the integer part and whether the value was present.
func (n Number) Int64() (int64, bool) {
	if !n.Valid {
		return 0, false
	}
	return n.Value.IntPart(), true
}

// NewNumber is a convenience for building fixtures.
func NewNumber(v float64) Number {
	return Number{Value: decimal.NewFromFloat(v), Valid: true}
}

// Text is a scalar rendered as a string. Numbers and booleans are kept in
// their JSON spelling so that ids typed either way survive.
type Text struct {
	Value string
	Valid bool
}

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*t = Text{}
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*t = Text{Value: s, Valid: true}
		return nil
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return fmt.Errorf("accurate: expected scalar, got %s", raw)
	}
	*t = Text{Value: string(raw), Valid: true}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// NonEmpty reports whether the text is present and not blank.
func (t Text) NonEmpty() bool {
	return t.Valid && strings.TrimSpace(t.Value) != ""
}

// NewText is a convenience for building fixtures.
func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

type Customer struct {
	ID   Number `json:"id"`
	Name Text   `json:"name"`
}

type PaymentTerm struct {
	ID   Number `json:"id"`
	Name Text   `json:"name"`
}

type Currency struct {
	ID   Number `json:"id"`
	Code Text   `json:"code"`
}

type Item struct {
	ID             Number `json:"id"`
	No             Text   `json:"no"`
	Name           Text   `json:"name"`
	ItemCategoryID Number `json:"itemCategoryId"`
}

type ItemUnit struct {
	ID   Number `json:"id"`
	Name Text   `json:"name"`
}

type Warehouse struct {
	ID   Number `json:"id"`
	Name Text   `json:"name"`
}

// Invoice is a sales invoice as returned by list.do (summary fields only)
// or detail.do (everything, including DetailItem).
type Invoice struct {
	ID              Number       `json:"id"`
	InvoiceNo       Text         `json:"number"`
	TransDate       Text         `json:"transDate"`
	DueDate         Text         `json:"dueDate"`
	ShipDate        Text         `json:"shipDate"`
	CustomerID      Number       `json:"customerId"`
	Customer        *Customer    `json:"customer"`
	SubTotal        Number       `json:"subTotal"`
	TotalAmount     Number       `json:"totalAmount"`
	Outstanding     Number       `json:"outstanding"`
	Status          Text         `json:"status"`
	ApprovalStatus  Text         `json:"approvalStatus"`
	PONumber        Text         `json:"poNumber"`
	SalesOrderID    Number       `json:"salesOrderId"`
	DeliveryOrderID Number       `json:"deliveryOrderId"`
	PaymentTermID   Number       `json:"paymentTermId"`
	PaymentTerm     *PaymentTerm `json:"paymentTerm"`
	CurrencyID      Number       `json:"currencyId"`
	Currency        *Currency    `json:"currency"`
	Rate            Number       `json:"rate"`
	BranchID        Number       `json:"branchId"`
	BranchName      Text         `json:"branchName"`
	CreatedBy       Text         `json:"createdBy"`
	PrintedTime     Text         `json:"printedTime"`
	DetailItem      []DetailLine `json:"detailItem"`
}

// DetailLine is one entry of Invoice.DetailItem.
type DetailLine struct {
	ID                    Number     `json:"id"`
	ItemID                Number     `json:"itemId"`
	Item                  *Item      `json:"item"`
	Quantity              Number     `json:"quantity"`
	ItemUnitID            Number     `json:"itemUnitId"`
	ItemUnit              *ItemUnit  `json:"itemUnit"`
	UnitRatio             Number     `json:"unitRatio"`
	UnitPrice             Number     `json:"unitPrice"`
	GrossAmount           Number     `json:"grossAmount"`
	SalesAmount           Number     `json:"salesAmount"`
	WarehouseID           Number     `json:"warehouseId"`
	Warehouse             *Warehouse `json:"warehouse"`
	SalesOrderDetailID    Number     `json:"salesOrderDetailId"`
	DeliveryOrderDetailID Number     `json:"deliveryOrderDetailId"`
	Seq                   Number     `json:"seq"`
}
