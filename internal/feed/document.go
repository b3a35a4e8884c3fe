package feed

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Document is the full price list published by a supplier.
type Document struct {
	Shop       string     `json:"shop" validate:"required"`
	Categories []Category `json:"categories" validate:"required,min=1,dive"`
	Goods      []Good     `json:"goods" validate:"required,min=1,dive"`
}

// Category is one feed category with the supplier-assigned id.
type Category struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required"`
}

// Good is one sellable position in the price list.
type Good struct {
	ID         int64                 `json:"id" validate:"required,gt=0"`
	Category   int64                 `json:"category" validate:"required,gt=0"`
	Model      string                `json:"model"`
	Name       string                `json:"name" validate:"required"`
	Price      decimal.Decimal       `json:"price"`
	PriceRRC   decimal.Decimal       `json:"price_rrc"`
	Quantity   int                   `json:"quantity" validate:"gte=0"`
	Parameters map[string]FlexString `json:"parameters"`
}

// FlexString accepts a string, integer, float or bool on the wire and
// normalizes it to its text form. Supplier feeds mix all of them freely.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("parameter value must be a string, number or bool")
}

func (f FlexString) String() string {
	return string(f)
}
