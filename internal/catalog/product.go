package catalog

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

type Product struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Price       Amount `json:"price" db:"price"`
	Thumbnail   string `json:"thumbnail" db:"thumbnail"`
	Stock       Amount `json:"stock" db:"stock"`

	// Extra holds keys of a stored record that are not product fields.
	// They are written back after the known fields, sorted by key.
	Extra map[string]json.RawMessage `json:"-" db:"-"`
}

type productFields Product

var productKeys = []string{"id", "code", "title", "description", "price", "thumbnail", "stock"}

func (p Product) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(productFields(p))
	if err != nil || len(p.Extra) == 0 {
		return b, err
	}

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range slices.Sorted(maps.Keys(p.Extra)) {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(p.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var f productFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range productKeys {
		delete(all, k)
	}
	f.Extra = nil
	if len(all) > 0 {
		f.Extra = all
	}

	*p = Product(f)
	return nil
}

// clone returns p with its own copy of Extra.
func (p Product) clone() Product {
	p.Extra = maps.Clone(p.Extra)
	return p
}

// NewProduct carries the caller-supplied fields of a product. The id is
// always assigned by the store.
type NewProduct struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       Amount `json:"price"`
	Thumbnail   string `json:"thumbnail"`
	Stock       Amount `json:"stock"`
}

// Validate reports every required field that is missing or falsy.
func (n NewProduct) Validate() error {
	var missing []string
	if n.Code == "" {
		missing = append(missing, "code")
	}
	if n.Title == "" {
		missing = append(missing, "title")
	}
	if n.Description == "" {
		missing = append(missing, "description")
	}
	if n.Price.IsZero() {
		missing = append(missing, "price")
	}
	if n.Thumbnail == "" {
		missing = append(missing, "thumbnail")
	}
	if n.Stock.IsZero() {
		missing = append(missing, "stock")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func (n NewProduct) withID(id int64) Product {
	return Product{
		ID:          id,
		Code:        n.Code,
		Title:       n.Title,
		Description: n.Description,
		Price:       n.Price,
		Thumbnail:   n.Thumbnail,
		Stock:       n.Stock,
	}
}

// Patch is a partial update. Nil fields are left untouched. There is no id
// field: an "id" key in a decoded payload is dropped.
type Patch struct {
	Code        *string `json:"code,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *Amount `json:"price,omitempty"`
	Thumbnail   *string `json:"thumbnail,omitempty"`
	Stock       *Amount `json:"stock,omitempty"`
}

func (p Patch) Apply(to Product) Product {
	if p.Code != nil {
		to.Code = *p.Code
	}
	if p.Title != nil {
		to.Title = *p.Title
	}
	if p.Description != nil {
		to.Description = *p.Description
	}
	if p.Price != nil {
		to.Price = *p.Price
	}
	if p.Thumbnail != nil {
		to.Thumbnail = *p.Thumbnail
	}
	if p.Stock != nil {
		to.Stock = *p.Stock
	}
	return to
}
