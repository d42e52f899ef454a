package form4

import "time"

// Owner is a reporting owner named on a Form 4. A filing may list
// several; the form does not bind individual transactions to individual
// owners, so every transaction is attributed to every owner.
type Owner struct {
	Name  string `json:"name"`
	Title string `json:"title"` // empty when the owner is not an officer
}

// TransactionRecord is one (owner, non-derivative transaction) pair
// extracted from a filing. Optional fields are nil when the filing
// omits them. PricePerShare is the only field mutated after extraction,
// and only by the price normalizer.
type TransactionRecord struct {
	OfficerName     string     `json:"officer_name"`
	OfficerTitle    string     `json:"officer_title"`
	TransactionCode string     `json:"transaction_code"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	Shares          *float64   `json:"shares,omitempty"`
	PricePerShare   *float64   `json:"price_per_share,omitempty"`
	SecurityTitle   *string    `json:"security_title,omitempty"`
	Source          string     `json:"source"` // accession number or sheet label
}

// HasPositivePrice reports whether the record carries a usable price.
// A reported price of exactly zero is treated as missing; a $0.00
// transaction price is never a legitimate price in this domain.
func (r TransactionRecord) HasPositivePrice() bool {
	return r.PricePerShare != nil && *r.PricePerShare > 0
}
