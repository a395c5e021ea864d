package domain

const (
	// NotAvailable marks a field the source did not provide
	NotAvailable = "N/A"
	// Unknown marks a category whose detail lookup failed
	Unknown = "unknown"
)

// ProductRecord is one flattened output row
type ProductRecord struct {
	CategoryID    string  `json:"Category_ID_number"`
	CategoryTitle string  `json:"Category_Title"`
	CategoryURL   string  `json:"Category_URL"`
	Level1        *string `json:"Level 1"`
	Level2        *string `json:"Level 2"`
	Level3        *string `json:"Level 3"`

	UniqueID                string `json:"uniqueID"`
	SingleSKUCatalogEntryID string `json:"singleSKUCatalogEntryID"`
	PartNumber              string `json:"partNumber"`
	ShortDescription        string `json:"shortDescription"`
	Name                    string `json:"name"`
	Manufacturer            string `json:"manufacturer"`
	Buyable                 string `json:"buyable"`

	OriginalPrice string `json:"Original_Price"`
	CurrentPrice  string `json:"Current_Price"`
	Link          string `json:"Link"`

	AvailabilityStatus string `json:"Availability Status"`

	// SKU is the availability lookup key; empty when the listing had none
	SKU string `json:"-"`
}

// RecordColumns is the tabular column order
var RecordColumns = []string{
	"Category_ID_number",
	"Category_Title",
	"Category_URL",
	"uniqueID",
	"singleSKUCatalogEntryID",
	"partNumber",
	"shortDescription",
	"name",
	"manufacturer",
	"buyable",
	"Level 1",
	"Level 2",
	"Level 3",
	"Link",
	"Original_Price",
	"Current_Price",
	"Availability Status",
}

// Row renders the record in RecordColumns order. Unset levels become empty cells.
func (r ProductRecord) Row() []string {
	return []string{
		r.CategoryID,
		r.CategoryTitle,
		r.CategoryURL,
		r.UniqueID,
		r.SingleSKUCatalogEntryID,
		r.PartNumber,
		r.ShortDescription,
		r.Name,
		r.Manufacturer,
		r.Buyable,
		deref(r.Level1),
		deref(r.Level2),
		deref(r.Level3),
		r.Link,
		r.OriginalPrice,
		r.CurrentPrice,
		r.AvailabilityStatus,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
