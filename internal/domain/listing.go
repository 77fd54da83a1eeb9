package domain

import (
	"time"
)

// Listing is one property submission as persisted in the collection.
// Optional fields are pointers and are serialized without omitempty so
// that an unknown value is always an explicit null.
type Listing struct {
	ID            int64     `json:"id"`
	Price         *float64  `json:"price"`
	Bedrooms      *float64  `json:"bedrooms"`
	Bathrooms     *float64  `json:"bathrooms"`
	SquareFootage *float64  `json:"squareFootage"`
	Address       *string   `json:"address"`
	PropertyType  *string   `json:"propertyType"`
	Realtor       *string   `json:"realtor"`
	Seller        Seller    `json:"seller"`
	CreatedAt     time.Time `json:"createdAt"`
	Attachments   []*string `json:"attachments"`
}

// Seller holds the contact details of whoever submitted the listing.
type Seller struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// AttachmentPayload is a decoded upload waiting to be written.
type AttachmentPayload struct {
	MediaType string
	Data      []byte
	// Rejected is set when the upload could not be decoded or is not an
	// image. It still occupies its position in the listing.
	Rejected bool
}

// ResolvedAttachments returns the number of attachments that were stored.
func (l *Listing) ResolvedAttachments() int {
	n := 0
	for _, ref := range l.Attachments {
		if ref != nil {
			n++
		}
	}
	return n
}
