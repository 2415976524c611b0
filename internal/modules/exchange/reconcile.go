package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/altmarkt/altmarkt-backend/internal/types"
)

// SyncProduct is a reconciled, store-bound product record plus the raw image
// filenames (relative to the tenant's exchange folder) still to be uploaded.
type SyncProduct struct {
	Product    types.Product
	ImageFiles []string
}

// Reconcile joins catalog entries with offer entries by raw identifier and
// derives the normalized product records. A catalog entry with no matching
// offer is dropped silently; it is never an error.
//
// Identifier derivation: the raw id may encode "{baseId}#{characteristicId}".
// For tenant N the group key is "N#{baseId}" and the unique external id is
// the group key with the characteristic id appended.
func Reconcile(companyID uint, imp *ImportDocument, off *OffersDocument) []SyncProduct {
	offersByID := make(map[string]OfferEntry, len(off.Offers))
	for _, offer := range off.Offers {
		offersByID[offer.RawID] = offer
	}

	var products []SyncProduct
	for _, entry := range imp.Entries {
		offer, ok := offersByID[entry.RawID]
		if !ok {
			continue
		}

		baseID, characteristicID := splitRawID(entry.RawID)
		productID := fmt.Sprintf("%d#%s", companyID, baseID)

		products = append(products, SyncProduct{
			Product: types.Product{
				CompanyID:        companyID,
				ExternalID:       productID + characteristicID,
				ProductID:        productID,
				CharacteristicID: characteristicID,
				Number:           entry.Number,
				Barcode:          entry.Barcode,
				Name:             entry.Name,
				Unit:             entry.Unit,
				Vat:              entry.Vat,
				SellPrice:        parseLeadingInt(offer.UnitPrice),
				InStock:          parseLeadingInt(offer.Quantity),
			},
			ImageFiles: entry.Images,
		})
	}
	return products
}

func splitRawID(rawID string) (baseID, characteristicID string) {
	parts := strings.SplitN(rawID, "#", 2)
	baseID = parts[0]
	if len(parts) > 1 {
		characteristicID = parts[1]
	}
	return baseID, characteristicID
}

// parseLeadingInt reads the integer prefix of a possibly fractional decimal
// string ("1000.50" -> 1000). Fractional price precision is deliberately
// dropped; see the exchange feed contract. Unparseable input yields zero.
func parseLeadingInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ".,"); i >= 0 {
		raw = raw[:i]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
