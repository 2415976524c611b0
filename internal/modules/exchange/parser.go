package exchange

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// CatalogEntry is one normalized product node from the import document.
type CatalogEntry struct {
	RawID   string
	Name    string
	Number  string
	Barcode string
	Unit    string
	Vat     string
	Images  []string
}

// OfferEntry is one normalized offer node from the offers document, keyed by
// the same raw identifier as the catalog entry it joins against.
type OfferEntry struct {
	RawID     string
	UnitPrice string
	Currency  string
	Quantity  string
}

// ImportDocument is the normalized import tree. ContainsOnlyChanges reports
// whether the feed is a delta (only changed products) rather than a full
// catalog; it defaults to false when the flag is absent.
type ImportDocument struct {
	ContainsOnlyChanges bool
	Entries             []CatalogEntry
}

// OffersDocument is the normalized offers tree.
type OffersDocument struct {
	Offers []OfferEntry
}

// CommerceML wire shapes. Element repetition is always mapped to a slice so a
// single occurrence and many occurrences decode identically; the exported
// documents above are the only view the rest of the pipeline sees.

type importXML struct {
	XMLName  xml.Name     `xml:"КоммерческаяИнформация"`
	Catalogs []catalogXML `xml:"Каталог"`
}

type catalogXML struct {
	ContainsOnlyChangesAttr string       `xml:"СодержитТолькоИзменения,attr"`
	ContainsOnlyChangesElem []string     `xml:"СодержитТолькоИзменения"`
	Products                []productXML `xml:"Товары>Товар"`
}

type productXML struct {
	ID       string       `xml:"Ид"`
	Number   string       `xml:"Артикул"`
	Barcode  string       `xml:"ШтрихКод"`
	Name     string       `xml:"Наименование"`
	BaseUnit baseUnitXML  `xml:"БазоваяЕдиница"`
	TaxRates []taxRateXML `xml:"СтавкиНалогов>СтавкаНалога"`
	Images   []string     `xml:"Картинка"`
}

// baseUnitXML carries the unit name either as an attribute or as text
// content; the attribute form wins when both are present.
type baseUnitXML struct {
	FullName string `xml:"НаименованиеПолное,attr"`
	Text     string `xml:",chardata"`
}

func (u baseUnitXML) name() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(u.Text)
}

type taxRateXML struct {
	Name string `xml:"Наименование"`
	Rate string `xml:"Ставка"`
}

type offersXML struct {
	XMLName  xml.Name          `xml:"КоммерческаяИнформация"`
	Packages []offerPackageXML `xml:"ПакетПредложений"`
}

type offerPackageXML struct {
	Offers []offerXML `xml:"Предложения>Предложение"`
}

type offerXML struct {
	ID       string     `xml:"Ид"`
	Prices   []priceXML `xml:"Цены>Цена"`
	Quantity string     `xml:"Количество"`
}

type priceXML struct {
	UnitPrice string `xml:"ЦенаЗаЕдиницу"`
	Currency  string `xml:"Валюта"`
}

// ParseImport decodes an import document and flattens all catalog sections
// into one entry sequence. Malformed XML yields a parse error that fails the
// tenant's run.
func ParseImport(raw []byte) (*ImportDocument, error) {
	var wire importXML
	if err := xml.Unmarshal(raw, &wire); err != nil {
		return nil, &RunError{Kind: KindParse, Err: fmt.Errorf("import document: %w", err)}
	}

	doc := &ImportDocument{}
	for _, catalog := range wire.Catalogs {
		if parseBoolFlag(catalog.ContainsOnlyChangesAttr, catalog.ContainsOnlyChangesElem) {
			doc.ContainsOnlyChanges = true
		}
		for _, product := range catalog.Products {
			entry := CatalogEntry{
				RawID:   strings.TrimSpace(product.ID),
				Name:    strings.TrimSpace(product.Name),
				Number:  strings.TrimSpace(product.Number),
				Barcode: strings.TrimSpace(product.Barcode),
				Unit:    product.BaseUnit.name(),
			}
			if len(product.TaxRates) > 0 {
				entry.Vat = strings.TrimSpace(product.TaxRates[0].Rate)
			}
			for _, image := range product.Images {
				if image = strings.TrimSpace(image); image != "" {
					entry.Images = append(entry.Images, image)
				}
			}
			doc.Entries = append(doc.Entries, entry)
		}
	}
	return doc, nil
}

// ParseOffers decodes an offers document and flattens all offer packages into
// one offer sequence.
func ParseOffers(raw []byte) (*OffersDocument, error) {
	var wire offersXML
	if err := xml.Unmarshal(raw, &wire); err != nil {
		return nil, &RunError{Kind: KindParse, Err: fmt.Errorf("offers document: %w", err)}
	}

	doc := &OffersDocument{}
	for _, pkg := range wire.Packages {
		for _, offer := range pkg.Offers {
			entry := OfferEntry{
				RawID:    strings.TrimSpace(offer.ID),
				Quantity: strings.TrimSpace(offer.Quantity),
			}
			if len(offer.Prices) > 0 {
				entry.UnitPrice = strings.TrimSpace(offer.Prices[0].UnitPrice)
				entry.Currency = strings.TrimSpace(offer.Prices[0].Currency)
			}
			doc.Offers = append(doc.Offers, entry)
		}
	}
	return doc, nil
}

// parseBoolFlag normalizes the delta-feed flag, which the schema serializes
// either as a catalog attribute or as a nested element. The attribute form
// wins when both are present.
func parseBoolFlag(attr string, elems []string) bool {
	if v := strings.TrimSpace(attr); v != "" {
		return strings.EqualFold(v, "true")
	}
	for _, e := range elems {
		if strings.EqualFold(strings.TrimSpace(e), "true") {
			return true
		}
	}
	return false
}
