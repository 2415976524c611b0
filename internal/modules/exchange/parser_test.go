package exchange

import (
	"testing"
)

const importDoc = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация>
  <Каталог>
    <Товары>
      <Товар>
        <Ид>55#X</Ид>
        <Артикул>A-100</Артикул>
        <ШтрихКод>4600000000017</ШтрихКод>
        <Наименование>Widget</Наименование>
        <БазоваяЕдиница НаименованиеПолное="Штука">шт</БазоваяЕдиница>
        <СтавкиНалогов>
          <СтавкаНалога>
            <Наименование>НДС</Наименование>
            <Ставка>20</Ставка>
          </СтавкаНалога>
        </СтавкиНалогов>
        <Картинка>import_files/widget.jpg</Картинка>
        <Картинка>import_files/widget_2.jpg</Картинка>
      </Товар>
    </Товары>
  </Каталог>
</КоммерческаяИнформация>`

func TestParseImport(t *testing.T) {
	t.Parallel()

	doc, err := ParseImport([]byte(importDoc))
	if err != nil {
		t.Fatalf("ParseImport: %v", err)
	}
	if doc.ContainsOnlyChanges {
		t.Fatalf("ContainsOnlyChanges = true, want false when flag is absent")
	}
	if len(doc.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(doc.Entries))
	}

	entry := doc.Entries[0]
	if entry.RawID != "55#X" {
		t.Errorf("RawID = %q, want %q", entry.RawID, "55#X")
	}
	if entry.Name != "Widget" {
		t.Errorf("Name = %q, want %q", entry.Name, "Widget")
	}
	if entry.Number != "A-100" {
		t.Errorf("Number = %q, want %q", entry.Number, "A-100")
	}
	if entry.Barcode != "4600000000017" {
		t.Errorf("Barcode = %q, want %q", entry.Barcode, "4600000000017")
	}
	if entry.Unit != "Штука" {
		t.Errorf("Unit = %q, want attribute form %q", entry.Unit, "Штука")
	}
	if entry.Vat != "20" {
		t.Errorf("Vat = %q, want %q", entry.Vat, "20")
	}
	if len(entry.Images) != 2 || entry.Images[0] != "import_files/widget.jpg" {
		t.Errorf("Images = %v, want both picture elements in order", entry.Images)
	}
}

func TestParseImportUnitFallsBackToText(t *testing.T) {
	t.Parallel()

	doc, err := ParseImport([]byte(`<КоммерческаяИнформация><Каталог><Товары>
		<Товар><Ид>1</Ид><БазоваяЕдиница>шт</БазоваяЕдиница></Товар>
	</Товары></Каталог></КоммерческаяИнформация>`))
	if err != nil {
		t.Fatalf("ParseImport: %v", err)
	}
	if got := doc.Entries[0].Unit; got != "шт" {
		t.Errorf("Unit = %q, want chardata fallback %q", got, "шт")
	}
}

func TestParseImportDeltaFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{
			name: "attribute true",
			doc:  `<КоммерческаяИнформация><Каталог СодержитТолькоИзменения="true"><Товары/></Каталог></КоммерческаяИнформация>`,
			want: true,
		},
		{
			name: "element true",
			doc:  `<КоммерческаяИнформация><Каталог><СодержитТолькоИзменения>true</СодержитТолькоИзменения><Товары/></Каталог></КоммерческаяИнформация>`,
			want: true,
		},
		{
			name: "attribute false wins over element",
			doc:  `<КоммерческаяИнформация><Каталог СодержитТолькоИзменения="false"><СодержитТолькоИзменения>true</СодержитТолькоИзменения></Каталог></КоммерческаяИнформация>`,
			want: false,
		},
		{
			name: "absent",
			doc:  `<КоммерческаяИнформация><Каталог><Товары/></Каталог></КоммерческаяИнформация>`,
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ParseImport([]byte(tc.doc))
			if err != nil {
				t.Fatalf("ParseImport: %v", err)
			}
			if doc.ContainsOnlyChanges != tc.want {
				t.Errorf("ContainsOnlyChanges = %v, want %v", doc.ContainsOnlyChanges, tc.want)
			}
		})
	}
}

func TestParseImportMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseImport([]byte(`<КоммерческаяИнформация><Каталог>`))
	if err == nil {
		t.Fatal("ParseImport accepted truncated document")
	}
	if got := KindOf(err); got != KindParse {
		t.Errorf("KindOf = %q, want %q", got, KindParse)
	}
}

func TestParseOffers(t *testing.T) {
	t.Parallel()

	doc, err := ParseOffers([]byte(`<КоммерческаяИнформация>
	  <ПакетПредложений>
	    <Предложения>
	      <Предложение>
	        <Ид>55#X</Ид>
	        <Цены>
	          <Цена>
	            <ЦенаЗаЕдиницу>1000.50</ЦенаЗаЕдиницу>
	            <Валюта>руб</Валюта>
	          </Цена>
	        </Цены>
	        <Количество>10</Количество>
	      </Предложение>
	      <Предложение>
	        <Ид>56</Ид>
	        <Количество>3</Количество>
	      </Предложение>
	    </Предложения>
	  </ПакетПредложений>
	</КоммерческаяИнформация>`))
	if err != nil {
		t.Fatalf("ParseOffers: %v", err)
	}
	if len(doc.Offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(doc.Offers))
	}

	first := doc.Offers[0]
	if first.RawID != "55#X" || first.UnitPrice != "1000.50" || first.Currency != "руб" || first.Quantity != "10" {
		t.Errorf("unexpected first offer: %+v", first)
	}
	second := doc.Offers[1]
	if second.UnitPrice != "" || second.Quantity != "3" {
		t.Errorf("offer without prices should keep empty price, got %+v", second)
	}
}
