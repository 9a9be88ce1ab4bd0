package ingest

import (
	"github.com/jkorpela/wardrobe/internal/storage"
	"github.com/jkorpela/wardrobe/internal/vision"
)

// mergeableField pairs an accessor and a setter for one item column the
// enrichment step may fill.
type mergeableField struct {
	get func(*storage.Item) string
	set func(*storage.Item, string)
}

// mergeableFields is the closed allow-list of attributes AI output may write
// to. Attribute names outside this table are ignored; the schema never grows
// by reflection.
var mergeableFields = map[string]mergeableField{
	vision.FieldBrand: {
		get: func(it *storage.Item) string { return it.Brand },
		set: func(it *storage.Item, v string) { it.Brand = v },
	},
	vision.FieldColor: {
		get: func(it *storage.Item) string { return it.Color },
		set: func(it *storage.Item, v string) { it.Color = v },
	},
	vision.FieldSize: {
		get: func(it *storage.Item) string { return it.Size },
		set: func(it *storage.Item, v string) { it.Size = v },
	},
	vision.FieldMaterial: {
		get: func(it *storage.Item) string { return it.Material },
		set: func(it *storage.Item, v string) { it.Material = v },
	},
	vision.FieldPattern: {
		get: func(it *storage.Item) string { return it.Pattern },
		set: func(it *storage.Item, v string) { it.Pattern = v },
	},
}

// mergeAttributes applies the non-destructive merge rule: an AI value lands
// only on a field the user left empty. Returns the names of fields that
// were filled.
func mergeAttributes(item *storage.Item, attrs map[string]string) []string {
	var merged []string
	for name, field := range mergeableFields {
		value := attrs[name]
		if value == "" {
			continue
		}
		if field.get(item) != "" {
			continue // explicit user input always wins
		}
		field.set(item, value)
		merged = append(merged, name)
	}
	return merged
}
