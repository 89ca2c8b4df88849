package core

// Category taxonomy is closed: ids come from a fixed enumeration shared
// with the persistence layer, and every id must map to a display label.
// Lookups report a miss instead of defaulting to "Autres": an unmapped
// id folded into a catch-all bucket would corrupt the per-category
// summaries.

var expenseCategoryLabels = map[string]string{
	"carburant":        "Carburant",
	"entretien":        "Entretien et réparations",
	"assurance":        "Assurances",
	"immatriculation":  "Immatriculation et permis",
	"location":         "Location du véhicule",
	"lavage":           "Lavage du véhicule",
	"telephone":        "Téléphone et communications",
	"fournitures":      "Fournitures",
	"stationnement":    "Stationnement et péages",
	"frais_bancaires":  "Frais bancaires",
	"taxes_cotisation": "Taxes et cotisations",
	"autre":            "Autres dépenses",
}

var incomeCategoryLabels = map[string]string{
	"course":     "Courses",
	"pourboire":  "Pourboires",
	"forfait":    "Forfaits et contrats",
	"subvention": "Subventions",
	"autre":      "Autres revenus",
}

// ExpenseCategoryLabel maps an expense category id to its display label.
func ExpenseCategoryLabel(id string) (string, bool) {
	label, ok := expenseCategoryLabels[id]
	return label, ok
}

// IncomeCategoryLabel maps an income category id to its display label.
func IncomeCategoryLabel(id string) (string, bool) {
	label, ok := incomeCategoryLabels[id]
	return label, ok
}

// ExpenseCategoryIDs lists the closed expense category enumeration.
func ExpenseCategoryIDs() []string {
	ids := make([]string, 0, len(expenseCategoryLabels))
	for id := range expenseCategoryLabels {
		ids = append(ids, id)
	}
	return ids
}

// IncomeCategoryIDs lists the closed income category enumeration.
func IncomeCategoryIDs() []string {
	ids := make([]string, 0, len(incomeCategoryLabels))
	for id := range incomeCategoryLabels {
		ids = append(ids, id)
	}
	return ids
}
