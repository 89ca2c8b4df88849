// Package safety holds the vehicle safety-round checklist and the
// severity rules used to classify failed checks. A failed "majeur"
// check forbids operating the vehicle; a "mineur" one opens a grace
// period for repair.
package safety

type Severity string

const (
	Mineur Severity = "mineur"
	Majeur Severity = "majeur"
)

type Check struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Section  string   `json:"section"`
	Severity Severity `json:"severity"`
}

const (
	SectionExterior  = "exterieur"
	SectionInterior  = "interieur"
	SectionEquipment = "equipement_taxi"
)

// checklist is the fixed safety-round checklist in display order:
// exterior and lighting first, then interior and mechanical, then
// taxi-specific equipment. Static rule table, never mutated at runtime.
var checklist = []Check{
	{ID: "phares", Label: "Phares", Section: SectionExterior, Severity: Majeur},
	{ID: "feux_changement_direction", Label: "Feux de changement de direction", Section: SectionExterior, Severity: Majeur},
	{ID: "feux_freinage", Label: "Feux de freinage", Section: SectionExterior, Severity: Majeur},
	{ID: "feux_position", Label: "Feux de position", Section: SectionExterior, Severity: Mineur},
	{ID: "pneus", Label: "Pneus", Section: SectionExterior, Severity: Majeur},
	{ID: "essuie_glaces", Label: "Essuie-glaces et lave-glace", Section: SectionExterior, Severity: Mineur},
	{ID: "retroviseurs", Label: "Rétroviseurs", Section: SectionExterior, Severity: Mineur},
	{ID: "carrosserie", Label: "Carrosserie et portières", Section: SectionExterior, Severity: Mineur},
	{ID: "freins", Label: "Freins de service", Section: SectionInterior, Severity: Majeur},
	{ID: "frein_stationnement", Label: "Frein de stationnement", Section: SectionInterior, Severity: Majeur},
	{ID: "direction", Label: "Direction", Section: SectionInterior, Severity: Majeur},
	{ID: "ceintures", Label: "Ceintures de sécurité", Section: SectionInterior, Severity: Majeur},
	{ID: "klaxon", Label: "Avertisseur sonore", Section: SectionInterior, Severity: Mineur},
	{ID: "sieges", Label: "Sièges et banquettes", Section: SectionInterior, Severity: Mineur},
	{ID: "chauffage_degivrage", Label: "Chauffage et dégivrage", Section: SectionInterior, Severity: Mineur},
	{ID: "taximetre", Label: "Taximètre", Section: SectionEquipment, Severity: Majeur},
	{ID: "lanternon", Label: "Lanternon", Section: SectionEquipment, Severity: Mineur},
}

var severityByID = func() map[string]Severity {
	m := make(map[string]Severity, len(checklist))
	for _, c := range checklist {
		m[c.ID] = c.Severity
	}
	return m
}()

// SeverityOf classifies a check id. Unknown ids report ok=false and the
// caller decides the fallback; guessing a default here would hide data
// mismatches between app versions.
func SeverityOf(checkID string) (Severity, bool) {
	sev, ok := severityByID[checkID]
	return sev, ok
}

// AllChecks returns the checklist in display order. The slice is a
// fresh copy each call, safe to iterate repeatedly or mutate.
func AllChecks() []Check {
	out := make([]Check, len(checklist))
	copy(out, checklist)
	return out
}

// AllCheckIDs returns just the ordered check ids.
func AllCheckIDs() []string {
	ids := make([]string, len(checklist))
	for i, c := range checklist {
		ids[i] = c.ID
	}
	return ids
}
