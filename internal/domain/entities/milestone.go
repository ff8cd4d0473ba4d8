package entities

// MilestoneSpec configures how a classified milestone becomes an event.
type MilestoneSpec struct {
	Type             EventType
	RequiresDocument bool
	// TitleTemplate is a text/template rendered with the milestone tag and
	// row when the content generator returns no title.
	TitleTemplate string
	DocumentType  string
	Source        Party
	Target        Party
	// RootLinkable marks milestones that may be auto-linked directly after a
	// lone DEMAND_START root.
	RootLinkable bool
}

// Milestones is the milestone table. Adding a milestone type only requires
// an entry here (and a classifier rule).
var Milestones = map[EventType]MilestoneSpec{
	EventDemandStart: {
		Type:          EventDemandStart,
		TitleTemplate: "Ingreso de demanda",
		DocumentType:  "demand",
		Source:        PartyPlaintiffs,
		Target:        PartyCourt,
	},
	EventDispatchResolution: {
		Type:             EventDispatchResolution,
		RequiresDocument: true,
		TitleTemplate:    "Resolución que ordena despachar mandamiento",
		DocumentType:     "dispatch_resolution",
		Source:           PartyCourt,
		Target:           PartyPlaintiffs,
		RootLinkable:     true,
	},
	EventNotification: {
		Type:          EventNotification,
		TitleTemplate: "Notificación {{.Tag.Ordinal}}",
		DocumentType:  "notification",
		Source:        PartyCourt,
		Target:        PartyDefendants,
	},
	EventExceptions: {
		Type:             EventExceptions,
		RequiresDocument: true,
		TitleTemplate:    "Oposición de excepciones",
		DocumentType:     "exceptions",
		Source:           PartyDefendants,
		Target:           PartyCourt,
	},
	EventTranslationEvacuation: {
		Type:          EventTranslationEvacuation,
		TitleTemplate: "Evacúa traslado",
		DocumentType:  "translation_evacuation",
		Source:        PartyPlaintiffs,
		Target:        PartyCourt,
	},
	EventTrialStart: {
		Type:          EventTrialStart,
		TitleTemplate: "Recepción de la causa a prueba",
		DocumentType:  "trial_start",
		Source:        PartyCourt,
		Target:        PartyPlaintiffs,
	},
	EventSentence: {
		Type:          EventSentence,
		TitleTemplate: "Sentencia",
		DocumentType:  "sentence",
		Source:        PartyCourt,
		Target:        PartyPlaintiffs,
	},
}

// MilestoneFor returns the milestone definition for t.
func MilestoneFor(t EventType) (MilestoneSpec, bool) {
	spec, ok := Milestones[t]
	return spec, ok
}
