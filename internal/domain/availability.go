package domain

// Raw availability codes returned by the availability endpoint
const (
	StatusExhausted            = "EXHAUSTED"
	StatusExpectedSoon         = "EXPECTED_SOON"
	StatusImmediatelyAvailable = "IMMEDIATELY_AVAILABLE"
	StatusLastPieces           = "LAST_PIECES"
	StatusNotAvailable         = "NOT_AVAILABLE"
	StatusOnOrder              = "ON_ORDER"
	StatusPreorderable         = "Preorderable"
	StatusSpecialOrder         = "SPECIAL_ORDER"
)

var availabilityTranslation = map[string]string{
	StatusExhausted:            "Εξαντλημένο",
	StatusExpectedSoon:         "Αναμένεται Σύντομα",
	StatusImmediatelyAvailable: "Άμεσα διαθέσιμο",
	StatusLastPieces:           "Τελευταία τεμάχια",
	StatusNotAvailable:         "Μη διαθέσιμο",
	StatusOnOrder:              "Σε παραγγελία",
	StatusPreorderable:         "Διαθέσιμο για προπαραγγελία",
	StatusSpecialOrder:         "Ειδική Παραγγελία",
	NotAvailable:               NotAvailable,
	"":                         "",
}

// TranslateAvailability maps a raw status code to its display text.
// Unrecognized codes pass through unchanged.
func TranslateAvailability(code string) string {
	if text, ok := availabilityTranslation[code]; ok {
		return text
	}
	return code
}
