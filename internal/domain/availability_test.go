package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateAvailability(t *testing.T) {
	assert.Equal(t, "Εξαντλημένο", TranslateAvailability("EXHAUSTED"))
	assert.Equal(t, "Άμεσα διαθέσιμο", TranslateAvailability("IMMEDIATELY_AVAILABLE"))
	assert.Equal(t, "WEIRD_CODE", TranslateAvailability("WEIRD_CODE"))
	assert.Equal(t, NotAvailable, TranslateAvailability(NotAvailable))
	assert.Equal(t, "", TranslateAvailability(""))
}
