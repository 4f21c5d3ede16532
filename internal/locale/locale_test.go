package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	t.Run("Arabic Is RTL", func(t *testing.T) {
		l := For("ar")
		assert.Equal(t, LangArabic, l.Lang)
		assert.Equal(t, DirectionRTL, l.Dir)
	})

	t.Run("English Is LTR", func(t *testing.T) {
		l := For("en")
		assert.Equal(t, LangEnglish, l.Lang)
		assert.Equal(t, DirectionLTR, l.Dir)
	})

	t.Run("Unknown Falls Back To English", func(t *testing.T) {
		l := For("de")
		assert.Equal(t, LangEnglish, l.Lang)
		assert.Equal(t, DirectionLTR, l.Dir)
	})
}

func TestT(t *testing.T) {
	en := For("en")
	ar := For("ar")

	assert.Equal(t, "This field is required.", en.T(KeyRequired))
	assert.Equal(t, "هذا الحقل مطلوب.", ar.T(KeyRequired))

	// Unknown keys are returned verbatim so broken copy is visible.
	assert.Equal(t, "error.does_not_exist", en.T("error.does_not_exist"))
}
