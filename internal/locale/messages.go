package locale

// Message keys used by wizard validation and the HTTP surface. The tables
// mirror the customer-facing copy; admin-only strings stay English.
const (
	KeyRequired             = "error.required"
	KeyInvalidEmail         = "error.invalid_email"
	KeyInvalidPhone         = "error.invalid_phone"
	KeyInvalidPostalCode    = "error.invalid_postal_code"
	KeyInvalidNumber        = "error.invalid_number"
	KeyIDNumberRequired     = "error.id_number_required"
	KeyNoParcels            = "error.no_parcels"
	KeyMinWeight            = "error.min_weight"
	KeyMinQuantity          = "error.min_quantity"
	KeyPhotosRequired       = "error.photos_required"
	KeyDeclaredValue        = "error.declared_value_required"
	KeyAcceptTerms          = "error.accept_terms"
	KeyAcceptPolicies       = "error.accept_policies"
	KeyTransferEvidence     = "error.transfer_evidence_required"
	KeyQuoteFailed          = "error.quote_failed"
	KeyPricingFailed        = "error.pricing_failed"
	KeySubmissionFailed     = "error.submission_failed"
	KeyAuthRequired         = "error.auth_required"
	KeyStepLocked           = "error.step_locked"
	KeyUnknownProvince      = "error.unknown_province"
	KeyShippingMethodNeeded = "error.shipping_method_needed"
)

var messages = map[Lang]map[string]string{
	LangEnglish: {
		KeyRequired:             "This field is required.",
		KeyInvalidEmail:         "Please enter a valid email address.",
		KeyInvalidPhone:         "Please enter a valid phone number.",
		KeyInvalidPostalCode:    "Please enter a valid postal code.",
		KeyInvalidNumber:        "Please enter a valid number.",
		KeyIDNumberRequired:     "An ID or passport number is required.",
		KeyNoParcels:            "Add at least one parcel to continue.",
		KeyMinWeight:            "The minimum shipping weight for this product is %.1f kg.",
		KeyMinQuantity:          "The minimum shipping quantity for this product is %.0f pieces.",
		KeyPhotosRequired:       "Please upload photos of the parcel contents.",
		KeyDeclaredValue:        "A declared value is required for insured shipments.",
		KeyAcceptTerms:          "You must accept the terms of service.",
		KeyAcceptPolicies:       "You must accept the shipping policies.",
		KeyTransferEvidence:     "Please provide the transfer sender name, reference and slip.",
		KeyQuoteFailed:          "We could not fetch shipping rates right now. Please try again.",
		KeyPricingFailed:        "We could not calculate the price right now. Please try again.",
		KeySubmissionFailed:     "Creating the shipment failed. Please try again.",
		KeyAuthRequired:         "Your session has expired. Please sign in again.",
		KeyStepLocked:           "Please complete the previous steps first.",
		KeyUnknownProvince:      "Please choose a province from the list.",
		KeyShippingMethodNeeded: "Please choose a shipping method.",
	},
	LangArabic: {
		KeyRequired:             "هذا الحقل مطلوب.",
		KeyInvalidEmail:         "يرجى إدخال بريد إلكتروني صحيح.",
		KeyInvalidPhone:         "يرجى إدخال رقم هاتف صحيح.",
		KeyInvalidPostalCode:    "يرجى إدخال رمز بريدي صحيح.",
		KeyInvalidNumber:        "يرجى إدخال رقم صحيح.",
		KeyIDNumberRequired:     "رقم الهوية أو جواز السفر مطلوب.",
		KeyNoParcels:            "أضف طردًا واحدًا على الأقل للمتابعة.",
		KeyMinWeight:            "الحد الأدنى لوزن الشحن لهذا المنتج هو %.1f كغ.",
		KeyMinQuantity:          "الحد الأدنى لكمية الشحن لهذا المنتج هو %.0f قطعة.",
		KeyPhotosRequired:       "يرجى تحميل صور لمحتويات الطرد.",
		KeyDeclaredValue:        "القيمة المصرح بها مطلوبة للشحنات المؤمنة.",
		KeyAcceptTerms:          "يجب الموافقة على شروط الخدمة.",
		KeyAcceptPolicies:       "يجب الموافقة على سياسات الشحن.",
		KeyTransferEvidence:     "يرجى إدخال اسم المرسل ورقم الحوالة وصورة الإيصال.",
		KeyQuoteFailed:          "تعذر جلب أسعار الشحن حالياً. حاول مرة أخرى.",
		KeyPricingFailed:        "تعذر حساب السعر حالياً. حاول مرة أخرى.",
		KeySubmissionFailed:     "فشل إنشاء الشحنة. حاول مرة أخرى.",
		KeyAuthRequired:         "انتهت صلاحية الجلسة. يرجى تسجيل الدخول مجدداً.",
		KeyStepLocked:           "يرجى إكمال الخطوات السابقة أولاً.",
		KeyUnknownProvince:      "يرجى اختيار محافظة من القائمة.",
		KeyShippingMethodNeeded: "يرجى اختيار طريقة الشحن.",
	},
}
