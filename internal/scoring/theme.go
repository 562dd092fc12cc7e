package scoring

// Theme groups flag codes for human-facing summarization, replacing the
// original prototype's string-keyed theme table (src/summary.py) with a
// finite enumeration plus a compile-time mapping from flag code to
// theme, per spec §9's redesign note: "represent themes as a finite
// enumeration with a compile-time mapping from flag-code to theme, so
// exhaustiveness is machine-checkable."
type Theme string

const (
	ThemeDates      Theme = "dates"
	ThemeIdentity   Theme = "identity"
	ThemeStructure  Theme = "structure"
	ThemeVisual     Theme = "visual authenticity"
	ThemeProvenance Theme = "provenance"
	ThemeImagery    Theme = "imagery"
	ThemeExternal   Theme = "external verification"
	ThemeOther      Theme = "other"
)

// themeByCode maps each full MODULE_CONDITION flag code to a theme.
// Lookup is by exact code, so every new code needs an entry below;
// until it has one, ThemeFor reports it as ThemeOther.
var themeByCode = map[string]Theme{
	"META_FUTURE_CREATION_DATE": ThemeDates,
	"META_IMPOSSIBLE_DATES":     ThemeDates,
	"META_DOCUMENT_MODIFIED":    ThemeProvenance,
	"META_NO_METADATA":          ThemeProvenance,
	"META_NO_PRODUCER":          ThemeProvenance,
	"META_AI_GENERATED":         ThemeProvenance,
	"META_ONLINE_CONVERTER":     ThemeProvenance,
	"META_SUSPICIOUS_EDITOR":    ThemeProvenance,

	"CONTENT_FAR_FUTURE_DATE":          ThemeDates,
	"CONTENT_VERY_OLD_DATE":            ThemeDates,
	"CONTENT_FUTURE_INVOICE_DATE":      ThemeDates,
	"CONTENT_ANACHRONISM_SERVICE":      ThemeDates,
	"CONTENT_ANACHRONISM_DUE":          ThemeDates,
	"CONTENT_ANACHRONISM_ORDER":        ThemeDates,
	"CONTENT_REPEATED_AMOUNT":          ThemeOther,
	"CONTENT_REFERENCE_DATE_MISMATCH":  ThemeDates,
	"CONTENT_INCONSISTENT_REFERENCES":  ThemeOther,
	"CONTENT_INVALID_SIRET":            ThemeIdentity,
	"CONTENT_INVALID_SIREN":            ThemeIdentity,
	"CONTENT_INVALID_VAT":              ThemeIdentity,
	"CONTENT_SIREN_VAT_MISMATCH":       ThemeIdentity,
	"CONTENT_MISSING_COMPANY_ID":       ThemeIdentity,

	"FONTS_EXCESSIVE_DIVERSITY": ThemeVisual,
	"FONTS_HIGH_DIVERSITY":      ThemeVisual,
	"FONTS_SYSTEM_FONTS":        ThemeVisual,
	"FONTS_NOT_EMBEDDED":        ThemeVisual,
	"FONTS_MIXED_SUBSETS":       ThemeVisual,
	"FONTS_MIDLINE_CHANGE":      ThemeVisual,

	"IMAGES_SCREENSHOT_DETECTED":  ThemeImagery,
	"IMAGES_RESOLUTION_MISMATCH":  ThemeImagery,
	"IMAGES_HEAVY_COMPRESSION":    ThemeImagery,
	"IMAGES_EXCESSIVE_COUNT":      ThemeImagery,
	"IMAGES_NO_IMAGES":            ThemeImagery,
	"IMAGES_IMAGE_ONLY_PDF":       ThemeImagery,
	"IMAGES_MOSTLY_IMAGE_PDF":     ThemeImagery,
	"IMAGES_PASTE_NOISE_ANOMALY":  ThemeImagery,

	"VISUAL_QR_URL_SHORTENER":    ThemeVisual,
	"VISUAL_QR_SUSPICIOUS_TLD":   ThemeVisual,
	"VISUAL_QR_DOMAIN_MISMATCH":  ThemeVisual,
	"VISUAL_CONVERTER_WATERMARK": ThemeVisual,
	"VISUAL_WATERMARK":           ThemeVisual,

	"STRUCT_INCREMENTAL_UPDATES":    ThemeStructure,
	"STRUCT_SIGNATURE_TRUSTED":      ThemeStructure,
	"STRUCT_JAVASCRIPT_DETECTED":    ThemeStructure,
	"STRUCT_EMBEDDED_FILES":         ThemeStructure,
	"STRUCT_HIDDEN_ANNOTATIONS":     ThemeStructure,
	"STRUCT_SUSPICIOUS_ANNOTATIONS": ThemeStructure,
	"STRUCT_ACROFORM_DETECTED":      ThemeStructure,
	"STRUCT_DELETED_OBJECTS":        ThemeStructure,
	"STRUCT_XMP_EDITOR_MISMATCH":    ThemeStructure,
	"STRUCT_SIGNATURE_TRUSTED_EXPIRED": ThemeStructure,
	"STRUCT_SIGNATURE_NOT_TRUSTED":     ThemeStructure,
	"STRUCT_SIGNATURE_UNVERIFIABLE":    ThemeStructure,
	"STRUCT_SIGNATURE_INVALID":         ThemeStructure,

	"FORENSICS_ELA_MAJOR_EDIT": ThemeImagery,
	"FORENSICS_ELA_MINOR_EDIT": ThemeImagery,

	"EXTERNAL_SIRET_NOT_FOUND":        ThemeExternal,
	"EXTERNAL_SIREN_NOT_FOUND":        ThemeExternal,
	"EXTERNAL_COMPANY_CLOSED":         ThemeExternal,
	"EXTERNAL_COMPANY_NAME_MISMATCH":  ThemeExternal,
	"EXTERNAL_VAT_INVALID":            ThemeExternal,
	"EXTERNAL_SIRET_VERIFICATION_FAILED": ThemeExternal,
	"EXTERNAL_SIREN_VERIFICATION_FAILED": ThemeExternal,
	"EXTERNAL_VAT_VERIFICATION_FAILED":   ThemeExternal,

	"TWODOC_MISSING_FIELD":      ThemeIdentity,
	"TWODOC_BALANCE_MISMATCH":   ThemeIdentity,
	"TWODOC_INCOME_IMPLAUSIBLE": ThemeIdentity,
	"TWODOC_UNREADABLE":         ThemeIdentity,
	"TWODOC_PRESENT":            ThemeIdentity,
}

// ThemeFor returns the theme for a flag code, defaulting to ThemeOther
// for any code not present in the table (a new condition that hasn't
// been themed yet, surfaced rather than silently dropped).
func ThemeFor(code string) Theme {
	if t, ok := themeByCode[code]; ok {
		return t
	}
	return ThemeOther
}
