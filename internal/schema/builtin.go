package schema

// Groups and fields understood by the built-in engine.
const (
	GroupLint    = "lint"
	GroupFormat  = "format"
	GroupUnicode = "unicode"

	FieldSelect         = "select"
	FieldIgnore         = "ignore"
	FieldLineLength     = "line-length"
	FieldMaxDiagnostics = "max-diagnostics"
	FieldQuoteStyle     = "quote-style"
	FieldIndentWidth    = "indent-width"
	FieldNormalization  = "normalization"
)

var builtin = MustNew([]Option{
	{Group: GroupLint, Field: FieldSelect, Default: "", Description: "Comma-separated rule codes to enable. Empty enables every rule."},
	{Group: GroupLint, Field: FieldIgnore, Default: "", Description: "Comma-separated rule codes to disable."},
	{Group: GroupLint, Field: FieldLineLength, Default: "88", Description: "Maximum display width of a line (E501)."},
	{Group: GroupLint, Field: FieldMaxDiagnostics, Default: "200", Description: "Maximum number of diagnostics reported per run."},
	{Group: GroupFormat, Field: FieldQuoteStyle, Default: "auto", Description: "Preferred string quote: auto, single or double (Q000)."},
	{Group: GroupFormat, Field: FieldIndentWidth, Default: "auto", Description: "Indentation width in spaces, or auto to detect it (W191, E111)."},
	{Group: GroupUnicode, Field: FieldNormalization, Default: "NFC", Description: "Required Unicode normalization form: NFC, NFKC or off (U001)."},
})

// Builtin returns the catalog of the built-in engine.
func Builtin() *Catalog {
	return builtin
}
