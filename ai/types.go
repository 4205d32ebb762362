package ai

import "strings"

// Entity labels produced by the extractors.
const (
	LabelDate      = "DATE"
	LabelDisease   = "DISEASE"
	LabelDrug      = "DRUG"
	LabelOrg       = "ORG"
	LabelProcedure = "PROCEDURE"
)

// DefaultLabels is the label set reports are filtered to when none is configured.
var DefaultLabels = []string{
	LabelDate,
	LabelDisease,
	LabelDrug,
	LabelOrg,
	LabelProcedure,
}

// labelAliases maps labels used by common biomedical NER models to ours.
var labelAliases = map[string]string{
	"CHEMICAL":     LabelDrug,
	"MEDICATION":   LabelDrug,
	"MEDICINE":     LabelDrug,
	"CONDITION":    LabelDisease,
	"PROBLEM":      LabelDisease,
	"DIAGNOSIS":    LabelDisease,
	"TREATMENT":    LabelProcedure,
	"TEST":         LabelProcedure,
	"ORGANIZATION": LabelOrg,
	"HOSPITAL":     LabelOrg,
	"TIME":         LabelDate,
}

// NormalizeLabel upper-cases a model label and maps known aliases onto the
// default label set. Unknown labels are returned upper-cased.
func NormalizeLabel(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, " ", "_")
	if mapped, ok := labelAliases[label]; ok {
		return mapped
	}
	return label
}
