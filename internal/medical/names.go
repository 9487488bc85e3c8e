// Package medical encodes the domain rules for lab-report extraction:
// test-name standardization, result-status derivation, and date handling.
package medical

import (
	"regexp"
	"sort"
	"strings"
)

// testSynonyms maps common abbreviations (lowercased) to standardized test
// names. This is a deliberate whitelist: only well-known general chemistry
// and hematology abbreviations are expanded. Specialized assay names such as
// serology antigen/antibody tests (HBsAg, Anti-HCV, VDRL) must stay verbatim,
// so matching below is whole-word only.
var testSynonyms = map[string]string{
	"hgb":                "Hemoglobin",
	"hb":                 "Hemoglobin",
	"hemoglobin":         "Hemoglobin",
	"hgb (hemoglobin)":   "Hemoglobin",
	"wbc":                "Total Leukocyte Count",
	"white blood cell count": "Total Leukocyte Count",
	"total leukocyte count":  "Total Leukocyte Count",
	"leukocyte count":        "Total Leukocyte Count",
	"rbc":                    "Red Blood Cell Count",
	"red blood cell count":   "Red Blood Cell Count",
	"erythrocyte count":      "Red Blood Cell Count",
	"plt":                    "Platelet Count",
	"platelet count":         "Platelet Count",
	"platelets":              "Platelet Count",
	"hct":                    "Hematocrit",
	"hematocrit":             "Hematocrit",
	"hematocrit value":       "Hematocrit",
	"hct (hematocrit)":       "Hematocrit",
	"mcv":                    "Mean Corpuscular Volume",
	"mean corpuscular volume": "Mean Corpuscular Volume",
	"mean cell volume":        "Mean Corpuscular Volume",
	"mch":                     "Mean Cell Hemoglobin",
	"mean cell hemoglobin":    "Mean Cell Hemoglobin",
	"mean corpuscular hemoglobin": "Mean Cell Hemoglobin",
	"mchc":                        "Mean Cell Hemoglobin Concentration",
	"mean cell hemoglobin concentration":        "Mean Cell Hemoglobin Concentration",
	"mean corpuscular hemoglobin concentration": "Mean Cell Hemoglobin Concentration",
	"glucose":             "Glucose",
	"glucose fast":        "Fasting Glucose",
	"blood glucose":       "Glucose",
	"fbs":                 "Fasting Glucose",
	"fasting glucose":     "Fasting Glucose",
	"fasting blood sugar": "Fasting Glucose",
	"creatinine":              "Creatinine",
	"serum creatinine":        "Creatinine",
	"creat":                   "Creatinine",
	"urea":                    "Urea",
	"bun":                     "Blood Urea Nitrogen",
	"blood urea nitrogen":     "Blood Urea Nitrogen",
	"neutrophils":             "Neutrophils",
	"lymphocytes":             "Lymphocytes",
	"eosinophils":             "Eosinophils",
	"monocytes":               "Monocytes",
	"basophils":               "Basophils",
	"alt":                     "Alanine Aminotransferase",
	"sgpt":                    "Alanine Aminotransferase",
	"ast":                     "Aspartate Aminotransferase",
	"sgot":                    "Aspartate Aminotransferase",
	"bilirubin":               "Total Bilirubin",
	"total bilirubin":         "Total Bilirubin",
}

// synonymKeys orders the synonym keys longest first (ties lexicographic) so
// partial matching is deterministic and the most specific key wins: "mean
// cell hemoglobin concentration" must match before "mean cell hemoglobin".
var synonymKeys = func() []string {
	keys := make([]string, 0, len(testSynonyms))
	for key := range testSynonyms {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// synonymPatterns holds precompiled whole-word matchers for each synonym key.
var synonymPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(testSynonyms))
	for key := range testSynonyms {
		patterns[key] = regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`)
	}
	return patterns
}()

// StandardizeTestName expands a whitelisted abbreviation to its standardized
// form. Names outside the whitelist are returned verbatim (trimmed), so a
// printed specialized test name is never rewritten into an unrelated common
// one ("HBsAg" must not become "Hemoglobin").
func StandardizeTestName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)

	if std, ok := testSynonyms[lower]; ok {
		return std
	}

	for _, key := range synonymKeys {
		// Whole-word match keeps "hb" from firing inside "hbsag".
		if synonymPatterns[key].MatchString(lower) {
			return testSynonyms[key]
		}
		// Reverse containment: "leukocyte count" matches the longer
		// "total leukocyte count" key. Short inputs are excluded to
		// avoid accidental expansion.
		if len(lower) > 3 && strings.Contains(key, lower) {
			return testSynonyms[key]
		}
	}

	return trimmed
}
