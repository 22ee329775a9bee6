package rubric

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Parameter groups. HEADER rows are display-only and never scored.
const (
	GroupHeader      = "HEADER"
	GroupAccuracySub = "ACCURACY_SUB"
	GroupEvalQuality = "EVAL_QUALITY"
)

// Parameter is one rubric line item. The catalog is immutable at runtime;
// edits happen by replacing the JSON document and restarting.
type Parameter struct {
	Parameter   string `json:"Parameter"`
	Description string `json:"Description"`
	Points      int    `json:"Points"`
	Group       string `json:"Group"`
}

// Catalog is the rubric configuration document persisted as JSON.
type Catalog struct {
	FormName   string      `json:"form_name"`
	Parameters []Parameter `json:"parameters"`
}

const accuracyHeader = "Accuracy of Scoring"

var accuracySubParams = []string{
	"Call Opening (Readiness / energy)",
	"Call Opening 2 (Confirming lead source / meeting focused)",
	"Effective Probing / Qualifying client",
	"Accurate / Complete info",
	"Objection / Call Handling",
	"Soft Skills (active listening - building rapport)",
	"Positivity / professionality / politeness",
	"Call closure / meeting summarized",
	"Accurate Disposition",
	"Comment / notes",
	"Accurate Data inputs / shows",
	"WhatsApp message sent",
	"Took lead ownership",
	"Follow-up made properly",
}

var evalQualityParams = []struct{ name, desc string }{
	{"Adherence to QA Guidelines", "Followed QA process and aligned with calibration standards"},
	{"Evidence & Notes", "Left a clear, specific and improvement-focused comment"},
	{"Objectivity & Fairness", "Evaluation is unbiased and fact-based"},
	{"Critical Error Identification", "Correct identification of fatal errors"},
	{"Evaluation Variety & Sample Coverage", "Evaluations cover a balanced mix of call durations and call types"},
	{"Feedback Actionability", "Conducted coaching session on the call topic (If required)"},
	{"Timeliness & Completeness", "On track with the evaluations target SLA"},
}

// DefaultCatalog returns the built-in scoring rubric: one unscored accuracy
// header, 14 accuracy sub-parameters worth 1 point each, and 7 evaluation
// quality parameters worth 1 point each.
func DefaultCatalog() Catalog {
	params := make([]Parameter, 0, 1+len(accuracySubParams)+len(evalQualityParams))
	params = append(params, Parameter{
		Parameter:   accuracyHeader,
		Description: "Header (not scored) | Category total = 14 points",
		Points:      0,
		Group:       GroupHeader,
	})
	for _, p := range accuracySubParams {
		params = append(params, Parameter{
			Parameter:   p,
			Description: "Accuracy of Scoring - Sub Parameter",
			Points:      1,
			Group:       GroupAccuracySub,
		})
	}
	for _, p := range evalQualityParams {
		params = append(params, Parameter{
			Parameter:   p.name,
			Description: p.desc,
			Points:      1,
			Group:       GroupEvalQuality,
		})
	}
	return Catalog{FormName: "ATA Audit the Auditor", Parameters: params}
}

// Load reads the rubric catalog from path, seeding the file with the default
// catalog if it does not exist yet. A present-but-empty parameters array also
// falls back to the default so scoring never runs against an empty rubric.
func Load(path string) (Catalog, error) {
	if err := ensureFile(path); err != nil {
		return Catalog{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read rubric file: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse rubric file %s: %w", path, err)
	}
	if len(cat.Parameters) == 0 {
		cat = DefaultCatalog()
	}
	return cat, nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat rubric file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create rubric dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(DefaultCatalog(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode default rubric: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("seed rubric file: %w", err)
	}
	return nil
}

// ByGroup returns the catalog parameters belonging to the given group,
// preserving catalog order.
func (c Catalog) ByGroup(group string) []Parameter {
	var out []Parameter
	for _, p := range c.Parameters {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}
