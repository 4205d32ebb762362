package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/poiesic/reportlens/ai"
)

// extraction is the response shape requested from the extraction model.
type extraction struct {
	Entities []mention `json:"entities" jsonschema:"description=Entity mentions in order of appearance"`
}

type mention struct {
	Text  string `json:"text" jsonschema:"minLength=1,description=The mention copied verbatim from the report"`
	Label string `json:"label" jsonschema:"enum=DATE,enum=DISEASE,enum=DRUG,enum=ORG,enum=PROCEDURE"`
}

// extractionSchema is generated once from the extraction type.
var extractionSchema = func() string {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	out, err := json.MarshalIndent(r.Reflect(&extraction{}), "", "  ")
	if err != nil {
		panic(fmt.Sprintf("openai: extraction schema: %v", err))
	}
	return string(out)
}()

const extractionPromptTemplate = `Extract named entities from the medical report excerpt and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Copy each mention exactly as written in the excerpt, including capitalization. Do not rephrase or expand abbreviations.
- Label must be exactly one of: %s.
- DATE: calendar dates and relative dates. DISEASE: diseases, conditions and symptoms. DRUG: medications and doses.
  ORG: hospitals, clinics, laboratories and other organizations. PROCEDURE: tests, scans, surgeries and treatments.
- Include only entities that appear in the excerpt. Do not infer diagnoses. Do not hallucinate.
- List a mention once even if it appears several times.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Seen at St. Mary's on 03/02/2024 for chest pain. ECG normal. Started aspirin 81 mg."
Output:
{
  "entities": [
    {"text":"St. Mary's","label":"ORG"},
    {"text":"03/02/2024","label":"DATE"},
    {"text":"chest pain","label":"DISEASE"},
    {"text":"ECG","label":"PROCEDURE"},
    {"text":"aspirin","label":"DRUG"}
  ]
}`

func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate, extractionSchema, strings.Join(ai.DefaultLabels, ", "))
}

const summaryPromptTemplate = `You rewrite medical reports as short summaries a patient can understand.

Rules:
- Use plain, everyday language. Explain medical terms briefly when you use them.
- Only restate what the report says. Do not add facts, guesses, diagnoses, prognoses or advice.
- Keep dates, medication names and doses exactly as written.
- Write between %d and %d words as continuous prose, with no headings, lists or preamble.`

func buildSummaryPrompt(bounds ai.LengthBounds) string {
	return fmt.Sprintf(summaryPromptTemplate, bounds.Min, bounds.Max)
}
