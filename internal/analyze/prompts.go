package analyze

// primaryPrompt is the full extraction prompt sent on the first attempt for
// each page. The transcription rules here determine extraction correctness;
// the most damaging model failure mode is silently replacing a printed
// specialized test name with a common one it knows better.
const primaryPrompt = `You are a medical data assistant analyzing one page of a medical laboratory report.

Carefully examine this image and extract ALL test results into a structured JSON object.

Required JSON structure:
{
  "report_type": "One of: blood_test, urine_analysis, lipid_profile, liver_function, kidney_function, thyroid_profile, serology, ecg, other. Use your best classification of this page.",
  "patient_name": "Patient's name if visible, otherwise null",
  "report_date": "Report date in YYYY-MM-DD format if visible, otherwise null",
  "tests": [
    {
      "test_name": "Name of the medical test, transcribed EXACTLY as printed",
      "value": "Test result value as printed",
      "unit": "Unit of measurement",
      "reference_range": "Normal/reference range if shown",
      "status": "normal/high/low/abnormal if indicated"
    }
  ]
}

CRITICAL INSTRUCTIONS:
1. Return ONLY valid JSON - no explanations, no markdown, no code blocks.
2. Extract ALL tests visible on this page.
3. Transcribe test names EXACTLY as printed. NEVER replace a printed test name with a different standard test name. If the page prints "HBsAg", output "HBsAg" - do NOT output "Hemoglobin" or any other test.
4. Only expand these common abbreviations: Hb/Hgb (Hemoglobin), WBC, RBC, PLT, HCT, MCV, MCH, MCHC, FBS, BUN, SGPT/ALT, SGOT/AST. Leave ALL other names, especially antigen/antibody and serology assay names, exactly as printed.
5. Skip section headers and group labels that have no result value next to them (e.g. "DIFFERENTIAL COUNT", "LIVER FUNCTION TESTS").
6. For qualitative tests, the textual result is authoritative: if a row shows "Non-Reactive" or "Reactive" next to a numeric ratio, report the text as the value, not the ratio.
7. If a field is not visible, use null.
8. Preserve exact values and units as shown; do not convert units.
9. Double-check that your response is valid JSON.

Now analyze the report page and return the JSON:`

// fallbackPrompt is used from the second attempt onward after a failure.
// It asks for a minimal subset of fields; smaller outputs are less likely
// to be truncated or malformed.
const fallbackPrompt = `Extract the medical test results from this report page as a JSON object.

Required format:
{"report_type": "blood_test or urine_analysis or serology or other", "tests": [{"test_name": "...", "value": "...", "unit": "...", "reference_range": "..."}]}

Transcribe test names exactly as printed. If a field is missing, use null. If no tests are visible, use an empty array. Return ONLY valid JSON, no other text.`
