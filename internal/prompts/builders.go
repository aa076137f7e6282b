// Package prompts holds the built-in stage library and prompt templates.
package prompts

import (
	"fmt"
	"strings"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

const systemPrompt = `You are a senior process engineer reviewing piping and instrumentation diagrams (P&IDs) and process flow diagrams (PFDs). You respond with a single valid JSON object and nothing else. No markdown fences, no commentary.`

// withContext prepends the reference context block to a base prompt
// when context is available.
func withContext(in domain.PromptInput, base string) string {
	if strings.TrimSpace(in.Context) == "" {
		return base
	}

	var b strings.Builder
	b.WriteString("**REFERENCE CONTEXT FROM ENGINEERING STANDARDS:**\n\n")
	b.WriteString(in.Context)
	b.WriteString("\n\nUse the reference context above where it applies. Cite the standard in your findings when you rely on it.\n\n")
	b.WriteString(base)
	return b.String()
}

// withPriorOutputs appends the accumulated outputs of earlier stages.
func withPriorOutputs(in domain.PromptInput, base string) string {
	if strings.TrimSpace(in.PriorOutputs) == "" {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n**OUTPUTS OF PRECEDING STAGES:**\n\n")
	b.WriteString(in.PriorOutputs)
	return b.String()
}

func analysisPrompt(in domain.PromptInput) string {
	base := fmt.Sprintf(`Analyze every attached P&ID sheet for design issues, safety gaps and standards violations.

Review the drawing for:
- Missing or mis-tagged instrumentation (transmitters, gauges, switches)
- Relief and safety valve coverage on pressurized equipment
- Isolation philosophy: block valves, bypasses, drains and vents
- Line sizing, specification breaks and insulation callouts
- Control loop completeness (element, transmitter, controller, valve)
- Equipment trim: level bridles, vortex breakers, seal pots
- Interlocks and shutdown keys referenced but not shown
- Tie-ins and battery limit conditions

Report at least %d distinct findings. Prefer concrete, sheet-referenced observations over generic remarks.

Return a JSON object with exactly this shape:
{
  "drawing_info": {
    "drawing_number": "string",
    "title": "string",
    "revision": "string"
  },
  "issues": [
    {
      "serial_number": 1,
      "reference": "equipment or line tag",
      "issue_observed": "what is wrong, with location on the sheet",
      "recommendation": "what to change",
      "severity": "critical|major|minor|observation",
      "status": "open"
    }
  ],
  "summary": {
    "total_issues": 0,
    "critical_count": 0,
    "major_count": 0,
    "minor_count": 0,
    "observation_count": 0
  }
}`, max(in.MinFindings, 1))

	return withContext(in, base)
}

func pfdExtractionPrompt(in domain.PromptInput) string {
	base := `Extract the complete process definition from the attached PFD sheets.

Capture:
- Every major equipment item with tag, service and duty
- Process streams: source, destination, phase, and stated conditions
- Operating envelope: temperatures, pressures, flow rates where shown
- Utility connections and their headers
- Stated control intent (level, pressure, flow, temperature loops)

Return a JSON object with exactly this shape:
{
  "equipment": [
    {"tag": "string", "type": "string", "service": "string", "duty": "string"}
  ],
  "streams": [
    {"id": "string", "from": "tag", "to": "tag", "phase": "string", "conditions": "string"}
  ],
  "control_intent": [
    {"loop": "string", "variable": "string", "strategy": "string"}
  ],
  "notes": []
}`

	return withContext(in, base)
}

func pidGenerationPrompt(in domain.PromptInput) string {
	base := `Using the extracted process definition from the preceding stage, produce a P&ID development specification.

For every equipment item and stream, define:
- Instrumentation to add: tags, types and ranges
- Valve arrangement: isolation, control, check and relief valves
- Line specifications: size, class and insulation
- Control loops completing the stated control intent
- Safety devices required by the service

Return a JSON object with exactly this shape:
{
  "pid_elements": [
    {
      "serial_number": 1,
      "reference": "equipment or stream id",
      "description": "what to add and where",
      "category": "instrumentation|valves|piping|safety|control",
      "severity": "observation",
      "status": "proposed"
    }
  ],
  "loops": [
    {"tag": "string", "elements": [], "action": "string"}
  ],
  "summary": {}
}`

	return withPriorOutputs(in, withContext(in, base))
}

func conversionValidationPrompt(in domain.PromptInput) string {
	base := fmt.Sprintf(`Validate the P&ID development specification produced by the preceding stages against the attached source drawing and the extracted process definition.

Check for:
- Equipment or streams present in the extraction but unaddressed in the specification
- Control intent left without a completing loop
- Safety devices missing for pressurized or heated services
- Inconsistent tags between stages
- Specification entries that contradict the source drawing

Report at least %d distinct findings, including confirmations where the specification is complete.

Return a JSON object with exactly this shape:
{
  "validation_findings": [
    {
      "serial_number": 1,
      "reference": "tag or stream id",
      "finding": "what was checked and the outcome",
      "disposition": "pass|gap|conflict",
      "severity": "critical|major|minor|observation",
      "status": "open"
    }
  ],
  "coverage": {},
  "summary": {}
}`, max(in.MinFindings, 1))

	return withPriorOutputs(in, withContext(in, base))
}
