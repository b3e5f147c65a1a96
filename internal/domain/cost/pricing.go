package cost

// Pricing holds per-model token rates in USD per million tokens.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million" json:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million" json:"output_per_million"`
}

// DefaultModel is the pricing fallback for unrecognized model identifiers.
// Execution never aborts because of an unknown model string; it is billed at
// this model's rates.
const DefaultModel = "claude-sonnet-4-5"

// pricingTable maps model identifiers to their published rates.
// All rates are USD per million tokens.
var pricingTable = map[string]Pricing{
	"claude-sonnet-4-5":          {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-opus-4":              {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
	"claude-3-opus-20240229":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
}

// PricingFor returns the pricing for a model, falling back to DefaultModel
// when the identifier is not in the table.
func PricingFor(model string) Pricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return pricingTable[DefaultModel]
}

// Calculate converts token usage to a USD amount under the model's pricing.
// Zero tokens cost zero. No rounding is applied; callers round for display.
func Calculate(model string, usage TokenUsage) float64 {
	p := PricingFor(model)
	inputCost := float64(usage.Input) / 1_000_000 * p.InputPerMillion
	outputCost := float64(usage.Output) / 1_000_000 * p.OutputPerMillion
	return inputCost + outputCost
}
