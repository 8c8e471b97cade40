package answer

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPricing は1000トークンあたりの価格（USD）
type ModelPricing struct {
	InputPricePer1kTokens  float64 `yaml:"input_price_per_1k_tokens"`
	OutputPricePer1kTokens float64 `yaml:"output_price_per_1k_tokens"`
}

// Pricing はモデルごとの価格表。未登録のモデルは DefaultModel の価格で計算する
type Pricing struct {
	Models       map[string]ModelPricing `yaml:"models"`
	DefaultModel string                  `yaml:"default_model"`
}

// CostEstimate はリクエスト1回分の概算コスト
type CostEstimate struct {
	InputTokens   int     `json:"input_tokens"`
	OutputTokens  int     `json:"output_tokens"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	Model         string  `json:"model"`
}

// DefaultPricing は組み込みの価格表を返す
func DefaultPricing() *Pricing {
	return &Pricing{
		Models: map[string]ModelPricing{
			"gpt-3.5-turbo": {InputPricePer1kTokens: 0.0015, OutputPricePer1kTokens: 0.002},
			"gpt-4":         {InputPricePer1kTokens: 0.03, OutputPricePer1kTokens: 0.06},
			"gpt-4-turbo":   {InputPricePer1kTokens: 0.01, OutputPricePer1kTokens: 0.03},
		},
		DefaultModel: "gpt-3.5-turbo",
	}
}

// LoadPricing は YAML の価格表を読み込む。path が空の場合は組み込みの価格表を返す。
func LoadPricing(path string) (*Pricing, error) {
	if path == "" {
		return DefaultPricing(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing config: %w", err)
	}

	var pricing Pricing
	if err := yaml.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("failed to parse pricing config: %w", err)
	}
	if _, ok := pricing.Models[pricing.DefaultModel]; !ok {
		return nil, fmt.Errorf("default model %q has no pricing", pricing.DefaultModel)
	}
	return &pricing, nil
}

// EstimateCost は入出力トークン数から概算コストを計算する。金額は小数第6位で丸める。
func (p *Pricing) EstimateCost(model string, inputTokens, outputTokens int) CostEstimate {
	price, ok := p.Models[model]
	if !ok {
		model = p.DefaultModel
		price = p.Models[model]
	}

	inputCost := float64(inputTokens) / 1000 * price.InputPricePer1kTokens
	outputCost := float64(outputTokens) / 1000 * price.OutputPricePer1kTokens

	return CostEstimate{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		InputCostUSD:  round6(inputCost),
		OutputCostUSD: round6(outputCost),
		TotalCostUSD:  round6(inputCost + outputCost),
		Model:         model,
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
