package answer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing_EstimateCost(t *testing.T) {
	pricing := DefaultPricing()

	tests := []struct {
		name      string
		model     string
		in, out   int
		wantModel string
		wantIn    float64
		wantOut   float64
		wantTotal float64
	}{
		{name: "gpt-4", model: "gpt-4", in: 1000, out: 500, wantModel: "gpt-4", wantIn: 0.03, wantOut: 0.03, wantTotal: 0.06},
		{name: "gpt-4-turbo", model: "gpt-4-turbo", in: 1500, out: 100, wantModel: "gpt-4-turbo", wantIn: 0.015, wantOut: 0.003, wantTotal: 0.018},
		{name: "未登録モデルは gpt-3.5-turbo", model: "gpt-4o-mini", in: 2000, out: 1000, wantModel: "gpt-3.5-turbo", wantIn: 0.003, wantOut: 0.002, wantTotal: 0.005},
		{name: "少量トークン", model: "gpt-3.5-turbo", in: 10, out: 1, wantModel: "gpt-3.5-turbo", wantIn: 0.000015, wantOut: 0.000002, wantTotal: 0.000017},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.EstimateCost(tt.model, tt.in, tt.out)
			assert.Equal(t, tt.wantModel, got.Model)
			assert.Equal(t, tt.in, got.InputTokens)
			assert.Equal(t, tt.out, got.OutputTokens)
			assert.InDelta(t, tt.wantIn, got.InputCostUSD, 1e-12)
			assert.InDelta(t, tt.wantOut, got.OutputCostUSD, 1e-12)
			assert.InDelta(t, tt.wantTotal, got.TotalCostUSD, 1e-12)
		})
	}
}

func TestLoadPricing(t *testing.T) {
	dir := t.TempDir()

	t.Run("空パスは組み込み価格表", func(t *testing.T) {
		pricing, err := LoadPricing("")
		require.NoError(t, err)
		assert.Equal(t, "gpt-3.5-turbo", pricing.DefaultModel)
		assert.Len(t, pricing.Models, 3)
	})

	t.Run("YAMLから読み込み", func(t *testing.T) {
		path := filepath.Join(dir, "pricing.yaml")
		content := `default_model: gpt-4o-mini
models:
  gpt-4o-mini:
    input_price_per_1k_tokens: 0.00015
    output_price_per_1k_tokens: 0.0006
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		pricing, err := LoadPricing(path)
		require.NoError(t, err)

		got := pricing.EstimateCost("unknown", 10000, 1000)
		assert.Equal(t, "gpt-4o-mini", got.Model)
		assert.InDelta(t, 0.0015, got.InputCostUSD, 1e-12)
		assert.InDelta(t, 0.0006, got.OutputCostUSD, 1e-12)
	})

	t.Run("デフォルトモデルの価格がない", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("default_model: missing\nmodels: {}\n"), 0o644))

		_, err := LoadPricing(path)
		assert.Error(t, err)
	})

	t.Run("ファイルが存在しない", func(t *testing.T) {
		_, err := LoadPricing(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
