package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ConversionPrediction is the shape returned by the conversion advisory
// service.
type ConversionPrediction struct {
	PredictedRate float64 `json:"predicted_rate"`
	Confidence    float64 `json:"confidence"`
}

// TrendSignal is one trending style/color signal.
type TrendSignal struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"` // color | pattern | fabric
	Strength float64 `json:"strength"`
}

// ConversionAdvisor predicts bundle conversion rates.
type ConversionAdvisor interface {
	PredictConversion(ctx context.Context, bundle *OutfitBundle, sctx Context) (ConversionPrediction, error)
}

// TrendAdvisor supplies trending signals for a season.
type TrendAdvisor interface {
	TrendingSignals(ctx context.Context, season string) ([]TrendSignal, error)
}

// ColorAdvisor scores a color combination.
type ColorAdvisor interface {
	ColorHarmony(ctx context.Context, colors []string) (float64, error)
}

// AdvisoryConfig configures the advisory HTTP client.
type AdvisoryConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AdvisoryClient calls the external color/style/trend advisory services.
// When disabled it satisfies the advisor interfaces with deterministic local
// heuristics, so the evaluators behave identically with or without the
// external dependency.
type AdvisoryClient struct {
	enabled bool
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAdvisoryClient creates an advisory client.
func NewAdvisoryClient(cfg *AdvisoryConfig) *AdvisoryClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdvisoryClient{
		enabled: cfg.Enabled,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsEnabled returns whether remote advisory calls are made.
func (a *AdvisoryClient) IsEnabled() bool {
	return a.enabled
}

func (a *AdvisoryClient) post(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("advisory API error: %s", string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PredictConversion asks the conversion service for a predicted rate. When
// disabled it derives a rate locally from availability and price band.
func (a *AdvisoryClient) PredictConversion(ctx context.Context, bundle *OutfitBundle, sctx Context) (ConversionPrediction, error) {
	if !a.enabled {
		return localConversionPrediction(bundle), nil
	}

	var prediction ConversionPrediction
	err := a.post(ctx, "/v1/predict/conversion", map[string]any{
		"bundle":  bundle,
		"context": sctx,
	}, &prediction)
	if err != nil {
		return ConversionPrediction{}, err
	}
	return prediction, nil
}

// TrendingSignals fetches the trending signals for a season. When disabled a
// static seasonal table is used.
func (a *AdvisoryClient) TrendingSignals(ctx context.Context, season string) ([]TrendSignal, error) {
	if !a.enabled {
		return localTrendSignals(season), nil
	}

	var out struct {
		Signals []TrendSignal `json:"signals"`
	}
	if err := a.post(ctx, "/v1/trends", map[string]any{"season": season}, &out); err != nil {
		return nil, err
	}
	return out.Signals, nil
}

// ColorHarmony scores a color combination in [0,1]. When disabled the local
// harmony matrix is used.
func (a *AdvisoryClient) ColorHarmony(ctx context.Context, colors []string) (float64, error) {
	if !a.enabled {
		return localColorHarmony(colors), nil
	}

	var out struct {
		Score float64 `json:"score"`
	}
	if err := a.post(ctx, "/v1/color/harmony", map[string]any{"colors": colors}, &out); err != nil {
		return 0, err
	}
	return out.Score, nil
}

// localConversionPrediction derives a conversion rate from bundle signals:
// the share of available pieces and whether the final price sits in the
// high-conversion band.
func localConversionPrediction(bundle *OutfitBundle) ConversionPrediction {
	rate := 0.06
	rate += 0.10 * availabilityRatio(bundle)
	if bundle.FinalPrice >= 200 && bundle.FinalPrice <= 800 {
		rate += 0.05
	}
	if bundle.FinalPrice < bundle.TotalPrice {
		// Discounted bundles convert better.
		rate += 0.02
	}
	return ConversionPrediction{PredictedRate: rate, Confidence: 0.7}
}

// localTrendSignals is the static fallback table used when the trend service
// is disabled.
func localTrendSignals(season string) []TrendSignal {
	switch season {
	case "spring", "summer":
		return []TrendSignal{
			{Name: "sage", Kind: "color", Strength: 0.8},
			{Name: "light_blue", Kind: "color", Strength: 0.7},
			{Name: "linen", Kind: "fabric", Strength: 0.75},
			{Name: "solid", Kind: "pattern", Strength: 0.6},
		}
	case "fall", "autumn", "winter":
		return []TrendSignal{
			{Name: "burgundy", Kind: "color", Strength: 0.8},
			{Name: "charcoal", Kind: "color", Strength: 0.7},
			{Name: "flannel", Kind: "fabric", Strength: 0.7},
			{Name: "plaid", Kind: "pattern", Strength: 0.65},
		}
	default:
		return []TrendSignal{
			{Name: "navy", Kind: "color", Strength: 0.7},
			{Name: "solid", Kind: "pattern", Strength: 0.6},
		}
	}
}

var _ ConversionAdvisor = (*AdvisoryClient)(nil)
var _ TrendAdvisor = (*AdvisoryClient)(nil)
var _ ColorAdvisor = (*AdvisoryClient)(nil)
