// Package backend declares the collaborators a page depends on for data it
// does not own (identity, market prices, crop diagnosis, yield estimates,
// policies, weather, news and the translation widget), together with one
// in-memory implementation that fabricates plausible data.
package backend

import (
	"context"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/models"
)

// AuthBackend resolves login and registration forms.
type AuthBackend interface {
	Authenticate(ctx context.Context, creds models.Credentials, role models.Role) (models.Session, error)
	Register(ctx context.Context, reg models.Registration) error
}

// MarketDataSource serves crop price data.
type MarketDataSource interface {
	Crops() []string
	Trend(ctx context.Context, crop string) (models.ChartData, error)
	Comparison(ctx context.Context, crop string) (models.ChartData, error)
	Prices(ctx context.Context, filter PriceFilter) ([]Price, error)
	Refresh(ctx context.Context) (time.Time, error)
	Markets(ctx context.Context, kind string) ([]Market, error)
}

// DiseaseClassifier diagnoses a crop photo.
type DiseaseClassifier interface {
	Classify(ctx context.Context, img Image) (Diagnosis, error)
}

// YieldPredictor estimates a harvest.
type YieldPredictor interface {
	Predict(ctx context.Context, in YieldInput) (YieldPrediction, error)
}

// PolicyCatalog lists government schemes.
type PolicyCatalog interface {
	Policies(ctx context.Context, category string) ([]Policy, error)
}

// WeatherSource reports local weather.
type WeatherSource interface {
	Weather(ctx context.Context) (Weather, error)
}

// NewsFeed supplies dashboard headlines.
type NewsFeed interface {
	Headlines(ctx context.Context) ([]NewsItem, error)
}

// TranslationWidget is the third-party page translator. Its language menu
// renders asynchronously, so MenuOptions may return nothing for a while.
type TranslationWidget interface {
	MenuOptions(ctx context.Context) ([]models.LanguageCode, error)
	Select(ctx context.Context, code models.LanguageCode) error
}

// PriceFilter narrows the market price table. Empty fields match everything.
type PriceFilter struct {
	Crop  string `json:"crop,omitempty"`
	State string `json:"state,omitempty"`
}

// Price is one row of the market price table, in rupees per quintal.
type Price struct {
	Crop  string  `json:"crop"`
	State string  `json:"state"`
	Price float64 `json:"price"`
}

// Market is a point on the market map.
type Market struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance_km"`
}

// Image is an uploaded crop photo.
type Image struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

// Diagnosis is the result of analyzing a crop photo.
type Diagnosis struct {
	Disease    string   `json:"disease"`
	Scientific string   `json:"scientific_name"`
	Confidence int      `json:"confidence"`
	Symptoms   []string `json:"symptoms"`
	Treatment  []string `json:"treatment"`
	Prevention []string `json:"prevention"`
}

// YieldInput is the validated yield prediction form.
type YieldInput struct {
	Crop string  `json:"crop"`
	Area float64 `json:"area"`
	Soil string  `json:"soil"`
}

// YieldPrediction is an estimated harvest in quintals.
type YieldPrediction struct {
	Crop            string   `json:"crop"`
	Quintals        int      `json:"quintals"`
	Recommendations []string `json:"recommendations"`
}

// Policy is a government scheme card.
type Policy struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DayForecast is one card of the weather strip.
type DayForecast struct {
	Day  string `json:"day"`
	Temp int    `json:"temp"`
	Icon string `json:"icon"`
}

// Weather is the dashboard weather widget.
type Weather struct {
	Temp      int           `json:"temp"`
	Condition string        `json:"condition"`
	Icon      string        `json:"icon"`
	Forecast  []DayForecast `json:"forecast"`
}

// NewsItem is one slide of the news carousel.
type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}
