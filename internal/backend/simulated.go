package backend

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/util"
)

// PlaceholderName is the identity every successful login resolves to.
const PlaceholderName = "Rajesh Kumar"

var (
	trendLabels      = []string{"Mar 18", "Mar 25", "Apr 1", "Apr 8", "Apr 15", "Apr 18"}
	comparisonStates = []string{"Punjab", "Haryana", "UP", "MP", "Rajasthan"}

	trendSeries = map[string][]float64{
		"wheat":  {2200, 2300, 2250, 2400, 2350, 2450},
		"rice":   {1850, 1900, 1950, 1920, 2000, 2100},
		"maize":  {1500, 1550, 1600, 1650, 1700, 1780},
		"potato": {1200, 1150, 1250, 1300, 1350, 1400},
	}
	comparisonSeries = map[string][]float64{
		"wheat":  {2250, 2180, 2080, 2120, 2020},
		"rice":   {3950, 3880, 3750, 3820, 3680},
		"maize":  {1950, 1920, 1880, 1850, 1800},
		"potato": {950, 1050, 920, 980, 900},
	}

	markets = []Market{
		{Name: "Azadpur Mandi", Kind: "mandi", Lat: 28.7158, Lng: 77.1761, Distance: 4.2},
		{Name: "Narela Grain Market", Kind: "mandi", Lat: 28.8527, Lng: 77.0929, Distance: 17.5},
		{Name: "Okhla Sabzi Mandi", Kind: "wholesale", Lat: 28.5355, Lng: 77.2710, Distance: 21.3},
		{Name: "Ghazipur Wholesale Market", Kind: "wholesale", Lat: 28.6230, Lng: 77.3260, Distance: 19.8},
		{Name: "INA Market", Kind: "retail", Lat: 28.5753, Lng: 77.2090, Distance: 14.6},
	}

	policies = []Policy{
		{Title: "Organic Farming Subsidy", Category: "subsidy", Description: "50% subsidy on organic inputs for small farmers"},
		{Title: "Low Interest Loans", Category: "loan", Description: "4% interest loans for farm equipment"},
		{Title: "PM-KISAN Income Support", Category: "subsidy", Description: "Rs 6,000 per year paid in three instalments to landholding farmers"},
		{Title: "Pradhan Mantri Fasal Bima Yojana", Category: "insurance", Description: "Crop insurance against natural calamities at low premium"},
	}

	headlines = []NewsItem{
		{Title: "MSP for Rabi crops raised", Summary: "Minimum support price for wheat increased ahead of the procurement season."},
		{Title: "Monsoon expected to be normal", Summary: "The weather department forecasts normal rainfall across most farming regions."},
		{Title: "New soil testing labs opened", Summary: "Free soil health cards available at district agriculture offices."},
	}

	yieldRecommendations = []string{
		"Apply nitrogen-rich fertilizer",
		"Ensure proper irrigation",
		"Monitor for pest activity",
	}
)

// Simulated implements every collaborator with fixed data and random yields.
type Simulated struct {
	mu          sync.Mutex
	refreshedAt time.Time
	registered  map[string]models.Registration
}

// NewSimulated creates the in-memory collaborator set.
func NewSimulated() *Simulated {
	return &Simulated{
		refreshedAt: time.Now(),
		registered:  make(map[string]models.Registration),
	}
}

// Authenticate accepts any non-empty credentials and returns the placeholder identity.
func (s *Simulated) Authenticate(ctx context.Context, creds models.Credentials, role models.Role) (models.Session, error) {
	if creds.Phone == "" || creds.Password == "" {
		return models.Session{}, &models.ValidationError{Kind: models.MissingField, Message: "Please fill all required fields"}
	}
	name := PlaceholderName
	s.mu.Lock()
	if reg, ok := s.registered[creds.Phone]; ok && reg.Name != "" {
		name = reg.Name
	}
	s.mu.Unlock()
	slog.Debug("Simulated.Authenticate: accepted", "role", role)
	return models.Session{DisplayName: name, Role: role, LoggedIn: true}, nil
}

// Register records the form so a later login can greet the user by name.
func (s *Simulated) Register(ctx context.Context, reg models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[reg.Phone] = reg
	slog.Debug("Simulated.Register: recorded", "location", reg.Location)
	return nil
}

// Crops lists the crops with price series.
func (s *Simulated) Crops() []string {
	out := make([]string, 0, len(trendSeries))
	for crop := range trendSeries {
		out = append(out, crop)
	}
	slices.Sort(out)
	return out
}

func (s *Simulated) Trend(ctx context.Context, crop string) (models.ChartData, error) {
	series, ok := trendSeries[strings.ToLower(crop)]
	if !ok {
		return models.ChartData{}, &models.NotFoundError{Kind: "crop", ID: crop}
	}
	return models.ChartData{Labels: slices.Clone(trendLabels), Series: slices.Clone(series)}, nil
}

func (s *Simulated) Comparison(ctx context.Context, crop string) (models.ChartData, error) {
	series, ok := comparisonSeries[strings.ToLower(crop)]
	if !ok {
		return models.ChartData{}, &models.NotFoundError{Kind: "crop", ID: crop}
	}
	return models.ChartData{Labels: slices.Clone(comparisonStates), Series: slices.Clone(series)}, nil
}

// Prices flattens the state comparison into table rows.
func (s *Simulated) Prices(ctx context.Context, filter PriceFilter) ([]Price, error) {
	var out []Price
	for _, crop := range s.Crops() {
		if filter.Crop != "" && !strings.EqualFold(filter.Crop, crop) {
			continue
		}
		for i, state := range comparisonStates {
			if filter.State != "" && !strings.EqualFold(filter.State, state) {
				continue
			}
			out = append(out, Price{Crop: crop, State: state, Price: comparisonSeries[crop][i]})
		}
	}
	return out, nil
}

func (s *Simulated) Refresh(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshedAt = time.Now()
	return s.refreshedAt, nil
}

// Markets returns markets of a kind; "" or "all" returns every market.
func (s *Simulated) Markets(ctx context.Context, kind string) ([]Market, error) {
	kind = strings.ToLower(kind)
	var out []Market
	for _, m := range markets {
		if kind == "" || kind == "all" || m.Kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

// Classify ignores the photo and reports a fixed late blight diagnosis.
func (s *Simulated) Classify(ctx context.Context, img Image) (Diagnosis, error) {
	if img.Filename == "" && img.Size == 0 {
		return Diagnosis{}, models.ErrNoImage
	}
	return Diagnosis{
		Disease:    "Late Blight",
		Scientific: "Phytophthora infestans",
		Confidence: 92,
		Symptoms: []string{
			"Dark, water-soaked lesions on leaves",
			"White fungal growth on leaf undersides",
		},
		Treatment: []string{
			"Spray copper-based fungicide at 7-day intervals",
			"Remove and destroy infected plants",
		},
		Prevention: []string{
			"Use certified disease-free seed",
			"Avoid overhead irrigation",
			"Rotate crops every season",
		},
	}, nil
}

// Predict returns a random yield between 30 and 100 quintals.
func (s *Simulated) Predict(ctx context.Context, in YieldInput) (YieldPrediction, error) {
	return YieldPrediction{
		Crop:            in.Crop,
		Quintals:        util.RandomIntRange(30, 100),
		Recommendations: slices.Clone(yieldRecommendations),
	}, nil
}

// PolicyCategories lists the distinct policy categories.
func (s *Simulated) PolicyCategories() []string {
	var out []string
	for _, p := range policies {
		if !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}

// Policies filters by category; "all" or "" returns the whole catalogue.
func (s *Simulated) Policies(ctx context.Context, category string) ([]Policy, error) {
	category = strings.ToLower(category)
	if category != "" && category != "all" && !slices.Contains(s.PolicyCategories(), category) {
		return nil, &models.NotFoundError{Kind: "policy category", ID: category}
	}
	var out []Policy
	for _, p := range policies {
		if category == "" || category == "all" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Simulated) Weather(ctx context.Context) (Weather, error) {
	return Weather{
		Temp:      30,
		Condition: "Sunny",
		Icon:      "sun",
		Forecast: []DayForecast{
			{Day: "Today", Temp: 30, Icon: "sun"},
			{Day: "Fri", Temp: 28, Icon: "cloud-sun"},
			{Day: "Sat", Temp: 26, Icon: "cloud"},
			{Day: "Sun", Temp: 25, Icon: "cloud-rain"},
			{Day: "Mon", Temp: 27, Icon: "cloud-sun"},
		},
	}, nil
}

func (s *Simulated) Headlines(ctx context.Context) ([]NewsItem, error) {
	return slices.Clone(headlines), nil
}

// SimulatedWidget is a translation widget whose menu appears after a number
// of polls. With ReadyAfter < 0 the menu never appears.
type SimulatedWidget struct {
	mu         sync.Mutex
	readyAfter int
	polls      int
	options    []models.LanguageCode
	selected   models.LanguageCode
}

// NewSimulatedWidget creates a widget offering options once polled readyAfter times.
func NewSimulatedWidget(readyAfter int, options ...models.LanguageCode) *SimulatedWidget {
	return &SimulatedWidget{readyAfter: readyAfter, options: options}
}

func (w *SimulatedWidget) MenuOptions(ctx context.Context) ([]models.LanguageCode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	if w.readyAfter < 0 || w.polls <= w.readyAfter {
		return nil, nil
	}
	return slices.Clone(w.options), nil
}

func (w *SimulatedWidget) Select(ctx context.Context, code models.LanguageCode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.options, code) {
		return fmt.Errorf("translation widget has no option %q", code)
	}
	w.selected = code
	return nil
}

// Selected returns the last applied language.
func (w *SimulatedWidget) Selected() models.LanguageCode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

// Polls returns how many times the menu was queried.
func (w *SimulatedWidget) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

var (
	_ AuthBackend       = (*Simulated)(nil)
	_ MarketDataSource  = (*Simulated)(nil)
	_ DiseaseClassifier = (*Simulated)(nil)
	_ YieldPredictor    = (*Simulated)(nil)
	_ PolicyCatalog     = (*Simulated)(nil)
	_ WeatherSource     = (*Simulated)(nil)
	_ NewsFeed          = (*Simulated)(nil)
	_ TranslationWidget = (*SimulatedWidget)(nil)
)
