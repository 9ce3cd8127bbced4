package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestAuthenticateReturnsPlaceholder(t *testing.T) {
	s := NewSimulated()
	sess, err := s.Authenticate(context.Background(), models.Credentials{Phone: "9876543210", Password: "secret"}, models.RoleDealer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.Session{DisplayName: PlaceholderName, Role: models.RoleDealer, LoggedIn: true}
	if sess != want {
		t.Errorf("got %+v, want %+v", sess, want)
	}
}

func TestAuthenticateUsesRegisteredName(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated()
	_ = s.Register(ctx, models.Registration{Name: "Sunita Devi", Phone: "111"})
	sess, _ := s.Authenticate(ctx, models.Credentials{Phone: "111", Password: "x"}, models.RoleFarmer)
	if sess.DisplayName != "Sunita Devi" {
		t.Errorf("expected registered name, got %q", sess.DisplayName)
	}
}

func TestTrendAndComparison(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated()

	trend, err := s.Trend(ctx, "Rice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{1850, 1900, 1950, 1920, 2000, 2100}, trend.Series); diff != "" {
		t.Errorf("rice trend mismatch (-want +got):\n%s", diff)
	}
	if len(trend.Labels) != len(trend.Series) {
		t.Errorf("labels and series differ in length")
	}

	cmpData, err := s.Comparison(ctx, "wheat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmpData.Labels[0] != "Punjab" || cmpData.Series[0] != 2250 {
		t.Errorf("unexpected comparison head: %s=%v", cmpData.Labels[0], cmpData.Series[0])
	}

	var nf *models.NotFoundError
	if _, err := s.Trend(ctx, "saffron"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError for unknown crop, got %v", err)
	}
}

func TestTrendReturnsCopies(t *testing.T) {
	s := NewSimulated()
	a, _ := s.Trend(context.Background(), "maize")
	a.Series[0] = 0
	b, _ := s.Trend(context.Background(), "maize")
	if b.Series[0] != 1500 {
		t.Error("caller mutation leaked into fixture data")
	}
}

func TestPricesFilter(t *testing.T) {
	s := NewSimulated()
	all, _ := s.Prices(context.Background(), PriceFilter{})
	if len(all) != 20 {
		t.Errorf("expected 4 crops x 5 states, got %d rows", len(all))
	}
	one, _ := s.Prices(context.Background(), PriceFilter{Crop: "potato", State: "haryana"})
	want := []Price{{Crop: "potato", State: "Haryana", Price: 1050}}
	if diff := cmp.Diff(want, one); diff != "" {
		t.Errorf("filtered prices mismatch (-want +got):\n%s", diff)
	}
}

func TestMarketsByKind(t *testing.T) {
	s := NewSimulated()
	all, _ := s.Markets(context.Background(), "all")
	mandis, _ := s.Markets(context.Background(), "mandi")
	if len(all) != len(markets) {
		t.Errorf("expected every market for all, got %d", len(all))
	}
	for _, m := range mandis {
		if m.Kind != "mandi" {
			t.Errorf("unexpected market kind %q", m.Kind)
		}
	}
}

func TestPoliciesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated()
	loans, err := s.Policies(ctx, "loan")
	if err != nil || len(loans) != 1 || loans[0].Title != "Low Interest Loans" {
		t.Errorf("unexpected loan policies %+v err=%v", loans, err)
	}
	all, _ := s.Policies(ctx, "all")
	if len(all) != len(policies) {
		t.Errorf("expected full catalogue, got %d", len(all))
	}
	var nf *models.NotFoundError
	if _, err := s.Policies(ctx, "lottery"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestPredictRange(t *testing.T) {
	s := NewSimulated()
	for i := 0; i < 200; i++ {
		p, _ := s.Predict(context.Background(), YieldInput{Crop: "wheat", Area: 2, Soil: "loamy"})
		if p.Quintals < 30 || p.Quintals > 100 {
			t.Fatalf("prediction %d out of range", p.Quintals)
		}
		if len(p.Recommendations) != 3 {
			t.Fatalf("expected 3 recommendations, got %d", len(p.Recommendations))
		}
	}
}

func TestClassifyRequiresImage(t *testing.T) {
	s := NewSimulated()
	if _, err := s.Classify(context.Background(), Image{}); !errors.Is(err, models.ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
	d, err := s.Classify(context.Background(), Image{Filename: "leaf.jpg", Size: 1024})
	if err != nil || d.Confidence != 92 {
		t.Errorf("unexpected diagnosis %+v err=%v", d, err)
	}
}

func TestSimulatedWidgetReadyAfter(t *testing.T) {
	ctx := context.Background()
	w := NewSimulatedWidget(2, "hi", "ta")
	for i := 0; i < 2; i++ {
		if opts, _ := w.MenuOptions(ctx); len(opts) != 0 {
			t.Fatalf("poll %d: menu should not be rendered yet", i+1)
		}
	}
	opts, _ := w.MenuOptions(ctx)
	if diff := cmp.Diff([]models.LanguageCode{"hi", "ta"}, opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if err := w.Select(ctx, "ta"); err != nil || w.Selected() != "ta" {
		t.Errorf("select failed: %v selected=%q", err, w.Selected())
	}
	if err := w.Select(ctx, "fr"); err == nil {
		t.Error("expected error selecting a missing option")
	}
}
