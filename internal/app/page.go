// Package app hosts the interactive page of each browser client.
//
// A Page wires the UI signal bus, view router, session, action simulator,
// chat assistant and presentation adapter of one client, and exposes every
// user interaction as a method. Pages are created and evicted by Pages.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/action"
	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/chat"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/presentation"
	"github.com/BTreeMap/FarmGenius/internal/router"
	"github.com/BTreeMap/FarmGenius/internal/session"
	"github.com/BTreeMap/FarmGenius/internal/store"
	"github.com/BTreeMap/FarmGenius/internal/uibus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ModalForgotPassword is the only dialog the page offers.
const ModalForgotPassword = "forgot-password-modal"

// Chart ids.
const (
	ChartTrend      = "price-chart"
	ChartComparison = "comparison-chart"
)

const defaultCrop = "wheat"

var navGroups = map[models.ViewID]models.NavGroup{
	models.ViewLogin:           "",
	models.ViewRegister:        "",
	models.ViewDashboard:       "dashboard",
	models.ViewCropDisease:     "crop-disease",
	models.ViewYieldPrediction: "yield-prediction",
	models.ViewMarketPrices:    "market-prices",
	models.ViewMarketMap:       "market-map",
	models.ViewPolicies:        "policies",
	models.ViewAssistant:       "assistant",
	models.ViewDealerProfile:   "dealer-profile",
}

// YieldForm is the yield prediction form as submitted.
type YieldForm struct {
	Crop string  `json:"crop"`
	Area float64 `json:"area"`
	Soil string  `json:"soil"`
}

// PageState is a full snapshot of what the page shows.
type PageState struct {
	ClientID       string                    `json:"client_id"`
	View           models.ViewID             `json:"view"`
	NavGroup       models.NavGroup           `json:"nav_group,omitempty"`
	Nav            []NavLink                 `json:"nav"`
	Modals         []string                  `json:"modals"`
	Sidebar        bool                      `json:"sidebar"`
	Title          string                    `json:"title,omitempty"`
	Session        *models.Session           `json:"session,omitempty"`
	Theme          presentation.ThemeState   `json:"theme"`
	Language       presentation.Language     `json:"language"`
	Loader         bool                      `json:"loader"`
	Toast          *models.Notification      `json:"toast,omitempty"`
	VoiceAssistant bool                      `json:"voice_assistant"`
	Charts         []presentation.ChartState `json:"charts"`
	Image          *backend.Image            `json:"image,omitempty"`
	Diagnosis      *backend.Diagnosis        `json:"diagnosis,omitempty"`
	Yield          *backend.YieldPrediction  `json:"yield,omitempty"`
	Prices         []backend.Price           `json:"prices"`
	PriceFilter    backend.PriceFilter       `json:"price_filter"`
	RefreshedAt    time.Time                 `json:"refreshed_at"`
	Markets        []backend.Market          `json:"markets"`
	MarketKind     string                    `json:"market_kind"`
	Policies       []backend.Policy          `json:"policies"`
	PolicyFilter   string                    `json:"policy_filter"`
	Weather        backend.Weather           `json:"weather"`
	News           []backend.NewsItem        `json:"news"`
	NewsIndex      int                       `json:"news_index"`
	Conversation   []models.ChatTurn         `json:"conversation"`
	Actions        []models.ActionInfo       `json:"actions"`
}

// NavLink is one navigation entry with its visibility.
type NavLink struct {
	models.NavEntry
	Visible bool `json:"visible"`
}

// Page is the interactive state of one browser client.
type Page struct {
	id     string
	deps   Deps
	cfg    Config
	bus    *uibus.Bus
	router *router.Router
	modals *router.Modals

	sessions  *session.Manager
	sim       *action.Simulator
	timer     *action.Timer
	assistant *chat.Assistant
	display   *presentation.Adapter
	trend     *presentation.Chart
	compare   *presentation.Chart

	mu           sync.Mutex
	sidebar      bool
	title        string
	voiceOpen    bool
	image        *backend.Image
	diagnosis    *backend.Diagnosis
	yield        *backend.YieldPrediction
	trendCrop    string
	compareCrop  string
	prices       []backend.Price
	priceFilter  backend.PriceFilter
	refreshedAt  time.Time
	markets      []backend.Market
	marketKind   string
	policies     []backend.Policy
	policyFilter string
	weather      backend.Weather
	news         []backend.NewsItem
	newsIndex    int
	lastSeen     time.Time
	closed       bool
}

// NewPage builds a page for client id. Call Start before use.
func NewPage(id string, deps Deps, cfg Config) *Page {
	bus := uibus.NewBus(uibus.WithToastDuration(cfg.ToastDuration))
	ls := store.NewLocalStorage(deps.Store, id)

	var codes []models.LanguageCode
	for _, c := range cfg.Languages {
		codes = append(codes, models.LanguageCode(c))
	}
	registry := presentation.NewRegistry(codes...)
	prefs := session.NewPreferenceStore(ls, registry.Default().Code, registry.Supported)

	p := &Page{
		id:           id,
		deps:         deps,
		cfg:          cfg,
		bus:          bus,
		modals:       router.NewModals(ModalForgotPassword),
		sessions:     session.NewManager(ls, deps.Auth, prefs),
		sim:          action.NewSimulator(bus, action.WithDelayScale(cfg.DelayScale)),
		timer:        action.NewTimer(),
		trend:        presentation.NewChart(ChartTrend),
		compare:      presentation.NewChart(ChartComparison),
		trendCrop:    defaultCrop,
		compareCrop:  defaultCrop,
		marketKind:   "all",
		policyFilter: "all",
		lastSeen:     time.Now(),
	}
	p.router = router.New(router.WithOnChange(func(t router.Transition) {
		bus.Publish(uibus.SignalView, t)
	}))
	for view, group := range navGroups {
		p.router.Register(view, nil, group)
	}

	var widget backend.TranslationWidget
	if deps.Widget != nil {
		widget = deps.Widget(registry.Codes()...)
	} else {
		widget = backend.NewSimulatedWidget(0, registry.Codes()...)
	}
	translator := presentation.NewTranslator(widget,
		presentation.WithAttempts(cfg.TranslateAttempts),
		presentation.WithInterval(cfg.TranslateInterval))
	p.display = presentation.NewAdapter(prefs, registry, translator, bus)
	p.display.RegisterChart(p.trend)
	p.display.RegisterChart(p.compare)

	chatOpts := []chat.Option{chat.WithThinkingDelay(cfg.ThinkingDelay), chat.WithPublisher(bus)}
	if deps.Completer != nil {
		chatOpts = append(chatOpts, chat.WithFallback(deps.Completer))
	}
	p.assistant = chat.NewAssistant(chat.NewConversation(), deps.Responder, p.timer, chatOpts...)
	return p
}

// ID returns the client id.
func (p *Page) ID() string { return p.id }

// Bus exposes the page's UI signal bus.
func (p *Page) Bus() *uibus.Bus { return p.bus }

// Start restores the stored session and preferences, loads the dashboard
// data and shows the first view.
func (p *Page) Start(ctx context.Context) error {
	state, err := p.sessions.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore page %s: %w", p.id, err)
	}
	p.display.Restore(state.Preferences)

	if err := p.loadDashboard(ctx); err != nil {
		return err
	}

	if state.Session != nil {
		p.enterLoggedIn(*state.Session)
	} else {
		p.enterLoggedOut()
	}

	if p.cfg.WelcomeDelay > 0 {
		p.timer.ScheduleAfter("welcome", p.cfg.WelcomeDelay, func() {
			p.bus.Notify(models.InfoNotice("Welcome to FarmGenius! Explore the new features."))
		})
	}
	slog.Info("Page.Start: page ready", "client", p.id, "logged_in", state.Session != nil, "language", state.Preferences.Language)
	return nil
}

func (p *Page) loadDashboard(ctx context.Context) error {
	weather, err := p.deps.Weather.Weather(ctx)
	if err != nil {
		return fmt.Errorf("failed to load weather: %w", err)
	}
	news, err := p.deps.News.Headlines(ctx)
	if err != nil {
		return fmt.Errorf("failed to load news: %w", err)
	}
	trend, err := p.deps.Market.Trend(ctx, defaultCrop)
	if err != nil {
		return fmt.Errorf("failed to load price trend: %w", err)
	}
	comparison, err := p.deps.Market.Comparison(ctx, defaultCrop)
	if err != nil {
		return fmt.Errorf("failed to load price comparison: %w", err)
	}
	prices, err := p.deps.Market.Prices(ctx, backend.PriceFilter{})
	if err != nil {
		return fmt.Errorf("failed to load prices: %w", err)
	}
	markets, err := p.deps.Market.Markets(ctx, "all")
	if err != nil {
		return fmt.Errorf("failed to load markets: %w", err)
	}
	policies, err := p.deps.Policies.Policies(ctx, "all")
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	p.trend.SetData(cropTitle(defaultCrop), trend)
	p.compare.SetData(cropTitle(defaultCrop), comparison)
	p.mu.Lock()
	p.weather = weather
	p.news = news
	p.prices = prices
	p.markets = markets
	p.policies = policies
	p.refreshedAt = time.Now()
	p.mu.Unlock()
	return nil
}

// enterLoggedIn shows the sidebar, the dashboard and the role's navigation.
func (p *Page) enterLoggedIn(sess models.Session) {
	farmer := sess.Role != models.RoleDealer
	p.router.SetNavVisible(navGroups[models.ViewCropDisease], farmer)
	p.router.SetNavVisible(navGroups[models.ViewYieldPrediction], farmer)
	p.router.SetNavVisible(navGroups[models.ViewDealerProfile], !farmer)
	p.bus.Publish(uibus.SignalNav, p.router.Entries())

	p.mu.Lock()
	p.sidebar = true
	p.title = sess.Role.Title() + " Dashboard"
	p.mu.Unlock()

	p.bus.Publish(uibus.SignalSession, sess)
	_ = p.router.Activate(models.ViewDashboard)
}

func (p *Page) enterLoggedOut() {
	p.mu.Lock()
	p.sidebar = false
	p.title = ""
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalSession, models.Session{})
	_ = p.router.Activate(models.ViewLogin)
}

// Touch records client activity.
func (p *Page) Touch() {
	p.mu.Lock()
	p.lastSeen = time.Now()
	p.mu.Unlock()
}

// LastSeen returns the time of the latest client activity.
func (p *Page) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Navigate activates a view.
func (p *Page) Navigate(id models.ViewID) error {
	return p.router.Activate(id)
}

// ShowModal opens a dialog.
func (p *Page) ShowModal(id string) error {
	if err := p.modals.Show(id); err != nil {
		return err
	}
	p.bus.Publish(uibus.SignalModal, p.modals.Open())
	return nil
}

// HideModals closes every dialog.
func (p *Page) HideModals() {
	p.modals.HideAll()
	p.bus.Publish(uibus.SignalModal, p.modals.Open())
}

// DismissToast hides the toast on screen.
func (p *Page) DismissToast() {
	p.bus.Dismiss()
}

// notifyError shows err as a toast and returns it.
func (p *Page) notifyError(err error) error {
	p.bus.Notify(models.NoticeFor(err))
	return err
}

// Login validates the form, then logs in after the simulated delay.
func (p *Page) Login(ctx context.Context, creds models.Credentials) (*action.Pending[models.Session], error) {
	if _, err := session.ValidateCredentials(creds); err != nil {
		return nil, p.notifyError(err)
	}
	return action.Start(ctx, p.sim, action.Action[models.Session]{
		Kind:        models.ActionLogin,
		MinDuration: LoginDelay,
		Work: func(ctx context.Context) (models.Session, error) {
			return p.sessions.Login(ctx, creds)
		},
		Apply: p.enterLoggedIn,
		Success: func(models.Session) models.Notification {
			return models.SuccessNotice("Login successful! Welcome back.")
		},
	}), nil
}

// Register validates the form, then submits it after the simulated delay
// and returns to the login view.
func (p *Page) Register(ctx context.Context, reg models.Registration) (*action.Pending[struct{}], error) {
	if _, err := session.ValidateRegistration(reg); err != nil {
		return nil, p.notifyError(err)
	}
	return action.Start(ctx, p.sim, action.Action[struct{}]{
		Kind:        models.ActionRegister,
		MinDuration: RegisterDelay,
		Work: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.sessions.Register(ctx, reg)
		},
		Apply: func(struct{}) { _ = p.router.Activate(models.ViewLogin) },
		Success: func(struct{}) models.Notification {
			return models.SuccessNotice("Registration successful! Please login.")
		},
	}), nil
}

// Logout asks c to confirm, then clears the session and shows the login view.
// A declined confirmation returns models.ErrLogoutDeclined and changes nothing.
func (p *Page) Logout(ctx context.Context, c session.Confirmer) error {
	if err := p.sessions.Logout(ctx, c); err != nil {
		if !errors.Is(err, models.ErrLogoutDeclined) {
			p.bus.Notify(models.NoticeFor(err))
		}
		return err
	}
	p.enterLoggedOut()
	p.bus.Notify(models.InfoNotice("You have been logged out."))
	return nil
}

// ToggleDarkMode flips and persists the theme.
func (p *Page) ToggleDarkMode(ctx context.Context) (bool, error) {
	on, err := p.display.ToggleDarkMode(ctx)
	if err != nil {
		return on, p.notifyError(err)
	}
	p.bus.Notify(models.SuccessNotice("Theme changed successfully!"))
	return on, nil
}

// SetLanguage switches the page language. Failures are shown as a toast and
// the previous language stays.
func (p *Page) SetLanguage(ctx context.Context, code models.LanguageCode) (presentation.LanguageChange, error) {
	change, err := p.display.SetLanguage(ctx, code)
	if err != nil {
		return change, p.notifyError(err)
	}
	return change, nil
}

// Languages lists the language picker entries.
func (p *Page) Languages() []presentation.Language {
	return p.display.Registry().Languages()
}

// ToggleVoiceAssistant opens or closes the voice dialog.
func (p *Page) ToggleVoiceAssistant() bool {
	p.mu.Lock()
	p.voiceOpen = !p.voiceOpen
	open := p.voiceOpen
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalModal, map[string]bool{"voice_assistant": open})
	return open
}

// SendChat posts a message to the assistant. The channel yields the reply.
func (p *Page) SendChat(ctx context.Context, text string) (models.ChatTurn, <-chan models.ChatTurn, error) {
	user, reply, err := p.assistant.Send(ctx, text)
	if err != nil {
		return user, nil, p.notifyError(err)
	}
	return user, reply, nil
}

// SubmitTranscript sends a finalized speech transcript to the assistant.
// Clients without speech recognition get an UnsupportedCapability error.
func (p *Page) SubmitTranscript(ctx context.Context, transcript string, speechSupported bool) (models.ChatTurn, <-chan models.ChatTurn, error) {
	if !speechSupported {
		return models.ChatTurn{}, nil, p.notifyError(&models.UnsupportedCapability{Capability: "Speech recognition"})
	}
	return p.SendChat(ctx, transcript)
}

// Conversation returns every chat turn.
func (p *Page) Conversation() []models.ChatTurn {
	return p.assistant.Conversation().Turns()
}

// SelectImage stages a crop photo and clears any previous diagnosis.
func (p *Page) SelectImage(img backend.Image) {
	p.mu.Lock()
	p.image = &img
	p.diagnosis = nil
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalResult, map[string]any{"image": img})
	p.bus.Notify(models.SuccessNotice("Image uploaded successfully!"))
}

// AnalyzeImage diagnoses the staged photo after the simulated delay.
func (p *Page) AnalyzeImage(ctx context.Context) (*action.Pending[backend.Diagnosis], error) {
	p.mu.Lock()
	img := p.image
	p.mu.Unlock()
	if img == nil {
		return nil, p.notifyError(models.ErrNoImage)
	}
	staged := *img
	return action.Start(ctx, p.sim, action.Action[backend.Diagnosis]{
		Kind:        models.ActionAnalyzeImage,
		MinDuration: AnalyzeDelay,
		Work: func(ctx context.Context) (backend.Diagnosis, error) {
			return p.deps.Classifier.Classify(ctx, staged)
		},
		Apply: func(d backend.Diagnosis) {
			p.mu.Lock()
			p.diagnosis = &d
			p.mu.Unlock()
			p.bus.Publish(uibus.SignalResult, map[string]any{"diagnosis": d})
		},
		Success: func(backend.Diagnosis) models.Notification {
			return models.SuccessNotice("Image analysis complete!")
		},
	}), nil
}

// SaveResult keeps the current diagnosis.
func (p *Page) SaveResult() error {
	if !p.hasDiagnosis() {
		return p.notifyError(models.ErrNoImage)
	}
	p.bus.Notify(models.SuccessNotice("Result saved successfully!"))
	return nil
}

// ShareResult is not available yet.
func (p *Page) ShareResult() error {
	if !p.hasDiagnosis() {
		return p.notifyError(models.ErrNoImage)
	}
	p.bus.Notify(models.InfoNotice("Sharing options coming soon!"))
	return nil
}

func (p *Page) hasDiagnosis() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.diagnosis != nil
}

// ValidateYieldForm checks the yield form before any work starts.
func ValidateYieldForm(f YieldForm) (backend.YieldInput, error) {
	crop := strings.ToLower(strings.TrimSpace(f.Crop))
	soil := strings.ToLower(strings.TrimSpace(f.Soil))
	switch {
	case crop == "":
		return backend.YieldInput{}, &models.ValidationError{Kind: models.MissingField, Field: "crop", Message: "Please fill all required fields"}
	case soil == "":
		return backend.YieldInput{}, &models.ValidationError{Kind: models.MissingField, Field: "soil", Message: "Please fill all required fields"}
	case f.Area <= 0:
		return backend.YieldInput{}, &models.ValidationError{Kind: models.InvalidValue, Field: "area", Message: "Please enter a valid field area"}
	}
	return backend.YieldInput{Crop: crop, Area: f.Area, Soil: soil}, nil
}

// PredictYield validates the form, then predicts after the simulated delay.
func (p *Page) PredictYield(ctx context.Context, f YieldForm) (*action.Pending[backend.YieldPrediction], error) {
	in, err := ValidateYieldForm(f)
	if err != nil {
		return nil, p.notifyError(err)
	}
	return action.Start(ctx, p.sim, action.Action[backend.YieldPrediction]{
		Kind:        models.ActionPredictYield,
		MinDuration: PredictYieldDelay,
		Work: func(ctx context.Context) (backend.YieldPrediction, error) {
			return p.deps.Predictor.Predict(ctx, in)
		},
		Apply: func(y backend.YieldPrediction) {
			p.mu.Lock()
			p.yield = &y
			p.mu.Unlock()
			p.bus.Publish(uibus.SignalResult, map[string]any{"yield": y})
		},
		Success: func(backend.YieldPrediction) models.Notification {
			return models.SuccessNotice("Yield prediction complete!")
		},
	}), nil
}

// ShowTrend plots the price trend of a crop.
func (p *Page) ShowTrend(ctx context.Context, crop string) error {
	crop = strings.ToLower(strings.TrimSpace(crop))
	data, err := p.deps.Market.Trend(ctx, crop)
	if err != nil {
		return p.notifyError(err)
	}
	p.trend.SetData(cropTitle(crop), data)
	p.mu.Lock()
	p.trendCrop = crop
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalChart, p.trend.State())
	p.bus.Notify(models.InfoNotice("Showing price trends for " + cropTitle(crop)))
	return nil
}

// ShowComparison plots a crop's price across states.
func (p *Page) ShowComparison(ctx context.Context, crop string) error {
	crop = strings.ToLower(strings.TrimSpace(crop))
	data, err := p.deps.Market.Comparison(ctx, crop)
	if err != nil {
		return p.notifyError(err)
	}
	p.compare.SetData(cropTitle(crop), data)
	p.mu.Lock()
	p.compareCrop = crop
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalChart, p.compare.State())
	return nil
}

// RefreshMarket reloads prices after the simulated delay.
func (p *Page) RefreshMarket(ctx context.Context) *action.Pending[[]backend.Price] {
	p.mu.Lock()
	filter := p.priceFilter
	p.mu.Unlock()
	return action.Start(ctx, p.sim, action.Action[[]backend.Price]{
		Kind:        models.ActionRefreshMarket,
		MinDuration: RefreshMarketDelay,
		Work: func(ctx context.Context) ([]backend.Price, error) {
			at, err := p.deps.Market.Refresh(ctx)
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			p.refreshedAt = at
			p.mu.Unlock()
			return p.deps.Market.Prices(ctx, filter)
		},
		Apply: p.applyPrices(filter),
		Success: func([]backend.Price) models.Notification {
			return models.SuccessNotice("Market data updated with latest prices!")
		},
	})
}

// FilterMarket narrows the price table after the simulated delay.
func (p *Page) FilterMarket(ctx context.Context, filter backend.PriceFilter) *action.Pending[[]backend.Price] {
	return action.Start(ctx, p.sim, action.Action[[]backend.Price]{
		Kind:        models.ActionFilterMarket,
		MinDuration: FilterDelay,
		Work: func(ctx context.Context) ([]backend.Price, error) {
			return p.deps.Market.Prices(ctx, filter)
		},
		Apply: p.applyPrices(filter),
		Success: func([]backend.Price) models.Notification {
			return models.SuccessNotice("Market data filtered successfully!")
		},
	})
}

func (p *Page) applyPrices(filter backend.PriceFilter) func([]backend.Price) {
	return func(prices []backend.Price) {
		p.mu.Lock()
		p.prices = prices
		p.priceFilter = filter
		p.mu.Unlock()
		p.bus.Publish(uibus.SignalResult, map[string]any{"prices": prices})
	}
}

// FilterMarkets narrows the market map to a kind after the simulated delay.
func (p *Page) FilterMarkets(ctx context.Context, kind string) *action.Pending[[]backend.Market] {
	return action.Start(ctx, p.sim, action.Action[[]backend.Market]{
		Kind:        models.ActionFilterMarkets,
		MinDuration: FilterDelay,
		Work: func(ctx context.Context) ([]backend.Market, error) {
			return p.deps.Market.Markets(ctx, kind)
		},
		Apply: func(ms []backend.Market) {
			p.mu.Lock()
			p.markets = ms
			p.marketKind = kind
			p.mu.Unlock()
			p.bus.Publish(uibus.SignalResult, map[string]any{"markets": ms})
		},
		Success: func([]backend.Market) models.Notification {
			return models.InfoNotice("Markets filtered to show " + kind)
		},
	})
}

// FilterPolicies narrows the policy cards to a category after the simulated delay.
func (p *Page) FilterPolicies(ctx context.Context, category string) *action.Pending[[]backend.Policy] {
	return action.Start(ctx, p.sim, action.Action[[]backend.Policy]{
		Kind:        models.ActionFilterPolicies,
		MinDuration: FilterDelay,
		Work: func(ctx context.Context) ([]backend.Policy, error) {
			return p.deps.Policies.Policies(ctx, category)
		},
		Apply: func(ps []backend.Policy) {
			p.mu.Lock()
			p.policies = ps
			p.policyFilter = category
			p.mu.Unlock()
			p.bus.Publish(uibus.SignalResult, map[string]any{"policies": ps})
		},
		Success: func([]backend.Policy) models.Notification {
			return models.InfoNotice("Policies filtered to show " + category)
		},
	})
}

// NextNews advances the news carousel, wrapping at the end.
func (p *Page) NextNews() int { return p.stepNews(1) }

// PrevNews moves the news carousel back, wrapping at the start.
func (p *Page) PrevNews() int { return p.stepNews(-1) }

func (p *Page) stepNews(delta int) int {
	p.mu.Lock()
	n := len(p.news)
	if n == 0 {
		p.mu.Unlock()
		return 0
	}
	p.newsIndex = ((p.newsIndex+delta)%n + n) % n
	idx := p.newsIndex
	item := p.news[idx]
	p.mu.Unlock()
	p.bus.Publish(uibus.SignalNews, map[string]any{"index": idx, "item": item})
	return idx
}

// Snapshot returns everything the page currently shows.
func (p *Page) Snapshot() PageState {
	view, _ := p.router.Active()
	st := PageState{
		ClientID:     p.id,
		View:         view,
		NavGroup:     p.router.Highlighted(),
		Modals:       p.modals.Open(),
		Theme:        p.display.Theme(),
		Language:     p.display.Language(),
		Loader:       p.bus.LoaderVisible(),
		Charts:       p.display.Charts(),
		Conversation: p.Conversation(),
		Actions:      p.sim.Pending(),
	}
	for _, e := range p.router.Entries() {
		if e.NavGroup == "" {
			continue
		}
		st.Nav = append(st.Nav, NavLink{NavEntry: e, Visible: p.router.NavVisible(e.NavGroup)})
	}
	if sess, ok := p.sessions.Current(); ok {
		st.Session = &sess
	}
	if n, ok := p.bus.Current(); ok {
		st.Toast = &n
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st.Sidebar = p.sidebar
	st.Title = p.title
	st.VoiceAssistant = p.voiceOpen
	st.Image = p.image
	st.Diagnosis = p.diagnosis
	st.Yield = p.yield
	st.Prices = p.prices
	st.PriceFilter = p.priceFilter
	st.RefreshedAt = p.refreshedAt
	st.Markets = p.markets
	st.MarketKind = p.marketKind
	st.Policies = p.policies
	st.PolicyFilter = p.policyFilter
	st.Weather = p.weather
	st.News = p.news
	st.NewsIndex = p.newsIndex
	return st
}

// PendingActions lists the simulated actions still running.
func (p *Page) PendingActions() []models.ActionInfo {
	return p.sim.Pending()
}

// Close stops timers and the bus. In-flight actions finish first, bounded by ctx.
func (p *Page) Close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.assistant.Close()
	p.timer.Stop()
	if err := p.sim.Drain(ctx); err != nil {
		slog.Warn("Page.Close: actions still running", "client", p.id, "error", err)
	}
	p.bus.Close()
	slog.Debug("Page.Close: closed", "client", p.id)
}

// cropTitle title-cases a crop name. A Caser holds state, so each call gets its own.
func cropTitle(crop string) string {
	return cases.Title(language.English).String(crop)
}
