// Package models defines the core data structures for FarmGenius.
//
// It includes the session, preference, navigation, chat and action types that are
// shared across the page modules and the API.
package models

import (
	"strings"
	"time"
)

// Role identifies which kind of user is logged in.
type Role string

const (
	// RoleFarmer is the default role and unlocks crop tools.
	RoleFarmer Role = "farmer"
	// RoleDealer unlocks the dealer profile.
	RoleDealer Role = "dealer"
)

// ParseRole normalizes a role string. An empty string maps to RoleFarmer.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleFarmer:
		return RoleFarmer, nil
	case RoleDealer:
		return RoleDealer, nil
	default:
		return "", &ValidationError{Kind: InvalidValue, Field: "role", Message: "Please select a valid role"}
	}
}

// Title returns the role as shown in the UI.
func (r Role) Title() string {
	switch r {
	case RoleDealer:
		return "Dealer"
	default:
		return "Farmer"
	}
}

// Session describes the logged-in user. DisplayName and Role are only
// meaningful while LoggedIn is true.
type Session struct {
	DisplayName string `json:"name"`
	Role        Role   `json:"role"`
	LoggedIn    bool   `json:"loggedIn"`
}

// Credentials is the login form.
type Credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Registration is the sign-up form.
type Registration struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty"`
	Location        string `json:"location"`
	Role            string `json:"role,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LanguageCode is a BCP 47 base language such as "en" or "hi".
type LanguageCode string

// Direction is the text direction of a language.
type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// Preferences outlive a session and are never cleared on logout.
type Preferences struct {
	DarkMode bool         `json:"dark_mode"`
	Language LanguageCode `json:"language"`
}

// ViewID names a full-page section.
type ViewID string

// NavGroup names the set of navigation links highlighted together.
type NavGroup string

// Known views.
const (
	ViewLogin           ViewID = "login"
	ViewRegister        ViewID = "register"
	ViewDashboard       ViewID = "dashboard"
	ViewCropDisease     ViewID = "crop-disease"
	ViewYieldPrediction ViewID = "yield-prediction"
	ViewMarketPrices    ViewID = "market-prices"
	ViewMarketMap       ViewID = "market-map"
	ViewPolicies        ViewID = "policies"
	ViewAssistant       ViewID = "assistant"
	ViewDealerProfile   ViewID = "dealer-profile"
)

// NavEntry binds a view to the navigation group it highlights.
type NavEntry struct {
	ID       ViewID   `json:"id"`
	NavGroup NavGroup `json:"nav_group,omitempty"`
}

// Sender identifies who produced a chat turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatTurn is one message in a conversation.
type ChatTurn struct {
	ID          string    `json:"id"`
	Sender      Sender    `json:"sender"`
	Text        string    `json:"text"`
	Category    string    `json:"category,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ActionKind names a simulated asynchronous user action.
type ActionKind string

const (
	ActionLogin          ActionKind = "login"
	ActionRegister       ActionKind = "register"
	ActionAnalyzeImage   ActionKind = "analyze_image"
	ActionPredictYield   ActionKind = "predict_yield"
	ActionRefreshMarket  ActionKind = "refresh_market"
	ActionFilterMarket   ActionKind = "filter_market"
	ActionFilterMarkets  ActionKind = "filter_markets"
	ActionFilterPolicies ActionKind = "filter_policies"
)

// ActionStatus is the lifecycle state of a pending action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionSucceeded ActionStatus = "succeeded"
	ActionFailed    ActionStatus = "failed"
)

// ActionInfo describes a started action for API callers.
type ActionInfo struct {
	ID            string     `json:"id"`
	Kind          ActionKind `json:"kind"`
	StartedAt     time.Time  `json:"started_at"`
	MinDurationMs int64      `json:"min_duration_ms"`
}

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient toast message.
type Notification struct {
	ID      string `json:"id,omitempty"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// InfoNotice, SuccessNotice, WarningNotice and ErrorNotice build notifications
// of the matching level.
func InfoNotice(msg string) Notification    { return Notification{Level: LevelInfo, Message: msg} }
func SuccessNotice(msg string) Notification { return Notification{Level: LevelSuccess, Message: msg} }
func WarningNotice(msg string) Notification { return Notification{Level: LevelWarning, Message: msg} }
func ErrorNotice(msg string) Notification   { return Notification{Level: LevelError, Message: msg} }

// Palette carries the theme colors a chart needs.
type Palette struct {
	TextColor string `json:"text_color"`
	GridColor string `json:"grid_color"`
}

// ChartData is what the chart collaborator renders.
type ChartData struct {
	Labels []string  `json:"labels"`
	Series []float64 `json:"series"`
}
