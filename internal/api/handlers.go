package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/BTreeMap/FarmGenius/internal/action"
	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/BTreeMap/FarmGenius/internal/backend"
	"github.com/BTreeMap/FarmGenius/internal/models"
	"github.com/BTreeMap/FarmGenius/internal/session"
	"github.com/gin-gonic/gin"
)

type navigateRequest struct {
	View models.ViewID `json:"view"`
}

type logoutRequest struct {
	Confirm bool `json:"confirm"`
}

type languageRequest struct {
	Code models.LanguageCode `json:"code"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type transcriptRequest struct {
	Text            string `json:"text"`
	SpeechSupported *bool  `json:"speech_supported,omitempty"`
}

type cropRequest struct {
	Crop string `json:"crop"`
}

type marketsFilterRequest struct {
	Kind string `json:"kind"`
}

type policiesFilterRequest struct {
	Category string `json:"category"`
}

// actionResult is the body of a waited-for action.
type actionResult struct {
	Action models.ActionInfo `json:"action"`
	Result any               `json:"result,omitempty"`
}

// chatResult is the body of a chat message.
type chatResult struct {
	User  models.ChatTurn  `json:"user"`
	Reply *models.ChatTurn `json:"reply,omitempty"`
}

func wantWait(c *gin.Context) bool {
	switch strings.ToLower(c.Query("wait")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// respondAction answers 202 with the action info, or waits for the result
// when the caller asked to.
func respondAction[T any](c *gin.Context, p *action.Pending[T]) {
	if !wantWait(c) {
		writeJSONResponse(c, http.StatusAccepted, models.Accepted(p.Info()))
		return
	}
	val, err := p.Wait(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(actionResult{Action: p.Info(), Result: val}))
}

// startAction runs a page operation that validates before starting an action.
func startAction[T any](c *gin.Context, start func(context.Context) (*action.Pending[T], error)) {
	p, err := start(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respondAction(c, p)
}

func (s *Server) healthHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"pages": s.pages.Len()}))
}

func (s *Server) stateHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(pageFrom(c).Snapshot()))
}

func (s *Server) languagesHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(pageFrom(c).Languages()))
}

func (s *Server) navigateHandler(c *gin.Context) {
	var req navigateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := pageFrom(c).Navigate(req.View); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"view": req.View}))
}

func (s *Server) showModalHandler(c *gin.Context) {
	if err := pageFrom(c).ShowModal(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(nil))
}

func (s *Server) hideModalsHandler(c *gin.Context) {
	pageFrom(c).HideModals()
	writeJSONResponse(c, http.StatusOK, models.Success(nil))
}

func (s *Server) dismissToastHandler(c *gin.Context) {
	pageFrom(c).DismissToast()
	writeJSONResponse(c, http.StatusOK, models.Success(nil))
}

func (s *Server) loginHandler(c *gin.Context) {
	var creds models.Credentials
	if !bindJSON(c, &creds) {
		return
	}
	page := pageFrom(c)
	startAction(c, func(ctx context.Context) (*action.Pending[models.Session], error) {
		return page.Login(ctx, creds)
	})
}

func (s *Server) registerHandler(c *gin.Context) {
	var reg models.Registration
	if !bindJSON(c, &reg) {
		return
	}
	page := pageFrom(c)
	startAction(c, func(ctx context.Context) (*action.Pending[struct{}], error) {
		return page.Register(ctx, reg)
	})
}

// logoutHandler treats the confirm flag as the user's answer to the
// confirmation prompt.
func (s *Server) logoutHandler(c *gin.Context) {
	var req logoutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := pageFrom(c).Logout(c.Request.Context(), session.Always(req.Confirm)); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.SuccessWithMessage("You have been logged out.", nil))
}

func (s *Server) toggleThemeHandler(c *gin.Context) {
	on, err := pageFrom(c).ToggleDarkMode(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"dark_mode": on}))
}

func (s *Server) languageHandler(c *gin.Context) {
	var req languageRequest
	if !bindJSON(c, &req) {
		return
	}
	change, err := pageFrom(c).SetLanguage(c.Request.Context(), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(change))
}

func (s *Server) conversationHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(pageFrom(c).Conversation()))
}

func (s *Server) chatHandler(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	user, replies, err := pageFrom(c).SendChat(c.Request.Context(), req.Message)
	respondChat(c, user, replies, err)
}

func (s *Server) toggleVoiceHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"open": pageFrom(c).ToggleVoiceAssistant()}))
}

func (s *Server) transcriptHandler(c *gin.Context) {
	var req transcriptRequest
	if !bindJSON(c, &req) {
		return
	}
	supported := req.SpeechSupported == nil || *req.SpeechSupported
	user, replies, err := pageFrom(c).SubmitTranscript(c.Request.Context(), req.Text, supported)
	respondChat(c, user, replies, err)
}

func respondChat(c *gin.Context, user models.ChatTurn, replies <-chan models.ChatTurn, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	if !wantWait(c) {
		writeJSONResponse(c, http.StatusAccepted, models.Accepted(chatResult{User: user}))
		return
	}
	select {
	case reply, ok := <-replies:
		res := chatResult{User: user}
		if ok {
			res.Reply = &reply
		}
		writeJSONResponse(c, http.StatusOK, models.Success(res))
	case <-c.Request.Context().Done():
		writeError(c, c.Request.Context().Err())
	}
}

func (s *Server) selectImageHandler(c *gin.Context) {
	img, err := s.saveUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}
	pageFrom(c).SelectImage(img)
	writeJSONResponse(c, http.StatusOK, models.Success(img))
}

func (s *Server) analyzeImageHandler(c *gin.Context) {
	startAction(c, pageFrom(c).AnalyzeImage)
}

func (s *Server) saveResultHandler(c *gin.Context) {
	if err := pageFrom(c).SaveResult(); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.SuccessWithMessage("Result saved successfully!", nil))
}

func (s *Server) shareResultHandler(c *gin.Context) {
	if err := pageFrom(c).ShareResult(); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.SuccessWithMessage("Sharing options coming soon!", nil))
}

func (s *Server) predictYieldHandler(c *gin.Context) {
	var form app.YieldForm
	if !bindJSON(c, &form) {
		return
	}
	page := pageFrom(c)
	startAction(c, func(ctx context.Context) (*action.Pending[backend.YieldPrediction], error) {
		return page.PredictYield(ctx, form)
	})
}

func (s *Server) trendHandler(c *gin.Context) {
	var req cropRequest
	if !bindJSON(c, &req) {
		return
	}
	page := pageFrom(c)
	if err := page.ShowTrend(c.Request.Context(), req.Crop); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(page.Snapshot().Charts))
}

func (s *Server) comparisonHandler(c *gin.Context) {
	var req cropRequest
	if !bindJSON(c, &req) {
		return
	}
	page := pageFrom(c)
	if err := page.ShowComparison(c.Request.Context(), req.Crop); err != nil {
		writeError(c, err)
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(page.Snapshot().Charts))
}

func (s *Server) refreshMarketHandler(c *gin.Context) {
	respondAction(c, pageFrom(c).RefreshMarket(c.Request.Context()))
}

func (s *Server) filterMarketHandler(c *gin.Context) {
	var filter backend.PriceFilter
	if !bindJSON(c, &filter) {
		return
	}
	respondAction(c, pageFrom(c).FilterMarket(c.Request.Context(), filter))
}

func (s *Server) filterMarketsHandler(c *gin.Context) {
	var req marketsFilterRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = "all"
	}
	respondAction(c, pageFrom(c).FilterMarkets(c.Request.Context(), req.Kind))
}

func (s *Server) filterPoliciesHandler(c *gin.Context) {
	var req policiesFilterRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Category == "" {
		req.Category = "all"
	}
	respondAction(c, pageFrom(c).FilterPolicies(c.Request.Context(), req.Category))
}

func (s *Server) nextNewsHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"index": pageFrom(c).NextNews()}))
}

func (s *Server) prevNewsHandler(c *gin.Context) {
	writeJSONResponse(c, http.StatusOK, models.Success(gin.H{"index": pageFrom(c).PrevNews()}))
}
