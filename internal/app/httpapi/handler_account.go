package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/video_portal/internal/app/domain/subscription"
	"github.com/R3E-Network/video_portal/internal/app/services/analytics"
	svcerrors "github.com/R3E-Network/video_portal/internal/errors"
	"github.com/R3E-Network/video_portal/internal/httputil"
)

// maxAnalyticsDays bounds the ?days= parameter of the analytics report.
const maxAnalyticsDays = 365

type subscriptionView struct {
	Subscription *subscription.Subscription `json:"subscription"`
	PlanName     string                     `json:"planName"`
	Tier         string                     `json:"tier"`
}

func (h *handler) subscriptionView(sub *subscription.Subscription) subscriptionView {
	return subscriptionView{
		Subscription: sub,
		PlanName:     h.app.Entitlement.PlanName(sub),
		Tier:         h.app.Entitlement.Tier(sub),
	}
}

func (h *handler) plans(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"plans": h.app.Entitlement.Plans()})
}

func (h *handler) subscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.app.Entitlement.Subscription(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.subscriptionView(sub))
}

func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlanID string `json:"plan_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sub, err := h.app.Entitlement.Subscribe(r.Context(), userID(r), body.PlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.subscriptionView(sub))
}

func (h *handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.app.Entitlement.Cancel(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.subscriptionView(sub))
}

// feature answers for anonymous callers too; they get the basic plan.
func (h *handler) feature(w http.ResponseWriter, r *http.Request) {
	feature := strings.TrimSpace(mux.Vars(r)["feature"])
	var sub *subscription.Subscription
	if uid := userID(r); uid != "" {
		var err error
		if sub, err = h.app.Entitlement.Subscription(r.Context(), uid); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"feature": feature,
		"allowed": h.app.Entitlement.CanAccessFeature(sub, feature),
	})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Engagement.History(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Engagement.ClearHistory(r.Context(), userID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) likes(w http.ResponseWriter, r *http.Request) {
	likes, err := h.app.Engagement.Liked(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"likes": likes})
}

func (h *handler) analytics(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if days > maxAnalyticsDays {
		h.writeError(w, r, svcerrors.BadRequest("days must not exceed 365"))
		return
	}
	sub, err := h.app.Entitlement.Subscription(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report := h.app.Analytics.Generate(h.app.Entitlement.Tier(sub), days)
	httputil.WriteJSON(w, http.StatusOK, struct {
		analytics.Report
		Summary  analytics.Summary `json:"summary"`
		PlanName string            `json:"planName"`
	}{
		Report:   report,
		Summary:  analytics.Summarize(report.Views),
		PlanName: h.app.Entitlement.PlanName(sub),
	})
}
