// Package trigger implements the Trigger Evaluator of spec §4.8: polling
// registered agents for traffic totals and firing at-most-one alert per
// (trigger, calendar period) when a configured limit is exceeded.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rotatord/rotatord/internal/config"
	"github.com/rotatord/rotatord/internal/metrics"
	"github.com/rotatord/rotatord/internal/model"
	"github.com/rotatord/rotatord/internal/state"
)

// RequestTimeout bounds each agent poll.
const RequestTimeout = 30 * time.Second

// Usage is an agent's reported traffic totals, keyed by the three window
// granularities a Trigger can reference.
type Usage struct {
	RxBytesToday     int64  `json:"rx_bytes_today"`
	RxBytesThisWeek  int64  `json:"rx_bytes_this_week"`
	RxBytesThisMonth int64  `json:"rx_bytes_this_month"`
	PeriodDaily      string `json:"period_daily"`
	PeriodWeekly     string `json:"period_weekly"`
	PeriodMonthly    string `json:"period_monthly"`
}

// AgentClient fetches Usage from one agent. The HTTP implementation below
// satisfies this for production; tests inject a fake.
type AgentClient interface {
	FetchUsage(ctx context.Context, agent model.Agent) (Usage, error)
}

// Evaluator polls agents and raises alerts through log + metrics.
type Evaluator struct {
	client AgentClient
	state  *state.Store
	log    *zap.Logger
}

// New builds an Evaluator. client may be nil to use the default HTTP
// agent client.
func New(client AgentClient, stateStore *state.Store, log *zap.Logger) *Evaluator {
	if client == nil {
		client = NewHTTPAgentClient()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{client: client, state: stateStore, log: log}
}

// Evaluate checks every configured Trigger against its agent's current
// usage, firing an alert (and advancing last_fired_period) for each
// trigger whose window total exceeds limit_gb in a period not already
// alerted.
func (e *Evaluator) Evaluate(ctx context.Context, snap *config.Snapshot, now time.Time) {
	usageByAgent := map[string]Usage{}
	for _, trig := range snap.Triggers {
		agent, ok := snap.Agents[trig.AgentID]
		if !ok {
			e.log.Error("trigger references unknown agent", zap.String("trigger_id", trig.ID), zap.String("agent_id", trig.AgentID))
			continue
		}

		usage, ok := usageByAgent[agent.ID]
		if !ok {
			var err error
			usage, err = e.fetch(ctx, agent)
			if err != nil {
				e.log.Warn("agent poll failed", zap.String("agent_id", agent.ID), zap.Error(err))
				continue
			}
			usageByAgent[agent.ID] = usage
		}

		e.evaluateOne(trig, usage)
	}
}

func (e *Evaluator) fetch(ctx context.Context, agent model.Agent) (Usage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	return e.client.FetchUsage(reqCtx, agent)
}

func (e *Evaluator) evaluateOne(trig model.Trigger, usage Usage) {
	observedGB, currentPeriod, err := windowValue(trig.Window, usage)
	if err != nil {
		e.log.Error("trigger has unknown window", zap.String("trigger_id", trig.ID), zap.String("window", string(trig.Window)))
		return
	}

	st := e.state.TriggerState(trig.ID)
	if st.LastFiredPeriod == currentPeriod {
		return
	}

	if observedGB <= trig.LimitGB {
		// threshold not crossed in this period: no alert, and
		// last_fired_period is left alone so that a later poll in the
		// same period still fires once the total exceeds the limit.
		return
	}

	e.log.Warn("trigger limit exceeded",
		zap.String("trigger_id", trig.ID), zap.String("window", string(trig.Window)),
		zap.Float64("limit_gb", trig.LimitGB), zap.Float64("observed_gb", observedGB),
		zap.String("period", currentPeriod), zap.String("label", trig.Label))
	metrics.TriggerAlertsTotal.WithLabelValues(string(trig.Window)).Inc()

	if err := e.state.SetTriggerState(trig.ID, model.TriggerState{LastFiredPeriod: currentPeriod}); err != nil {
		e.log.Error("failed to persist trigger firing marker", zap.String("trigger_id", trig.ID), zap.Error(err))
	}
}

func windowValue(w model.TriggerWindow, u Usage) (observedGB float64, period string, err error) {
	const bytesPerGB = 1 << 30
	switch w {
	case model.WindowDaily:
		return float64(u.RxBytesToday) / bytesPerGB, u.PeriodDaily, nil
	case model.WindowWeekly:
		return float64(u.RxBytesThisWeek) / bytesPerGB, u.PeriodWeekly, nil
	case model.WindowMonthly:
		return float64(u.RxBytesThisMonth) / bytesPerGB, u.PeriodMonthly, nil
	default:
		return 0, "", fmt.Errorf("unknown trigger window %q", w)
	}
}

// HTTPAgentClient fetches Usage from an agent's metrics endpoint over
// bearer-token HTTP, mirroring the provider clients' auth style.
type HTTPAgentClient struct {
	http *http.Client
}

// NewHTTPAgentClient builds the production AgentClient.
func NewHTTPAgentClient() *HTTPAgentClient {
	return &HTTPAgentClient{http: &http.Client{Timeout: RequestTimeout}}
}

func (c *HTTPAgentClient) FetchUsage(ctx context.Context, agent model.Agent) (Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agent.BaseURL+"/usage", nil)
	if err != nil {
		return Usage{}, err
	}
	if agent.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+agent.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Usage{}, fmt.Errorf("agent %s: %w", agent.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Usage{}, fmt.Errorf("agent %s: unexpected status %d", agent.ID, resp.StatusCode)
	}

	var usage Usage
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return Usage{}, fmt.Errorf("agent %s: decode response: %w", agent.ID, err)
	}
	return usage, nil
}
