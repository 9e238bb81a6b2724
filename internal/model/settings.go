package model

// ControlSettings is the runtime configuration snapshot driven by the
// frontend control panel. It is replaced whole on POST /api/settings;
// readers take a copy at the start of each periodic iteration.
type ControlSettings struct {
	SelectedSymbols []string `json:"selectedSymbols"`
	Timeframe       string   `json:"timeframe"`
	WindowSize      int      `json:"windowSize"`
	RegressionType  string   `json:"regressionType"` // ols | robust
	ZScoreThreshold float64  `json:"zScoreThreshold"`
	IsLive          bool     `json:"isLive"`
}

// DefaultControlSettings returns the boot-time settings snapshot.
func DefaultControlSettings() ControlSettings {
	return ControlSettings{
		SelectedSymbols: []string{"BTCUSDT", "ETHUSDT"},
		Timeframe:       "1m",
		WindowSize:      20,
		RegressionType:  "ols",
		ZScoreThreshold: 2.0,
		IsLive:          true,
	}
}

// BasePair returns the base and hedge symbols for spread analytics.
// The first selected symbol is the base, the second the hedge.
func (s *ControlSettings) BasePair() (base, hedge string) {
	base, hedge = "BTCUSDT", "ETHUSDT"
	if len(s.SelectedSymbols) > 0 {
		base = s.SelectedSymbols[0]
	}
	if len(s.SelectedSymbols) > 1 {
		hedge = s.SelectedSymbols[1]
	}
	return base, hedge
}

// HealthCheck is the /api/health response.
type HealthCheck struct {
	Status              string   `json:"status"`
	Timestamp           string   `json:"timestamp"`
	BinanceConnected    bool     `json:"binanceConnected"`
	ActiveSymbols       []string `json:"activeSymbols"`
	FrontendConnections int      `json:"frontendConnections"`
	UptimeSeconds       float64  `json:"uptimeSeconds"`
}
