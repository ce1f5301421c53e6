package service

import (
	"signal_bot/internal/indicator"

	"github.com/bytedance/sonic"
)

// Snapshot — последние значения индикаторов, на которых принято решение.
type Snapshot struct {
	Close       float64         `json:"close"`
	EMAFast     indicator.Value `json:"ema_fast"`
	EMASlow     indicator.Value `json:"ema_slow"`
	MACD        indicator.Value `json:"macd"`
	MACDSignal  indicator.Value `json:"macd_signal"`
	MACDHist    indicator.Value `json:"macd_hist"`
	MACDHistPrv indicator.Value `json:"macd_hist_prev"`
	RSI         indicator.Value `json:"rsi"`
	RSIPrev     indicator.Value `json:"rsi_prev"`
	ATR         indicator.Value `json:"atr"`
	PSAR        indicator.Value `json:"psar"`

	SecondaryEMAFast indicator.Value `json:"secondary_ema_fast"`
	SecondaryEMASlow indicator.Value `json:"secondary_ema_slow"`
}

func (s Snapshot) Marshal() []byte {
	b, err := sonic.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}
