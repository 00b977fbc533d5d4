package models

// Signal values written into the signals column.
// +1 opens a long or closes a short, -1 opens a short or closes a long.
const (
	SignalSell = -1
	SignalNone = 0
	SignalBuy  = 1
)

// TradeType tags what a non-zero signal does.
type TradeType string

const (
	TradeLong  TradeType = "long"
	TradeShort TradeType = "short"
	TradeClose TradeType = "close"
	TradeNone  TradeType = " "
)

// SignalEvent is the message published for every non-zero signal.
type SignalEvent struct {
	RunID     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	Time      int64     `json:"t"`
	Signal    int       `json:"signal"`
	TradeType TradeType `json:"trade_type"`
	Price     Float     `json:"price"`
	Regime    Regime    `json:"regime"`
}
