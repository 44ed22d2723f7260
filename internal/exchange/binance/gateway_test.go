package binance

import (
	"testing"

	binance2 "github.com/adshao/go-binance/v2"
)

func TestStepPrecision(t *testing.T) {
	tests := []struct {
		step string
		want int
	}{
		{"1.00000000", 0},
		{"0.10000000", 1},
		{"0.00100000", 3},
		{"0.00000100", 6},
		{"1", 0},
		{"0.00000000", 0}, // malformed step without a 1 digit
	}

	for _, tt := range tests {
		if got := stepPrecision(tt.step); got != tt.want {
			t.Errorf("stepPrecision(%q) = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestConvertTickerRejectsBadFields(t *testing.T) {
	_, err := convertTicker(&binance2.PriceChangeStats{
		Symbol:             "BTCUSDT",
		LastPrice:          "not-a-number",
		PriceChangePercent: "1.5",
		QuoteVolume:        "100",
		HighPrice:          "1",
		LowPrice:           "1",
	})
	if err == nil {
		t.Fatal("expected malformed data error")
	}
}

func TestConvertTicker(t *testing.T) {
	snap, err := convertTicker(&binance2.PriceChangeStats{
		Symbol:             "BTCUSDT",
		LastPrice:          "50000.5",
		PriceChangePercent: "2.75",
		QuoteVolume:        "123456.78",
		HighPrice:          "51000",
		LowPrice:           "49000",
	})
	if err != nil {
		t.Fatal(err)
	}
	if snap.LastPrice != 50000.5 || snap.PriceChangePercent != 2.75 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestConvertKline(t *testing.T) {
	candle, err := convertKline("ETHUSDT", &binance2.Kline{
		OpenTime:         1700000000000,
		Open:             "2000.1",
		High:             "2010.5",
		Low:              "1990.0",
		Close:            "2005.3",
		Volume:           "1500",
		QuoteAssetVolume: "3000000",
	})
	if err != nil {
		t.Fatal(err)
	}
	if candle.Close != 2005.3 || candle.QuoteVolume != 3000000 {
		t.Errorf("unexpected candle %+v", candle)
	}
	if candle.OpenTime.UnixMilli() != 1700000000000 {
		t.Errorf("unexpected open time %v", candle.OpenTime)
	}
}

func TestConvertKlineRejectsBadFields(t *testing.T) {
	_, err := convertKline("ETHUSDT", &binance2.Kline{
		Open: "x", High: "1", Low: "1", Close: "1", Volume: "1", QuoteAssetVolume: "1",
	})
	if err == nil {
		t.Fatal("expected malformed data error")
	}
}
