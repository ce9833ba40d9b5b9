package session

import "github.com/rustyeddy/tradesim/market"

// history is a fixed-capacity ring of candles. Pushing past capacity
// overwrites the oldest entry.
type history struct {
	buf   []market.Candle
	start int
	n     int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]market.Candle, capacity)}
}

func (h *history) push(c market.Candle) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = c
		h.n++
		return
	}
	h.buf[h.start] = c
	h.start = (h.start + 1) % len(h.buf)
}

func (h *history) last() (market.Candle, bool) {
	if h.n == 0 {
		return market.Candle{}, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

func (h *history) len() int { return h.n }

// slice copies the candles out oldest first.
func (h *history) slice() []market.Candle {
	out := make([]market.Candle, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *history) clear() {
	h.start, h.n = 0, 0
}
