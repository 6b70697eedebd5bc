// Package ws serves the read-only market-data surface: level-one and
// level-two snapshots, the time-of-sales tape, and websocket streams
// for book updates and trades. There is deliberately no order entry
// here; orders reach the engine only through in-process Submit.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchbook/domain/book"
	"matchbook/domain/tape"
	"matchbook/engine"
)

type Server struct {
	engine   *engine.Engine
	tradeHub *hub[tape.Entry]
	bookHub  *hub[engine.Quote]
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:   eng,
		tradeHub: newHub[tape.Entry](),
		bookHub:  newHub[engine.Quote](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
	}
}

// BroadcastQuote fans a book update out to websocket subscribers.
func (s *Server) BroadcastQuote(q engine.Quote) { s.bookHub.broadcast(q) }

// BroadcastTrade fans an executed trade out to websocket subscribers.
func (s *Server) BroadcastTrade(e tape.Entry) { s.tradeHub.broadcast(e) }

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/book", s.handleBook)
	mux.HandleFunc("/depth", s.handleDepth)
	mux.HandleFunc("/tape", s.handleTape)
	mux.HandleFunc("/ws/book", s.handleBookStream)
	mux.HandleFunc("/ws/trades", s.handleTradeStream)
	return mux
}

type publicOrder struct {
	Side   string `json:"side"`
	Type   string `json:"type"`
	Price  int64  `json:"price,omitempty"`
	Qty    int64  `json:"qty"`
	Trader string `json:"trader"`
	Seq    uint64 `json:"seq"`
}

func toPublicOrder(o book.Order) publicOrder {
	return publicOrder{
		Side:   o.Side.String(),
		Type:   o.Type.String(),
		Price:  o.Price,
		Qty:    o.Qty,
		Trader: o.Trader,
		Seq:    o.Seq,
	}
}

type bookResponse struct {
	Symbol  string       `json:"symbol"`
	BestBid *publicOrder `json:"bestBid,omitempty"`
	BestAsk *publicOrder `json:"bestAsk,omitempty"`
	Last    int64        `json:"last,omitempty"`
	Time    time.Time    `json:"ts"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := bookResponse{
		Symbol: s.engine.Symbol(),
		Last:   s.engine.LastPrice(),
		Time:   time.Now(),
	}
	if bid, ok := s.engine.BestBid(); ok {
		po := toPublicOrder(bid)
		resp.BestBid = &po
	}
	if ask, ok := s.engine.BestAsk(); ok {
		po := toPublicOrder(ask)
		resp.BestAsk = &po
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	side, err := parseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	orders := s.engine.Depth(side)
	out := make([]publicOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, toPublicOrder(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": s.engine.Symbol(),
		"side":   side.String(),
		"orders": out,
	})
}

func (s *Server) handleTape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Trades())
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.bookHub.subscribe(32)
	defer s.bookHub.unsubscribe(sub)

	for quote := range sub.ch {
		if err := conn.WriteJSON(outboundMessage{Type: "book", Data: quote}); err != nil {
			return
		}
	}
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.tradeHub.subscribe(32)
	defer s.tradeHub.unsubscribe(sub)

	for trade := range sub.ch {
		if err := conn.WriteJSON(outboundMessage{Type: "trade", Data: trade}); err != nil {
			return
		}
	}
}

func parseSide(value string) (book.Side, error) {
	switch value {
	case "buy", "bid":
		return book.Buy, nil
	case "sell", "ask":
		return book.Sell, nil
	default:
		return 0, errors.New("side must be buy or sell")
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
