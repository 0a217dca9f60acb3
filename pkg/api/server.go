package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/wyoo/dexcore/pkg/core/book"
	"github.com/wyoo/dexcore/pkg/core/exchange"
	"github.com/wyoo/dexcore/pkg/core/ledger"
	"github.com/wyoo/dexcore/pkg/core/token"
)

// Server exposes the exchange over REST plus a WebSocket trade feed.
type Server struct {
	ex     *exchange.Exchange
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires routes and subscribes the trade feed to engine fills.
func NewServer(ex *exchange.Exchange, log *zap.SugaredLogger) *Server {
	s := &Server{
		ex:     ex,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()

	ex.SubscribeFills(func(f exchange.Fill) {
		s.hub.Broadcast(FillEvent{
			Seq:          f.Seq,
			Token:        f.Token,
			Price:        f.Price,
			Qty:          f.Qty,
			TakerSide:    f.TakerSide.String(),
			Maker:        f.Maker.Hex(),
			Taker:        f.Taker.Hex(),
			MakerOrderID: f.MakerOrderID,
		})
	})
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tokens", s.handleRegisterToken).Methods("POST")
	api.HandleFunc("/tokens", s.handleListTokens).Methods("GET")

	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/accounts/{address}/balances/{symbol}", s.handleGetBalance).Methods("GET")

	api.HandleFunc("/orders/limit", s.handleLimitOrder).Methods("POST")
	api.HandleFunc("/orders/market", s.handleMarketOrder).Methods("POST")
	api.HandleFunc("/markets/{symbol}/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/markets/{symbol}/trades", s.handleGetTrades).Methods("GET")

	api.HandleFunc("/state/hash", s.handleStateHash).Methods("GET")

	s.router.HandleFunc("/ws", s.hub.serveWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler; used by tests and by Start.
func (s *Server) Handler(origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves HTTP until the listener fails.
func (s *Server) Start(addr string, origins []string) error {
	go s.hub.Run()
	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler(origins))
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol required", "")
		return
	}
	if err := s.ex.RegisterToken(req.Symbol, req.IsQuote); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "registered"})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.ex.Tokens())
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, trader, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.ex.Deposit(trader, req.Amount, req.Token); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, BalanceResponse{
		Trader: trader.Hex(),
		Token:  req.Token,
		Amount: s.ex.BalanceOf(trader, req.Token),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, trader, ok := s.decodeTransfer(w, r)
	if !ok {
		return
	}
	if err := s.ex.Withdraw(trader, req.Amount, req.Token); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, BalanceResponse{
		Trader: trader.Hex(),
		Token:  req.Token,
		Amount: s.ex.BalanceOf(trader, req.Token),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr, symbol := vars["address"], vars["symbol"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	trader := common.HexToAddress(addressStr)
	respondJSON(w, BalanceResponse{
		Trader: trader.Hex(),
		Token:  symbol,
		Amount: s.ex.BalanceOf(trader, symbol),
	})
}

func (s *Server) handleLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req LimitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	trader, side, ok := s.parseOrderCommon(w, req.Trader, req.Side)
	if !ok {
		return
	}
	order, err := s.ex.CreateLimitOrder(trader, req.Token, req.Amount, req.Price, side)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req MarketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	trader, side, ok := s.parseOrderCommon(w, req.Trader, req.Side)
	if !ok {
		return
	}
	fills, err := s.ex.CreateMarketOrder(trader, req.Token, req.Amount, side)
	if err != nil {
		respondOpError(w, err)
		return
	}
	events := make([]FillEvent, len(fills))
	for i, f := range fills {
		events[i] = FillEvent{
			Seq:          f.Seq,
			Token:        f.Token,
			Price:        f.Price,
			Qty:          f.Qty,
			TakerSide:    f.TakerSide.String(),
			Maker:        f.Maker.Hex(),
			Taker:        f.Taker.Hex(),
			MakerOrderID: f.MakerOrderID,
		}
	}
	respondJSON(w, events)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	side, ok := book.ParseSide(r.URL.Query().Get("side"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", "want side=buy or side=sell")
		return
	}

	orders := s.ex.GetOrders(symbol, side)
	infos := make([]OrderInfo, len(orders))
	for i, o := range orders {
		infos[i] = orderInfo(o)
	}
	respondJSON(w, BookSnapshot{Token: symbol, Side: side.String(), Orders: infos})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	trades, err := s.ex.RecentTrades(symbol, 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trade history unavailable", err.Error())
		return
	}
	events := make([]FillEvent, len(trades))
	for i, t := range trades {
		events[i] = FillEvent{
			Seq:          t.Seq,
			Token:        t.Token,
			Price:        t.Price,
			Qty:          t.Qty,
			TakerSide:    t.TakerSide,
			Maker:        t.Maker.Hex(),
			Taker:        t.Taker.Hex(),
			MakerOrderID: t.MakerOrderID,
			Timestamp:    t.Timestamp,
		}
	}
	respondJSON(w, events)
}

func (s *Server) handleStateHash(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"hash": s.ex.StateHashHex()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) decodeTransfer(w http.ResponseWriter, r *http.Request) (TransferRequest, common.Address, bool) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return req, common.Address{}, false
	}
	if !common.IsHexAddress(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader address", req.Trader)
		return req, common.Address{}, false
	}
	return req, common.HexToAddress(req.Trader), true
}

func (s *Server) parseOrderCommon(w http.ResponseWriter, traderStr, sideStr string) (common.Address, book.Side, bool) {
	if !common.IsHexAddress(traderStr) {
		respondError(w, http.StatusBadRequest, "invalid trader address", traderStr)
		return common.Address{}, 0, false
	}
	side, ok := book.ParseSide(sideStr)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", "want buy or sell")
		return common.Address{}, 0, false
	}
	return common.HexToAddress(traderStr), side, true
}

func orderInfo(o book.Order) OrderInfo {
	return OrderInfo{
		ID:        o.ID,
		Trader:    o.Trader.Hex(),
		Token:     o.Token,
		Side:      o.Side.String(),
		Price:     o.Price,
		Amount:    o.Amount,
		Filled:    o.Filled,
		Remaining: o.Remaining(),
	}
}

// respondOpError maps engine errors onto HTTP statuses: missing resources
// are 404, registration conflicts 409, every other precondition failure
// 400.
func respondOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exchange.ErrUnknownToken):
		respondError(w, http.StatusNotFound, "unknown token", err.Error())
	case errors.Is(err, token.ErrDuplicateToken), errors.Is(err, token.ErrQuoteTokenSet):
		respondError(w, http.StatusConflict, "registration conflict", err.Error())
	case errors.Is(err, exchange.ErrCannotTradeQuote),
		errors.Is(err, exchange.ErrNoQuoteToken),
		errors.Is(err, exchange.ErrInvalidAmount),
		errors.Is(err, exchange.ErrInvalidPrice),
		errors.Is(err, exchange.ErrNotionalOverflow),
		errors.Is(err, exchange.ErrInsufficientQuoteBalance),
		errors.Is(err, exchange.ErrInsufficientTokenBalance),
		errors.Is(err, ledger.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "precondition failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}
