package rpc

import (
	"net/http"

	"hvstaking/native/staking"
	"hvstaking/token"
)

type transferParams struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity string `json:"quantity"`
	Memo     string `json:"memo"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, req *rpcRequest) {
	var params transferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	quantity, err := token.ParseCoin(params.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid quantity", err.Error())
		return
	}
	if err := s.node.Transfer(params.From, params.To, quantity, params.Memo); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

type balanceParams struct {
	Account string `json:"account"`
}

type balanceResult struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, req *rpcRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	balance, err := s.node.Balance(params.Account)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Account: staking.NormalizeAccountName(params.Account),
		Balance: token.NewCoin(balance).String(),
	})
}
