package rpc

import "net/http"

type setDayParams struct {
	Day uint64 `json:"day"`
}

func (s *Server) handleSetDay(w http.ResponseWriter, req *rpcRequest) {
	var params setDayParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.SetDay(params.Day); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

type calcRatioParams struct {
	Day uint64 `json:"day"`
}

func (s *Server) handleCalcRatio(w http.ResponseWriter, req *rpcRequest) {
	var params calcRatioParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.CalcRatio(params.Day); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

func (s *Server) handleFreeze(w http.ResponseWriter, req *rpcRequest) {
	if err := s.node.Freeze(); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, req *rpcRequest) {
	if err := s.node.Unfreeze(); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

type setProfileParams struct {
	Owner  string `json:"owner"`
	Active bool   `json:"active"`
	Note   string `json:"note"`
}

func (s *Server) handleSetProfile(w http.ResponseWriter, req *rpcRequest) {
	var params setProfileParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.SetProfile(params.Owner, params.Active, params.Note); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}
