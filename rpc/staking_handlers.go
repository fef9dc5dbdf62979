package rpc

import (
	"net/http"

	"hvstaking/native/staking"
	"hvstaking/token"
)

type ownerParams struct {
	Owner string `json:"owner"`
}

type powerDownParams struct {
	Owner    string `json:"owner"`
	Quantity string `json:"quantity"`
}

type positionResult struct {
	Owner           string `json:"owner"`
	Quantity        string `json:"quantity"`
	UnclaimedTokens string `json:"unclaimedTokens"`
	LastClaimTime   int64  `json:"lastClaimTime"`
	LastCalcDay     uint64 `json:"lastCalcDay"`
}

type refundResult struct {
	Owner     string `json:"owner"`
	Quantity  string `json:"quantity"`
	RequestAt int64  `json:"requestAt"`
	DueAt     int64  `json:"dueAt"`
}

type settingsResult struct {
	TotalStaked string `json:"totalStaked"`
	ActiveDay   uint64 `json:"activeDay"`
	Frozen      bool   `json:"frozen"`
}

type rewardResult struct {
	Owner  string `json:"owner"`
	Reward string `json:"reward"`
}

type ackResult struct {
	Status string `json:"status"`
}

var acknowledged = ackResult{Status: "ok"}

func (s *Server) handlePowerDown(w http.ResponseWriter, req *rpcRequest) {
	var params powerDownParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	quantity, err := token.ParseCoin(params.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid quantity", err.Error())
		return
	}
	if err := s.node.PowerDown(params.Owner, quantity); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

func (s *Server) handleRefund(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.Refund(params.Owner); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

func (s *Server) handleClaim(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	if err := s.node.Claim(params.Owner); err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, acknowledged)
}

func (s *Server) handleCheckReward(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	reward, err := s.node.CheckReward(params.Owner)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, rewardResult{
		Owner:  staking.NormalizeAccountName(params.Owner),
		Reward: token.NewCoin(reward).String(),
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	pos, ok, err := s.node.Position(params.Owner)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, positionResult{
		Owner:           staking.NormalizeAccountName(params.Owner),
		Quantity:        token.NewCoin(pos.Quantity).String(),
		UnclaimedTokens: token.NewCoin(pos.UnclaimedTokens).String(),
		LastClaimTime:   pos.LastClaimTime,
		LastCalcDay:     pos.LastCalcDay,
	})
}

func (s *Server) handlePendingRefund(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	pending, ok, err := s.node.PendingRefund(params.Owner)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	delaySeconds := int64(s.node.Engine().Params().RefundDelay.Seconds())
	writeResult(w, req.ID, refundResult{
		Owner:     staking.NormalizeAccountName(params.Owner),
		Quantity:  token.NewCoin(pending.Quantity).String(),
		RequestAt: pending.RequestAt,
		DueAt:     pending.DueAt(delaySeconds),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, req *rpcRequest) {
	st, err := s.node.Settings()
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, settingsResult{
		TotalStaked: token.NewCoin(st.TotalStaked).String(),
		ActiveDay:   st.ActiveDay,
		Frozen:      st.Frozen,
	})
}

type rewardRatioParams struct {
	Day uint64 `json:"day"`
}

type rewardRatioResult struct {
	Day   uint64 `json:"day"`
	Ratio int32  `json:"ratio"`
}

func (s *Server) handleRewardRatio(w http.ResponseWriter, req *rpcRequest) {
	var params rewardRatioParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	ratio, err := s.node.RewardRatio(params.Day)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, rewardRatioResult{Day: params.Day, Ratio: ratio})
}

type profileResult struct {
	Owner  string `json:"owner"`
	Active bool   `json:"active"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) handleProfile(w http.ResponseWriter, req *rpcRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid params", err.Error())
		return
	}
	profile, ok, err := s.node.Profile(params.Owner)
	if err != nil {
		writeOperationError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, profileResult{
		Owner:  profile.Owner,
		Active: profile.Active,
		Note:   profile.Note,
	})
}
