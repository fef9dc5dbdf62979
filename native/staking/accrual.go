package staking

import "math/big"

// accrue computes the reward earned by pos between its accrual cursor and
// activeDay, walking at most MaxAccrualDays days. Each day contributes
// floor(quantity * ratio / RatioScale), using the ratio recorded for that day
// (absent days contribute nothing). The function is pure: it returns the
// newly accrued reward and the advanced cursor, and the caller decides
// whether to persist either. Read-only queries discard the cursor; mutating
// paths store it, which keeps LastCalcDay monotonically non-decreasing.
func (e *Engine) accrue(pos *Position, activeDay uint64) (*big.Int, uint64, error) {
	reward := big.NewInt(0)
	if pos == nil {
		return reward, activeDay, nil
	}
	day := pos.LastCalcDay
	if activeDay <= day {
		// The operator rewound the day counter (or nothing elapsed);
		// never walk backwards.
		return reward, day, nil
	}
	remaining := activeDay - day
	if remaining > MaxAccrualDays {
		remaining = MaxAccrualDays
	}
	quantity := pos.Quantity
	if quantity == nil {
		quantity = big.NewInt(0)
	}
	for ; remaining > 0; remaining-- {
		ratio, ok, err := e.state.RewardRatio(day)
		if err != nil {
			return nil, 0, err
		}
		if ok && ratio != 0 {
			daily := new(big.Int).Mul(quantity, big.NewInt(int64(ratio)))
			daily.Quo(daily, big.NewInt(RatioScale))
			reward.Add(reward, daily)
		}
		day++
	}
	return reward, day, nil
}
