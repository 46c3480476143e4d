package mana

import (
	"fmt"
)

// PaymentPlan lists how much mana of each element a payment consumes.
type PaymentPlan struct {
	Spend map[Element]int
	// ColorlessSubstituted counts colored requirements that were covered by
	// colorless mana because the matching color ran short.
	ColorlessSubstituted int
}

// Total returns the amount of mana the plan consumes.
func (pp *PaymentPlan) Total() int {
	total := 0
	for _, n := range pp.Spend {
		total += n
	}
	return total
}

// PaymentResult represents the result of a payment attempt.
type PaymentResult struct {
	Success bool
	Plan    *PaymentPlan
	Reason  string
}

// CalculatePayment works out a payment plan for cost against a copy of pool.
// The pool itself is never modified.
//
// Colored requirements are paid from the matching color first, with any
// shortfall covered by colorless mana. The generic component is then drained
// one unit at a time from whichever element has the most mana left, ties
// going to the earlier element in Elements.
func CalculatePayment(cost Cost, pool *Pool) *PaymentResult {
	plan := &PaymentPlan{Spend: make(map[Element]int)}
	if len(cost) == 0 {
		return &PaymentResult{Success: true, Plan: plan}
	}
	if err := cost.Validate(); err != nil {
		return &PaymentResult{Success: false, Reason: err.Error()}
	}

	testPool := pool.Copy()

	for _, e := range Colors {
		need := cost[e]
		if need == 0 {
			continue
		}
		fromColor := testPool.Get(e)
		if fromColor > need {
			fromColor = need
		}
		testPool.Spend(e, fromColor)
		plan.Spend[e] += fromColor

		shortfall := need - fromColor
		if shortfall == 0 {
			continue
		}
		if !testPool.Spend(Colorless, shortfall) {
			return &PaymentResult{
				Success: false,
				Reason:  fmt.Sprintf("insufficient %s mana (need %d, have %d)", e, need, fromColor+testPool.Get(Colorless)),
			}
		}
		plan.Spend[Colorless] += shortfall
		plan.ColorlessSubstituted += shortfall
	}

	generic := cost.Generic()
	if remaining := testPool.Total(); remaining < generic {
		return &PaymentResult{
			Success: false,
			Reason:  fmt.Sprintf("insufficient mana for generic cost (need %d, have %d)", generic, remaining),
		}
	}
	for i := 0; i < generic; i++ {
		e := largestSurplus(testPool)
		testPool.Spend(e, 1)
		plan.Spend[e]++
	}

	for e, n := range plan.Spend {
		if n == 0 {
			delete(plan.Spend, e)
		}
	}
	return &PaymentResult{Success: true, Plan: plan}
}

func largestSurplus(pool *Pool) Element {
	best := Element("")
	bestAmount := 0
	for _, e := range Elements {
		if n := pool.Get(e); n > bestAmount {
			best = e
			bestAmount = n
		}
	}
	return best
}

// ExecutePayment applies a plan to pool atomically. Returns false, leaving the
// pool untouched, if any element is short.
func ExecutePayment(plan *PaymentPlan, pool *Pool) bool {
	if plan == nil {
		return true
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()

	for e, n := range plan.Spend {
		if n < 0 || pool.amounts[e] < n {
			return false
		}
	}
	for e, n := range plan.Spend {
		pool.amounts[e] -= n
		if pool.amounts[e] == 0 {
			delete(pool.amounts, e)
		}
	}
	return true
}

// CanPay reports whether pool can pay cost.
func CanPay(cost Cost, pool *Pool) bool {
	return CalculatePayment(cost, pool).Success
}

// Pay pays cost from pool. On failure nothing is spent.
func Pay(cost Cost, pool *Pool) (*PaymentPlan, error) {
	result := CalculatePayment(cost, pool)
	if !result.Success {
		return nil, fmt.Errorf("cannot pay %s: %s", cost, result.Reason)
	}
	if !ExecutePayment(result.Plan, pool) {
		return nil, fmt.Errorf("cannot pay %s: pool changed during payment", cost)
	}
	return result.Plan, nil
}
