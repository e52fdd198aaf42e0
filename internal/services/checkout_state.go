package services

import (
	"fmt"

	applog "storefront/internal/log"
)

type CheckoutState string

const (
	StateEditing    CheckoutState = "EDITING"
	StateValidating CheckoutState = "VALIDATING"
	StateSubmitting CheckoutState = "SUBMITTING"
	StateSucceeded  CheckoutState = "SUCCEEDED"
	StateFailed     CheckoutState = "FAILED"
)

var checkoutEdges = map[CheckoutState][]CheckoutState{
	StateEditing:    {StateValidating},
	StateValidating: {StateSubmitting, StateFailed},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateFailed:     {StateEditing},
}

// Checkout tracks one submission attempt. Not safe for concurrent use; each
// request owns its own value.
type Checkout struct {
	userID string
	state  CheckoutState
	reason Code
}

func NewCheckout(userID string) *Checkout {
	return &Checkout{userID: userID, state: StateEditing}
}

func (c *Checkout) State() CheckoutState { return c.state }

// Reason is the failure code while in FAILED, else "".
func (c *Checkout) Reason() Code { return c.reason }

func (c *Checkout) Validate() error { return c.move(StateValidating, "") }
func (c *Checkout) Submit() error   { return c.move(StateSubmitting, "") }
func (c *Checkout) Succeed() error  { return c.move(StateSucceeded, "") }
func (c *Checkout) Fail(reason Code) error {
	return c.move(StateFailed, reason)
}

// Edit returns a failed checkout to the cart so the customer can retry.
func (c *Checkout) Edit() error { return c.move(StateEditing, "") }

func (c *Checkout) move(to CheckoutState, reason Code) error {
	allowed := false
	for _, s := range checkoutEdges[c.state] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		err := fmt.Errorf("illegal checkout transition %s -> %s", c.state, to)
		applog.Event(applog.LevelWarn, "checkout.transition_illegal", err, map[string]any{
			"user_id": c.userID, "from": string(c.state), "to": string(to),
		})
		return err
	}
	fields := map[string]any{"user_id": c.userID, "from": string(c.state), "to": string(to)}
	if reason != "" {
		fields["reason"] = string(reason)
	}
	applog.Event(applog.LevelInfo, "checkout.transition", nil, fields)
	c.state, c.reason = to, reason
	return nil
}
