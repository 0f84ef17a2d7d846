package booking

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
)

var validate = newValidator()

const interruptedReason = "payment was interrupted"

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Friend is a co-traveler who pays their share of a SPLIT booking.
type Friend struct {
	Name      string `json:"name" validate:"max=120"`
	Phone     string `json:"phone" validate:"max=32"`
	Email     string `json:"email" validate:"omitempty,email"`
	UPIHandle string `json:"upiHandle" validate:"max=80"`
}

// Billing holds the payer's contact details.
type Billing struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Address  string `json:"address" validate:"max=240"`
}

// Checkout is the payment state machine of a booking session. Switching
// method keeps the fields of every other method.
type Checkout struct {
	State         enums.CheckoutState    `json:"state"`
	Method        enums.PaymentMethod    `json:"method"`
	SubMethod     enums.PaymentSubMethod `json:"subMethod"`
	EMITermMonths int                    `json:"emiTermMonths"`
	Friends       []Friend               `json:"friends"`
	Billing       Billing                `json:"billing"`
	Promo         *pricing.PromoResult   `json:"promo,omitempty"`
	WalletBalance decimal.Decimal        `json:"walletBalance"`
	TransactionID string                 `json:"transactionId,omitempty"`
	FailureReason string                 `json:"failureReason,omitempty"`
}

func NewCheckout() Checkout {
	return Checkout{State: enums.CheckoutClosed}
}

// Discount is the applied promo discount, or zero.
func (c *Checkout) Discount() decimal.Decimal {
	if c.Promo == nil || !c.Promo.Applied {
		return decimal.Zero
	}
	return c.Promo.Discount
}

func (c *Checkout) selecting() bool {
	return c.State == enums.CheckoutMethodSelection || c.State == enums.CheckoutFailed
}

func stateError(state enums.CheckoutState, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s while checkout is %s", action, state)).
		WithDetails(map[string]string{"state": string(state)})
}

// Open enters METHOD_SELECTION with the payer's current wallet balance.
// Reopening a failed checkout keeps its transaction for the retry.
func (c *Checkout) Open(walletBalance decimal.Decimal, travelers int) error {
	switch c.State {
	case enums.CheckoutProcessing, enums.CheckoutSuccess:
		return stateError(c.State, "open checkout")
	case enums.CheckoutClosed, "":
		c.Method = enums.PaymentMethodFull
		c.SubMethod = enums.PaymentSubMethodUPI
		c.EMITermMonths = pricing.EMITerms[0]
		c.TransactionID = ""
		c.FailureReason = ""
	}
	c.State = enums.CheckoutMethodSelection
	c.WalletBalance = walletBalance
	c.resizeFriends(travelers)
	return nil
}

// Close abandons checkout and drops its draft.
func (c *Checkout) Close() error {
	if c.State == enums.CheckoutProcessing {
		return stateError(c.State, "close checkout")
	}
	*c = NewCheckout()
	return nil
}

func (c *Checkout) SelectMethod(method enums.PaymentMethod) error {
	if !c.selecting() {
		return stateError(c.State, "change payment method")
	}
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]string{"method": "is invalid"})
	}
	c.Method = method
	return nil
}

func (c *Checkout) SelectSubMethod(sub enums.PaymentSubMethod) error {
	if !c.selecting() {
		return stateError(c.State, "change payment option")
	}
	if !sub.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment option").
			WithDetails(map[string]string{"subMethod": "is invalid"})
	}
	c.SubMethod = sub
	return nil
}

func (c *Checkout) SelectEMITerm(months int) error {
	if !c.selecting() {
		return stateError(c.State, "change installment plan")
	}
	if !pricing.ValidEMITerm(months) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported installment plan").
			WithDetails(map[string]any{"emiTermMonths": months, "allowed": pricing.EMITerms})
	}
	c.EMITermMonths = months
	return nil
}

// SetFriend updates one split-payment friend slot.
func (c *Checkout) SetFriend(index int, friend Friend) error {
	if !c.selecting() {
		return stateError(c.State, "edit friends")
	}
	if index < 0 || index >= len(c.Friends) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrIndexOutOfRange, "friend does not exist").
			WithDetails(map[string]int{"index": index})
	}
	if err := validateStruct(friend, "invalid friend details"); err != nil {
		return err
	}
	c.Friends[index] = friend
	return nil
}

func (c *Checkout) SetBilling(billing Billing) error {
	if !c.selecting() {
		return stateError(c.State, "edit billing details")
	}
	c.Billing = billing
	return nil
}

// ApplyPromo records the resolver's verdict. A rejected code clears any
// previous discount.
func (c *Checkout) ApplyPromo(result pricing.PromoResult) error {
	if !c.selecting() {
		return stateError(c.State, "apply a promo code")
	}
	c.Promo = &result
	return nil
}

// resizeFriends keeps one slot per traveler besides the payer.
func (c *Checkout) resizeFriends(travelers int) {
	n := travelers - 1
	if n < 0 {
		n = 0
	}
	if len(c.Friends) > n {
		c.Friends = c.Friends[:n]
		return
	}
	for len(c.Friends) < n {
		c.Friends = append(c.Friends, Friend{})
	}
}

// Eligibility summarises which methods can pay breakdown's total.
type Eligibility struct {
	EMI          bool                  `json:"emi"`
	Wallet       bool                  `json:"wallet"`
	Installments []pricing.Installment `json:"installments"`
	SplitShare   decimal.Decimal       `json:"splitShare"`
	SplitMessage string                `json:"splitMessage,omitempty"`
}

func (c *Checkout) Eligibility(b pricing.Breakdown) Eligibility {
	out := Eligibility{
		EMI:          pricing.EMIEligible(b.FinalTotal),
		Wallet:       pricing.WalletEligible(c.WalletBalance, b.FinalTotal),
		Installments: pricing.Installments(b.FinalTotal),
		SplitShare:   b.PerPersonCost,
	}
	if b.TotalTravelers <= 1 {
		out.SplitMessage = "Add more travelers to split the payment"
	}
	return out
}

// CanPay reports why the pay action is disabled, or nil.
func (c *Checkout) CanPay(b pricing.Breakdown) error {
	if !c.selecting() {
		return stateError(c.State, "pay")
	}
	switch c.Method {
	case enums.PaymentMethodEMI:
		if !pricing.EMIEligible(b.FinalTotal) {
			return pkgerrors.New(pkgerrors.CodeIneligible, "EMI requires a total above the threshold").
				WithDetails(map[string]string{"finalTotal": b.FinalTotal.String(), "threshold": pricing.EMIThreshold.String()})
		}
		if !pricing.ValidEMITerm(c.EMITermMonths) {
			return pkgerrors.New(pkgerrors.CodeValidation, "select an installment plan")
		}
	case enums.PaymentMethodWallet:
		if !pricing.WalletEligible(c.WalletBalance, b.FinalTotal) {
			return pkgerrors.New(pkgerrors.CodeIneligible, "insufficient wallet balance").
				WithDetails(map[string]string{"finalTotal": b.FinalTotal.String(), "walletBalance": c.WalletBalance.String()})
		}
	case enums.PaymentMethodFull:
		if !c.SubMethod.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "select a payment option")
		}
	case enums.PaymentMethodSplit:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "select a payment method")
	}
	return validateStruct(c.Billing, "invalid billing details")
}

// BeginPayment moves to PROCESSING under transactionID.
func (c *Checkout) BeginPayment(b pricing.Breakdown, transactionID string) error {
	if err := c.CanPay(b); err != nil {
		return err
	}
	c.State = enums.CheckoutProcessing
	c.TransactionID = transactionID
	c.FailureReason = ""
	return nil
}

// Resume re-enters PROCESSING to finish a payment the gateway already took.
// Eligibility is not checked again.
func (c *Checkout) Resume(transactionID string) error {
	if c.State == enums.CheckoutSuccess {
		return stateError(c.State, "resume payment")
	}
	c.State = enums.CheckoutProcessing
	c.TransactionID = transactionID
	c.FailureReason = ""
	return nil
}

// Interrupt fails a PROCESSING checkout whose request never finished.
func (c *Checkout) Interrupt() {
	if c.State == enums.CheckoutProcessing {
		c.State = enums.CheckoutFailed
		c.FailureReason = interruptedReason
	}
}

func (c *Checkout) Succeed() error {
	if c.State != enums.CheckoutProcessing {
		return stateError(c.State, "complete payment")
	}
	c.State = enums.CheckoutSuccess
	return nil
}

// Fail moves a processing payment to FAILED, from where it can be retried.
func (c *Checkout) Fail(reason string) error {
	if c.State != enums.CheckoutProcessing {
		return stateError(c.State, "fail payment")
	}
	c.State = enums.CheckoutFailed
	c.FailureReason = reason
	return nil
}

func validateStruct(v any, message string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
