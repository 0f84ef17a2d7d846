package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/internal/notifications"
	"github.com/angelmondragon/wayfarer-backend/internal/payments"
	"github.com/angelmondragon/wayfarer-backend/internal/pricing"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/internal/wallet"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/metrics"
	"github.com/angelmondragon/wayfarer-backend/pkg/outbox"
)

// OpenOptions configures a new booking session.
type OpenOptions struct {
	ReadOnly bool
}

// ActivityEdit changes one field of one activity.
type ActivityEdit struct {
	DayIndex      int           `json:"dayIndex" validate:"gte=0"`
	ActivityIndex int           `json:"activityIndex" validate:"gte=0"`
	Field         ActivityField `json:"field" validate:"required,oneof=time name description location estimatedCost"`
	Value         any           `json:"value"`
}

// DetailsEdit replaces trip-level text. Nil fields are left alone.
type DetailsEdit struct {
	TripName            *string `json:"tripName" validate:"omitempty,max=160"`
	DestinationOverview *string `json:"destinationOverview" validate:"omitempty,max=4000"`
}

// CheckoutUpdate changes checkout selections. Nil fields are left alone.
type CheckoutUpdate struct {
	Method        *enums.PaymentMethod    `json:"method"`
	SubMethod     *enums.PaymentSubMethod `json:"subMethod"`
	EMITermMonths *int                    `json:"emiTermMonths"`
	Billing       *Billing                `json:"billing"`
}

// Service drives the edit and checkout state machines of booking sessions.
type Service interface {
	Open(ctx context.Context, userID, tripID string, opts OpenOptions) (*View, error)
	View(ctx context.Context, userID, tripID string) (*View, error)

	BeginEdit(ctx context.Context, userID, tripID string) (*View, error)
	EditActivity(ctx context.Context, userID, tripID string, edit ActivityEdit) (*View, error)
	DeleteActivity(ctx context.Context, userID, tripID string, dayIndex, activityIndex int) (*View, error)
	EditDetails(ctx context.Context, userID, tripID string, edit DetailsEdit) (*View, error)
	SaveEdits(ctx context.Context, userID, tripID string) (*View, error)
	DiscardEdits(ctx context.Context, userID, tripID string) (*View, error)

	OpenCheckout(ctx context.Context, userID, tripID string) (*View, error)
	UpdateCheckout(ctx context.Context, userID, tripID string, update CheckoutUpdate) (*View, error)
	SetFriend(ctx context.Context, userID, tripID string, index int, friend Friend) (*View, error)
	ApplyPromo(ctx context.Context, userID, tripID, code string) (*View, error)
	// Pay charges the selected method. On a declined or cancelled payment
	// it returns both the FAILED view and the error.
	Pay(ctx context.Context, userID, tripID, idempotencyKey string) (*View, error)
	CloseCheckout(ctx context.Context, userID, tripID string) (*View, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the booking service. Notifier and Metrics are optional.
type ServiceParams struct {
	Trips    trips.Service
	Sessions SessionStore
	Wallet   wallet.Service
	Payments payments.Service
	Promos   pricing.PromoResolver
	Events   eventEmitter
	Tx       txRunner
	Notifier notifications.Service
	Metrics  *metrics.BookingMetrics
	Logger   *logger.Logger
	// PayLocks serializes Pay per user and trip. It defaults to an
	// in-process lock, which is only enough for a single replica.
	PayLocks PayLocks
	Now      func() time.Time
	// NewTransactionID mints booking references.
	NewTransactionID func() string
}

type service struct {
	trips    trips.Service
	sessions SessionStore
	wallet   wallet.Service
	payments payments.Service
	promos   pricing.PromoResolver
	events   eventEmitter
	tx       txRunner
	notifier notifications.Service
	metrics  *metrics.BookingMetrics
	logg     *logger.Logger
	locks    PayLocks
	now      func() time.Time
	newTxnID func() string
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Trips == nil:
		return nil, fmt.Errorf("trip service required")
	case params.Sessions == nil:
		return nil, fmt.Errorf("session store required")
	case params.Wallet == nil:
		return nil, fmt.Errorf("wallet service required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment service required")
	case params.Promos == nil:
		return nil, fmt.Errorf("promo resolver required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox service required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.PayLocks == nil {
		params.PayLocks = newLocalPayLocks()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.NewTransactionID == nil {
		params.NewTransactionID = func() string {
			return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		}
	}
	return &service{
		trips:    params.Trips,
		sessions: params.Sessions,
		wallet:   params.Wallet,
		payments: params.Payments,
		promos:   params.Promos,
		events:   params.Events,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		locks:    params.PayLocks,
		now:      params.Now,
		newTxnID: params.NewTransactionID,
	}, nil
}

func (s *service) Open(ctx context.Context, userID, tripID string, opts OpenOptions) (*View, error) {
	sess, err := s.open(ctx, userID, tripID, &opts.ReadOnly)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return buildView(sess), nil
}

// open loads the session with a fresh trip snapshot, starting a new session
// when none exists or readOnly differs. A nil readOnly keeps the stored mode.
// Sessions mid-edit or mid-payment keep the snapshot they started from.
func (s *service) open(ctx context.Context, userID, tripID string, readOnly *bool) (*Session, error) {
	trip, err := s.trips.Get(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Load(ctx, userID, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking session")
	}
	switch {
	case sess == nil:
		sess = newSession(userID, *trip, readOnly != nil && *readOnly)
	case readOnly != nil && sess.Editor.ReadOnly != *readOnly:
		sess = newSession(userID, *trip, *readOnly)
	case sess.Editor.Editing(), sess.Checkout.State == enums.CheckoutProcessing:
	default:
		sess.Trip = *trip
	}
	return sess, nil
}

func (s *service) load(ctx context.Context, userID, tripID string) (*Session, error) {
	return s.open(ctx, userID, tripID, nil)
}

func (s *service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking session")
	}
	return nil
}

// mutate applies fn to the session and stores the result. A failing fn
// leaves the stored session as it was.
func (s *service) mutate(ctx context.Context, userID, tripID string, fn func(*Session) error) (*View, error) {
	sess, err := s.load(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return buildView(sess), nil
}

func (s *service) View(ctx context.Context, userID, tripID string) (*View, error) {
	sess, err := s.load(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	return buildView(sess), nil
}

func (s *service) BeginEdit(ctx context.Context, userID, tripID string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		if sess.Checkout.State == enums.CheckoutProcessing {
			return stateError(sess.Checkout.State, "edit the itinerary")
		}
		return sess.Editor.Begin(sess.Trip)
	})
}

func (s *service) EditActivity(ctx context.Context, userID, tripID string, edit ActivityEdit) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		draft, err := sess.Editor.Current()
		if err != nil {
			return err
		}
		return draft.SetActivityField(edit.DayIndex, edit.ActivityIndex, edit.Field, edit.Value)
	})
}

func (s *service) DeleteActivity(ctx context.Context, userID, tripID string, dayIndex, activityIndex int) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		draft, err := sess.Editor.Current()
		if err != nil {
			return err
		}
		return draft.DeleteActivity(dayIndex, activityIndex)
	})
}

func (s *service) EditDetails(ctx context.Context, userID, tripID string, edit DetailsEdit) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		draft, err := sess.Editor.Current()
		if err != nil {
			return err
		}
		if edit.TripName != nil {
			draft.SetTripName(*edit.TripName)
		}
		if edit.DestinationOverview != nil {
			draft.SetDestinationOverview(*edit.DestinationOverview)
		}
		return nil
	})
}

func (s *service) SaveEdits(ctx context.Context, userID, tripID string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		saved, err := sess.Editor.Save(ctx, s.trips, userID, tripID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				s.metrics.IncCommitConflict()
			}
			return err
		}
		sess.Trip = *saved
		return nil
	})
}

func (s *service) DiscardEdits(ctx context.Context, userID, tripID string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		return sess.Editor.Discard()
	})
}

func (s *service) OpenCheckout(ctx context.Context, userID, tripID string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		if sess.Trip.IsBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "trip is already booked")
		}
		balance, err := s.wallet.Balance(ctx, userID)
		if err != nil {
			return err
		}
		return sess.Checkout.Open(balance, sess.Trip.Preferences.TotalTravelers())
	})
}

func (s *service) UpdateCheckout(ctx context.Context, userID, tripID string, update CheckoutUpdate) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		c := &sess.Checkout
		if update.Method != nil {
			if err := c.SelectMethod(*update.Method); err != nil {
				return err
			}
		}
		if update.SubMethod != nil {
			if err := c.SelectSubMethod(*update.SubMethod); err != nil {
				return err
			}
		}
		if update.EMITermMonths != nil {
			if err := c.SelectEMITerm(*update.EMITermMonths); err != nil {
				return err
			}
		}
		if update.Billing != nil {
			if err := c.SetBilling(*update.Billing); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) SetFriend(ctx context.Context, userID, tripID string, index int, friend Friend) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		return sess.Checkout.SetFriend(index, friend)
	})
}

func (s *service) ApplyPromo(ctx context.Context, userID, tripID, code string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		if !sess.Checkout.selecting() {
			return stateError(sess.Checkout.State, "apply a promo code")
		}
		result, err := s.promos.Resolve(ctx, code, sess.Working().TotalEstimatedCost)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve promo code")
		}
		return sess.Checkout.ApplyPromo(result)
	})
}

func (s *service) CloseCheckout(ctx context.Context, userID, tripID string) (*View, error) {
	return s.mutate(ctx, userID, tripID, func(sess *Session) error {
		return sess.Checkout.Close()
	})
}

func (s *service) Pay(ctx context.Context, userID, tripID, idempotencyKey string) (*View, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	release, ok, err := s.locks.TryLock(ctx, userID, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment for this trip is already in progress")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to release payment lock")
		}
	}()
	return s.pay(ctx, userID, tripID, idempotencyKey)
}

// pay runs with the trip's payment lock held, so a PROCESSING session found
// here belongs to a request that died mid-payment.
func (s *service) pay(ctx context.Context, userID, tripID, idempotencyKey string) (*View, error) {
	sess, err := s.load(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if sess.Checkout.State == enums.CheckoutSuccess {
		return buildView(sess), nil
	}
	if sess.Trip.IsBooked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "trip is already booked")
	}
	ctx = s.logg.WithField(ctx, "trip_id", tripID)
	// Outcomes are recorded even if the caller goes away mid-payment.
	persistCtx := context.WithoutCancel(ctx)

	settled, err := s.payments.Settled(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if settled != nil {
		return s.resume(persistCtx, sess, settled)
	}
	sess.Checkout.Interrupt()

	if sess.Checkout.Method == enums.PaymentMethodWallet {
		balance, err := s.wallet.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		sess.Checkout.WalletBalance = balance
	}

	b := sess.Breakdown()
	txnID := sess.Checkout.TransactionID
	if txnID == "" {
		txnID = s.newTxnID()
	}
	if err := sess.Checkout.BeginPayment(b, txnID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txnID,
		"method":         string(sess.Checkout.Method),
	})
	persistCtx = context.WithoutCancel(ctx)

	txn, err := s.payments.StartAttempt(ctx, payments.AttemptInput{
		TransactionID:  txnID,
		IdempotencyKey: idempotencyKey,
		UserID:         userID,
		TripID:         tripID,
		Method:         sess.Checkout.Method,
		SubMethod:      sess.Checkout.SubMethod,
		EMITermMonths:  sess.Checkout.EMITermMonths,
		Amount:         b.FinalTotal,
		Discount:       b.Discount,
		Currency:       sess.Working().Currency,
	})
	if err != nil {
		return s.fail(persistCtx, sess, nil, err)
	}

	if txn.Status == enums.PaymentStatusPending {
		started := s.now()
		_, err = s.payments.Charge(ctx, txn)
		status := enums.PaymentStatusSucceeded
		if err != nil {
			status = enums.PaymentStatusFailed
		}
		s.metrics.ObservePayment(string(sess.Checkout.Method), string(status), s.now().Sub(started))
		if err != nil {
			return s.fail(persistCtx, sess, txn, err)
		}
		if err := s.payments.MarkCaptured(persistCtx, txn); err != nil {
			return s.fail(persistCtx, sess, nil, err)
		}
	}
	return s.complete(persistCtx, sess, txn, b)
}

// resume finishes a payment the gateway already took, using the method and
// amount it was charged with rather than the session's current selection.
func (s *service) resume(ctx context.Context, sess *Session, txn *models.PaymentTransaction) (*View, error) {
	if err := sess.Checkout.Resume(txn.TransactionID); err != nil {
		return nil, err
	}
	c := &sess.Checkout
	c.Method = txn.Method
	if txn.SubMethod != nil {
		c.SubMethod = enums.PaymentSubMethod(*txn.SubMethod)
	}
	if txn.EMITermMonths != nil {
		c.EMITermMonths = *txn.EMITermMonths
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.TransactionID,
		"method":         string(txn.Method),
		"status":         string(txn.Status),
	})
	s.logg.Info(ctx, "resuming settled payment")
	return s.complete(ctx, sess, txn, sess.Breakdown())
}

// complete confirms a captured payment and books the trip. Every step is
// safe to repeat for the same transaction, and none of them charges again.
func (s *service) complete(ctx context.Context, sess *Session, txn *models.PaymentTransaction, b pricing.Breakdown) (*View, error) {
	working := sess.Working()
	method := txn.Method
	bookedAt := s.now().UTC()

	if txn.Status != enums.PaymentStatusSucceeded {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if method == enums.PaymentMethodWallet {
				if _, err := s.wallet.DebitTx(ctx, tx, sess.UserID, txn.TransactionID, txn.Amount); err != nil {
					return err
				}
			}
			if err := s.payments.MarkSucceededTx(ctx, tx, txn); err != nil {
				return err
			}
			return s.events.EmitOnce(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventBookingConfirmed,
				AggregateType: enums.AggregateTrip,
				AggregateID:   sess.TripID,
				Actor:         &outbox.ActorRef{UserID: sess.UserID},
				OccurredAt:    bookedAt,
				Data: outbox.BookingConfirmedEvent{
					TripID:        sess.TripID,
					TripName:      working.TripName,
					TransactionID: txn.TransactionID,
					PayerName:     sess.Checkout.Billing.FullName,
					PayerEmail:    sess.Checkout.Billing.Email,
					Method:        string(method),
					SubMethod:     subMethodFor(sess.Checkout),
					EMITermMonths: emiTermFor(sess.Checkout),
					FinalTotal:    txn.Amount,
					PerPerson:     b.PerPersonCost,
					Travelers:     b.TotalTravelers,
					Currency:      working.Currency,
					BookedAt:      bookedAt,
				},
			})
		})
		if err != nil {
			return s.fail(ctx, sess, txn, err)
		}
		txn.Status = enums.PaymentStatusSucceeded
	}

	booked, err := s.markBooked(ctx, sess, working, txn.TransactionID)
	if err != nil {
		// The payment stands; a retry resumes it and finishes here.
		return s.fail(ctx, sess, txn, err)
	}

	_ = sess.Checkout.Succeed()
	sess.Trip = *booked
	sess.Editor.reset()
	if err := s.save(ctx, sess); err != nil {
		s.logg.Error(ctx, "failed to store completed booking session", err)
	}
	s.metrics.IncBooked()
	s.logg.Info(ctx, "trip booked")

	if method == enums.PaymentMethodSplit {
		s.dispatchSplit(ctx, sess, b)
	}
	return buildView(sess), nil
}

// markBooked persists the paid itinerary. A confirmed payment wins over an
// edit committed elsewhere in the meantime.
func (s *service) markBooked(ctx context.Context, sess *Session, it trips.Itinerary, txnID string) (*trips.SavedTrip, error) {
	booked, err := s.trips.MarkBooked(ctx, sess.UserID, sess.TripID, sess.Trip.Version, it, txnID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return booked, err
	}
	s.metrics.IncCommitConflict()
	s.logg.Warn(ctx, "trip changed during checkout, booking latest version")
	latest, err := s.trips.Get(ctx, sess.UserID, sess.TripID)
	if err != nil {
		return nil, err
	}
	return s.trips.MarkBooked(ctx, sess.UserID, sess.TripID, latest.Version, it, txnID)
}

// fail moves the session to FAILED. Only a pending attempt is failed in the
// ledger: once the gateway has taken the money the attempt stays captured or
// succeeded so the next Pay resumes it instead of charging again.
func (s *service) fail(ctx context.Context, sess *Session, txn *models.PaymentTransaction, cause error) (*View, error) {
	reason := failureReason(cause)
	s.logg.Error(ctx, "payment failed", cause)

	if txn != nil && txn.Status == enums.PaymentStatusPending {
		if err := s.payments.MarkFailed(ctx, txn, reason); err != nil {
			s.logg.Error(ctx, "failed to record payment failure", err)
		}
	}
	if txn != nil && txn.Status == enums.PaymentStatusFailed {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   txn.TransactionID,
				Actor:         &outbox.ActorRef{UserID: sess.UserID},
				Data: outbox.PaymentFailedEvent{
					TripID:        sess.TripID,
					TransactionID: txn.TransactionID,
					Method:        string(txn.Method),
					Amount:        txn.Amount,
					Reason:        reason,
				},
			})
		})
		if err != nil {
			s.logg.Error(ctx, "failed to queue payment failure event", err)
		}
	}

	_ = sess.Checkout.Fail(reason)
	if err := s.save(ctx, sess); err != nil {
		s.logg.Error(ctx, "failed to store failed booking session", err)
	}
	view := buildView(sess)
	if pkgerrors.As(cause) != nil {
		return view, cause
	}
	return view, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, cause, "payment failed")
}

func (s *service) dispatchSplit(ctx context.Context, sess *Session, b pricing.Breakdown) {
	if s.notifier == nil || len(sess.Checkout.Friends) == 0 {
		return
	}
	recipients := make([]notifications.Recipient, 0, len(sess.Checkout.Friends))
	for _, f := range sess.Checkout.Friends {
		recipients = append(recipients, notifications.Recipient{Name: f.Name, Email: f.Email, UPIHandle: f.UPIHandle})
	}
	working := sess.Working()
	result, err := s.notifier.NotifySplit(ctx, notifications.SplitNotice{
		TripID:        sess.TripID,
		TripName:      working.TripName,
		TransactionID: sess.Trip.TransactionID,
		PayerName:     sess.Checkout.Billing.FullName,
		Currency:      working.Currency,
		Share:         b.PerPersonCost,
		Recipients:    recipients,
	})
	if err != nil {
		s.logg.Warn(ctx, "some split payment links were not sent")
	}
	if len(result.Sent) == 0 && len(result.Failed) == 0 {
		return
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSplitLinksDispatched,
			AggregateType: enums.AggregateTrip,
			AggregateID:   sess.TripID,
			Actor:         &outbox.ActorRef{UserID: sess.UserID},
			Data: outbox.SplitLinksDispatchedEvent{
				TripID:        sess.TripID,
				TransactionID: sess.Trip.TransactionID,
				Recipients:    result.Sent,
				Failed:        result.Failed,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to queue split dispatch event", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "payment was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "payment timed out"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func subMethodFor(c Checkout) string {
	if c.Method != enums.PaymentMethodFull {
		return ""
	}
	return string(c.SubMethod)
}

func emiTermFor(c Checkout) int {
	if c.Method != enums.PaymentMethodEMI {
		return 0
	}
	return c.EMITermMonths
}
