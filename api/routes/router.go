package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/wayfarer-backend/api/controllers"
	"github.com/angelmondragon/wayfarer-backend/api/middleware"
	"github.com/angelmondragon/wayfarer-backend/internal/assistant"
	"github.com/angelmondragon/wayfarer-backend/internal/booking"
	"github.com/angelmondragon/wayfarer-backend/internal/chat"
	"github.com/angelmondragon/wayfarer-backend/internal/communities"
	"github.com/angelmondragon/wayfarer-backend/internal/exports"
	"github.com/angelmondragon/wayfarer-backend/internal/payments"
	"github.com/angelmondragon/wayfarer-backend/internal/places"
	"github.com/angelmondragon/wayfarer-backend/internal/trips"
	"github.com/angelmondragon/wayfarer-backend/internal/wallet"
	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/wayfarer-backend/pkg/redis"
)

// redisStore backs idempotency replays and rate limit counters.
type redisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Params wires the router. Nil services leave their routes unmounted.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	Pingers map[string]controllers.Pinger
	Redis   redisStore
	// Metrics serves /metrics when set.
	Metrics http.Handler

	Trips       trips.Service
	Exports     *exports.Service
	Booking     booking.Service
	Wallet      wallet.Service
	Payments    payments.Service
	Assistant   *assistant.Service
	Communities communities.Service
	Chat        chat.Service
	Places      places.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	limiterStore := p.Redis
	idempotent := middleware.Idempotency(limiterStore, logg)
	generatePolicy := middleware.NewRateLimitPolicy("generate", cfg.RateLimit.Window, cfg.RateLimit.GenerateLimit, 0)
	assistantPolicy := middleware.NewRateLimitPolicy("assistant", cfg.RateLimit.Window, cfg.RateLimit.AssistantLimit, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			if p.Trips != nil {
				r.Route("/trips", func(r chi.Router) {
					r.Get("/", controllers.ListTrips(p.Trips, logg))
					r.With(
						middleware.RateLimit(generatePolicy, limiterStore, logg),
						idempotent,
					).Post("/", controllers.GenerateTrip(p.Trips, logg))

					r.Route("/{tripId}", func(r chi.Router) {
						r.Get("/", controllers.GetTrip(p.Trips, logg))
						r.Delete("/", controllers.DeleteTrip(p.Trips, logg))
						if p.Exports != nil {
							r.Get("/export.pdf", controllers.ExportTripPDF(p.Exports, logg))
						}
						if p.Booking != nil {
							r.Route("/booking", bookingRoutes(p.Booking, idempotent, logg))
						}
					})
				})
			}

			if p.Places != nil {
				r.Get("/destinations", controllers.SuggestDestinations(p.Places, logg))
				r.Get("/destinations/{placeId}", controllers.ResolveDestination(p.Places, logg))
			}

			if p.Wallet != nil {
				r.Get("/wallet", controllers.WalletBalance(p.Wallet, logg))
				r.Get("/wallet/entries", controllers.WalletHistory(p.Wallet, logg))
			}
			if p.Payments != nil {
				r.Get("/payments", controllers.PaymentHistory(p.Payments, logg))
				r.Get("/payments/{transactionId}", controllers.GetPayment(p.Payments, logg))
			}

			if p.Assistant != nil {
				r.Route("/assistant", func(r chi.Router) {
					r.With(middleware.RateLimit(assistantPolicy, limiterStore, logg)).
						Post("/messages", controllers.AssistantAsk(p.Assistant, logg))
					r.Get("/conversations/{conversationId}", controllers.AssistantConversation(p.Assistant, logg))
				})
			}

			if p.Communities != nil {
				r.Route("/communities", func(r chi.Router) {
					r.Get("/", controllers.ListCommunities(p.Communities, logg))
					r.With(idempotent).Post("/", controllers.CreateCommunity(p.Communities, logg))

					r.Route("/{communityId}", func(r chi.Router) {
						r.Get("/", controllers.GetCommunity(p.Communities, logg))
						r.Post("/join", controllers.JoinCommunity(p.Communities, logg))
						r.Post("/leave", controllers.LeaveCommunity(p.Communities, logg))

						if p.Chat != nil {
							r.Get("/messages", controllers.ChatHistory(p.Chat, logg))
							r.With(idempotent).Post("/messages", controllers.SendChatMessage(p.Chat, logg))
							r.Patch("/messages/{messageId}", controllers.EditChatMessage(p.Chat, logg))
							r.Delete("/messages/{messageId}", controllers.DeleteChatMessage(p.Chat, logg))
							r.Get("/socket", controllers.ChatSocket(p.Chat, cfg.App.CORSOrigins, logg))
						}
					})
				})
			}
		})
	})

	return r
}

func bookingRoutes(svc booking.Service, idempotent func(http.Handler) http.Handler, logg *logger.Logger) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", controllers.GetBooking(svc, logg))
		r.Post("/", controllers.OpenBooking(svc, logg))

		r.Route("/edit", func(r chi.Router) {
			r.Post("/", controllers.BeginEdit(svc, logg))
			r.Patch("/activity", controllers.EditActivity(svc, logg))
			r.Delete("/days/{day}/activities/{activity}", controllers.DeleteActivity(svc, logg))
			r.Patch("/details", controllers.EditDetails(svc, logg))
			r.With(idempotent).Post("/save", controllers.SaveEdits(svc, logg))
			r.Post("/discard", controllers.DiscardEdits(svc, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.OpenCheckout(svc, logg))
			r.Patch("/", controllers.UpdateCheckout(svc, logg))
			r.Delete("/", controllers.CloseCheckout(svc, logg))
			r.Put("/friends/{index}", controllers.SetFriend(svc, logg))
			r.Post("/promo", controllers.ApplyPromo(svc, logg))
			r.With(idempotent).Post("/pay", controllers.PayBooking(svc, logg))
		})
	}
}
