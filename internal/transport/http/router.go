package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"treasure-raffle/internal/app/admin"
	"treasure-raffle/internal/app/hunt"
	"treasure-raffle/internal/app/raffle"
	"treasure-raffle/internal/stream"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Hunts   *hunt.Service
	Raffles *raffle.Service
	Admin   *admin.Service
	Hub     *stream.Hub

	AdminAPIKey string

	// Ping checks the commit backend for /healthz; nil for the file backend.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	huntHandlers := NewHuntHandlers(d.Hunts)
	raffleHandlers := NewRaffleHandlers(d.Raffles)
	adminHandlers := NewAdminHandlers(d.Admin, d.Ping)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/wallet", WalletHandler(d.Hunts, d.Admin))
		r.Get("/flows", FlowsHandler(d.Hunts, d.Raffles, d.Admin))
		r.Get("/flows/events", FlowEventsHandler(d.Hub))

		r.Get("/hunts", huntHandlers.Hunts())
		r.Get("/hunts/{hunt_id}/board", huntHandlers.Board())
		r.Get("/hunts/{hunt_id}/events", HuntEventsHandler(d.Hunts, d.Hub))
		r.Post("/hunts/{hunt_id}/squares/{square}/commit", huntHandlers.Commit())
		r.Post("/hunts/{hunt_id}/squares/{square}/reveal", huntHandlers.Reveal())
		r.Post("/hunts/{hunt_id}/reveal-all", huntHandlers.RevealAll())
		r.Post("/hunts/{hunt_id}/claim-all", huntHandlers.ClaimAll())
		r.Post("/hunts/{hunt_id}/treasures/{index}/claim", huntHandlers.ClaimTreasure())
		r.Post("/hunts/{hunt_id}/bonus-key", huntHandlers.BonusKey())
		r.Post("/keys", huntHandlers.BuyKeys())

		r.Get("/raffles", raffleHandlers.Overview())
		r.Get("/raffles/history", raffleHandlers.History())
		r.Get("/raffles/claimables", raffleHandlers.Claimables())
		r.Get("/raffles/draw-eligibility", raffleHandlers.DrawEligibility())
		r.Post("/raffles/{raffle_id}/join", raffleHandlers.Join())
		r.Post("/raffles/{raffle_id}/claim", raffleHandlers.Claim())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Get("/pending", adminHandlers.Pending())
			r.Get("/withdrawable", adminHandlers.Withdrawable())
			r.Post("/treasury", adminHandlers.TreasuryTransfer())

			r.Post("/raffles", adminHandlers.CreateRaffle())
			r.Post("/raffles/{raffle_id}/finalize", adminHandlers.RaffleAction(d.Admin.FinalizeRaffle))
			r.Post("/raffles/{raffle_id}/cancel", adminHandlers.RaffleAction(d.Admin.CancelRaffle))
			r.Post("/raffles/{raffle_id}/cancel-stuck", adminHandlers.RaffleAction(d.Admin.CancelStuckRaffle))
			r.Post("/raffles/{raffle_id}/complete", adminHandlers.RaffleAction(d.Admin.CompleteRaffle))

			r.Post("/hunts", adminHandlers.CreateHunt())
			r.Post("/hunts/{hunt_id}/end", adminHandlers.HuntAction(d.Admin.EndHunt))
			r.Post("/hunts/{hunt_id}/cancel", adminHandlers.HuntAction(d.Admin.CancelHunt))
			r.Post("/hunts/{hunt_id}/complete", adminHandlers.HuntAction(d.Admin.CompleteHunt))

			r.Route("/debug", func(r chi.Router) {
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
