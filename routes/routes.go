package routes

import (
	"tessera/auth"
	"tessera/grants"
	"tessera/middleware"
	"tessera/ratelim"
	"tessera/reservables"
	"tessera/reservations"
	"tessera/timeline"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", auth.LogoutUser)
	router.POST("/api/auth/token/refresh", ratelim.RateLimit(auth.RefreshToken))
}

func AddReservableRoutes(router *httprouter.Router) {
	router.GET("/api/sets", reservables.ListSets)
	router.GET("/api/sets/:slug", reservables.GetSet)
	router.GET("/api/sets/:slug/reservables", reservables.ListSetReservables)
	router.POST("/api/sets", middleware.RequireAdmin(reservables.CreateSet))
	router.PUT("/api/sets/:slug", middleware.RequireAdmin(reservables.UpdateSet))
	router.DELETE("/api/sets/:slug", middleware.RequireAdmin(reservables.DeleteSet))

	router.GET("/api/reservables", reservables.ListReservables)
	router.GET("/api/reservables/:slug", reservables.GetReservable)
	router.POST("/api/reservables", middleware.RequireAdmin(reservables.CreateReservable))
	router.PUT("/api/reservables/:slug", middleware.RequireAdmin(reservables.UpdateReservable))
	router.DELETE("/api/reservables/:slug", middleware.RequireAdmin(reservables.DeleteReservable))

	router.GET("/api/resources", reservables.ListResources)
	router.POST("/api/resources", middleware.RequireAdmin(reservables.CreateResource))
	router.DELETE("/api/resources/:slug", middleware.RequireAdmin(reservables.DeleteResource))
}

func AddReservationRoutes(router *httprouter.Router) {
	router.POST("/api/reservations", ratelim.RateLimit(middleware.Authenticate(reservations.CreateReservation)))
	router.GET("/api/reservations", middleware.OptionalAuth(reservations.GetReservations))
	router.GET("/api/reservations/:id", reservations.GetReservation)
	router.PUT("/api/reservations/:id", ratelim.RateLimit(middleware.Authenticate(reservations.UpdateReservation)))
	router.DELETE("/api/reservations/:id", middleware.Authenticate(reservations.DeleteReservation))
	router.GET("/api/reservations/:id/pass", middleware.Authenticate(reservations.ReservationPass))

	router.GET("/api/sets/:slug/types/:type/my", middleware.Authenticate(reservations.MyReservationsInSet))
	router.POST("/api/reservations/prune", middleware.RequireAdmin(reservations.PruneReservations))
}

func AddTimelineRoutes(router *httprouter.Router) {
	router.GET("/api/sets/:slug/types/:type/timeview", ratelim.RateLimit(timeline.TimeView))
	router.GET("/ws/reservables/:slug", reservations.ReservableWS)
}

func AddGrantRoutes(router *httprouter.Router) {
	router.POST("/api/grants", middleware.RequireAdmin(grants.CreateGrant))
	router.DELETE("/api/grants", middleware.RequireAdmin(grants.DeleteGrant))
	router.GET("/api/grants/:actorid", middleware.RequireAdmin(grants.ListGrants))
}
