package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the public router and the bearer-protected subrouter.
// Middleware is executed in registration order.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, http.StatusNotFound, "route not found")
	})

	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/reset-password", s.handleRequestPasswordReset).Methods(http.MethodPost)
	api.HandleFunc("/reset-password/confirm", s.handleResetPassword).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/change-password", s.handleChangePassword).Methods(http.MethodPost)
	protected.HandleFunc("/change-password/confirm", s.handleConfirmPasswordChange).Methods(http.MethodPost)
	protected.HandleFunc("/current-user", s.handleCurrentUser).Methods(http.MethodGet)

	return r
}
