// Package httpapi exposes the authentication flows over HTTP. Routing is
// gorilla/mux with a bearer-protected subrouter; bodies are JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// AuthService is the slice of UserService the handlers need.
type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*services.RegistrationResult, error)
	VerifyRegistration(ctx context.Context, email, code string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, confirmPassword string) (*services.ResolvedCode, error)
	ConfirmPasswordChange(ctx context.Context, userID int64, code, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (*services.ResolvedCode, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	CurrentUser(ctx context.Context, email string) (*models.User, error)
}

var _ AuthService = (*services.UserService)(nil)

// HTTPServer serves the public authentication API.
type HTTPServer struct {
	address   string
	logger    logging.Logger
	users     AuthService
	jwtSecret []byte
}

// NewHTTPServer constructs an HTTPServer.
func NewHTTPServer(a string, l logging.Logger, us AuthService, secretKey string) (*HTTPServer, error) {
	return &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		jwtSecret: []byte(secretKey),
	}, nil
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
