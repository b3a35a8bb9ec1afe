package middleware

import (
	"net/http"
	"strings"

	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/pkg/auth"
	"github.com/digikart/digikart-backend/pkg/config"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

const bearerPrefix = "Bearer "

// Auth validates the bearer token and installs the customer id into the
// request context. Requests without a valid token never reach the handler.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), w, logg, err)
				return
			}

			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), w, logg,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			ctx := WithCustomerID(r.Context(), claims.CustomerID)
			ctx = logg.WithCustomerID(ctx, claims.CustomerID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization header is not a bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "empty bearer token")
	}
	return token, nil
}
