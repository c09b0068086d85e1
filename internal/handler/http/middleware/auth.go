package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-analytics/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-analytics/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, jwt.ErrInvalidToken)
				return
			}

			if _, err := jwt.ClaimsFromContext(r.Context()); err != nil {
				response.HandleError(w, jwt.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireAnalyticsAccess lets owners and managers of a company through
func RequireAnalyticsAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, jwt.ErrInvalidToken)
			return
		}

		if claims.CompanyID == "" {
			response.HandleError(w, jwt.ErrCompanyIDRequired)
			return
		}

		if !claims.CanViewAnalytics() {
			response.HandleError(w, jwt.ErrAnalyticsForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
